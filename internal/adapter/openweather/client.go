package openweather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"resty.dev/v3"

	"github.com/couchcryptid/weather-alert-dashboard/internal/domain"
	"github.com/couchcryptid/weather-alert-dashboard/internal/observability"
)

// Provider fetches current conditions for a location query string
// (e.g. "Cordoba,AR").
type Provider interface {
	CurrentConditions(ctx context.Context, location string) (domain.Conditions, error)
}

// Client implements Provider against the OpenWeatherMap API: the location is
// geocoded first, then current weather is fetched for the resolved coordinates.
type Client struct {
	apiKey  string
	rc      *resty.Client
	baseURL string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates an OpenWeatherMap client.
func NewClient(apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		rc:      resty.New().SetTimeout(timeout),
		baseURL: "https://api.openweathermap.org",
		metrics: metrics,
		logger:  logger,
	}
}

type geoEntry struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type weatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Visibility float64 `json:"visibility"` // meters
	Dt         int64   `json:"dt"`
}

// CurrentConditions resolves the location and returns its current weather.
func (c *Client) CurrentConditions(ctx context.Context, location string) (domain.Conditions, error) {
	start := time.Now()

	cond, err := c.fetch(ctx, location)

	if c.metrics != nil {
		c.metrics.WeatherFetchDuration.Observe(time.Since(start).Seconds())
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		c.metrics.WeatherFetches.WithLabelValues(outcome).Inc()
	}
	return cond, err
}

func (c *Client) fetch(ctx context.Context, location string) (domain.Conditions, error) {
	station, err := c.geocode(ctx, location)
	if err != nil {
		return domain.Conditions{}, err
	}

	var wr weatherResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   fmt.Sprintf("%f", station.Geo.Lat),
			"lon":   fmt.Sprintf("%f", station.Geo.Lon),
			"appid": c.apiKey,
			"units": "metric",
		}).
		SetResult(&wr).
		Get(c.baseURL + "/data/2.5/weather")
	if err != nil {
		return domain.Conditions{}, fmt.Errorf("fetch current weather for %q: %w", location, err)
	}
	if resp.IsError() {
		return domain.Conditions{}, fmt.Errorf("fetch current weather for %q: status %d", location, resp.StatusCode())
	}

	description := ""
	if len(wr.Weather) > 0 {
		description = wr.Weather[0].Description
	}

	return domain.Conditions{
		Temperature:   wr.Main.Temp,
		Humidity:      wr.Main.Humidity,
		Pressure:      wr.Main.Pressure,
		WindSpeed:     wr.Wind.Speed,
		WindDirection: wr.Wind.Deg,
		CloudCover:    wr.Clouds.All,
		Visibility:    wr.Visibility / 1000, // meters to km
		Description:   description,
		Source:        "OpenWeatherMap",
		Station:       station,
		ObservedAt:    time.Unix(wr.Dt, 0).UTC(),
	}, nil
}

func (c *Client) geocode(ctx context.Context, location string) (domain.Station, error) {
	var entries []geoEntry
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     location,
			"limit": "1",
			"appid": c.apiKey,
		}).
		SetResult(&entries).
		Get(c.baseURL + "/geo/1.0/direct")
	if err != nil {
		return domain.Station{}, fmt.Errorf("geocode %q: %w", location, err)
	}
	if resp.IsError() {
		return domain.Station{}, fmt.Errorf("geocode %q: status %d", location, resp.StatusCode())
	}
	if len(entries) == 0 {
		return domain.Station{}, fmt.Errorf("geocode %q: no results", location)
	}

	e := entries[0]
	return domain.Station{
		Name:    e.Name,
		Country: e.Country,
		Geo:     domain.Geo{Lat: e.Lat, Lon: e.Lon},
	}, nil
}

// Close releases the underlying HTTP client resources.
func (c *Client) Close() error {
	return c.rc.Close()
}
