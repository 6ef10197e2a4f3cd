package domain

import "time"

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Station identifies the resolved observation location.
type Station struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	Geo     Geo    `json:"geo"`
}

// Conditions is the flattened current-weather summary for one location.
type Conditions struct {
	Temperature   float64   `json:"temperature"`    // °C
	Humidity      float64   `json:"humidity"`       // %
	Pressure      float64   `json:"pressure"`       // hPa
	WindSpeed     float64   `json:"wind_speed"`     // m/s
	WindDirection float64   `json:"wind_direction"` // degrees
	CloudCover    float64   `json:"cloud_cover"`    // %
	Visibility    float64   `json:"visibility"`     // km
	Description   string    `json:"description"`
	Source        string    `json:"source"`
	Station       Station   `json:"station"`
	ObservedAt    time.Time `json:"observed_at"`
}
