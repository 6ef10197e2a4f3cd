package domain

// RiskLevel is the four-step alert scale shown on the dashboard.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskRule contributes Weight to the storm probability when the reading
// crosses Threshold. Above selects the comparison direction: pressure is the
// one factor that raises risk when it drops below its threshold.
type RiskRule struct {
	Threshold float64 `json:"threshold"`
	Weight    float64 `json:"weight"`
	Above     bool    `json:"above"`
}

// RiskModel is the threshold-rule parameter set used to score conditions.
// It is a plain serializable value so tuned variants can be persisted in the
// model cache and swapped without a deploy.
type RiskModel struct {
	Name        string   `json:"name"`
	Temperature RiskRule `json:"temperature"`
	Humidity    RiskRule `json:"humidity"`
	Pressure    RiskRule `json:"pressure"`
	WindSpeed   RiskRule `json:"wind_speed"`
	CloudCover  RiskRule `json:"cloud_cover"`
}

// DefaultRiskModel returns the baseline rule set.
func DefaultRiskModel() RiskModel {
	return RiskModel{
		Name:        "threshold_baseline",
		Temperature: RiskRule{Threshold: 30, Weight: 0.20, Above: true},
		Humidity:    RiskRule{Threshold: 80, Weight: 0.30, Above: true},
		Pressure:    RiskRule{Threshold: 1000, Weight: 0.25, Above: false},
		WindSpeed:   RiskRule{Threshold: 20, Weight: 0.15, Above: true},
		CloudCover:  RiskRule{Threshold: 70, Weight: 0.10, Above: true},
	}
}

// Assessment is the scored storm risk for one set of conditions.
type Assessment struct {
	Probability     float64   `json:"probability"` // 0..1
	Level           RiskLevel `json:"level"`
	Headline        string    `json:"headline"`
	Recommendations []string  `json:"recommendations"`
}

// Assess scores conditions against the model's threshold rules.
func (m RiskModel) Assess(c Conditions) Assessment {
	p := 0.0
	p += m.Temperature.apply(c.Temperature)
	p += m.Humidity.apply(c.Humidity)
	p += m.Pressure.apply(c.Pressure)
	p += m.WindSpeed.apply(c.WindSpeed)
	p += m.CloudCover.apply(c.CloudCover)
	if p > 1.0 {
		p = 1.0
	}

	level := levelFor(p)
	return Assessment{
		Probability:     p,
		Level:           level,
		Headline:        headlines[level],
		Recommendations: recommendations[level],
	}
}

func (r RiskRule) apply(reading float64) float64 {
	if r.Above {
		if reading > r.Threshold {
			return r.Weight
		}
		return 0
	}
	if reading < r.Threshold {
		return r.Weight
	}
	return 0
}

func levelFor(p float64) RiskLevel {
	switch {
	case p < 0.40:
		return RiskLow
	case p < 0.60:
		return RiskModerate
	case p < 0.80:
		return RiskHigh
	default:
		return RiskCritical
	}
}

var headlines = map[RiskLevel]string{
	RiskLow:      "Normal conditions, flying is safe",
	RiskModerate: "Monitor conditions, caution advised",
	RiskHigh:     "Caution advised, avoid night flying",
	RiskCritical: "Storm imminent, do not fly",
}

var recommendations = map[RiskLevel][]string{
	RiskLow: {
		"Conditions suitable for flight",
		"Standard monitoring recommended",
	},
	RiskModerate: {
		"Monitor weather conditions closely",
		"Consider an alternate route",
	},
	RiskHigh: {
		"Avoid night flying",
		"Plan an escape route",
		"Carry extra fuel",
		"Maintain constant contact with control",
	},
	RiskCritical: {
		"Do not fly, conditions are dangerous",
		"Seek shelter immediately",
		"Keep aircraft hangared",
		"Contact the meteorological authority",
	},
}
