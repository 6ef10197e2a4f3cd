// Package domain models current weather conditions and the storm-risk
// assessment derived from them.
//
// # Data Source
//
// Conditions come from the OpenWeatherMap current-weather API, fetched in two
// steps: the location string (e.g. "Cordoba,AR") is geocoded to a lat/lon via
// the /geo/1.0/direct endpoint, then /data/2.5/weather is queried with metric
// units. The adapter flattens the response into [Conditions]: temperature °C,
// humidity %, pressure hPa, wind speed m/s, wind direction °, cloud cover %,
// visibility km.
//
// # Risk Scoring
//
// Storm probability is a weighted sum of five threshold rules, each
// contributing a fixed weight when its reading crosses the configured
// threshold, capped at 1.0:
//
//	temperature > 30 °C   → +0.20
//	humidity    > 80 %    → +0.30
//	pressure    < 1000 hPa → +0.25
//	wind speed  > 20 m/s  → +0.15
//	cloud cover > 70 %    → +0.10
//
// The probability maps to a four-level alert scale used by the dashboard:
//
//	< 0.40 low | < 0.60 moderate | < 0.80 high | ≥ 0.80 critical
//
// The rule set is expressed as a [RiskModel] value rather than constants so a
// retrained or tuned parameter set can be stored and loaded through the cache
// layer under a stable model name.
//
// # Alert IDs
//
// Alert IDs are deterministic SHA-256 hashes of location|level|time bucket.
// Publishing the same assessment twice within a bucket produces the same ID,
// which lets downstream consumers deduplicate without coordination.
package domain
