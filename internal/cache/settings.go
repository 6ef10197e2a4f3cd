package cache

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"
)

// Settings holds the per-namespace TTL policy. The max size is a declared
// hint only; nothing evicts on it.
type Settings struct {
	ModelTTL       time.Duration
	DataTTL        time.Duration
	MaxCacheSizeMB int
}

// DefaultSettings mirrors the stock policy: models are expensive to retrain
// so they live for a week, datasets go stale within the hour.
func DefaultSettings() Settings {
	return Settings{
		ModelTTL:       168 * time.Hour,
		DataTTL:        time.Hour,
		MaxCacheSizeMB: 1000,
	}
}

// settingsFile is the on-disk shape of config/cache_config.json. Pointer
// fields distinguish "absent" from zero so a partial file overrides only
// what it names.
type settingsFile struct {
	ModelTTLHours  *int `json:"model_ttl_hours"`
	DataTTLHours   *int `json:"data_ttl_hours"`
	MaxCacheSizeMB *int `json:"max_cache_size_mb"`
}

// loadSettings reads the config sidecar, falling back to defaults when the
// file is absent or malformed. Malformed config is non-fatal.
func loadSettings(path string, logger *slog.Logger) Settings {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("cache config unreadable, using defaults", "path", path, "error", err)
		}
		return s
	}

	var f settingsFile
	if err := json.Unmarshal(data, &f); err != nil {
		logger.Warn("cache config malformed, using defaults", "path", path, "error", err)
		return s
	}

	if f.ModelTTLHours != nil && *f.ModelTTLHours > 0 {
		s.ModelTTL = time.Duration(*f.ModelTTLHours) * time.Hour
	}
	if f.DataTTLHours != nil && *f.DataTTLHours > 0 {
		s.DataTTL = time.Duration(*f.DataTTLHours) * time.Hour
	}
	if f.MaxCacheSizeMB != nil && *f.MaxCacheSizeMB > 0 {
		s.MaxCacheSizeMB = *f.MaxCacheSizeMB
	}
	return s
}
