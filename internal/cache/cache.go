// Package cache is a filesystem-backed key-value store for opaque serialized
// payloads (risk models, fetched datasets), keyed by caller-chosen logical
// names with independent per-namespace TTLs.
//
// Entries are addressed by name rather than content hash so callers get a
// stable, human-inspectable slot to overwrite (models/storm_risk_model.gob on
// disk). Expiry is lazy: Load deletes entries past their TTL on read, and
// CleanupExpired sweeps both namespaces on demand. Every public operation
// swallows I/O errors into a logged sentinel return; callers treat the cache
// as best-effort and fall back to recomputation.
//
// No locking is performed across concurrent writers to the same entry; the
// last completed write wins. The intended deployment is a handful of
// interactive users, so this is an accepted limitation rather than an
// invariant.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-alert-dashboard/internal/observability"
)

// Namespace selects the TTL policy and directory for an entry.
type Namespace string

const (
	NamespaceModel Namespace = "model"
	NamespaceData  Namespace = "data"
)

const metaSuffix = "_meta.json"

// EntryInfo describes one live entry, as reported by Stats.
type EntryInfo struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Stats is a snapshot of the live entries in both namespaces.
type Stats struct {
	TotalModels    int         `json:"total_models"`
	TotalDataFiles int         `json:"total_data_files"`
	TotalSizeBytes int64       `json:"total_size_bytes"`
	Models         []EntryInfo `json:"models"`
	DataFiles      []EntryInfo `json:"data_files"`
}

// CleanupStats reports how many entries a sweep removed per namespace.
type CleanupStats struct {
	ModelsRemoved int `json:"models_removed"`
	DataRemoved   int `json:"data_removed"`
}

// Options configures a Manager. Zero values select the gob codec, the real
// clock, the default logger, and no metrics.
type Options struct {
	Codec   Codec
	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Manager persists payloads under <root>/{models,data}, with TTL policy in
// <root>/config/cache_config.json.
type Manager struct {
	root      string
	modelsDir string
	dataDir   string
	configDir string

	settings Settings
	codec    Codec
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewManager creates the directory layout and loads the TTL settings.
// It fails only when the directories cannot be created.
func NewManager(root string, opts Options) (*Manager, error) {
	if opts.Codec == nil {
		opts.Codec = GobCodec{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := &Manager{
		root:      root,
		modelsDir: filepath.Join(root, "models"),
		dataDir:   filepath.Join(root, "data"),
		configDir: filepath.Join(root, "config"),
		codec:     opts.Codec,
		clock:     opts.Clock,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}

	for _, dir := range []string{m.modelsDir, m.dataDir, m.configDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	m.settings = loadSettings(filepath.Join(m.configDir, "cache_config.json"), m.logger)
	return m, nil
}

// Settings returns the loaded TTL policy.
func (m *Manager) Settings() Settings {
	return m.settings
}

// CheckReadiness reports whether the backing directories are accessible.
func (m *Manager) CheckReadiness(_ context.Context) error {
	for _, dir := range []string{m.modelsDir, m.dataDir} {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("cache directory inaccessible: %w", err)
		}
	}
	return nil
}

// Save serializes payload under (namespace, name), overwriting any previous
// entry. The overwrite is atomic from the reader's point of view: payload and
// sidecar are staged to temp files and renamed into place. Returns false on
// nil payload, invalid name, or any I/O failure; errors are logged, never
// propagated.
func (m *Manager) Save(ns Namespace, name string, payload any, extra map[string]any) bool {
	if payload == nil {
		m.logger.Error("cache save rejected, nil payload", "namespace", ns, "name", name)
		m.count(ns, "save", "error")
		return false
	}
	if !validName(name) {
		m.logger.Error("cache save rejected, invalid name", "namespace", ns, "name", name)
		m.count(ns, "save", "error")
		return false
	}

	data, err := m.codec.Encode(payload)
	if err != nil {
		m.logger.Error("cache save failed, encode error", "namespace", ns, "name", name, "error", err)
		m.count(ns, "save", "error")
		return false
	}

	dir, ok := m.dirFor(ns)
	if !ok {
		m.count(ns, "save", "error")
		return false
	}

	payloadPath := filepath.Join(dir, name+m.codec.Extension())
	if err := writeAtomic(payloadPath, data); err != nil {
		m.logger.Error("cache save failed", "namespace", ns, "name", name, "error", err)
		m.count(ns, "save", "error")
		return false
	}

	meta := map[string]any{
		"name":       name,
		"created_at": m.clock.Now().UTC().Format(time.RFC3339),
		"size_bytes": len(data),
		"codec":      strings.TrimPrefix(m.codec.Extension(), "."),
	}
	for k, v := range extra {
		meta[k] = v
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err == nil {
		err = writeAtomic(filepath.Join(dir, name+metaSuffix), metaBytes)
	}
	if err != nil {
		// Roll the payload back so a false return matches what is on disk.
		if rmErr := os.Remove(payloadPath); rmErr != nil && !os.IsNotExist(rmErr) {
			m.logger.Error("cache payload rollback failed", "namespace", ns, "name", name, "error", rmErr)
		}
		m.logger.Error("cache metadata write failed", "namespace", ns, "name", name, "error", err)
		m.count(ns, "save", "error")
		return false
	}

	m.logger.Info("cache entry saved", "namespace", ns, "name", name, "size_bytes", len(data))
	m.count(ns, "save", "ok")
	return true
}

// Load decodes the entry named name into dest (a non-nil pointer). Expiry is
// enforced here: an entry older than its namespace TTL is deleted and treated
// as a miss. Returns false on miss, expiry, or any I/O or decode failure.
func (m *Manager) Load(ns Namespace, name string, dest any) bool {
	if !validName(name) {
		m.count(ns, "load", "error")
		return false
	}
	dir, ok := m.dirFor(ns)
	if !ok {
		m.count(ns, "load", "error")
		return false
	}

	payloadPath := filepath.Join(dir, name+m.codec.Extension())
	info, err := os.Stat(payloadPath)
	if err != nil {
		m.count(ns, "load", "miss")
		return false
	}

	if m.expired(info.ModTime(), ns) {
		m.removeEntry(dir, name)
		m.logger.Info("cache entry expired", "namespace", ns, "name", name)
		m.count(ns, "load", "expired")
		return false
	}

	data, err := os.ReadFile(payloadPath)
	if err != nil {
		m.logger.Error("cache load failed", "namespace", ns, "name", name, "error", err)
		m.count(ns, "load", "error")
		return false
	}
	if err := m.codec.Decode(data, dest); err != nil {
		m.logger.Error("cache load failed, decode error", "namespace", ns, "name", name, "error", err)
		m.count(ns, "load", "error")
		return false
	}

	m.count(ns, "load", "ok")
	return true
}

// CleanupExpired sweeps both namespaces and removes every entry older than
// its namespace TTL. This is the only path that removes expired entries
// without an intervening Load.
func (m *Manager) CleanupExpired() CleanupStats {
	var stats CleanupStats
	stats.ModelsRemoved = m.sweep(NamespaceModel)
	stats.DataRemoved = m.sweep(NamespaceData)
	m.logger.Info("cache cleanup complete",
		"models_removed", stats.ModelsRemoved, "data_removed", stats.DataRemoved)
	return stats
}

// Stats enumerates live entries and their sizes without mutating anything.
func (m *Manager) Stats() Stats {
	stats := Stats{Models: []EntryInfo{}, DataFiles: []EntryInfo{}}
	stats.Models = m.list(m.modelsDir)
	stats.DataFiles = m.list(m.dataDir)
	stats.TotalModels = len(stats.Models)
	stats.TotalDataFiles = len(stats.DataFiles)
	for _, e := range stats.Models {
		stats.TotalSizeBytes += e.SizeBytes
	}
	for _, e := range stats.DataFiles {
		stats.TotalSizeBytes += e.SizeBytes
	}
	if m.metrics != nil {
		m.metrics.CacheSizeBytes.Set(float64(stats.TotalSizeBytes))
	}
	return stats
}

// ClearAll unconditionally deletes every entry in both namespaces.
func (m *Manager) ClearAll() bool {
	ok := true
	for _, dir := range []string{m.modelsDir, m.dataDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			m.logger.Error("cache clear failed", "dir", dir, "error", err)
			ok = false
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				m.logger.Error("cache clear failed", "file", e.Name(), "error", err)
				ok = false
			}
		}
	}
	if ok {
		m.logger.Info("cache cleared")
		m.count(NamespaceModel, "clear", "ok")
		m.count(NamespaceData, "clear", "ok")
	}
	return ok
}

func (m *Manager) sweep(ns Namespace) int {
	dir, _ := m.dirFor(ns)
	matches, err := filepath.Glob(filepath.Join(dir, "*"+m.codec.Extension()))
	if err != nil {
		m.logger.Error("cache sweep failed", "namespace", ns, "error", err)
		return 0
	}

	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !m.expired(info.ModTime(), ns) {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), m.codec.Extension())
		if !m.removeEntry(dir, name) {
			continue
		}
		removed++
		m.count(ns, "cleanup", "expired")
	}
	return removed
}

func (m *Manager) list(dir string) []EntryInfo {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+m.codec.Extension()))
	if err != nil {
		m.logger.Error("cache stats scan failed", "dir", dir, "error", err)
		return nil
	}

	infos := make([]EntryInfo, 0, len(matches))
	for _, path := range matches {
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		infos = append(infos, EntryInfo{
			Name:       strings.TrimSuffix(filepath.Base(path), m.codec.Extension()),
			SizeBytes:  fi.Size(),
			ModifiedAt: fi.ModTime().UTC(),
		})
	}
	return infos
}

// expired compares the entry's modification time against the namespace TTL
// using the injected clock.
func (m *Manager) expired(modTime time.Time, ns Namespace) bool {
	ttl := m.settings.DataTTL
	if ns == NamespaceModel {
		ttl = m.settings.ModelTTL
	}
	return m.clock.Now().Sub(modTime) > ttl
}

// removeEntry deletes the payload and its sidecar, reporting whether the
// payload is actually gone. A missing file counts as removed.
func (m *Manager) removeEntry(dir, name string) bool {
	ok := true
	if err := os.Remove(filepath.Join(dir, name+m.codec.Extension())); err != nil && !os.IsNotExist(err) {
		m.logger.Error("cache entry remove failed", "name", name, "error", err)
		ok = false
	}
	if err := os.Remove(filepath.Join(dir, name+metaSuffix)); err != nil && !os.IsNotExist(err) {
		m.logger.Error("cache sidecar remove failed", "name", name, "error", err)
	}
	return ok
}

func (m *Manager) dirFor(ns Namespace) (string, bool) {
	switch ns {
	case NamespaceModel:
		return m.modelsDir, true
	case NamespaceData:
		return m.dataDir, true
	default:
		m.logger.Error("unknown cache namespace", "namespace", ns)
		return "", false
	}
}

func (m *Manager) count(ns Namespace, op, result string) {
	if m.metrics != nil {
		m.metrics.CacheOps.WithLabelValues(string(ns), op, result).Inc()
	}
}

// validName rejects empty names and anything that would escape the namespace
// directory. Logical names are file stems, so they must stay path-free.
func validName(name string) bool {
	if name == "" {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return true
}

// writeAtomic stages data to a temp file in the target directory and renames
// it over path, so readers never observe a partial entry.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
