package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/starford/anchorlink/internal/checksum"
	"gopkg.in/yaml.v3"
)

// Store persists settings as a YAML file. Load merges the stored partial
// object over Defaults; keys it does not know are kept and written back on Save.
type Store struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	raw      map[string]interface{}
	seq      uint64
	written  uint64
	lastSum  string
	inflight sync.WaitGroup
}

// NewStore creates a store backed by the file at path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file. A missing file yields Defaults.
func (s *Store) Load() (Settings, error) {
	cfg := Defaults()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("settings: read %s: %w", s.path, err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("settings: parse %s: %w", s.path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults(), fmt.Errorf("settings: decode %s: %w", s.path, err)
	}

	cfg, fixed := cfg.normalize()
	if len(fixed) > 0 {
		s.logger.Warn("settings: replaced invalid values",
			slog.String("path", s.path),
			slog.String("fields", strings.Join(fixed, ",")))
	}

	s.mu.Lock()
	s.raw = raw
	s.lastSum = checksum.Sum(data)
	s.mu.Unlock()

	return cfg, nil
}

// Save writes cfg in the background. Completion is not awaited; failures are
// logged. Writes land in call order: a save overtaken by a newer one is dropped.
func (s *Store) Save(cfg Settings) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.write(seq, cfg); err != nil {
			s.logger.Warn("settings: save failed",
				slog.String("path", s.path),
				slog.String("error", err.Error()))
		}
	}()
}

// Wait blocks until every pending Save has finished.
func (s *Store) Wait() {
	s.inflight.Wait()
}

// Unchanged reports whether data is exactly what the store last read or wrote.
func (s *Store) Unchanged(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return checksum.Matches(data, s.lastSum)
}

func (s *Store) write(seq uint64, cfg Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq <= s.written {
		return nil
	}

	merged := make(map[string]interface{}, len(s.raw)+7)
	for k, v := range s.raw {
		merged[k] = v
	}
	merged["includeNoteName"] = string(cfg.IncludeNoteName)
	merged["titleProperty"] = cfg.TitleProperty
	merged["whichHeadings"] = string(cfg.WhichHeadings)
	merged["includeNotice"] = cfg.IncludeNotice
	merged["sep"] = cfg.Sep
	merged["suggest"] = cfg.Suggest
	merged["ignoreEmbedded"] = cfg.IgnoreEmbedded

	data, err := yaml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return err
	}

	s.raw = merged
	s.written = seq
	s.lastSum = checksum.Sum(data)
	return nil
}

// writeAtomic writes content via tmp file, fsync, rename.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".anchorlink-settings-*")
	if err != nil {
		return fmt.Errorf("settings: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("settings: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("settings: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("settings: rename: %w", err)
	}
	success = true
	return nil
}
