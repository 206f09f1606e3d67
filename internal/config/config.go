// Package config owns the process-wide, lazily-read settings described in
// spec section 4.5: the cap class, sanitizer options, remote endpoint
// credentials, and the paused flag. It generalizes the teacher's single
// lifecycleCallback field (internal/capture/capture-struct.go) into a list
// of independent subscribers, and its settings.json persistence
// (internal/capture/settings.go) into the reactive config file below.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// CapClass is one of the five discrete storage ceilings.
type CapClass string

const (
	Cap100MB CapClass = "100MB"
	Cap250MB CapClass = "250MB"
	Cap500MB CapClass = "500MB"
	Cap1GB   CapClass = "1GB"
	Cap2GB   CapClass = "2GB"
)

// Bytes returns the byte ceiling for a cap class, or the default's if cc is unrecognized.
func (cc CapClass) Bytes() int64 {
	switch cc {
	case Cap100MB:
		return 100 << 20
	case Cap250MB:
		return 250 << 20
	case Cap500MB:
		return 500 << 20
	case Cap1GB:
		return 1 << 30
	case Cap2GB:
		return 2 << 30
	default:
		return Cap500MB.Bytes()
	}
}

// Scope selects which tabs a clip request defaults to when none are given.
type Scope string

const (
	ScopeCurrentTab Scope = "current-tab"
	ScopeSelectTabs Scope = "select-tabs"
	ScopeAllTabs    Scope = "all-tabs"
)

// Settings is the full set of reactive configuration keys (spec section 4.5).
type Settings struct {
	Paused              bool     `json:"paused"`
	StorageCapClass     CapClass `json:"storage_cap_class"`
	DefaultScope        Scope    `json:"default_scope"`
	SanitizeURLParams   bool     `json:"sanitize_url_params"`
	CustomHeaderPatterns []string `json:"custom_header_patterns"`
	EndpointURL         string   `json:"endpoint_url"`
	EndpointKey         string   `json:"endpoint_key"`
}

// Defaults returns the documented default settings.
func Defaults() Settings {
	return Settings{
		Paused:               false,
		StorageCapClass:      Cap500MB,
		DefaultScope:         ScopeCurrentTab,
		SanitizeURLParams:    true,
		CustomHeaderPatterns: nil,
	}
}

// Change describes what key changed and the settings snapshot after the change.
type Change struct {
	Key      string
	Settings Settings
}

// Config is process-wide, read-mostly, written from the control-plane path.
// Readers see a consistent snapshot per call (spec section 5).
type Config struct {
	mu   sync.RWMutex
	path string
	cur  Settings

	subsMu sync.Mutex
	subs   []chan Change

	log *logrus.Entry
}

// Load reads persisted settings from path, falling back to Defaults() if the
// file does not exist. A file that cannot be read or parsed is an error.
func Load(path string) (*Config, error) {
	c := &Config{path: path, cur: Defaults(), log: logrus.New().WithField("component", "config")}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.log.WithField("path", path).Info("config: no persisted settings, using defaults")
			return c, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.cur = s
	return c, nil
}

// SetLogger replaces the component's logger. Intended for callers that build
// a process-wide logrus.Logger after Load (Load itself has no logger to take
// one from yet).
func (c *Config) SetLogger(log *logrus.Logger) {
	if log == nil {
		return
	}
	c.log = log.WithField("component", "config")
}

// Snapshot returns a copy of the current settings.
func (c *Config) Snapshot() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}

// Subscribe returns a channel that receives every subsequent Change. The
// channel is buffered (capacity 8; changes that arrive while it is full are
// dropped) so a slow subscriber never blocks Set.
func (c *Config) Subscribe() <-chan Change {
	ch := make(chan Change, 8)
	c.subsMu.Lock()
	c.subs = append(c.subs, ch)
	c.subsMu.Unlock()
	return ch
}

func (c *Config) notify(key string, s Settings) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- Change{Key: key, Settings: s}:
		default: // drop rather than block a slow subscriber
		}
	}
}

// Set applies a mutator to the current settings, persists the result, and
// notifies subscribers which key changed.
func (c *Config) set(key string, mutate func(*Settings)) error {
	c.mu.Lock()
	mutate(&c.cur)
	snapshot := c.cur
	c.mu.Unlock()

	if err := c.persist(snapshot); err != nil {
		return err
	}
	c.log.WithField("key", key).Debug("config: setting changed")
	c.notify(key, snapshot)
	return nil
}

func (c *Config) persist(s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("config: write temp: %w", err)
	}
	return os.Rename(tmp, c.path)
}

// SetPaused updates the paused flag. Capture subscribes to this key to
// drive its attach/detach cycle (spec section 4.5).
func (c *Config) SetPaused(paused bool) error {
	return c.set("paused", func(s *Settings) { s.Paused = paused })
}

// SetStorageCapClass updates the cap class. Buffer Manager subscribes to
// this key to trigger an immediate pass (spec section 4.5).
func (c *Config) SetStorageCapClass(cc CapClass) error {
	return c.set("storage_cap_class", func(s *Settings) { s.StorageCapClass = cc })
}

// SetDefaultScope updates the default clip scope.
func (c *Config) SetDefaultScope(scope Scope) error {
	return c.set("default_scope", func(s *Settings) { s.DefaultScope = scope })
}

// SetSanitizeURLParams toggles URL-param sanitization.
func (c *Config) SetSanitizeURLParams(enabled bool) error {
	return c.set("sanitize_url_params", func(s *Settings) { s.SanitizeURLParams = enabled })
}

// SetCustomHeaderPatterns replaces the custom substring pattern list.
func (c *Config) SetCustomHeaderPatterns(patterns []string) error {
	return c.set("custom_header_patterns", func(s *Settings) { s.CustomHeaderPatterns = patterns })
}

// SetEndpoint updates the remote store URL and key together.
func (c *Config) SetEndpoint(url, key string) error {
	return c.set("endpoint", func(s *Settings) {
		s.EndpointURL = url
		s.EndpointKey = key
	})
}
