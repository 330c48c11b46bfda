// Package config loads and persists the server configuration.
package config

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the on-disk configuration document.
type Config struct {
	General GeneralConfig             `yaml:"general"`
	Log     LogConfig                 `yaml:"log"`
	Audio   AudioConfig               `yaml:"audio"`
	Modules map[string]map[string]any `yaml:"modules"`
}

// GeneralConfig represents server-wide settings.
type GeneralConfig struct {
	Name string `yaml:"name" default:"aircat" validate:"required"`
	Addr string `yaml:"addr" default:":8080" validate:"required"`
}

// LogConfig represents global logger settings.
type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Output string `yaml:"output" default:"stdout"`
	File   string `yaml:"file"`
}

// AudioConfig represents output device settings.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferMs   int `yaml:"buffer_ms" default:"100" validate:"gte=10,lte=5000"`
}

// Store holds the configuration and the file it round-trips through.
// Modules pull their sections at open and push them back before save.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// Open reads the configuration file at path. A missing file is not an
// error: the store starts from defaults and Save creates the file.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the configuration file, replacing the in-memory state.
// Environment variables take precedence over file values.
func (s *Store) Reload() error {
	var cfg Config

	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return errors.Wrap(err, "failed to parse config file")
		}
	case os.IsNotExist(err):
		// First run: defaults only.
	default:
		return errors.Wrap(err, "failed to read config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return errors.Wrap(err, "config validation failed")
	}
	if cfg.Modules == nil {
		cfg.Modules = map[string]map[string]any{}
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// Save writes the current configuration back to the file.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := yaml.Marshal(&s.cfg)
	s.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// General returns the server-wide settings.
func (s *Store) General() GeneralConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.General
}

// Log returns the logger settings.
func (s *Store) Log() LogConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Log
}

// Audio returns the output device settings.
func (s *Store) Audio() AudioConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Audio
}

// Module returns the stored section for a module, or nil when the
// document has none.
func (s *Store) Module(name string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Modules[name]
}

// SetModule replaces the stored section for a module. A nil document
// removes the section.
func (s *Store) SetModule(name string, doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc == nil {
		delete(s.cfg.Modules, name)
		return
	}
	s.cfg.Modules[name] = doc
}

func (c *Config) overrideFromEnv() {
	if v := os.Getenv("AIRCAT_ADDR"); v != "" {
		c.General.Addr = v
	}
	if v := os.Getenv("AIRCAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}
