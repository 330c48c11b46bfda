package files

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/ronnyzhao/AirCat/internal/infra/audio"
)

// Config holds the files module configuration.
type Config struct {
	// Path is the directory all request paths resolve against.
	Path string `mapstructure:"path" default:"/var/aircat/files"`
}

// Module is the files playback module: it owns the controller and its
// config section.
type Module struct {
	mu   sync.RWMutex
	cfg  Config
	out  audio.Output
	ctrl *Controller
}

// New creates the files module bound to the shared output sink.
func New(out audio.Output) *Module {
	return &Module{out: out}
}

func (m *Module) Name() string { return "files" }

func (m *Module) Description() string {
	return "Browse through local folders and play any music file."
}

// Open decodes the module's config section, creates the playback
// controller and starts its scheduler.
func (m *Module) Open(cfg map[string]any) error {
	m.ctrl = NewController(m.out)
	if err := m.SetConfig(cfg); err != nil {
		return err
	}
	m.ctrl.Start()
	zlog.Info().Msgf("files: serving %s", m.root())
	return nil
}

// Close stops the scheduler and playback and drops the playlist.
func (m *Module) Close() error {
	ctrl := m.ctrl
	m.ctrl = nil
	if ctrl != nil {
		ctrl.Close()
	}
	return nil
}

// Config returns the current configuration as a document for the host
// to persist.
func (m *Module) Config() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var doc map[string]any
	if err := mapstructure.Decode(m.cfg, &doc); err != nil {
		zlog.Error().Err(err).Msg("files: cannot encode config")
		return nil
	}
	return doc
}

// SetConfig replaces the configuration wholesale. Fields absent from
// the document fall back to their defaults. A nil document resets
// everything.
func (m *Module) SetConfig(doc map[string]any) error {
	var cfg Config
	if doc != nil {
		if err := mapstructure.Decode(doc, &cfg); err != nil {
			return errors.Wrap(err, "failed to decode files config")
		}
	}
	if err := defaults.Set(&cfg); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	m.mu.Lock()
	m.cfg = cfg
	ctrl := m.ctrl
	m.mu.Unlock()

	if ctrl != nil {
		ctrl.SetRoot(cfg.Path)
	}
	return nil
}

// root returns the configured resolve directory.
func (m *Module) root() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Path
}
