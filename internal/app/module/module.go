// Package module defines the unit every server feature plugs in through.
// A module owns a config document, a set of HTTP routes mounted under its
// name, and a lifecycle driven by the host.
package module

import (
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Handler serves one module route.
type Handler func(r *Request) *Response

// Request carries the module-relative request data.
type Request struct {
	// Resource is the trailing wildcard path segment, "" when absent.
	Resource string
	// Document is the decoded JSON body, set only for routes that
	// declare one.
	Document map[string]any
}

// Response is what a handler returns: a status plus either a JSON
// document or a plain-text message.
type Response struct {
	Status   int    // 0 means http.StatusOK
	Document any    // marshalled as JSON when non-nil
	Text     string // plain text, used for error messages
}

// OK returns an empty 200 response.
func OK() *Response { return &Response{Status: http.StatusOK} }

// JSON returns a 200 response carrying a JSON document.
func JSON(doc any) *Response { return &Response{Status: http.StatusOK, Document: doc} }

// Fail returns an error response with a plain-text message.
func Fail(status int, text string) *Response { return &Response{Status: status, Text: text} }

// Route describes one module endpoint.
type Route struct {
	Method   string
	Path     string // module-relative, e.g. "/playlist/add"
	Wildcard bool   // also matches a trailing /{resource...} segment
	JSON     bool   // decode the request body into Request.Document
	Handler  Handler
}

// Module is a self-contained unit the server hosts.
type Module interface {
	Name() string
	Description() string
	Open(cfg map[string]any) error
	Close() error
	Config() map[string]any
	SetConfig(cfg map[string]any) error
	Routes() []Route
}

// ConfigSource yields stored per-module config sections.
type ConfigSource interface {
	Module(name string) map[string]any
}

// ConfigSink stores per-module config sections.
type ConfigSink interface {
	SetModule(name string, doc map[string]any)
}

// Registry tracks the hosted modules and drives their lifecycle.
type Registry struct {
	modules []Module // registration order
	opened  map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{opened: map[string]bool{}}
}

// Register adds a module. Duplicate names are rejected.
func (r *Registry) Register(m Module) error {
	for _, existing := range r.modules {
		if existing.Name() == m.Name() {
			return errors.Newf("module %s already registered", m.Name())
		}
	}
	r.modules = append(r.modules, m)
	return nil
}

// OpenAll opens every registered module with its stored config section.
// A module that fails to open is closed and dropped from routing; the
// rest of the server still comes up.
func (r *Registry) OpenAll(src ConfigSource) {
	for _, m := range r.modules {
		if err := m.Open(src.Module(m.Name())); err != nil {
			zlog.Error().Err(err).Msgf("Cannot open module %s", m.Name())
			m.Close()
			continue
		}
		r.opened[m.Name()] = true
		zlog.Info().Msgf("Module %s opened: %s", m.Name(), m.Description())
	}
}

// Opened returns the modules that opened successfully, in registration
// order.
func (r *Registry) Opened() []Module {
	var out []Module
	for _, m := range r.modules {
		if r.opened[m.Name()] {
			out = append(out, m)
		}
	}
	return out
}

// Get returns an opened module by name.
func (r *Registry) Get(name string) (Module, bool) {
	if !r.opened[name] {
		return nil, false
	}
	for _, m := range r.modules {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}

// CloseAll collects each opened module's config into the sink, then
// closes the module.
func (r *Registry) CloseAll(sink ConfigSink) {
	for _, m := range r.Opened() {
		if cfg := m.Config(); cfg != nil {
			sink.SetModule(m.Name(), cfg)
		}
		if err := m.Close(); err != nil {
			zlog.Error().Err(err).Msgf("Cannot close module %s", m.Name())
		}
		delete(r.opened, m.Name())
	}
}
