// Package httpd serves the module control surface over HTTP: every
// opened module is mounted under /<name>, plus the server-level /config
// endpoints.
package httpd

import (
	"context"
	"encoding/json"
	"net/http"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/ronnyzhao/AirCat/internal/app/module"
	"github.com/ronnyzhao/AirCat/internal/infra/config"
)

// Server routes HTTP requests to module handlers.
type Server struct {
	srv      *http.Server
	mux      *http.ServeMux
	registry *module.Registry
	store    *config.Store
}

// New builds the routing table for the registry's opened modules and
// the config endpoints. h2c is enabled like the rest of our servers.
func New(addr string, registry *module.Registry, store *config.Store) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		registry: registry,
		store:    store,
	}

	for _, m := range registry.Opened() {
		s.mount(m)
	}
	s.mountConfig()

	s.srv = &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(s.mux, &http2.Server{}),
	}
	return s
}

// Start begins serving. It blocks until the listener fails or the
// server is shut down.
func (s *Server) Start() error {
	zlog.Info().Msgf("Starting server: addr=%s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains connections until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the routing table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// mount registers a module's routes under its name. Wildcard routes
// are registered both bare and with a trailing resource segment.
func (s *Server) mount(m module.Module) {
	for _, r := range m.Routes() {
		pattern := r.Method + " /" + m.Name() + r.Path
		s.mux.HandleFunc(pattern, adapt(r))
		if r.Wildcard {
			s.mux.HandleFunc(pattern+"/{resource...}", adapt(r))
		}
	}
	zlog.Info().Msgf("httpd: mounted module %s", m.Name())
}

// adapt turns a module handler into an http.HandlerFunc.
func adapt(route module.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &module.Request{Resource: r.PathValue("resource")}
		if route.JSON {
			if err := json.NewDecoder(r.Body).Decode(&req.Document); err != nil {
				http.Error(w, "Bad request", http.StatusBadRequest)
				return
			}
		}
		writeResponse(w, route.Handler(req))
	}
}

// writeResponse renders a module response: JSON document when one is
// set, plain text otherwise.
func writeResponse(w http.ResponseWriter, resp *module.Response) {
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}

	if resp.Document != nil {
		data, err := json.Marshal(resp.Document)
		if err != nil {
			zlog.Error().Err(err).Msg("httpd: cannot marshal response")
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(data)
		return
	}

	if resp.Text != "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(resp.Text))
		return
	}

	w.WriteHeader(status)
}
