package httpd

import (
	"encoding/json"
	"net/http"

	zlog "github.com/rs/zerolog/log"

	"github.com/ronnyzhao/AirCat/internal/app/module"
)

// mountConfig registers the server-level configuration endpoints.
// Literal patterns like /config/default take precedence over the
// /config/{name} wildcards.
func (s *Server) mountConfig() {
	s.mux.HandleFunc("PUT /config/default", s.handleConfigDefault)
	s.mux.HandleFunc("PUT /config/reload", s.handleConfigReload)
	s.mux.HandleFunc("PUT /config/save", s.handleConfigSave)
	s.mux.HandleFunc("GET /config", s.handleConfigGet)
	s.mux.HandleFunc("GET /config/{name}", s.handleConfigGet)
	s.mux.HandleFunc("PUT /config", s.handleConfigSet)
	s.mux.HandleFunc("PUT /config/{name}", s.handleConfigSet)
}

// handleConfigGet returns the live configuration of every opened
// module keyed by module name, filtered when a name is given.
func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	doc := map[string]any{}
	for _, m := range s.registry.Opened() {
		if name != "" && m.Name() != name {
			continue
		}
		if cfg := m.Config(); cfg != nil {
			doc[m.Name()] = cfg
		}
	}

	writeResponse(w, module.JSON(doc))
}

// handleConfigSet pushes sections of the submitted document to the
// matching modules. Module failures are logged, not reported, so one
// bad section does not mask the others.
func (s *Server) handleConfigSet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var doc map[string]map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	for _, m := range s.registry.Opened() {
		if name != "" && m.Name() != name {
			continue
		}
		section, ok := doc[m.Name()]
		if !ok {
			continue
		}
		if err := m.SetConfig(section); err != nil {
			zlog.Error().Err(err).Msgf("httpd: cannot configure module %s", m.Name())
		}
	}

	writeResponse(w, module.OK())
}

// handleConfigDefault resets every opened module to its defaults.
func (s *Server) handleConfigDefault(w http.ResponseWriter, r *http.Request) {
	for _, m := range s.registry.Opened() {
		if err := m.SetConfig(nil); err != nil {
			zlog.Error().Err(err).Msgf("httpd: cannot reset module %s", m.Name())
		}
	}

	writeResponse(w, module.OK())
}

// handleConfigReload re-reads the configuration file and pushes each
// module its section.
func (s *Server) handleConfigReload(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reload(); err != nil {
		zlog.Error().Err(err).Msg("httpd: cannot reload config")
		writeResponse(w, module.Fail(http.StatusInternalServerError, "Config error"))
		return
	}

	for _, m := range s.registry.Opened() {
		section := s.store.Module(m.Name())
		if section == nil {
			continue
		}
		if err := m.SetConfig(section); err != nil {
			zlog.Error().Err(err).Msgf("httpd: cannot configure module %s", m.Name())
		}
	}

	writeResponse(w, module.OK())
}

// handleConfigSave collects the live configuration of every opened
// module into the store and writes the file.
func (s *Server) handleConfigSave(w http.ResponseWriter, r *http.Request) {
	for _, m := range s.registry.Opened() {
		if cfg := m.Config(); cfg != nil {
			s.store.SetModule(m.Name(), cfg)
		}
	}

	if err := s.store.Save(); err != nil {
		zlog.Error().Err(err).Msg("httpd: cannot save config")
		writeResponse(w, module.Fail(http.StatusInternalServerError, "Config error"))
		return
	}

	writeResponse(w, module.OK())
}
