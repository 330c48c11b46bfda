package files

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ronnyzhao/AirCat/internal/app/module"
)

// Routes returns the module's HTTP surface.
func (m *Module) Routes() []module.Route {
	return []module.Route{
		{Method: http.MethodPut, Path: "/playlist/add", Wildcard: true, Handler: m.handlePlaylistAdd},
		{Method: http.MethodPut, Path: "/playlist/play", Wildcard: true, Handler: m.handlePlaylistPlay},
		{Method: http.MethodPut, Path: "/playlist/remove", Wildcard: true, Handler: m.handlePlaylistRemove},
		{Method: http.MethodPut, Path: "/playlist/flush", Handler: m.handlePlaylistFlush},
		{Method: http.MethodGet, Path: "/playlist", Handler: m.handlePlaylist},
		{Method: http.MethodPut, Path: "/play", Wildcard: true, Handler: m.handlePlay},
		{Method: http.MethodPut, Path: "/pause", Handler: m.handlePause},
		{Method: http.MethodPut, Path: "/stop", Handler: m.handleStop},
		{Method: http.MethodPut, Path: "/prev", Handler: m.handlePrev},
		{Method: http.MethodPut, Path: "/next", Handler: m.handleNext},
		{Method: http.MethodPut, Path: "/seek", Wildcard: true, Handler: m.handleSeek},
		{Method: http.MethodGet, Path: "/status", Wildcard: true, Handler: m.handleStatus},
		{Method: http.MethodGet, Path: "/list", Wildcard: true, Handler: m.handleList},
	}
}

func (m *Module) handlePlaylistAdd(r *module.Request) *module.Response {
	if _, err := m.ctrl.Add(r.Resource); err != nil {
		return module.Fail(http.StatusNotAcceptable, "File is not supported")
	}
	return module.OK()
}

func (m *Module) handlePlaylistPlay(r *module.Request) *module.Response {
	idx, err := strconv.Atoi(r.Resource)
	if err != nil || idx < 0 {
		return module.Fail(http.StatusBadRequest, "Bad index")
	}
	if err := m.ctrl.Play(idx); err != nil {
		if errors.Is(err, ErrBadIndex) {
			return module.Fail(http.StatusBadRequest, "Bad index")
		}
		return module.Fail(http.StatusInternalServerError, "Playlist error")
	}
	return module.OK()
}

func (m *Module) handlePlaylistRemove(r *module.Request) *module.Response {
	idx, err := strconv.Atoi(r.Resource)
	if err != nil || idx < 0 {
		return module.Fail(http.StatusBadRequest, "Bad index")
	}
	if err := m.ctrl.Remove(idx); err != nil {
		if errors.Is(err, ErrBadIndex) {
			return module.Fail(http.StatusBadRequest, "Bad index")
		}
		return module.Fail(http.StatusInternalServerError, "Playlist error")
	}
	return module.OK()
}

func (m *Module) handlePlaylistFlush(*module.Request) *module.Response {
	m.ctrl.Flush()
	return module.OK()
}

func (m *Module) handlePlaylist(*module.Request) *module.Response {
	return module.JSON(playlistDocument(m.ctrl))
}

// handlePlay adds the named file and plays it, or restarts the current
// selection (track 0 when none) if no file is given.
func (m *Module) handlePlay(r *module.Request) *module.Response {
	idx := -1
	if r.Resource != "" {
		var err error
		if idx, err = m.ctrl.Add(r.Resource); err != nil {
			return module.Fail(http.StatusNotAcceptable, "File is not supported")
		}
	}
	if err := m.ctrl.Play(idx); err != nil {
		return module.Fail(http.StatusNotAcceptable, "Cannot play the file")
	}
	return module.OK()
}

func (m *Module) handlePause(*module.Request) *module.Response {
	m.ctrl.Pause()
	return module.OK()
}

func (m *Module) handleStop(*module.Request) *module.Response {
	m.ctrl.Stop()
	return module.OK()
}

func (m *Module) handlePrev(*module.Request) *module.Response {
	m.ctrl.Prev()
	return module.OK()
}

func (m *Module) handleNext(*module.Request) *module.Response {
	m.ctrl.Next()
	return module.OK()
}

func (m *Module) handleSeek(r *module.Request) *module.Response {
	pos, err := strconv.ParseUint(r.Resource, 10, 32)
	if err != nil {
		return module.Fail(http.StatusBadRequest, "Bad position")
	}
	if err := m.ctrl.Seek(int(pos)); err != nil {
		return module.Fail(http.StatusBadRequest, "Bad position")
	}
	return module.OK()
}

func (m *Module) handleStatus(r *module.Request) *module.Response {
	withPicture := strings.HasPrefix(r.Resource, "img")
	return module.JSON(statusDocument(m.ctrl, withPicture))
}

func (m *Module) handleList(r *module.Request) *module.Response {
	doc, err := listDocument(m.root(), r.Resource)
	if err != nil {
		return module.Fail(http.StatusNotFound, "Bad directory")
	}
	return module.JSON(doc)
}
