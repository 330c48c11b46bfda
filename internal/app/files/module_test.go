package files

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ronnyzhao/AirCat/internal/app/module"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()

	m := New(newFakeOutput())
	t.Cleanup(func() { m.Close() })
	return m
}

func TestModule_OpenDefaults(t *testing.T) {
	m := newTestModule(t)
	require.NoError(t, m.Open(nil))

	assert.Equal(t, "files", m.Name())
	assert.Equal(t, "/var/aircat/files", m.root())
}

func TestModule_OpenWithSection(t *testing.T) {
	m := newTestModule(t)
	dir := t.TempDir()

	require.NoError(t, m.Open(map[string]any{"path": dir}))
	assert.Equal(t, dir, m.root())
}

func TestModule_OpenBadSection(t *testing.T) {
	m := newTestModule(t)
	require.Error(t, m.Open(map[string]any{"path": 42}))
}

func TestModule_SetConfigReplacesWholesale(t *testing.T) {
	m := newTestModule(t)
	require.NoError(t, m.Open(map[string]any{"path": "/srv/a"}))

	require.NoError(t, m.SetConfig(map[string]any{"path": "/srv/b"}))
	assert.Equal(t, "/srv/b", m.root())

	// A nil document resets to defaults.
	require.NoError(t, m.SetConfig(nil))
	assert.Equal(t, "/var/aircat/files", m.root())
}

func TestModule_ConfigRoundTrip(t *testing.T) {
	m := newTestModule(t)
	require.NoError(t, m.Open(map[string]any{"path": "/srv/music"}))

	doc := m.Config()
	assert.Equal(t, map[string]any{"path": "/srv/music"}, doc)

	require.NoError(t, m.SetConfig(doc))
	assert.Equal(t, "/srv/music", m.root())
}

func TestModule_Routes(t *testing.T) {
	m := newTestModule(t)

	routes := m.Routes()
	require.Len(t, routes, 13)

	byPath := map[string]module.Route{}
	for _, r := range routes {
		byPath[r.Method+" "+r.Path] = r
	}

	add, ok := byPath["PUT /playlist/add"]
	require.True(t, ok)
	assert.True(t, add.Wildcard)

	status, ok := byPath["GET /status"]
	require.True(t, ok)
	assert.True(t, status.Wildcard)

	pause, ok := byPath["PUT /pause"]
	require.True(t, ok)
	assert.False(t, pause.Wildcard)
}

func TestModule_HandlerFlow(t *testing.T) {
	m := newTestModule(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp3"), []byte("x"), 0644))
	require.NoError(t, m.Open(map[string]any{"path": dir}))

	resp := m.handlePlaylistAdd(&module.Request{Resource: "a.mp3"})
	assert.Equal(t, http.StatusOK, resp.Status)

	resp = m.handlePlaylist(&module.Request{})
	assert.Equal(t, http.StatusOK, resp.Status)
	docs, ok := resp.Document.([]map[string]any)
	require.True(t, ok)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.mp3", docs[0]["file"])

	resp = m.handleStatus(&module.Request{})
	assert.Equal(t, http.StatusOK, resp.Status)
	doc, ok := resp.Document.(map[string]any)
	require.True(t, ok)
	assert.Nil(t, doc["file"])

	resp = m.handlePlaylistFlush(&module.Request{})
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Empty(t, m.ctrl.Tracks())
}

func TestModule_HandlerErrors(t *testing.T) {
	m := newTestModule(t)
	require.NoError(t, m.Open(map[string]any{"path": t.TempDir()}))

	tests := []struct {
		name       string
		resp       *module.Response
		wantStatus int
		wantText   string
	}{
		{
			name:       "add missing file",
			resp:       m.handlePlaylistAdd(&module.Request{Resource: "nope.mp3"}),
			wantStatus: http.StatusNotAcceptable,
			wantText:   "File is not supported",
		},
		{
			name:       "play negative index",
			resp:       m.handlePlaylistPlay(&module.Request{Resource: "-3"}),
			wantStatus: http.StatusBadRequest,
			wantText:   "Bad index",
		},
		{
			name:       "play unparsable index",
			resp:       m.handlePlaylistPlay(&module.Request{Resource: "abc"}),
			wantStatus: http.StatusBadRequest,
			wantText:   "Bad index",
		},
		{
			name:       "play out of range",
			resp:       m.handlePlaylistPlay(&module.Request{Resource: "9"}),
			wantStatus: http.StatusBadRequest,
			wantText:   "Bad index",
		},
		{
			name:       "remove out of range",
			resp:       m.handlePlaylistRemove(&module.Request{Resource: "9"}),
			wantStatus: http.StatusBadRequest,
			wantText:   "Bad index",
		},
		{
			name:       "play with empty playlist",
			resp:       m.handlePlay(&module.Request{}),
			wantStatus: http.StatusNotAcceptable,
			wantText:   "Cannot play the file",
		},
		{
			name:       "seek with nothing active",
			resp:       m.handleSeek(&module.Request{Resource: "10"}),
			wantStatus: http.StatusBadRequest,
			wantText:   "Bad position",
		},
		{
			name:       "seek unparsable position",
			resp:       m.handleSeek(&module.Request{Resource: "-2"}),
			wantStatus: http.StatusBadRequest,
			wantText:   "Bad position",
		},
		{
			name:       "list missing directory",
			resp:       m.handleList(&module.Request{Resource: "nothere"}),
			wantStatus: http.StatusNotFound,
			wantText:   "Bad directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.resp.Status)
			assert.Equal(t, tt.wantText, tt.resp.Text)
		})
	}
}

func TestModule_Close(t *testing.T) {
	m := New(newFakeOutput())
	require.NoError(t, m.Open(nil))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}
