package httpd

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ronnyzhao/AirCat/internal/app/module"
	"github.com/ronnyzhao/AirCat/internal/infra/config"
)

type stubModule struct {
	name    string
	cfg     map[string]any
	routes  []module.Route
	applied []map[string]any
}

func (s *stubModule) Name() string        { return s.name }
func (s *stubModule) Description() string { return "stub" }

func (s *stubModule) Open(cfg map[string]any) error { return nil }
func (s *stubModule) Close() error                  { return nil }

func (s *stubModule) Config() map[string]any { return s.cfg }

func (s *stubModule) SetConfig(doc map[string]any) error {
	s.applied = append(s.applied, doc)
	return nil
}

func (s *stubModule) Routes() []module.Route { return s.routes }

func newStub(name string) *stubModule {
	return &stubModule{
		name: name,
		routes: []module.Route{
			{
				Method:   "GET",
				Path:     "/echo",
				Wildcard: true,
				Handler: func(r *module.Request) *module.Response {
					return &module.Response{Text: "res:" + r.Resource}
				},
			},
			{
				Method: "PUT",
				Path:   "/doc",
				JSON:   true,
				Handler: func(r *module.Request) *module.Response {
					return module.JSON(r.Document)
				},
			},
			{
				Method: "PUT",
				Path:   "/fail",
				Handler: func(r *module.Request) *module.Response {
					return module.Fail(http.StatusNotAcceptable, "File is not supported")
				},
			},
		},
	}
}

func newTestServer(t *testing.T, mods ...module.Module) (*Server, *config.Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "aircat.yaml")
	store, err := config.Open(path)
	require.NoError(t, err)

	registry := module.NewRegistry()
	for _, m := range mods {
		require.NoError(t, registry.Register(m))
	}
	registry.OpenAll(store)

	return New(":0", registry, store), store, path
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestServer_RoutesModules(t *testing.T) {
	s, _, _ := newTestServer(t, newStub("stub"))
	h := s.Handler()

	rr := do(t, h, http.MethodGet, "/stub/echo", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "res:", rr.Body.String())

	rr = do(t, h, http.MethodGet, "/stub/echo/sub/a.mp3", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "res:sub/a.mp3", rr.Body.String())

	rr = do(t, h, http.MethodGet, "/other/echo", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/stub/fail", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestServer_ErrorText(t *testing.T) {
	s, _, _ := newTestServer(t, newStub("stub"))

	rr := do(t, s.Handler(), http.MethodPut, "/stub/fail", "")
	assert.Equal(t, http.StatusNotAcceptable, rr.Code)
	assert.Equal(t, "File is not supported", rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
}

func TestServer_JSONBody(t *testing.T) {
	s, _, _ := newTestServer(t, newStub("stub"))
	h := s.Handler()

	rr := do(t, h, http.MethodPut, "/stub/doc", `{"a": 1, "b": "two"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"a": 1, "b": "two"}`, rr.Body.String())

	rr = do(t, h, http.MethodPut, "/stub/doc", `{"a": `)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPut, "/stub/doc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServer_ConfigGet(t *testing.T) {
	a := newStub("a")
	a.cfg = map[string]any{"k": "v"}
	b := newStub("b")

	s, _, _ := newTestServer(t, a, b)
	h := s.Handler()

	rr := do(t, h, http.MethodGet, "/config", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"a": {"k": "v"}}`, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/config/a", "")
	assert.JSONEq(t, `{"a": {"k": "v"}}`, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/config/b", "")
	assert.JSONEq(t, `{}`, rr.Body.String())
}

func TestServer_ConfigSet(t *testing.T) {
	a := newStub("a")
	b := newStub("b")

	s, _, _ := newTestServer(t, a, b)
	h := s.Handler()

	rr := do(t, h, http.MethodPut, "/config", `{"a": {"x": 1}, "b": {"y": 2}}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, a.applied, 1)
	assert.Equal(t, map[string]any{"x": float64(1)}, a.applied[0])
	require.Len(t, b.applied, 1)
	assert.Equal(t, map[string]any{"y": float64(2)}, b.applied[0])

	// A named target only receives its own section.
	rr = do(t, h, http.MethodPut, "/config/a", `{"a": {"x": 3}, "b": {"y": 9}}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, a.applied, 2)
	assert.Len(t, b.applied, 1)

	rr = do(t, h, http.MethodPut, "/config", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServer_ConfigDefault(t *testing.T) {
	a := newStub("a")
	b := newStub("b")

	s, _, _ := newTestServer(t, a, b)

	rr := do(t, s.Handler(), http.MethodPut, "/config/default", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, a.applied, 1)
	assert.Nil(t, a.applied[0])
	require.Len(t, b.applied, 1)
	assert.Nil(t, b.applied[0])
}

func TestServer_ConfigSave(t *testing.T) {
	a := newStub("a")
	a.cfg = map[string]any{"k": "v"}

	s, _, path := newTestServer(t, a)

	rr := do(t, s.Handler(), http.MethodPut, "/config/save", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	reopened, err := config.Open(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, reopened.Module("a"))
}

func TestServer_ConfigReload(t *testing.T) {
	a := newStub("a")

	s, _, path := newTestServer(t, a)

	doc := "modules:\n  a:\n    k: nova\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	rr := do(t, s.Handler(), http.MethodPut, "/config/reload", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, a.applied, 1)
	assert.Equal(t, map[string]any{"k": "nova"}, a.applied[0])
}
