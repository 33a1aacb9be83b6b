package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/dmlopt/pkg/buildinfo"
	"github.com/matzehuels/dmlopt/pkg/cache"
	"github.com/matzehuels/dmlopt/pkg/hop/rewrite"
	"github.com/matzehuels/dmlopt/pkg/observability"
	"github.com/matzehuels/dmlopt/pkg/observability/prom"
	"github.com/matzehuels/dmlopt/pkg/pipeline"
)

const colSums = `{
  "roots": ["out"],
  "nodes": [
    {"id": "X", "op": "read", "name": "X", "rows": 5, "cols": 5, "nnz": 0},
    {"id": "s", "op": "agg", "agg": "sum", "dir": "col", "inputs": ["X"]},
    {"id": "out", "op": "write", "name": "R", "inputs": ["s"]}
  ]
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	logger := log.NewWithOptions(io.Discard, log.Options{})
	s := New(Config{
		Runner:   pipeline.NewRunner(fc, cache.NewScopedKeyer(nil, "api:"), logger),
		Gatherer: prometheus.NewRegistry(),
		Logger:   logger,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, buildinfo.Version, body["version"])
}

func TestRules(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/rules")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, rewrite.RuleNames(rewrite.DefaultRules()), body["rules"])
}

func TestOptimize(t *testing.T) {
	ts := newTestServer(t)
	req := OptimizeRequest{Programs: []ProgramSource{{Unit: "cols", Format: "json", Source: colSums}}}

	resp := post(t, ts, "/v1/optimize", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body OptimizeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Results, 1)
	assert.NotEmpty(t, body.RunID)

	res := body.Results[0]
	assert.Equal(t, "cols", res.Unit)
	assert.Equal(t, 1, res.Applied[rewrite.SimplifyEmptyAggregate])
	assert.Contains(t, res.Program, `"op": "datagen"`)
	assert.False(t, res.CacheHit)

	resp = post(t, ts, "/v1/optimize", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Results[0].CacheHit, "second request should be served from the cache")
}

func TestOptimize_Errors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"no programs", OptimizeRequest{}, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown field", map[string]any{"programs": []any{}, "bogus": 1}, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad format", OptimizeRequest{Programs: []ProgramSource{{Format: "xml", Source: "<x/>"}}}, http.StatusBadRequest, "INVALID_FORMAT"},
		{"unknown rule", OptimizeRequest{Programs: []ProgramSource{{Format: "json", Source: colSums}}, Disabled: []string{"nope"}}, http.StatusBadRequest, "INVALID_INPUT"},
		{"dangling input", OptimizeRequest{Programs: []ProgramSource{{Format: "json", Source: `{"roots":["x"],"nodes":[]}`}}}, http.StatusUnprocessableEntity, "GRAPH_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts, "/v1/optimize", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestOptimize_WrongContentType(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/v1/optimize", "text/plain", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestRender_DOT(t *testing.T) {
	ts := newTestServer(t)

	resp := post(t, ts, "/v1/render", RenderRequest{
		Program: ProgramSource{Format: "json", Source: colSums},
		Format:  "dot",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/vnd.graphviz", resp.Header.Get("Content-Type"))
	before, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(before), "colsum")

	resp = post(t, ts, "/v1/render", RenderRequest{
		Program:  ProgramSource{Format: "json", Source: colSums},
		Format:   "dot",
		Optimize: true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	after, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(after), "colsum")
	assert.Contains(t, string(after), "matrix(0)")
}

func TestRender_SVG(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts, "/v1/render", RenderRequest{Program: ProgramSource{Format: "json", Source: colSums}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
}

func TestRender_BadFormat(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts, "/v1/render", RenderRequest{Program: ProgramSource{Format: "json", Source: colSums}, Format: "gif"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	defer observability.Reset()

	reg := prometheus.NewRegistry()
	prom.New(reg).Install()

	s := New(Config{Gatherer: reg, Logger: log.NewWithOptions(io.Discard, log.Options{})})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	post(t, ts, "/v1/optimize", OptimizeRequest{Programs: []ProgramSource{{Format: "json", Source: colSums}}})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	text, _ := io.ReadAll(resp.Body)

	assert.Contains(t, string(text), `dmlopt_http_requests_total{code="200",method="POST",route="/v1/optimize"} 1`)
	assert.Contains(t, string(text), `dmlopt_rewrite_rules_applied_total{rule="simplifyEmptyAggregate"} 1`)
}

type routeHooks struct {
	observability.NoopHTTPHooks
	mu     sync.Mutex
	routes []string
}

func (h *routeHooks) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, method+" "+route)
}

func TestObserveUsesRoutePattern(t *testing.T) {
	hooks := &routeHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	ts := newTestServer(t)
	for _, path := range []string{"/healthz", "/v1/rules", "/no/such/page"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	assert.Equal(t, []string{"GET /healthz", "GET /v1/rules", "GET unmatched"}, hooks.routes)
}

func TestListenAndServeShutsDown(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:0", Logger: log.NewWithOptions(io.Discard, log.Options{})})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
