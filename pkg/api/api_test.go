package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-socialgraph/pkg/api/middleware"
	"github.com/dd0wney/cluso-socialgraph/pkg/graph"
	"github.com/dd0wney/cluso-socialgraph/pkg/metrics"
	"github.com/dd0wney/cluso-socialgraph/pkg/report"
	"github.com/dd0wney/cluso-socialgraph/pkg/store"
)

// testReport describes the path 1-2-3 plus the isolated node 4
func testReport() *report.Report {
	return &report.Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		Graph:       graph.BuildStats{Nodes: 4, Edges: 2},
		TopN:        2,
		Rankings: []report.Ranking{
			{Metric: "degree", Entries: []report.Entry{
				{NodeID: 2, Label: "bob", Score: 2.0 / 3, Defined: true},
				{NodeID: 1, Label: "alice", Score: 1.0 / 3, Defined: true},
			}},
			{Metric: "bridging", Entries: []report.Entry{
				{NodeID: 2, Label: "bob", Score: 1.0 / 3, Defined: true},
				{NodeID: 1, Label: "alice", Score: 0, Defined: true},
			}},
		},
		BridgingUndefined: 1,
		CommunityMethod:   "louvain",
		Modularity:        0,
		CommunityTopN:     2,
		Communities: []report.CommunitySummary{
			{ID: 0, Size: 3, Density: 2.0 / 3, Top: []report.Entry{{NodeID: 2, Label: "bob", Score: 2.0 / 3, Defined: true}}},
			{ID: 1, Size: 1, Top: []report.Entry{{NodeID: 4, Label: "4", Defined: true}}},
		},
		Nodes: []report.NodeScores{
			{NodeID: 1, Label: "alice", Degree: 1, Community: 0, BridgingDefined: true, Scores: map[string]float64{"degree": 1.0 / 3, "bridging": 0}},
			{NodeID: 2, Label: "bob", Degree: 2, Community: 0, BridgingDefined: true, Scores: map[string]float64{"degree": 2.0 / 3, "bridging": 1.0 / 3}},
			{NodeID: 3, Label: "carol", Degree: 1, Community: 0, BridgingDefined: true, Scores: map[string]float64{"degree": 1.0 / 3, "bridging": 0}},
			{NodeID: 4, Label: "4", Degree: 0, Community: 1, BridgingDefined: false, Scores: map[string]float64{"degree": 0, "bridging": -0.0}},
		},
	}
}

type fakeRuns struct {
	runs []store.Run
	err  error
}

func (f fakeRuns) ListRuns(_ context.Context, limit int) ([]store.Run, error) {
	return f.runs[:min(limit, len(f.runs))], f.err
}

func newTestServer(t *testing.T, opts Options, deps Deps) http.Handler {
	t.Helper()
	if deps.Reports == nil {
		deps.Reports = NewReportHolder(testReport())
	}
	srv, err := NewServer(opts, deps)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv.Handler()
}

func postQuery(t *testing.T, h http.Handler, query string, variables map[string]any, header http.Header) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	body, err := json.Marshal(Request{Query: query, Variables: variables})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp Response
	if rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	}
	return rr, resp
}

func data(t *testing.T, resp Response) map[string]any {
	t.Helper()
	require.Empty(t, resp.Errors)
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "unexpected data %#v", resp.Data)
	return m
}

func TestQuery_HealthAndRun(t *testing.T) {
	h := newTestServer(t, Options{}, Deps{})

	_, resp := postQuery(t, h, `{ health run { id nodes edges topN metrics bridgingUndefined communityMethod communities } }`, nil, nil)
	d := data(t, resp)

	assert.Equal(t, "ok", d["health"])
	run := d["run"].(map[string]any)
	assert.Equal(t, "run-1", run["id"])
	assert.Equal(t, 4.0, run["nodes"])
	assert.Equal(t, []any{"degree", "bridging"}, run["metrics"])
	assert.Equal(t, 1.0, run["bridgingUndefined"])
	assert.Equal(t, "louvain", run["communityMethod"])
	assert.Equal(t, 2.0, run["communities"])
}

func TestQuery_Top(t *testing.T) {
	h := newTestServer(t, Options{}, Deps{})

	t.Run("from ranking", func(t *testing.T) {
		_, resp := postQuery(t, h, `query($m: String!) { top(metric: $m, limit: 1) { id label score defined } }`,
			map[string]any{"m": "degree"}, nil)
		top := data(t, resp)["top"].([]any)
		require.Len(t, top, 1)
		assert.Equal(t, "2", top[0].(map[string]any)["id"])
		assert.Equal(t, "bob", top[0].(map[string]any)["label"])
	})

	t.Run("re-ranked from node scores", func(t *testing.T) {
		_, resp := postQuery(t, h, `{ top(metric: "bridging", limit: 4) { id defined } }`, nil, nil)
		top := data(t, resp)["top"].([]any)
		require.Len(t, top, 4)
		assert.Equal(t, "2", top[0].(map[string]any)["id"])

		var undefined []string
		for _, e := range top {
			if !e.(map[string]any)["defined"].(bool) {
				undefined = append(undefined, e.(map[string]any)["id"].(string))
			}
		}
		assert.Equal(t, []string{"4"}, undefined)
	})

	t.Run("invalid metric", func(t *testing.T) {
		_, resp := postQuery(t, h, `{ top(metric: "harmonic") { id } }`, nil, nil)
		require.NotEmpty(t, resp.Errors)
		assert.Contains(t, resp.Errors[0].Message, "metric")
	})

	t.Run("limit out of range", func(t *testing.T) {
		_, resp := postQuery(t, h, `{ top(metric: "degree", limit: 0) { id } }`, nil, nil)
		require.NotEmpty(t, resp.Errors)
		assert.Contains(t, resp.Errors[0].Message, "limit")
	})

	t.Run("metric not computed", func(t *testing.T) {
		_, resp := postQuery(t, h, `{ top(metric: "pagerank") { id } }`, nil, nil)
		require.NotEmpty(t, resp.Errors)
	})
}

func TestQuery_Communities(t *testing.T) {
	h := newTestServer(t, Options{}, Deps{})

	_, resp := postQuery(t, h, `{ communities(limit: 1) { id size density top { id } } }`, nil, nil)
	communities := data(t, resp)["communities"].([]any)
	require.Len(t, communities, 1)
	c := communities[0].(map[string]any)
	assert.Equal(t, 0.0, c["id"])
	assert.Equal(t, 3.0, c["size"])

	_, resp = postQuery(t, h, `{ communities { id } }`, nil, nil)
	assert.Len(t, data(t, resp)["communities"], 2)
}

func TestQuery_Node(t *testing.T) {
	h := newTestServer(t, Options{}, Deps{})

	_, resp := postQuery(t, h, `{ node(id: "4") { id label degree community bridgingDefined scores { metric value } } }`, nil, nil)
	node := data(t, resp)["node"].(map[string]any)
	assert.Equal(t, "4", node["id"])
	assert.Equal(t, false, node["bridgingDefined"])
	assert.Equal(t, 1.0, node["community"])
	assert.Len(t, node["scores"], 2)

	_, resp = postQuery(t, h, `{ node(id: "99") { id } }`, nil, nil)
	assert.Nil(t, data(t, resp)["node"])

	_, resp = postQuery(t, h, `{ node(id: "abc") { id } }`, nil, nil)
	assert.NotEmpty(t, resp.Errors)
}

func TestQuery_Runs(t *testing.T) {
	runs := fakeRuns{runs: []store.Run{
		{ID: "b", GeneratedAt: time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC), Nodes: 10},
		{ID: "a", GeneratedAt: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), Nodes: 8},
	}}

	h := newTestServer(t, Options{}, Deps{Runs: runs})
	_, resp := postQuery(t, h, `{ runs(limit: 1) { id generatedAt nodes } }`, nil, nil)
	list := data(t, resp)["runs"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].(map[string]any)["id"])
	assert.Equal(t, "2023-04-02T00:00:00Z", list[0].(map[string]any)["generatedAt"])

	failing := newTestServer(t, Options{}, Deps{Runs: fakeRuns{err: errors.New("db down")}})
	_, resp = postQuery(t, failing, `{ runs { id } }`, nil, nil)
	assert.NotEmpty(t, resp.Errors)

	unconfigured := newTestServer(t, Options{}, Deps{})
	_, resp = postQuery(t, unconfigured, `{ runs { id } }`, nil, nil)
	assert.NotEmpty(t, resp.Errors)
}

func TestQuery_NoReport(t *testing.T) {
	h := newTestServer(t, Options{}, Deps{Reports: NewReportHolder(nil)})

	_, resp := postQuery(t, h, `{ run { id } }`, nil, nil)
	require.NotEmpty(t, resp.Errors)
	assert.Contains(t, resp.Errors[0].Message, ErrNoReport.Error())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestReportHolder_Swap(t *testing.T) {
	holder := NewReportHolder(testReport())
	h := newTestServer(t, Options{}, Deps{Reports: holder})

	next := testReport()
	next.RunID = "run-2"
	holder.Store(next)

	_, resp := postQuery(t, h, `{ run { id } }`, nil, nil)
	assert.Equal(t, "run-2", data(t, resp)["run"].(map[string]any)["id"])
	assert.Equal(t, "run-2", holder.RunID())
}

func TestHandler_BadRequests(t *testing.T) {
	h := newTestServer(t, Options{}, Deps{})

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"get", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, "{", http.StatusBadRequest},
		{"empty query", http.MethodPost, `{"query":""}`, http.StatusBadRequest},
		{"too large", http.MethodPost, `{"query":"` + strings.Repeat("a", int(middleware.DefaultMaxBodyBytes)) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tt.method, "/graphql", strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestServer_BearerAuth(t *testing.T) {
	secret := strings.Repeat("s", middleware.MinSecretLength)
	h := newTestServer(t, Options{JWTSecret: secret}, Deps{})

	rr, _ := postQuery(t, h, `{ health }`, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	issuer, err := middleware.NewTokenIssuer(secret)
	require.NoError(t, err)
	token, err := issuer.Issue("analyst", time.Minute)
	require.NoError(t, err)

	rr, resp := postQuery(t, h, `{ health }`, nil, http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", data(t, resp)["health"])

	// probes stay open
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	_, err = NewServer(Options{JWTSecret: "short"}, Deps{Reports: NewReportHolder(nil)})
	assert.ErrorIs(t, err, middleware.ErrShortSecret)
}

func TestServer_RateLimit(t *testing.T) {
	h := newTestServer(t, Options{RateLimit: &middleware.RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1}}, Deps{})

	rr, _ := postQuery(t, h, `{ health }`, nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr, _ = postQuery(t, h, `{ health }`, nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestServer_MetricsAndHeaders(t *testing.T) {
	reg := metrics.NewRegistry()
	h := newTestServer(t, Options{CORSOrigins: []string{"https://example.com"}}, Deps{Metrics: reg})

	postQuery(t, h, `{ health }`, nil, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `socialgraph_api_requests_total{operation="/graphql",status="200"} 1`)
	assert.Contains(t, rr.Body.String(), "socialgraph_uptime_seconds")
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	preflight := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	preflight.Header.Set("Origin", "https://example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, preflight)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_ServeShutsDownOnCancel(t *testing.T) {
	srv, err := NewServer(Options{Listen: "127.0.0.1:0", ReadTimeout: time.Second, WriteTimeout: time.Second},
		Deps{Reports: NewReportHolder(testReport())})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewServer_RequiresReports(t *testing.T) {
	_, err := NewServer(Options{}, Deps{})
	assert.Error(t, err)
}
