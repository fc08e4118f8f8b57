package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/octonet/internal/cache"
	"github.com/rohankatakam/octonet/internal/errors"
	"github.com/rohankatakam/octonet/internal/github"
	"github.com/rohankatakam/octonet/internal/graph"
)

type fakeBuilder struct {
	mu     sync.Mutex
	err    error
	tokens []string
}

func (f *fakeBuilder) Build(ctx context.Context, token string) (*graph.Graph, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}

	g := graph.NewGraph()
	team := g.UpsertTeam("platform", "Platform")
	g.AddEdge(team, g.UpsertRepo("api"), "ADMIN")
	return g, nil
}

type fakeVerifier struct {
	err error
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (*github.RateLimit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &github.RateLimit{Remaining: 4999, Limit: 5000}, nil
}

func newTestServer(builder GraphBuilder, verifier Verifier, ttl time.Duration, defaultToken string) *Server {
	logger, _ := test.NewNullLogger()
	return New(builder, verifier, Options{
		DefaultToken: defaultToken,
		Cache:        cache.NewManager(cache.NewMemoryStore(time.Minute), ttl, logger),
		Logger:       logger,
	})
}

func get(t *testing.T, h http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeBuilder{}, &fakeVerifier{}, 0, "")

	rec := get(t, s.Handler(), "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

type downStore struct {
	*cache.MemoryStore
}

func (downStore) HealthCheck(ctx context.Context) error { return fmt.Errorf("dial tcp: connection refused") }

func TestHealth_CacheDown(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := New(&fakeBuilder{}, &fakeVerifier{}, Options{
		Cache:  cache.NewManager(downStore{cache.NewMemoryStore(time.Minute)}, time.Minute, logger),
		Logger: logger,
	})

	rec := get(t, s.Handler(), "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","cache":"dial tcp: connection refused"}`, rec.Body.String())
}

func TestGraph_ServesDocument(t *testing.T) {
	builder := &fakeBuilder{}
	s := newTestServer(builder, &fakeVerifier{}, 10*time.Minute, "")

	rec := get(t, s.Handler(), "/graph.json", "tok")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "private, max-age=600", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	var doc graph.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Teams, 1)
	assert.Equal(t, "team--platform", doc.Teams[0].ID)
	require.Len(t, doc.Links, 1)
	assert.Equal(t, []string{"tok"}, builder.tokens)
}

func TestGraph_Cache(t *testing.T) {
	builder := &fakeBuilder{}
	s := newTestServer(builder, &fakeVerifier{}, time.Minute, "")
	h := s.Handler()

	first := get(t, h, "/graph.json", "tok")
	second := get(t, h, "/graph.json", "tok")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Len(t, builder.tokens, 1)

	get(t, h, "/graph.json", "other")
	assert.Len(t, builder.tokens, 2, "cache is per token")

	refreshed := get(t, h, "/graph.json?refresh=true", "tok")
	assert.Equal(t, "MISS", refreshed.Header().Get("X-Cache"))
	assert.Len(t, builder.tokens, 3)
}

func TestGraph_CacheDisabled(t *testing.T) {
	builder := &fakeBuilder{}
	s := newTestServer(builder, &fakeVerifier{}, 0, "")

	get(t, s.Handler(), "/graph.json", "tok")
	rec := get(t, s.Handler(), "/graph.json", "tok")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "private, max-age=0", rec.Header().Get("Cache-Control"))
	assert.Len(t, builder.tokens, 2)
}

func TestGraph_DefaultToken(t *testing.T) {
	builder := &fakeBuilder{}
	s := newTestServer(builder, &fakeVerifier{}, 0, "configured")

	rec := get(t, s.Handler(), "/graph.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"configured"}, builder.tokens)
}

func TestGraph_MissingToken(t *testing.T) {
	s := newTestServer(&fakeBuilder{}, &fakeVerifier{}, 0, "")

	rec := get(t, s.Handler(), "/graph.json", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"unauthorized"`)
}

func getWithAuth(h http.Handler, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", authorization)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGraph_AuthorizationHeader(t *testing.T) {
	tests := []struct {
		name          string
		authorization string
		wantStatus    int
		wantTokens    []string
		wantMsg       string
	}{
		{"bearer", "Bearer caller-token", http.StatusOK, []string{"caller-token"}, ""},
		{"lowercase scheme", "bearer caller-token", http.StatusOK, []string{"caller-token"}, ""},
		{"uppercase scheme", "BEARER caller-token", http.StatusOK, []string{"caller-token"}, ""},
		{"token scheme", "token caller-token", http.StatusOK, []string{"caller-token"}, ""},
		{"unknown scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, nil, `unsupported authorization scheme "Basic": use Bearer`},
		{"empty token", "Bearer   ", http.StatusUnauthorized, nil, "empty Bearer token"},
		{"scheme only", "Bearer", http.StatusUnauthorized, nil, "empty Bearer token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := &fakeBuilder{}
			s := newTestServer(builder, &fakeVerifier{}, 0, "server-token")

			rec := getWithAuth(s.Handler(), "/graph.json", tt.authorization)
			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantTokens, builder.tokens)

			if tt.wantMsg != "" {
				var body ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "unauthorized", body.Error.Code)
				assert.Equal(t, tt.wantMsg, body.Error.Message)
			}
		})
	}
}

func TestVerify_RejectsUnknownScheme(t *testing.T) {
	s := newTestServer(&fakeBuilder{}, &fakeVerifier{}, 0, "server-token")

	rec := getWithAuth(s.Handler(), "/verify", "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGraph_RefreshNeedsCallerToken(t *testing.T) {
	builder := &fakeBuilder{}
	s := newTestServer(builder, &fakeVerifier{}, time.Minute, "server-token")
	h := s.Handler()

	get(t, h, "/graph.json", "")
	rec := get(t, h, "/graph.json?refresh=true", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, []string{"server-token"}, builder.tokens)

	get(t, h, "/graph.json", "caller-token")
	rec = get(t, h, "/graph.json?refresh=true", "caller-token")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, []string{"server-token", "caller-token", "caller-token"}, builder.tokens)
}

func TestGraph_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"forbidden", errors.Forbidden("org has OAuth App access restrictions"), http.StatusForbidden, "forbidden", "org has OAuth App access restrictions"},
		{"unauthorized", errors.Unauthorized("not authorised"), http.StatusUnauthorized, "unauthorized", "not authorised"},
		{"timeout", errors.Timeout("request timed out"), http.StatusRequestTimeout, "timeout", "request timed out"},
		{"request", errors.Request("data was nil"), http.StatusBadGateway, "request", "data was nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeBuilder{err: tt.err}, &fakeVerifier{}, time.Minute, "")

			rec := get(t, s.Handler(), "/graph.json", "tok")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantMsg, body.Error.Message)

			_, cached := s.cache.GetDocument(context.Background(), "tok")
			assert.False(t, cached, "failures are never cached")
		})
	}
}

func TestVerify(t *testing.T) {
	s := newTestServer(&fakeBuilder{}, &fakeVerifier{}, 0, "")
	rec := get(t, s.Handler(), "/verify", "tok")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "4999", rec.Header().Get("X-RateLimit-Remaining"))

	s = newTestServer(&fakeBuilder{}, &fakeVerifier{err: errors.Forbidden("nope")}, 0, "")
	rec = get(t, s.Handler(), "/verify", "tok")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = get(t, s.Handler(), "/verify", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerify_UnauthorizedDropsCachedGraph(t *testing.T) {
	verifier := &fakeVerifier{}
	s := newTestServer(&fakeBuilder{}, verifier, time.Minute, "")
	h := s.Handler()

	get(t, h, "/graph.json", "tok")
	_, cached := s.cache.GetDocument(context.Background(), "tok")
	require.True(t, cached)

	verifier.err = errors.Unauthorized("not authorised")
	rec := get(t, h, "/verify", "tok")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, cached = s.cache.GetDocument(context.Background(), "tok")
	assert.False(t, cached)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(&fakeBuilder{}, &fakeVerifier{}, 0, "")

	rec := get(t, s.Handler(), "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}

func TestRequestID_Echoed(t *testing.T) {
	s := newTestServer(&fakeBuilder{}, &fakeVerifier{}, 0, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := New(&fakeBuilder{}, &fakeVerifier{}, Options{Addr: "127.0.0.1:0", Logger: logger})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
