package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransport_PostsQuery(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/graphql", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"organization":{"teams":{"pageInfo":{"endCursor":"x"}}}},"errors":[{"message":"partial","type":"NOT_FOUND","path":["organization","teams"]}]}`))
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL+"/graphql", server.Client())
	resp, err := transport.Do(context.Background(), "secret-token", &Request{
		Query:     VerifyQuery.Text,
		Variables: Variables{"org": "acme"},
	})
	require.NoError(t, err)

	assert.Equal(t, VerifyQuery.Text, got.Query)
	assert.Equal(t, "acme", got.Variables["org"])

	assert.JSONEq(t, `{"organization":{"teams":{"pageInfo":{"endCursor":"x"}}}}`, string(resp.Data))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "NOT_FOUND", resp.Errors[0].Type)
	assert.Equal(t, []any{"organization", "teams"}, resp.Errors[0].Path)
}

func TestHTTPTransport_StatusBecomesTopLevelError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
	}{
		{"bad gateway", http.StatusBadGateway, "502 Bad Gateway"},
		{"gateway timeout", http.StatusGatewayTimeout, "504 Gateway Timeout"},
		{"unauthorized", http.StatusUnauthorized, "401 Unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, http.StatusText(tt.status), tt.status)
			}))
			defer server.Close()

			transport := NewHTTPTransport(server.URL+"/graphql", server.Client())
			resp, err := transport.Do(context.Background(), "tok", &Request{Query: VerifyQuery.Text})
			require.NoError(t, err)

			require.Len(t, resp.Errors, 1)
			assert.Equal(t, tt.message, resp.Errors[0].Message)
			assert.Empty(t, resp.Errors[0].Path)
		})
	}
}

func TestHTTPTransport_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	transport := NewHTTPTransport(url+"/graphql", nil)
	resp, err := transport.Do(context.Background(), "tok", &Request{Query: VerifyQuery.Text})
	assert.Nil(t, resp)
	require.Error(t, err)
}

func TestHTTPTransport_ClientClassifiesGateway(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"rateLimit":{"remaining":10,"limit":5000}}}`))
	}))
	defer server.Close()

	client := newTestClient(NewHTTPTransport(server.URL+"/graphql", server.Client()))
	rl, err := client.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 10, rl.Remaining)
	assert.Equal(t, 2, calls)
}
