package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
)

// UserAgent is sent with every request
const UserAgent = "octonet"

// Transport performs one GraphQL round trip. It never retries or classifies;
// that is the Client's job.
type Transport interface {
	Do(ctx context.Context, token string, req *Request) (*Response, error)
}

// HTTPTransport posts GraphQL requests through a go-github client, which
// supplies bearer authentication, JSON encoding and response checking.
type HTTPTransport struct {
	endpoint string
	base     *github.Client
}

// NewHTTPTransport creates a transport for the given GraphQL endpoint.
// httpClient may be nil.
func NewHTTPTransport(endpoint string, httpClient *http.Client) *HTTPTransport {
	base := github.NewClient(httpClient)
	base.UserAgent = UserAgent

	return &HTTPTransport{
		endpoint: endpoint,
		base:     base,
	}
}

// Do posts req with token as bearer credential. A non-2xx HTTP status is
// reported as a single top-level error carrying the status line
// ("502 Bad Gateway"), which is what GraphQL clients surface to callers.
func (t *HTTPTransport) Do(ctx context.Context, token string, req *Request) (*Response, error) {
	client := t.base
	if token != "" {
		client = client.WithAuthToken(token)
	}

	httpReq, err := client.NewRequest(http.MethodPost, t.endpoint, req)
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}

	var out Response
	resp, err := client.Do(ctx, httpReq, &out)
	if resp != nil && resp.Response != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return &Response{Errors: []GraphQLError{{Message: resp.Status}}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", t.endpoint, err)
	}

	return &out, nil
}
