package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/octonet/internal/errors"
)

// Viewer is the account a token belongs to and its standing in the organization
type Viewer struct {
	Login string
	Name  string
	// Role and State of the org membership; empty when the org was not checked
	Role  string
	State string
}

// ViewerClient answers "who is this token" over the REST API
type ViewerClient struct {
	base        *github.Client
	org         string
	rateLimiter *rate.Limiter
}

// NewViewerClient creates a REST client rooted at baseURL (the go-github default when empty).
// httpClient may be nil.
func NewViewerClient(baseURL, org string, httpClient *http.Client) (*ViewerClient, error) {
	base := github.NewClient(httpClient)
	base.UserAgent = UserAgent

	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, errors.ConfigErrorf("invalid REST URL %q: %v", baseURL, err)
		}
		base.BaseURL = u
	}

	return &ViewerClient{
		base:        base,
		org:         org,
		rateLimiter: rate.NewLimiter(rate.Limit(DefaultViewerRateLimit), 1),
	}, nil
}

// DefaultViewerRateLimit caps REST lookups per second
const DefaultViewerRateLimit = 5

// Lookup returns the authenticated user and, when an org is configured, their membership in it
func (v *ViewerClient) Lookup(ctx context.Context, token string) (*Viewer, error) {
	client := v.base.WithAuthToken(token)

	if err := v.rateLimiter.Wait(ctx); err != nil {
		return nil, errors.RequestErrorf(err, "rate limiter")
	}
	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, classifyREST(err, "fetch authenticated user")
	}

	viewer := &Viewer{
		Login: user.GetLogin(),
		Name:  user.GetName(),
	}
	if v.org == "" {
		return viewer, nil
	}

	if err := v.rateLimiter.Wait(ctx); err != nil {
		return nil, errors.RequestErrorf(err, "rate limiter")
	}
	membership, _, err := client.Organizations.GetOrgMembership(ctx, "", v.org)
	if err != nil {
		return nil, classifyREST(err, "fetch membership in "+v.org)
	}
	viewer.Role = membership.GetRole()
	viewer.State = membership.GetState()

	return viewer, nil
}

func classifyREST(err error, action string) error {
	var resp *github.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		switch resp.Response.StatusCode {
		case http.StatusUnauthorized:
			return errors.Unauthorized("not authorised").WithContext("message", resp.Message)
		case http.StatusForbidden, http.StatusNotFound:
			return errors.Forbidden(resp.Message).WithContext("action", action)
		}
	}
	return errors.RequestErrorf(err, "%s", action)
}
