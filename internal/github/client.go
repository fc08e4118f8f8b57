package github

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/octonet/internal/errors"
)

const (
	DefaultMaxAttempts = 10
	DefaultRetryDelay  = 2 * time.Second
)

// QueryResult is the successful outcome of one query: the raw data payload,
// the rate-limit snapshot and any field-level errors that did not abort the call.
type QueryResult struct {
	Data      json.RawMessage
	RateLimit *RateLimit
	Errors    []GraphQLError
	Attempts  int
}

// Decode unmarshals the data payload into v
func (r *QueryResult) Decode(v any) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return errors.RequestErrorf(err, "decode data payload")
	}
	return nil
}

// Client executes GraphQL queries against one organization with retry on
// gateway errors and classification of terminal failures
type Client struct {
	transport   Transport
	org         string
	maxAttempts int
	retryDelay  time.Duration
	rateLimiter *rate.Limiter
	logger      logrus.FieldLogger
}

// Option configures a Client
type Option func(*Client)

// WithMaxAttempts sets the total number of attempts per query (minimum 1)
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n >= 1 {
			c.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the fixed delay between gateway-error retries
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.retryDelay = d
		}
	}
}

// WithRateLimit caps outgoing attempts per second. 0 disables the limiter.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.rateLimiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			c.rateLimiter = nil
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for org on top of transport
func NewClient(transport Transport, org string, opts ...Option) *Client {
	c := &Client{
		transport:   transport,
		org:         org,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		logger:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Org returns the organization every query is scoped to
func (c *Client) Org() string {
	return c.org
}

// Execute runs query with vars (merged with the organization login) using
// token as bearer credential.
//
// Gateway errors (502/504) are retried after the retry delay until the attempt
// budget is spent, which yields ErrTimeout. Unauthorized responses yield
// ErrUnauthorized and are never retried. A forbidden organization yields
// ErrForbidden. Any other top-level error, or a response without data, yields
// ErrRequest.
func (c *Client) Execute(ctx context.Context, query Query, vars Variables, token string) (*QueryResult, error) {
	req := &Request{Query: query.Text, Variables: c.withOrg(vars)}
	log := c.logger.WithField("query", query.Name)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return nil, errors.RequestErrorf(err, "rate limiter")
			}
		}

		start := time.Now()
		resp, err := c.transport.Do(ctx, token, req)
		graphqlLatency.WithLabelValues(query.Name).Observe(time.Since(start).Seconds())
		if err != nil {
			graphqlRequests.WithLabelValues(query.Name, outcomeError).Inc()
			return nil, errors.RequestErrorf(err, "%s query failed", query.Name)
		}

		result, gatewayMessage, err := classify(resp)
		if gatewayMessage != "" {
			graphqlRequests.WithLabelValues(query.Name, outcomeRetry).Inc()
			graphqlRetries.WithLabelValues(query.Name).Inc()
			log.WithFields(logrus.Fields{
				"attempt":      attempt,
				"max_attempts": c.maxAttempts,
				"message":      gatewayMessage,
			}).Warn("Got bad gateway, retrying")

			if attempt < c.maxAttempts {
				if err := sleep(ctx, c.retryDelay); err != nil {
					return nil, errors.RequestErrorf(err, "%s query cancelled while waiting to retry", query.Name)
				}
			}
			continue
		}
		if err != nil {
			graphqlRequests.WithLabelValues(query.Name, outcomeFor(err)).Inc()
			if errors.KindOf(err) == errors.KindForbidden {
				log.WithField("org", c.org).WithError(err).Error("Access to org is forbidden")
			}
			return nil, err
		}

		graphqlRequests.WithLabelValues(query.Name, outcomeSuccess).Inc()
		result.Attempts = attempt
		if rl := result.RateLimit; rl != nil {
			rateLimitRemaining.Set(float64(rl.Remaining))
			log.WithFields(logrus.Fields{
				"remaining": rl.Remaining,
				"limit":     rl.Limit,
				"cost":      rl.Cost,
				"reset_at":  rl.ResetAt,
			}).Debugf("limit: %d/%d remaining", rl.Remaining, rl.Limit)
		}
		return result, nil
	}

	graphqlRequests.WithLabelValues(query.Name, outcomeTimeout).Inc()
	return nil, errors.Timeout("request timed out").
		WithContext("query", query.Name).
		WithContext("attempts", c.maxAttempts)
}

// Verify runs the access probe and returns the current rate-limit snapshot
func (c *Client) Verify(ctx context.Context, token string) (*RateLimit, error) {
	result, err := c.Execute(ctx, VerifyQuery, nil, token)
	if err != nil {
		return nil, err
	}
	return result.RateLimit, nil
}

func (c *Client) withOrg(vars Variables) Variables {
	merged := make(Variables, len(vars)+1)
	for k, v := range vars {
		merged[k] = v
	}
	merged["org"] = c.org
	return merged
}

// classify turns a raw envelope into a result, a terminal error, or the
// gateway message to retry on
func classify(resp *Response) (*QueryResult, string, error) {
	var toplevel, nested []GraphQLError
	for _, e := range resp.Errors {
		if len(e.Path) == 0 {
			toplevel = append(toplevel, e)
		} else {
			nested = append(nested, e)
		}
	}

	if len(toplevel) > 0 {
		message := toplevel[0].Message
		switch {
		case isUnauthorized(message):
			return nil, "", errors.Unauthorized("not authorised").WithContext("message", message)
		case isGatewayError(message):
			return nil, message, nil
		default:
			return nil, "", errors.Request(message)
		}
	}

	if isEmptyPayload(resp.Data) {
		err := errors.Request("data was nil")
		if len(nested) > 0 {
			err.WithContext("message", nested[0].Message)
		}
		return nil, "", err
	}

	if len(nested) > 0 && strings.EqualFold(nested[0].Type, "FORBIDDEN") {
		return nil, "", errors.Forbidden(nested[0].Message)
	}

	var envelope struct {
		RateLimit *RateLimit `json:"rateLimit"`
	}
	if err := json.Unmarshal(resp.Data, &envelope); err != nil {
		return nil, "", errors.RequestErrorf(err, "decode data payload")
	}

	return &QueryResult{
		Data:      resp.Data,
		RateLimit: envelope.RateLimit,
		Errors:    nested,
	}, "", nil
}

func isUnauthorized(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "401") || strings.Contains(m, "unauthorized")
}

func isGatewayError(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "502") || strings.Contains(m, "bad gateway") ||
		strings.Contains(m, "504") || strings.Contains(m, "gateway timeout")
}

func isEmptyPayload(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}"))
}

func outcomeFor(err error) string {
	switch errors.KindOf(err) {
	case errors.KindUnauthorized:
		return outcomeUnauthorized
	case errors.KindForbidden:
		return outcomeForbidden
	default:
		return outcomeError
	}
}

// sleep blocks for d unless ctx ends first
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
