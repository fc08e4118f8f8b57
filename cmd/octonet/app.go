package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rohankatakam/octonet/internal/config"
	"github.com/rohankatakam/octonet/internal/github"
	"github.com/rohankatakam/octonet/internal/graph"
)

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// resolveToken finds the GitHub token from the flag, config/env or keychain
func resolveToken() (string, error) {
	token, source, err := config.ResolveToken(tokenFlag, cfg, config.NewKeyringManager(logger))
	if err != nil {
		return "", err
	}
	logger.WithField("source", source).Debugf("Using GitHub token %s", config.MaskToken(token))
	return token, nil
}

// newClient creates a GraphQL client from the loaded configuration
func newClient() (*github.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := github.NewHTTPTransport(cfg.GitHub.GraphQLURL, nil)
	return github.NewClient(transport, cfg.GitHub.Org,
		github.WithMaxAttempts(cfg.GitHub.MaxAttempts),
		github.WithRetryDelay(cfg.GitHub.RetryDelay),
		github.WithRateLimit(cfg.GitHub.RateLimit),
		github.WithLogger(logger),
	), nil
}

// buildGraph resolves credentials and runs one full build
func buildGraph(ctx context.Context) (*graph.Graph, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	token, err := resolveToken()
	if err != nil {
		return nil, err
	}

	return graph.NewBuilder(client, logger).Build(ctx, token)
}
