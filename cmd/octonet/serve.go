package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/octonet/internal/cache"
	"github.com/rohankatakam/octonet/internal/graph"
	"github.com/rohankatakam/octonet/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the organization graph over HTTP",
	Long: `Serve exposes the graph at /graph.json for browser front ends.

Requests authenticate with an "Authorization: Bearer <token>" header; without one
the configured token (GITHUB_TOKEN, config or keychain) is used when available.

Routes:
  GET /graph.json   graph document (?refresh=true skips the cache)
  GET /verify       204 when the token can read the organization
  GET /health       liveness
  GET /metrics      Prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :4567)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	client, err := newClient()
	if err != nil {
		return err
	}

	// A server token is optional: clients may bring their own
	defaultToken, err := resolveToken()
	if err != nil {
		logger.Info("No server token configured, requests must send a bearer token")
		defaultToken = ""
	}

	store, closeStore, err := newCacheStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(graph.NewBuilder(client, logger), client, server.Options{
		Addr:         addr,
		DefaultToken: defaultToken,
		Cache:        cache.NewManager(store, cfg.Server.CacheTTL, logger),
		Logger:       logger,
	})
	return srv.Run(ctx)
}

// newCacheStore picks Redis when configured and the in-process store otherwise
func newCacheStore(ctx context.Context) (cache.Store, func(), error) {
	if cfg.Server.RedisURL == "" {
		return cache.NewMemoryStore(time.Minute), func() {}, nil
	}

	store, err := cache.NewRedisStore(ctx, cfg.Server.RedisURL, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close redis")
		}
	}, nil
}
