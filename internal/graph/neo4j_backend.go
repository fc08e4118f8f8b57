package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

// Neo4jConfig holds connection settings for the export backend
type Neo4jConfig struct {
	URI       string
	Username  string
	Password  string
	Database  string
	BatchSize int
}

// Neo4jBackend writes graph documents to Neo4j with batched UNWIND statements
type Neo4jBackend struct {
	driver    neo4j.DriverWithContext
	database  string
	batchSize int
	logger    logrus.FieldLogger
}

var _ Backend = (*Neo4jBackend)(nil)

// NewNeo4jBackend connects to Neo4j and verifies connectivity
func NewNeo4jBackend(ctx context.Context, cfg Neo4jConfig, logger logrus.FieldLogger) (*Neo4jBackend, error) {
	if cfg.URI == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("neo4j credentials missing: uri=%s, user=%s", cfg.URI, cfg.Username)
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = 10
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.SocketConnectTimeout = 5 * time.Second
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", cfg.URI, err)
	}

	logger.WithFields(logrus.Fields{
		"uri":      cfg.URI,
		"user":     cfg.Username,
		"database": cfg.Database,
	}).Info("Connected to Neo4j")

	return &Neo4jBackend{
		driver:    driver,
		database:  cfg.Database,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}, nil
}

// WriteGraph upserts every node and link of doc.
// Statements run in order so links always find their endpoints.
func (n *Neo4jBackend) WriteGraph(ctx context.Context, doc *Document) error {
	statements, err := PlanWrites(doc, n.batchSize)
	if err != nil {
		return fmt.Errorf("failed to plan neo4j writes: %w", err)
	}

	for i, stmt := range statements {
		_, err := neo4j.ExecuteQuery(ctx, n.driver, stmt.Query,
			stmt.Params,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(n.database))
		if err != nil {
			return fmt.Errorf("neo4j statement %d/%d failed: %w", i+1, len(statements), err)
		}
	}

	n.logger.WithFields(logrus.Fields{
		"statements": len(statements),
		"teams":      len(doc.Teams),
		"members":    len(doc.Members),
		"repos":      len(doc.Repos),
		"links":      len(doc.Links),
	}).Info("Graph written to Neo4j")

	return nil
}

// Close closes the Neo4j driver connection
func (n *Neo4jBackend) Close(ctx context.Context) error {
	if err := n.driver.Close(ctx); err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	return nil
}
