package graph

import "context"

// Backend persists a finished graph document
type Backend interface {
	// WriteGraph stores every node and link of doc
	WriteGraph(ctx context.Context, doc *Document) error

	// Close releases the backend connection
	Close(ctx context.Context) error
}

// Statement is a Cypher query with its parameters
type Statement struct {
	Query  string
	Params map[string]any
}
