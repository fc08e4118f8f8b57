package graph

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Document is the serialized graph consumed by rendering front ends
type Document struct {
	Teams   []*Node `json:"teams" yaml:"teams"`
	Members []*Node `json:"members" yaml:"members"`
	Repos   []*Node `json:"repos" yaml:"repos"`
	Links   []Edge  `json:"links" yaml:"links"`
}

// Document returns the graph's nodes in first-seen order and its edges in append order
func (g *Graph) Document() *Document {
	doc := &Document{
		Teams:   make([]*Node, 0, g.Teams.Len()),
		Members: make([]*Node, 0, g.Members.Len()),
		Repos:   make([]*Node, 0, g.Repos.Len()),
		Links:   make([]Edge, len(g.Links)),
	}

	for pair := g.Teams.Oldest(); pair != nil; pair = pair.Next() {
		node := *pair.Value
		doc.Teams = append(doc.Teams, &node)
	}
	for pair := g.Members.Oldest(); pair != nil; pair = pair.Next() {
		node := *pair.Value
		doc.Members = append(doc.Members, &node)
	}
	for pair := g.Repos.Oldest(); pair != nil; pair = pair.Next() {
		node := *pair.Value
		doc.Repos = append(doc.Repos, &node)
	}
	copy(doc.Links, g.Links)

	return doc
}

// WriteJSON encodes doc as JSON, indented with two spaces when indent is set
func WriteJSON(w io.Writer, doc *Document, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode graph document: %w", err)
	}
	return nil
}

// WriteYAML encodes doc as YAML
func WriteYAML(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode graph document: %w", err)
	}
	return enc.Close()
}

// Write encodes doc in the named format ("json" or "yaml")
func Write(w io.Writer, doc *Document, format string, indent bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, doc, indent)
	case "yaml", "yml":
		return WriteYAML(w, doc)
	default:
		return fmt.Errorf("unsupported format %q (want json or yaml)", format)
	}
}
