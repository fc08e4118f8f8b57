package graph

import (
	"fmt"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind distinguishes the three node variants
type Kind int

const (
	KindTeam Kind = iota
	KindMember
	KindRepo
)

// String returns the serialized node type
func (k Kind) String() string {
	switch k {
	case KindTeam:
		return "team"
	case KindMember:
		return "user"
	case KindRepo:
		return "repo"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind as its node type in JSON and YAML
func (k Kind) MarshalText() ([]byte, error) {
	if k < KindTeam || k > KindRepo {
		return nil, fmt.Errorf("unknown node kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a node type
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "team":
		*k = KindTeam
	case "user":
		*k = KindMember
	case "repo":
		*k = KindRepo
	default:
		return fmt.Errorf("unknown node type %q", string(text))
	}
	return nil
}

// Natural keys, one type per variant
type (
	TeamSlug string
	Login    string
	RepoName string
)

// ID returns the namespaced node id, e.g. team--platform
func (s TeamSlug) ID() string { return "team--" + string(s) }

// ID returns the namespaced node id, e.g. user--octocat
func (l Login) ID() string { return "user--" + string(l) }

// ID returns the namespaced node id, e.g. repo--octonet
func (n RepoName) ID() string { return "repo--" + string(n) }

// Node is a team, member or repository in the graph
type Node struct {
	ID     string `json:"id" yaml:"id"`
	Type   Kind   `json:"type" yaml:"type"`
	Label  string `json:"label" yaml:"label"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Avatar string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	Size   int    `json:"size" yaml:"size"`
}

// Edge links two nodes by id. Label is the member role or the repository permission.
type Edge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Label  string `json:"label" yaml:"label"`
}

// BuildStats describes one build
type BuildStats struct {
	BuildID      string
	TeamPages    int
	RepoPages    int
	Teams        int
	Members      int
	Repos        int
	Links        int
	SkippedRepos int
	MissingTeams int
	// Teams whose member list went past the first page; extra members are not fetched
	TruncatedTeams int
	Duration       time.Duration
}

// Graph accumulates nodes and edges during a build.
// Node maps keep first-seen order; the edge list is a raw log and is never deduplicated.
// A Graph is mutated by a single build and read-only once returned.
type Graph struct {
	Teams   *orderedmap.OrderedMap[TeamSlug, *Node]
	Members *orderedmap.OrderedMap[Login, *Node]
	Repos   *orderedmap.OrderedMap[RepoName, *Node]
	Links   []Edge

	Stats BuildStats
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		Teams:   orderedmap.New[TeamSlug, *Node](),
		Members: orderedmap.New[Login, *Node](),
		Repos:   orderedmap.New[RepoName, *Node](),
		Links:   []Edge{},
	}
}

// UpsertTeam adds the team or overwrites the fields of an existing one
func (g *Graph) UpsertTeam(slug TeamSlug, name string) *Node {
	node, ok := g.Teams.Get(slug)
	if !ok {
		node = &Node{ID: slug.ID(), Type: KindTeam}
		g.Teams.Set(slug, node)
	}
	node.Label = string(slug)
	node.Name = name
	return node
}

// UpsertMember adds the member or overwrites the fields of an existing one
func (g *Graph) UpsertMember(login Login, name, avatar string) *Node {
	node, ok := g.Members.Get(login)
	if !ok {
		node = &Node{ID: login.ID(), Type: KindMember}
		g.Members.Set(login, node)
	}
	node.Label = string(login)
	node.Name = name
	node.Avatar = avatar
	return node
}

// UpsertRepo adds the repository if it is not known yet
func (g *Graph) UpsertRepo(name RepoName) *Node {
	node, ok := g.Repos.Get(name)
	if !ok {
		node = &Node{ID: name.ID(), Type: KindRepo}
		g.Repos.Set(name, node)
	}
	node.Label = string(name)
	return node
}

// AddEdge appends an edge
func (g *Graph) AddEdge(source, target *Node, label string) {
	g.Links = append(g.Links, Edge{Source: source.ID, Target: target.ID, Label: label})
}

// computeSizes sets every team and member size to the number of edges it is the source of.
// Repositories are never sources and stay at 0.
func (g *Graph) computeSizes() {
	outgoing := make(map[string]int, g.Teams.Len()+g.Members.Len())
	for _, link := range g.Links {
		outgoing[link.Source]++
	}

	for pair := g.Teams.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.Size = outgoing[pair.Value.ID]
	}
	for pair := g.Members.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.Size = outgoing[pair.Value.ID]
	}
	for pair := g.Repos.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.Size = 0
	}
}
