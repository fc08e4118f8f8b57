package github

import (
	"encoding/json"
	"time"
)

// Variables are the GraphQL variables of one request
type Variables map[string]any

// Request is the JSON body posted to the GraphQL endpoint
type Request struct {
	Query     string    `json:"query"`
	Variables Variables `json:"variables,omitempty"`
}

// Response is the raw GraphQL envelope
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Location points into the query document
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError is one entry of the envelope's error list.
// Errors with a Path belong to a field of the data payload; errors without
// one apply to the whole request.
type GraphQLError struct {
	Message    string         `json:"message"`
	Type       string         `json:"type,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Locations  []Location     `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) String() string {
	return e.Message
}

// RateLimit is the budget snapshot GitHub returns with each query
type RateLimit struct {
	Cost      int       `json:"cost"`
	Limit     int       `json:"limit"`
	NodeCount int       `json:"nodeCount"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// PageInfo is the cursor state of a connection
type PageInfo struct {
	EndCursor   string `json:"endCursor"`
	HasNextPage bool   `json:"hasNextPage"`
}

// Typed response schema. Pointers mark every level GitHub may return as null.

type TeamsData struct {
	RateLimit    *RateLimit         `json:"rateLimit"`
	Organization *TeamsOrganization `json:"organization"`
}

type TeamsOrganization struct {
	Teams *TeamConnection `json:"teams"`
}

type TeamConnection struct {
	PageInfo PageInfo `json:"pageInfo"`
	Nodes    []*Team  `json:"nodes"`
}

type Team struct {
	Slug         string                `json:"slug"`
	Name         string                `json:"name"`
	ParentTeam   *ParentTeam           `json:"parentTeam"`
	Members      *MemberConnection     `json:"members"`
	Repositories *RepositoryConnection `json:"repositories"`
}

type ParentTeam struct {
	Name string `json:"name"`
}

type MemberConnection struct {
	PageInfo PageInfo      `json:"pageInfo"`
	Edges    []*MemberEdge `json:"edges"`
}

type MemberEdge struct {
	Role string `json:"role"`
	Node *User  `json:"node"`
}

type User struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

type RepositoryConnection struct {
	PageInfo PageInfo          `json:"pageInfo"`
	Edges    []*RepositoryEdge `json:"edges"`
}

// RepositoryEdge is nil for repositories the credential cannot see
type RepositoryEdge struct {
	Permission string      `json:"permission"`
	Node       *Repository `json:"node"`
}

type Repository struct {
	Name   string            `json:"name"`
	Parent *ParentRepository `json:"parent"`
}

type ParentRepository struct {
	Name string `json:"name"`
}

type ReposData struct {
	RateLimit    *RateLimit         `json:"rateLimit"`
	Organization *ReposOrganization `json:"organization"`
}

type ReposOrganization struct {
	Team *TeamRepositories `json:"team"`
}

type TeamRepositories struct {
	Repositories *RepositoryConnection `json:"repositories"`
}

type VerifyData struct {
	RateLimit    *RateLimit `json:"rateLimit"`
	Organization *struct {
		Teams *struct {
			PageInfo PageInfo `json:"pageInfo"`
		} `json:"teams"`
	} `json:"organization"`
}
