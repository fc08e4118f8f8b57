package graph

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultBatchSize is the number of rows sent per UNWIND statement
const DefaultBatchSize = 500

// Node labels and relationship types in Neo4j
const (
	LabelTeam = "Team"
	LabelUser = "User"
	LabelRepo = "Repo"

	RelMemberOf  = "MEMBER_OF"
	RelHasAccess = "HAS_ACCESS"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// isValidIdentifier reports whether s can be interpolated as a label or relationship type.
// Values always travel as parameters.
func isValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

func labelFor(kind Kind) string {
	switch kind {
	case KindTeam:
		return LabelTeam
	case KindMember:
		return LabelUser
	default:
		return LabelRepo
	}
}

// constraintQuery makes node ids unique per label so MERGE can use the index
func constraintQuery(label string) (string, error) {
	if !isValidIdentifier(label) {
		return "", fmt.Errorf("invalid node label: %s", label)
	}
	return fmt.Sprintf(
		"CREATE CONSTRAINT %s_id IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
		strings.ToLower(label), label,
	), nil
}

// mergeNodesQuery upserts a batch of $nodes of one label by id
func mergeNodesQuery(label string) (string, error) {
	if !isValidIdentifier(label) {
		return "", fmt.Errorf("invalid node label: %s", label)
	}
	return fmt.Sprintf(
		"UNWIND $nodes AS node MERGE (n:%s {id: node.id}) SET n += node",
		label,
	), nil
}

// mergeLinksQuery upserts a batch of $links between two labels
func mergeLinksQuery(fromLabel, toLabel, rel string) (string, error) {
	for _, id := range []string{fromLabel, toLabel, rel} {
		if !isValidIdentifier(id) {
			return "", fmt.Errorf("invalid identifier: %s", id)
		}
	}
	return fmt.Sprintf(
		"UNWIND $links AS link MATCH (a:%s {id: link.source}) MATCH (b:%s {id: link.target}) MERGE (a)-[r:%s]->(b) SET r.label = link.label",
		fromLabel, toLabel, rel,
	), nil
}

func nodeProperties(node *Node) map[string]any {
	props := map[string]any{
		"id":    node.ID,
		"type":  node.Type.String(),
		"label": node.Label,
		"size":  node.Size,
	}
	if node.Name != "" {
		props["name"] = node.Name
	}
	if node.Avatar != "" {
		props["avatar"] = node.Avatar
	}
	return props
}

// PlanWrites turns doc into the ordered statements that store it:
// constraints, then nodes per label, then links per relationship type, each in batches.
func PlanWrites(doc *Document, batchSize int) ([]Statement, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var statements []Statement

	for _, label := range []string{LabelTeam, LabelUser, LabelRepo} {
		query, err := constraintQuery(label)
		if err != nil {
			return nil, err
		}
		statements = append(statements, Statement{Query: query})
	}

	for _, nodes := range [][]*Node{doc.Teams, doc.Members, doc.Repos} {
		if len(nodes) == 0 {
			continue
		}
		query, err := mergeNodesQuery(labelFor(nodes[0].Type))
		if err != nil {
			return nil, err
		}

		rows := make([]map[string]any, len(nodes))
		for i, node := range nodes {
			rows[i] = nodeProperties(node)
		}
		for _, batch := range batches(rows, batchSize) {
			statements = append(statements, Statement{Query: query, Params: map[string]any{"nodes": batch}})
		}
	}

	var memberOf, hasAccess []map[string]any
	for _, link := range doc.Links {
		row := map[string]any{"source": link.Source, "target": link.Target, "label": link.Label}
		switch {
		case strings.HasPrefix(link.Source, Login("").ID()):
			memberOf = append(memberOf, row)
		case strings.HasPrefix(link.Source, TeamSlug("").ID()):
			hasAccess = append(hasAccess, row)
		default:
			return nil, fmt.Errorf("link from %s has no relationship type", link.Source)
		}
	}

	links := []struct {
		from, to, rel string
		rows          []map[string]any
	}{
		{LabelUser, LabelTeam, RelMemberOf, memberOf},
		{LabelTeam, LabelRepo, RelHasAccess, hasAccess},
	}
	for _, l := range links {
		if len(l.rows) == 0 {
			continue
		}
		query, err := mergeLinksQuery(l.from, l.to, l.rel)
		if err != nil {
			return nil, err
		}
		for _, batch := range batches(l.rows, batchSize) {
			statements = append(statements, Statement{Query: query, Params: map[string]any{"links": batch}})
		}
	}

	return statements, nil
}

func batches(rows []map[string]any, size int) [][]map[string]any {
	var out [][]map[string]any
	for i := 0; i < len(rows); i += size {
		end := i + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[i:end])
	}
	return out
}
