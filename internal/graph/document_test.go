package graph

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleGraph() *Graph {
	g := NewGraph()
	platform := g.UpsertTeam("platform", "Platform")
	alice := g.UpsertMember("alice", "Alice", "https://avatars.example.com/alice")
	api := g.UpsertRepo("api")
	g.AddEdge(alice, platform, "MAINTAINER")
	g.AddEdge(platform, api, "ADMIN")
	g.computeSizes()
	return g
}

func TestDocument_JSONShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleGraph().Document(), false))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	want := map[string]any{
		"teams": []any{
			map[string]any{"id": "team--platform", "type": "team", "label": "platform", "name": "Platform", "size": float64(1)},
		},
		"members": []any{
			map[string]any{"id": "user--alice", "type": "user", "label": "alice", "name": "Alice", "avatar": "https://avatars.example.com/alice", "size": float64(1)},
		},
		"repos": []any{
			map[string]any{"id": "repo--api", "type": "repo", "label": "api", "size": float64(0)},
		},
		"links": []any{
			map[string]any{"source": "user--alice", "target": "team--platform", "label": "MAINTAINER"},
			map[string]any{"source": "team--platform", "target": "repo--api", "label": "ADMIN"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestDocument_EmptyGraphHasEmptyLists(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, NewGraph().Document(), false))

	assert.JSONEq(t, `{"teams":[],"members":[],"repos":[],"links":[]}`, buf.String())
}

func TestDocument_IsDetachedFromGraph(t *testing.T) {
	g := sampleGraph()
	doc := g.Document()

	doc.Teams[0].Size = 99
	doc.Links[0].Label = "changed"

	platform, _ := g.Teams.Get("platform")
	assert.Equal(t, 1, platform.Size)
	assert.Equal(t, "MAINTAINER", g.Links[0].Label)
}

func TestWriteJSON_Indent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleGraph().Document(), true))

	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"teams\": ["))
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	doc := sampleGraph().Document()

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, doc))
	assert.Contains(t, buf.String(), "type: user")

	var decoded Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	if diff := cmp.Diff(doc, &decoded); diff != "" {
		t.Errorf("yaml round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_Format(t *testing.T) {
	doc := sampleGraph().Document()

	for _, format := range []string{"", "json", "yaml", "yml"} {
		var buf bytes.Buffer
		assert.NoError(t, Write(&buf, doc, format, false), format)
		assert.NotEmpty(t, buf.String(), format)
	}

	err := Write(&bytes.Buffer{}, doc, "xml", false)
	assert.EqualError(t, err, `unsupported format "xml" (want json or yaml)`)
}

func TestKind_Text(t *testing.T) {
	for _, kind := range []Kind{KindTeam, KindMember, KindRepo} {
		text, err := kind.MarshalText()
		require.NoError(t, err)

		var decoded Kind
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, kind, decoded)
	}

	_, err := Kind(7).MarshalText()
	assert.Error(t, err)
	assert.Error(t, new(Kind).UnmarshalText([]byte("org")))
}

func TestNodeIDs(t *testing.T) {
	assert.Equal(t, "team--platform", TeamSlug("platform").ID())
	assert.Equal(t, "user--octocat", Login("octocat").ID())
	assert.Equal(t, "repo--octonet", RepoName("octonet").ID())
}
