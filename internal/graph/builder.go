package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/octonet/internal/github"
)

// Executor runs one GraphQL query. *github.Client implements it.
type Executor interface {
	Execute(ctx context.Context, query github.Query, vars github.Variables, token string) (*github.QueryResult, error)
}

// Builder materializes the organization graph by paginating teams and,
// for teams with more than one page of repositories, their repositories.
// A Builder holds no per-build state and may run several builds at once.
type Builder struct {
	client Executor
	logger logrus.FieldLogger
}

// NewBuilder creates a graph builder
func NewBuilder(client Executor, logger logrus.FieldLogger) *Builder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Builder{
		client: client,
		logger: logger,
	}
}

// build is the state of one Build call
type build struct {
	graph *Graph
	token string
	log   logrus.FieldLogger
}

// Build runs the full traversal with token as credential and returns the finished graph.
// Any client failure aborts the build; the partial graph is discarded.
func (b *Builder) Build(ctx context.Context, token string) (*Graph, error) {
	start := time.Now()
	buildID := uuid.New().String()

	run := &build{
		graph: NewGraph(),
		token: token,
		log:   b.logger.WithField("build_id", buildID),
	}
	run.graph.Stats.BuildID = buildID

	run.log.Debug("Building organization graph")

	if err := b.fetchTeams(ctx, run); err != nil {
		run.log.WithError(err).Error("Graph build failed")
		return nil, err
	}

	g := run.graph
	g.computeSizes()

	g.Stats.Teams = g.Teams.Len()
	g.Stats.Members = g.Members.Len()
	g.Stats.Repos = g.Repos.Len()
	g.Stats.Links = len(g.Links)
	g.Stats.Duration = time.Since(start)

	run.log.WithFields(logrus.Fields{
		"teams":         g.Stats.Teams,
		"members":       g.Stats.Members,
		"repos":         g.Stats.Repos,
		"links":         g.Stats.Links,
		"team_pages":    g.Stats.TeamPages,
		"repo_pages":    g.Stats.RepoPages,
		"skipped_repos": g.Stats.SkippedRepos,
		"missing_teams": g.Stats.MissingTeams,
		"truncated":     g.Stats.TruncatedTeams,
		"duration":      g.Stats.Duration.Round(time.Millisecond),
	}).Info("Graph built")

	return g, nil
}

// fetchTeams walks every page of teams. A team whose repositories span
// several pages is drained before the next team is processed.
func (b *Builder) fetchTeams(ctx context.Context, run *build) error {
	var cursor string

	for {
		vars := github.Variables{}
		if cursor != "" {
			vars["teamCursor"] = cursor
		}

		result, err := b.client.Execute(ctx, github.TeamsQuery, vars, run.token)
		if err != nil {
			return err
		}
		run.graph.Stats.TeamPages++

		var data github.TeamsData
		if err := result.Decode(&data); err != nil {
			return err
		}
		if data.Organization == nil || data.Organization.Teams == nil {
			return nil
		}
		teams := data.Organization.Teams

		for _, team := range teams.Nodes {
			if team == nil {
				continue
			}
			teamNode := run.graph.UpsertTeam(TeamSlug(team.Slug), team.Name)

			if team.Members != nil {
				for _, edge := range team.Members.Edges {
					if edge == nil || edge.Node == nil {
						continue
					}
					member := run.graph.UpsertMember(Login(edge.Node.Login), edge.Node.Name, edge.Node.AvatarURL)
					run.graph.AddEdge(member, teamNode, edge.Role)
				}
				if team.Members.PageInfo.HasNextPage {
					run.graph.Stats.TruncatedTeams++
					run.log.WithFields(logrus.Fields{
						"team":    team.Slug,
						"members": len(team.Members.Edges),
					}).Warn("Team has more members than one page, extra members are omitted")
				}
			}

			if team.Repositories != nil {
				b.addRepos(run, teamNode, team.Repositories.Edges)

				if page := team.Repositories.PageInfo; page.HasNextPage && page.EndCursor != "" {
					if err := b.fetchRepos(ctx, run, teamNode, team.Slug, page.EndCursor); err != nil {
						return err
					}
				}
			}
		}

		if !teams.PageInfo.HasNextPage || teams.PageInfo.EndCursor == "" {
			return nil
		}
		cursor = teams.PageInfo.EndCursor
	}
}

// fetchRepos walks the remaining repository pages of one team starting at cursor.
// A team that no longer resolves is logged and skipped.
func (b *Builder) fetchRepos(ctx context.Context, run *build, teamNode *Node, slug, cursor string) error {
	for {
		vars := github.Variables{
			"teamSlug":   slug,
			"repoCursor": cursor,
		}

		result, err := b.client.Execute(ctx, github.ReposQuery, vars, run.token)
		if err != nil {
			return err
		}
		run.graph.Stats.RepoPages++

		var data github.ReposData
		if err := result.Decode(&data); err != nil {
			return err
		}
		if data.Organization == nil || data.Organization.Team == nil {
			run.graph.Stats.MissingTeams++
			run.log.WithField("team", slug).Infof("Team %s not found, skipping remaining repositories", slug)
			return nil
		}

		repos := data.Organization.Team.Repositories
		if repos == nil {
			return nil
		}
		b.addRepos(run, teamNode, repos.Edges)

		if !repos.PageInfo.HasNextPage || repos.PageInfo.EndCursor == "" {
			return nil
		}
		cursor = repos.PageInfo.EndCursor
	}
}

// addRepos upserts each visible repository and links the team to it.
// Null edges stand for repositories the credential cannot see.
func (b *Builder) addRepos(run *build, teamNode *Node, edges []*github.RepositoryEdge) {
	for _, edge := range edges {
		if edge == nil || edge.Node == nil {
			run.graph.Stats.SkippedRepos++
			continue
		}
		repo := run.graph.UpsertRepo(RepoName(edge.Node.Name))
		run.graph.AddEdge(teamNode, repo, edge.Permission)
	}
}
