package github

// Query is a fixed GraphQL document. Name labels logs and metrics.
type Query struct {
	Name string
	Text string
}

// rateLimitFragment is selected by every query so each attempt can report its budget
const rateLimitFragment = `
  rateLimit {
    cost
    limit
    nodeCount
    remaining
    resetAt
  }`

// VerifyQuery is the cheapest query that still touches the organization,
// so forbidden and unauthorized credentials surface before a full build.
var VerifyQuery = Query{
	Name: "verify",
	Text: `query($org: String!) {` + rateLimitFragment + `
  organization(login: $org) {
    teams(first: 1) {
      pageInfo { endCursor }
    }
  }
}`,
}

// TeamsQuery pages through teams with each team's first page of members and repositories
var TeamsQuery = Query{
	Name: "teams",
	Text: `query($org: String!, $teamCursor: String) {` + rateLimitFragment + `
  organization(login: $org) {
    teams(first: 100, after: $teamCursor) {
      pageInfo {
        endCursor
        hasNextPage
      }
      nodes {
        slug
        name
        parentTeam { name }
        members(first: 100) {
          pageInfo {
            endCursor
            hasNextPage
          }
          edges {
            node { name login avatarUrl(size: 128) }
            role
          }
        }
        repositories(first: 100) {
          pageInfo {
            endCursor
            hasNextPage
          }
          edges {
            node {
              name
              parent { name }
            }
            permission
          }
        }
      }
    }
  }
}`,
}

// ReposQuery pages through the repositories of one team
var ReposQuery = Query{
	Name: "repos",
	Text: `query($org: String!, $teamSlug: String!, $repoCursor: String) {` + rateLimitFragment + `
  organization(login: $org) {
    team(slug: $teamSlug) {
      repositories(first: 100, after: $repoCursor) {
        pageInfo {
          endCursor
          hasNextPage
        }
        edges {
          node {
            name
            parent { name }
          }
          permission
        }
      }
    }
  }
}`,
}
