package github

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"

	"github.com/Sternrassler/forge-miner/pkg/pagination"
)

// languagesPerRepo bounds the language edges fetched with each repository.
const languagesPerRepo = 20

type category struct {
	affiliations []githubv4.RepositoryAffiliation
	fork         bool
}

var categories = map[string]category{
	OwnedOriginal: {
		affiliations: []githubv4.RepositoryAffiliation{githubv4.RepositoryAffiliationOwner},
	},
	OwnedForked: {
		affiliations: []githubv4.RepositoryAffiliation{githubv4.RepositoryAffiliationOwner},
		fork:         true,
	},
	CollaboratingOriginal: {
		affiliations: []githubv4.RepositoryAffiliation{
			githubv4.RepositoryAffiliationCollaborator,
			githubv4.RepositoryAffiliationOrganizationMember,
		},
	},
	CollaboratingForked: {
		affiliations: []githubv4.RepositoryAffiliation{
			githubv4.RepositoryAffiliationCollaborator,
			githubv4.RepositoryAffiliationOrganizationMember,
		},
		fork: true,
	},
}

// Repositories fetches one page of req.Login's repositories in the category
// named by req.Kind.
func (c *Client) Repositories(ctx context.Context, req pagination.Request) (pagination.Result[Repository], error) {
	cat, ok := categories[req.Kind]
	if !ok {
		return pagination.Result[Repository]{}, fmt.Errorf("unknown repository category %q", req.Kind)
	}

	var q struct {
		User *struct {
			Repositories struct {
				PageInfo pageInfo
				Nodes    []struct {
					Name      string
					IsFork    bool
					CreatedAt githubv4.DateTime
					Owner     struct {
						Login string
					}
					Languages struct {
						Edges []struct {
							Size int
							Node struct {
								Name string
							}
						}
					} `graphql:"languages(first: $languages)"`
				}
			} `graphql:"repositories(first: $first, after: $cursor, ownerAffiliations: $affiliations, isFork: $fork)"`
		} `graphql:"user(login: $login)"`
	}
	vars := map[string]interface{}{
		"login":        githubv4.String(req.Login),
		"first":        githubv4.Int(c.pageSize),
		"cursor":       cursorVar(req.Cursor),
		"affiliations": cat.affiliations,
		"fork":         githubv4.Boolean(cat.fork),
		"languages":    githubv4.Int(languagesPerRepo),
	}

	signal, err := c.query(ctx, "repositories "+req.Login, &q, vars)
	if err != nil {
		return pagination.Result[Repository]{}, err
	}
	if signal != nil {
		return pagination.Exhausted[Repository](signal), nil
	}
	if q.User == nil {
		return pagination.Result[Repository]{}, fmt.Errorf("repositories %s: %w", req.Login, pagination.ErrNotFound)
	}

	conn := q.User.Repositories
	repos := make([]Repository, 0, len(conn.Nodes))
	for _, n := range conn.Nodes {
		r := Repository{
			Name:      n.Name,
			Owner:     n.Owner.Login,
			IsFork:    n.IsFork,
			CreatedAt: n.CreatedAt.Time,
			Languages: make([]LanguageSize, 0, len(n.Languages.Edges)),
		}
		for _, e := range n.Languages.Edges {
			r.Languages = append(r.Languages, LanguageSize{Name: e.Node.Name, Size: e.Size})
		}
		repos = append(repos, r)
	}

	return pagination.Page(repos, conn.PageInfo.HasNextPage, string(conn.PageInfo.EndCursor)), nil
}
