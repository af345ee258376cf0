package github

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"

	"github.com/Sternrassler/forge-miner/pkg/pagination"
)

// UserRepositories fetches one page of the repositories req.Login owns or
// collaborates on, by name only.
func (c *Client) UserRepositories(ctx context.Context, req pagination.Request) (pagination.Result[UserRepository], error) {
	var q struct {
		User *struct {
			ID           string
			Repositories struct {
				PageInfo pageInfo
				Nodes    []struct {
					Name  string
					Owner struct {
						Login string
					}
				}
			} `graphql:"repositories(first: $first, after: $cursor)"`
		} `graphql:"user(login: $login)"`
	}
	vars := map[string]interface{}{
		"login":  githubv4.String(req.Login),
		"first":  githubv4.Int(c.pageSize),
		"cursor": cursorVar(req.Cursor),
	}

	resource := "user repositories " + req.Login
	signal, err := c.query(ctx, resource, &q, vars)
	if err != nil {
		return pagination.Result[UserRepository]{}, err
	}
	if signal != nil {
		return pagination.Exhausted[UserRepository](signal), nil
	}
	if q.User == nil {
		return pagination.Result[UserRepository]{}, fmt.Errorf("%s: %w", resource, pagination.ErrNotFound)
	}

	conn := q.User.Repositories
	repos := make([]UserRepository, 0, len(conn.Nodes))
	for _, n := range conn.Nodes {
		repos = append(repos, UserRepository{UserID: q.User.ID, Owner: n.Owner.Login, Name: n.Name})
	}
	return pagination.Page(repos, conn.PageInfo.HasNextPage, string(conn.PageInfo.EndCursor)), nil
}

// AuthoredCommits fetches one page of the commit IDs req.Author authored on
// req.Branch of req.Owner/req.Repo, bounded by req.Since and req.Until.
func (c *Client) AuthoredCommits(ctx context.Context, req pagination.Request) (pagination.Result[string], error) {
	var q struct {
		Repository *struct {
			Ref *struct {
				Target struct {
					Commit struct {
						History struct {
							PageInfo pageInfo
							Nodes    []struct {
								OID string `graphql:"oid"`
							}
						} `graphql:"history(first: $first, after: $cursor, author: $author, since: $since, until: $until)"`
					} `graphql:"... on Commit"`
				}
			} `graphql:"ref(qualifiedName: $branch)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  githubv4.String(req.Owner),
		"name":   githubv4.String(req.Repo),
		"branch": githubv4.String(req.Branch),
		"author": githubv4.CommitAuthor{ID: githubv4.NewID(req.Author)},
		"first":  githubv4.Int(c.pageSize),
		"cursor": cursorVar(req.Cursor),
		"since":  gitTimestampVar(req.Since),
		"until":  gitTimestampVar(req.Until),
	}

	resource := fmt.Sprintf("authored commits %s@%s", repoName(req), req.Branch)
	signal, err := c.query(ctx, resource, &q, vars)
	if err != nil {
		return pagination.Result[string]{}, err
	}
	if signal != nil {
		return pagination.Exhausted[string](signal), nil
	}
	if q.Repository == nil || q.Repository.Ref == nil {
		return pagination.Result[string]{}, fmt.Errorf("%s: %w", resource, pagination.ErrNotFound)
	}

	history := q.Repository.Ref.Target.Commit.History
	oids := make([]string, 0, len(history.Nodes))
	for _, n := range history.Nodes {
		oids = append(oids, n.OID)
	}
	return pagination.Page(oids, history.PageInfo.HasNextPage, string(history.PageInfo.EndCursor)), nil
}
