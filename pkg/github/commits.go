package github

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"

	"github.com/Sternrassler/forge-miner/pkg/pagination"
)

// BranchCommits fetches one page of the history of req.Branch in
// req.Owner/req.Repo, bounded by req.Since and req.Until.
func (c *Client) BranchCommits(ctx context.Context, req pagination.Request) (pagination.Result[Commit], error) {
	var q struct {
		Repository *struct {
			Ref *struct {
				Target struct {
					Commit struct {
						History struct {
							PageInfo pageInfo
							Nodes    []struct {
								OID    string `graphql:"oid"`
								Author struct {
									Name  string
									Email string
									User  *struct {
										Login string
									}
								}
								AuthoredDate            githubv4.DateTime
								ChangedFilesIfAvailable *int
								Additions               int
								Deletions               int
								Message                 string
								Parents                 struct {
									TotalCount int
								} `graphql:"parents(first: 0)"`
							}
						} `graphql:"history(first: $first, after: $cursor, since: $since, until: $until)"`
					} `graphql:"... on Commit"`
				}
			} `graphql:"ref(qualifiedName: $branch)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  githubv4.String(req.Owner),
		"name":   githubv4.String(req.Repo),
		"branch": githubv4.String(req.Branch),
		"first":  githubv4.Int(c.pageSize),
		"cursor": cursorVar(req.Cursor),
		"since":  gitTimestampVar(req.Since),
		"until":  gitTimestampVar(req.Until),
	}

	resource := fmt.Sprintf("commits %s@%s", repoName(req), req.Branch)
	signal, err := c.query(ctx, resource, &q, vars)
	if err != nil {
		return pagination.Result[Commit]{}, err
	}
	if signal != nil {
		return pagination.Exhausted[Commit](signal), nil
	}
	if q.Repository == nil || q.Repository.Ref == nil {
		return pagination.Result[Commit]{}, fmt.Errorf("%s: %w", resource, pagination.ErrNotFound)
	}

	history := q.Repository.Ref.Target.Commit.History
	commits := make([]Commit, 0, len(history.Nodes))
	for _, n := range history.Nodes {
		cm := Commit{
			OID:          n.OID,
			Author:       n.Author.Name,
			AuthorEmail:  n.Author.Email,
			AuthoredDate: n.AuthoredDate.Time,
			ChangedFiles: n.ChangedFilesIfAvailable,
			Additions:    n.Additions,
			Deletions:    n.Deletions,
			Message:      n.Message,
			Parents:      n.Parents.TotalCount,
		}
		if n.Author.User != nil {
			cm.AuthorLogin = n.Author.User.Login
		}
		commits = append(commits, cm)
	}
	return pagination.Page(commits, history.PageInfo.HasNextPage, string(history.PageInfo.EndCursor)), nil
}
