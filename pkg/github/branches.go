package github

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"

	"github.com/Sternrassler/forge-miner/pkg/pagination"
)

func repoName(req pagination.Request) string {
	return req.Owner + "/" + req.Repo
}

// Branches fetches one page of branch names of req.Owner/req.Repo.
func (c *Client) Branches(ctx context.Context, req pagination.Request) (pagination.Result[string], error) {
	var q struct {
		Repository *struct {
			Refs struct {
				PageInfo pageInfo
				Nodes    []struct {
					Name string
				}
			} `graphql:"refs(refPrefix: \"refs/heads/\", first: $first, after: $cursor)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  githubv4.String(req.Owner),
		"name":   githubv4.String(req.Repo),
		"first":  githubv4.Int(c.pageSize),
		"cursor": cursorVar(req.Cursor),
	}

	signal, err := c.query(ctx, "branches "+repoName(req), &q, vars)
	if err != nil {
		return pagination.Result[string]{}, err
	}
	if signal != nil {
		return pagination.Exhausted[string](signal), nil
	}
	if q.Repository == nil {
		return pagination.Result[string]{}, fmt.Errorf("branches %s: %w", repoName(req), pagination.ErrNotFound)
	}

	refs := q.Repository.Refs
	names := make([]string, 0, len(refs.Nodes))
	for _, n := range refs.Nodes {
		names = append(names, n.Name)
	}
	return pagination.Page(names, refs.PageInfo.HasNextPage, string(refs.PageInfo.EndCursor)), nil
}

// DefaultBranch fetches the default branch name of req.Owner/req.Repo as a
// single-item page. An empty repository has no default branch and yields
// one empty name.
func (c *Client) DefaultBranch(ctx context.Context, req pagination.Request) (pagination.Result[string], error) {
	var q struct {
		Repository *struct {
			DefaultBranchRef *struct {
				Name string
			}
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner": githubv4.String(req.Owner),
		"name":  githubv4.String(req.Repo),
	}

	signal, err := c.query(ctx, "default branch "+repoName(req), &q, vars)
	if err != nil {
		return pagination.Result[string]{}, err
	}
	if signal != nil {
		return pagination.Exhausted[string](signal), nil
	}
	if q.Repository == nil {
		return pagination.Page[string](nil, false, ""), nil
	}
	if q.Repository.DefaultBranchRef == nil {
		return pagination.Page([]string{""}, false, ""), nil
	}
	return pagination.Page([]string{q.Repository.DefaultBranchRef.Name}, false, ""), nil
}
