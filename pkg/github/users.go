package github

import (
	"context"

	"github.com/shurcooL/githubv4"

	"github.com/Sternrassler/forge-miner/pkg/pagination"
)

type totalCount struct {
	TotalCount int
}

// Profile fetches the profile of req.Login. An unknown login yields
// pagination.ErrNotFound.
func (c *Client) Profile(ctx context.Context, req pagination.Request) (pagination.Result[Profile], error) {
	var q struct {
		User *struct {
			Login     string
			Name      string
			Email     string
			Bio       string
			Company   string
			AvatarURL string `graphql:"avatarUrl"`
			CreatedAt githubv4.DateTime

			Watching                     totalCount
			StarredRepositories          totalCount
			Following                    totalCount
			Followers                    totalCount
			Gists                        totalCount
			Issues                       totalCount
			ProjectsV2                   totalCount `graphql:"projectsV2"`
			PullRequests                 totalCount
			Repositories                 totalCount
			RepositoryDiscussions        totalCount
			CommitComments               totalCount
			IssueComments                totalCount
			GistComments                 totalCount
			RepositoryDiscussionComments totalCount
		} `graphql:"user(login: $login)"`
	}
	vars := map[string]interface{}{
		"login": githubv4.String(req.Login),
	}

	signal, err := c.query(ctx, "profile "+req.Login, &q, vars)
	if err != nil {
		return pagination.Result[Profile]{}, err
	}
	if signal != nil {
		return pagination.Exhausted[Profile](signal), nil
	}
	if q.User == nil {
		return pagination.Page[Profile](nil, false, ""), nil
	}

	u := q.User
	return pagination.Page([]Profile{{
		Login:                        u.Login,
		Name:                         u.Name,
		Email:                        u.Email,
		Bio:                          u.Bio,
		Company:                      u.Company,
		AvatarURL:                    u.AvatarURL,
		CreatedAt:                    u.CreatedAt.Time,
		Watching:                     u.Watching.TotalCount,
		StarredRepositories:          u.StarredRepositories.TotalCount,
		Following:                    u.Following.TotalCount,
		Followers:                    u.Followers.TotalCount,
		Gists:                        u.Gists.TotalCount,
		Issues:                       u.Issues.TotalCount,
		Projects:                     u.ProjectsV2.TotalCount,
		PullRequests:                 u.PullRequests.TotalCount,
		Repositories:                 u.Repositories.TotalCount,
		RepositoryDiscussions:        u.RepositoryDiscussions.TotalCount,
		CommitComments:               u.CommitComments.TotalCount,
		IssueComments:                u.IssueComments.TotalCount,
		GistComments:                 u.GistComments.TotalCount,
		RepositoryDiscussionComments: u.RepositoryDiscussionComments.TotalCount,
	}}, false, ""), nil
}

// Contributions fetches the contribution totals of req.Login between
// req.Since and req.Until. Zero bounds use the API default (last year).
func (c *Client) Contributions(ctx context.Context, req pagination.Request) (pagination.Result[Contributions], error) {
	var q struct {
		User *struct {
			ContributionsCollection struct {
				StartedAt                           githubv4.DateTime
				EndedAt                             githubv4.DateTime
				RestrictedContributionsCount        int
				TotalCommitContributions            int
				TotalIssueContributions             int
				TotalPullRequestContributions       int
				TotalPullRequestReviewContributions int
				TotalRepositoryContributions        int
			} `graphql:"contributionsCollection(from: $from, to: $to)"`
		} `graphql:"user(login: $login)"`
	}
	vars := map[string]interface{}{
		"login": githubv4.String(req.Login),
		"from":  dateTimeVar(req.Since),
		"to":    dateTimeVar(req.Until),
	}

	signal, err := c.query(ctx, "contributions "+req.Login, &q, vars)
	if err != nil {
		return pagination.Result[Contributions]{}, err
	}
	if signal != nil {
		return pagination.Exhausted[Contributions](signal), nil
	}
	if q.User == nil {
		return pagination.Page[Contributions](nil, false, ""), nil
	}

	cc := q.User.ContributionsCollection
	return pagination.Page([]Contributions{{
		StartedAt:    cc.StartedAt.Time,
		EndedAt:      cc.EndedAt.Time,
		Restricted:   cc.RestrictedContributionsCount,
		Commits:      cc.TotalCommitContributions,
		Issues:       cc.TotalIssueContributions,
		PullRequests: cc.TotalPullRequestContributions,
		Reviews:      cc.TotalPullRequestReviewContributions,
		Repositories: cc.TotalRepositoryContributions,
	}}, false, ""), nil
}
