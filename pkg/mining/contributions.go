package mining

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/forge-miner/pkg/batch"
	"github.com/Sternrassler/forge-miner/pkg/github"
	"github.com/Sternrassler/forge-miner/pkg/pagination"
	"github.com/Sternrassler/forge-miner/pkg/run"
	"github.com/Sternrassler/forge-miner/pkg/sink"
)

// ContributionsSource fetches the pages the contributions pipeline needs.
type ContributionsSource interface {
	Profile(ctx context.Context, req pagination.Request) (pagination.Result[github.Profile], error)
	Contributions(ctx context.Context, req pagination.Request) (pagination.Result[github.Contributions], error)
	Repositories(ctx context.Context, req pagination.Request) (pagination.Result[github.Repository], error)
}

// Column indexes of the contributions table.
const (
	colLogin = iota
	colName
	colEmail
	colCreatedAt
	colAge
	colBio
	colCompany
	colWatching
	colStarred
	colFollowing
	colFollowers
	colPrivate
	colCommits
	colGists
	colIssues
	colProjects
	colPullRequests
	colReviews
	colRepositories
	colDiscussions
	colCommitComments
	colIssueComments
	colGistComments
	colDiscussionComments
	colCategories
)

// Columns written per repository category, starting at colCategories.
const categoryWidth = 4

var colTotalLangs = colCategories + categoryWidth*len(github.Categories)

var profileHeaders = []string{
	"GitHub ID", "Name", "Email", "Created At", "Age (days)", "Bio", "Company",
	"Watching", "Starred Repositories", "Following", "Followers",
	"Private Contributions", "Commits", "Gists", "Issues", "Projects",
	"Pull Requests", "Pull Request Reviews", "Repositories",
	"Repository Discussions", "Commit Comments", "Issue Comments",
	"Gist Comments", "Repository Discussion Comments",
}

var categoryLabels = map[string]string{
	github.OwnedOriginal:         "Owned Original",
	github.OwnedForked:           "Owned Forked",
	github.CollaboratingOriginal: "Collaborating Original",
	github.CollaboratingForked:   "Collaborating Forked",
}

// ContributionsHeaders returns the column headers of the contributions table.
func ContributionsHeaders() []string {
	h := make([]string, 0, colTotalLangs+1)
	h = append(h, profileHeaders...)
	for _, kind := range github.Categories {
		label := categoryLabels[kind]
		h = append(h,
			label+" Repo",
			label+" Repo Size",
			label+" Repo Selected Langs Size",
			label+" Repo Langs Number",
		)
	}
	return append(h, "Total Langs Number")
}

// AllLanguages selects every language.
const AllLanguages = "All"

// ContributionsConfig configures the contributions pipeline.
type ContributionsConfig struct {
	// Since and Until bound contribution totals and filter repositories by
	// creation time. Zero means unbounded.
	Since time.Time
	Until time.Time

	// Languages selects the languages summed into the selected-size columns.
	// Empty or containing AllLanguages selects every language.
	Languages []string

	// Cache, when set, serves repeated page fetches.
	Cache    pagination.PageCache
	CacheTTL time.Duration
}

// Ranged reports whether a time range is set.
func (c ContributionsConfig) Ranged() bool {
	return !c.Since.IsZero() || !c.Until.IsZero()
}

// Contributions is the contributions pipeline.
type Contributions struct {
	cfg      ContributionsConfig
	selected map[string]bool
	now      func() time.Time

	profile       pagination.FetchFunc[github.Profile]
	contributions pagination.FetchFunc[github.Contributions]
	repositories  pagination.FetchFunc[github.Repository]
}

// NewContributions creates a contributions pipeline reading from src.
func NewContributions(src ContributionsSource, cfg ContributionsConfig) *Contributions {
	var selected map[string]bool
	for _, l := range cfg.Languages {
		if strings.EqualFold(l, AllLanguages) {
			selected = nil
			break
		}
		if selected == nil {
			selected = make(map[string]bool)
		}
		selected[strings.ToLower(l)] = true
	}

	return &Contributions{
		cfg:           cfg,
		selected:      selected,
		now:           time.Now,
		profile:       pagination.Cached[github.Profile](cfg.Cache, "profile", cfg.CacheTTL, src.Profile),
		contributions: pagination.Cached[github.Contributions](cfg.Cache, "contributions", cfg.CacheTTL, src.Contributions),
		repositories:  pagination.Cached[github.Repository](cfg.Cache, "repositories", cfg.CacheTTL, src.Repositories),
	}
}

// Process implements batch.Pipeline.
func (p *Contributions) Process(rc *run.Context, u batch.Unit) error {
	login := strings.TrimSpace(u.Identifier)

	profile, err := pagination.FetchOne(rc, p.profile, pagination.Request{Login: login})
	if err != nil {
		return err
	}

	row := rc.Table.AppendPlaceholderRow()
	patch := func(col int, value string) error {
		return rc.Table.PatchCell(row, col, value)
	}
	if err := patch(colLogin, login); err != nil {
		return err
	}

	req := pagination.Request{Login: login, Since: p.cfg.Since, Until: p.cfg.Until}
	totals, err := pagination.FetchOne(rc, p.contributions, req)
	if err != nil {
		return rowError("contributions", err)
	}
	for col, value := range p.profileCells(profile, totals) {
		if err := patch(col, value); err != nil {
			return err
		}
	}

	union := make(map[string]struct{})
	for i, kind := range github.Categories {
		stats, err := p.walkCategory(rc, req, kind)
		if err != nil {
			return rowError(categoryLabels[kind]+" repositories", err)
		}
		if rc.Aborted() {
			return rc.Abort.Err()
		}

		base := colCategories + i*categoryWidth
		cells := []string{
			strconv.Itoa(stats.repos),
			strconv.Itoa(stats.totalSize),
			strconv.Itoa(stats.selectedSize),
			strconv.Itoa(len(stats.languages)),
		}
		for j, value := range cells {
			if err := patch(base+j, value); err != nil {
				return err
			}
		}
		for l := range stats.languages {
			union[l] = struct{}{}
		}
	}

	return patch(colTotalLangs, strconv.Itoa(len(union)))
}

// rowError keeps a missing sub-resource from rejecting an identifier that
// already owns a row.
func rowError(what string, err error) error {
	if errors.Is(err, pagination.ErrNotFound) {
		return fmt.Errorf("%s: %v", what, err)
	}
	return err
}

func (p *Contributions) profileCells(pr github.Profile, c github.Contributions) map[int]string {
	ref := p.now()
	if !p.cfg.Until.IsZero() {
		ref = p.cfg.Until
	}

	cells := map[int]string{
		colName:      orNA(pr.Name),
		colEmail:     orNA(pr.Email),
		colCreatedAt: pr.CreatedAt.UTC().Format(time.RFC3339),
		colAge:       strconv.Itoa(ageDays(pr.CreatedAt, ref)),
		colBio:       orNA(pr.Bio),
		colCompany:   orNA(pr.Company),
		colPrivate:   strconv.Itoa(c.Restricted),
		colCommits:   strconv.Itoa(c.Commits),
		colReviews:   strconv.Itoa(c.Reviews),
	}

	if p.cfg.Ranged() {
		// Lifetime counters cannot be bounded to the range.
		for _, col := range []int{
			colWatching, colStarred, colFollowing, colFollowers, colGists,
			colProjects, colDiscussions, colCommitComments, colIssueComments,
			colGistComments, colDiscussionComments,
		} {
			cells[col] = sink.NotAvailable
		}
		cells[colIssues] = strconv.Itoa(c.Issues)
		cells[colPullRequests] = strconv.Itoa(c.PullRequests)
		cells[colRepositories] = strconv.Itoa(c.Repositories)
		return cells
	}

	cells[colWatching] = strconv.Itoa(pr.Watching)
	cells[colStarred] = strconv.Itoa(pr.StarredRepositories)
	cells[colFollowing] = strconv.Itoa(pr.Following)
	cells[colFollowers] = strconv.Itoa(pr.Followers)
	cells[colGists] = strconv.Itoa(pr.Gists)
	cells[colIssues] = strconv.Itoa(pr.Issues)
	cells[colProjects] = strconv.Itoa(pr.Projects)
	cells[colPullRequests] = strconv.Itoa(pr.PullRequests)
	cells[colRepositories] = strconv.Itoa(pr.Repositories)
	cells[colDiscussions] = strconv.Itoa(pr.RepositoryDiscussions)
	cells[colCommitComments] = strconv.Itoa(pr.CommitComments)
	cells[colIssueComments] = strconv.Itoa(pr.IssueComments)
	cells[colGistComments] = strconv.Itoa(pr.GistComments)
	cells[colDiscussionComments] = strconv.Itoa(pr.RepositoryDiscussionComments)
	return cells
}

type categoryStats struct {
	repos        int
	totalSize    int
	selectedSize int
	languages    map[string]struct{}
}

func (p *Contributions) walkCategory(rc *run.Context, req pagination.Request, kind string) (categoryStats, error) {
	req.Kind = kind
	repos, err := pagination.WalkAll(rc, p.repositories, req)
	if err != nil {
		return categoryStats{}, err
	}

	stats := categoryStats{languages: make(map[string]struct{})}
	for _, r := range repos {
		if !p.inRange(r.CreatedAt) {
			continue
		}
		stats.repos++
		for _, l := range r.Languages {
			stats.totalSize += l.Size
			if p.selected == nil || p.selected[strings.ToLower(l.Name)] {
				stats.selectedSize += l.Size
			}
			stats.languages[l.Name] = struct{}{}
		}
	}
	return stats, nil
}

func (p *Contributions) inRange(t time.Time) bool {
	if !p.cfg.Since.IsZero() && t.Before(p.cfg.Since) {
		return false
	}
	if !p.cfg.Until.IsZero() && t.After(p.cfg.Until) {
		return false
	}
	return true
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return sink.NotAvailable
	}
	return s
}

func ageDays(created, ref time.Time) int {
	if created.IsZero() || ref.Before(created) {
		return 0
	}
	return int(ref.Sub(created).Hours() / 24)
}
