package mining

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/forge-miner/pkg/batch"
	"github.com/Sternrassler/forge-miner/pkg/github"
	"github.com/Sternrassler/forge-miner/pkg/pagination"
	"github.com/Sternrassler/forge-miner/pkg/run"
	"github.com/Sternrassler/forge-miner/pkg/sink"
)

// CommitsSource fetches the pages the commits pipeline needs.
type CommitsSource interface {
	DefaultBranch(ctx context.Context, req pagination.Request) (pagination.Result[string], error)
	Branches(ctx context.Context, req pagination.Request) (pagination.Result[string], error)
	BranchCommits(ctx context.Context, req pagination.Request) (pagination.Result[github.Commit], error)
}

// Column indexes of the commits table.
const (
	colRepository = iota
	colAuthor
	colAuthorEmail
	colAuthorLogin
	colBranch
	colAuthoredDate
	colChangedFiles
	colAdditions
	colDeletions
	colMessage
	colParents
)

var commitHeaders = []string{
	"Repository", "Author", "Author Email", "Author Login", "Branch",
	"Authored Date", "Changed Files", "Additions", "Deletions", "Message",
	"Parents",
}

// CommitHeaders returns the column headers of the commits table.
func CommitHeaders() []string {
	h := make([]string, len(commitHeaders))
	copy(h, commitHeaders)
	return h
}

// CommitsConfig configures the commits pipeline.
type CommitsConfig struct {
	// AllBranches walks every branch instead of the default branch only.
	AllBranches bool

	// Since and Until bound commit authoring time. Zero means unbounded.
	Since time.Time
	Until time.Time

	Cache    pagination.PageCache
	CacheTTL time.Duration
}

// Commits is the commits pipeline.
type Commits struct {
	cfg CommitsConfig

	defaultBranch pagination.FetchFunc[string]
	branches      pagination.FetchFunc[string]
	commits       pagination.FetchFunc[github.Commit]
}

// NewCommits creates a commits pipeline reading from src.
func NewCommits(src CommitsSource, cfg CommitsConfig) *Commits {
	return &Commits{
		cfg:           cfg,
		defaultBranch: pagination.Cached[string](cfg.Cache, "default_branch", cfg.CacheTTL, src.DefaultBranch),
		branches:      pagination.Cached[string](cfg.Cache, "branches", cfg.CacheTTL, src.Branches),
		commits:       pagination.Cached[github.Commit](cfg.Cache, "commits", cfg.CacheTTL, src.BranchCommits),
	}
}

// ParseRepositoryURL extracts owner and name from a repository URL such as
// https://github.com/octo/hello(.git), github.com/octo/hello or octo/hello.
func ParseRepositoryURL(raw string) (owner, repo string, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "", fmt.Errorf("repository url %q: %w", raw, batch.ErrInvalidIdentifier)
	}

	path := s
	if strings.Contains(s, "://") {
		u, perr := url.Parse(s)
		if perr != nil || u.Host == "" {
			return "", "", fmt.Errorf("repository url %q: %w", raw, batch.ErrInvalidIdentifier)
		}
		path = u.Path
	} else if i := strings.Index(s, "/"); i > 0 && strings.Contains(s[:i], ".") {
		// Host without scheme, e.g. github.com/octo/hello.
		path = s[i:]
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository url %q: %w", raw, batch.ErrInvalidIdentifier)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// Process implements batch.Pipeline.
func (p *Commits) Process(rc *run.Context, u batch.Unit) error {
	owner, repo, err := ParseRepositoryURL(u.Identifier)
	if err != nil {
		return err
	}
	name := owner + "/" + repo
	req := pagination.Request{Owner: owner, Repo: repo, Since: p.cfg.Since, Until: p.cfg.Until}

	def, err := pagination.FetchOne(rc, p.defaultBranch, pagination.Request{Owner: owner, Repo: repo})
	if err != nil {
		return err
	}

	var branches []string
	switch {
	case def == "":
		// Empty repository.
	case p.cfg.AllBranches:
		// A repository gone since the default branch lookup rejects the
		// identifier; the walk has listed it already.
		branches, err = pagination.WalkAll(rc, p.branches, pagination.Request{Owner: owner, Repo: repo})
		if err != nil {
			return err
		}
	default:
		branches = []string{def}
	}

	written := 0
	for _, branch := range branches {
		if rc.Aborted() {
			return rc.Abort.Err()
		}

		br := req
		br.Branch = branch
		commits, err := pagination.WalkAll(rc, p.commits, br)
		for _, c := range commits {
			if _, aerr := rc.Table.AppendTerminalRow(commitRow(name, branch, c)); aerr != nil {
				return aerr
			}
			written++
		}
		if pagination.IsRecordedNotFound(err) && written > 0 {
			// Rows are out already, so this is no longer a rejection.
			return rowError("commits of "+branch, err)
		}
		if err != nil {
			return err
		}
	}

	if rc.Aborted() {
		return rc.Abort.Err()
	}
	if written == 0 {
		_, err := rc.Table.AppendTerminalRow(emptyCommitRow(name))
		return err
	}

	rc.Logger.Debug().
		Str("repository", name).
		Int("branches", len(branches)).
		Int("commits", written).
		Msg("Repository commits collected")
	return nil
}

func commitRow(repo, branch string, c github.Commit) []string {
	changed := sink.NotAvailable
	if c.ChangedFiles != nil {
		changed = strconv.Itoa(*c.ChangedFiles)
	}
	return []string{
		repo,
		orNA(c.Author),
		orNA(c.AuthorEmail),
		orNA(c.AuthorLogin),
		branch,
		c.AuthoredDate.UTC().Format(time.RFC3339),
		changed,
		strconv.Itoa(c.Additions),
		strconv.Itoa(c.Deletions),
		c.Message,
		strconv.Itoa(c.Parents),
	}
}

func emptyCommitRow(repo string) []string {
	row := sink.FilledRow(len(commitHeaders), sink.NotAvailable)
	row[colRepository] = repo
	return row
}
