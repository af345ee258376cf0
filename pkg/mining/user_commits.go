package mining

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Sternrassler/forge-miner/pkg/batch"
	"github.com/Sternrassler/forge-miner/pkg/github"
	"github.com/Sternrassler/forge-miner/pkg/pagination"
	"github.com/Sternrassler/forge-miner/pkg/run"
	"github.com/Sternrassler/forge-miner/pkg/sink"
)

// UserCommitsSource fetches the pages the user commits pipeline needs.
type UserCommitsSource interface {
	UserRepositories(ctx context.Context, req pagination.Request) (pagination.Result[github.UserRepository], error)
	Branches(ctx context.Context, req pagination.Request) (pagination.Result[string], error)
	AuthoredCommits(ctx context.Context, req pagination.Request) (pagination.Result[string], error)
	CommitDetails(ctx context.Context, req pagination.Request) (pagination.Result[github.CommitDetail], error)
}

const colLanguageStats = 11

// UserCommitHeaders returns the column headers of the user commits table.
func UserCommitHeaders() []string {
	return append(CommitHeaders(), "Language Stats")
}

// UserCommitsConfig configures the user commits pipeline.
type UserCommitsConfig struct {
	// Since and Until bound commit authoring time. Zero means unbounded.
	Since time.Time
	Until time.Time

	Cache    pagination.PageCache
	CacheTTL time.Duration
}

// UserCommits is the user commits pipeline: every commit a user authored on
// any branch of the repositories they own or collaborate on, one terminal
// row per commit.
type UserCommits struct {
	cfg UserCommitsConfig

	repositories pagination.FetchFunc[github.UserRepository]
	branches     pagination.FetchFunc[string]
	authored     pagination.FetchFunc[string]
	details      pagination.FetchFunc[github.CommitDetail]
}

// NewUserCommits creates a user commits pipeline reading from src.
func NewUserCommits(src UserCommitsSource, cfg UserCommitsConfig) *UserCommits {
	return &UserCommits{
		cfg:          cfg,
		repositories: pagination.Cached[github.UserRepository](cfg.Cache, "user_repositories", cfg.CacheTTL, src.UserRepositories),
		branches:     pagination.Cached[string](cfg.Cache, "branches", cfg.CacheTTL, src.Branches),
		authored:     pagination.Cached[string](cfg.Cache, "authored_commits", cfg.CacheTTL, src.AuthoredCommits),
		details:      pagination.Cached[github.CommitDetail](cfg.Cache, "commit_details", cfg.CacheTTL, src.CommitDetails),
	}
}

// Process implements batch.Pipeline. The repository walk doubles as the
// identifier lookup: an unknown login ends the unit as rejected.
func (p *UserCommits) Process(rc *run.Context, u batch.Unit) error {
	login := strings.TrimSpace(u.Identifier)

	repos, err := pagination.WalkAll(rc, p.repositories, pagination.Request{Login: login})
	if err != nil {
		return err
	}

	written := 0
	for _, repo := range repos {
		if rc.Aborted() {
			return rc.Abort.Err()
		}
		n, err := p.repository(rc, repo)
		written += n
		if err != nil {
			return err
		}
	}

	if rc.Aborted() {
		return rc.Abort.Err()
	}
	if written == 0 {
		_, err := rc.Table.AppendTerminalRow(emptyUserCommitRow(login))
		return err
	}

	rc.Logger.Debug().
		Str("login", login).
		Int("repositories", len(repos)).
		Int("commits", written).
		Msg("User commits collected")
	return nil
}

// repository appends a row per commit the user authored in repo and returns
// the number of rows written. A branch or commit that vanished mid-walk is
// skipped.
func (p *UserCommits) repository(rc *run.Context, repo github.UserRepository) (int, error) {
	name := repo.Owner + "/" + repo.Name
	logger := rc.Logger.With().Str("repository", name).Logger()

	branches, err := pagination.WalkAll(rc, p.branches, pagination.Request{Owner: repo.Owner, Repo: repo.Name})
	if pagination.IsRecordedNotFound(err) {
		logger.Warn().Msg("Repository disappeared, skipping")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool)
	written := 0
	for _, branch := range branches {
		if rc.Aborted() {
			return written, rc.Abort.Err()
		}

		req := pagination.Request{
			Owner:  repo.Owner,
			Repo:   repo.Name,
			Branch: branch,
			Author: repo.UserID,
			Since:  p.cfg.Since,
			Until:  p.cfg.Until,
		}
		oids, err := pagination.WalkAll(rc, p.authored, req)
		if pagination.IsRecordedNotFound(err) {
			logger.Warn().Str("branch", branch).Msg("Branch disappeared, skipping")
			continue
		}
		if err != nil {
			return written, err
		}

		for _, oid := range oids {
			// A commit reachable from several branches is listed once.
			if seen[oid] {
				continue
			}
			if rc.Aborted() {
				return written, rc.Abort.Err()
			}

			detail, err := pagination.FetchOne(rc, p.details, pagination.Request{Owner: repo.Owner, Repo: repo.Name, SHA: oid})
			if errors.Is(err, pagination.ErrNotFound) {
				logger.Warn().Str("oid", oid).Msg("Commit disappeared, skipping")
				continue
			}
			if err != nil {
				return written, err
			}
			seen[oid] = true

			if _, err := rc.Table.AppendTerminalRow(userCommitRow(name, branch, detail)); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

func userCommitRow(repo, branch string, d github.CommitDetail) []string {
	langs := sink.NotAvailable
	if len(d.Languages) > 0 {
		if b, err := json.Marshal(d.Languages); err == nil {
			langs = string(b)
		}
	}
	return append(commitRow(repo, branch, d.Commit), langs)
}

func emptyUserCommitRow(login string) []string {
	row := sink.FilledRow(len(commitHeaders)+1, sink.NotAvailable)
	row[colAuthorLogin] = login
	for _, col := range []int{colChangedFiles, colAdditions, colDeletions, colParents} {
		row[col] = "0"
	}
	return row
}
