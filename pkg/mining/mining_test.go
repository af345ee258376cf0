package mining

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/forge-miner/pkg/github"
	"github.com/Sternrassler/forge-miner/pkg/pagination"
	"github.com/Sternrassler/forge-miner/pkg/ratelimit"
	"github.com/Sternrassler/forge-miner/pkg/run"
)

// fakeSource serves pages from in-memory tables keyed by login, category,
// repository and branch. Pages are split at pageSize items.
type fakeSource struct {
	mu       sync.Mutex
	pageSize int
	calls    map[string]int

	profiles      map[string]github.Profile
	contributions map[string]github.Contributions
	repos         map[string][]github.Repository     // login + "/" + kind
	defaults      map[string]string                  // owner/repo
	branches      map[string][]string                // owner/repo
	commits       map[string][]github.Commit         // owner/repo@branch
	userRepos     map[string][]github.UserRepository // login
	authored      map[string][]string                // owner/repo@branch
	details       map[string]github.CommitDetail     // owner/repo#sha

	// gone lists "method key" pairs answered with pagination.ErrNotFound.
	gone map[string]bool

	// quotaOnce makes the first call of a method return a quota signal.
	quotaOnce map[string]bool

	// before runs before every call.
	before func(method string)
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pageSize:      2,
		calls:         make(map[string]int),
		profiles:      make(map[string]github.Profile),
		contributions: make(map[string]github.Contributions),
		repos:         make(map[string][]github.Repository),
		defaults:      make(map[string]string),
		branches:      make(map[string][]string),
		commits:       make(map[string][]github.Commit),
		userRepos:     make(map[string][]github.UserRepository),
		authored:      make(map[string][]string),
		details:       make(map[string]github.CommitDetail),
		gone:          make(map[string]bool),
		quotaOnce:     make(map[string]bool),
	}
}

func (f *fakeSource) enter(method string) bool {
	f.mu.Lock()
	f.calls[method]++
	quota := f.quotaOnce[method]
	delete(f.quotaOnce, method)
	before := f.before
	f.mu.Unlock()

	if before != nil {
		before(method)
	}
	return quota
}

func (f *fakeSource) missing(method, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[method+" "+key] {
		return fmt.Errorf("%s %s: %w", method, key, pagination.ErrNotFound)
	}
	return nil
}

func (f *fakeSource) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func page[T any](items []T, cursor string, size int) pagination.Result[T] {
	start := 0
	if cursor != "" {
		for i := range items {
			if cursorAt(i) == cursor {
				start = i
				break
			}
		}
	}
	end := start + size
	if end >= len(items) {
		return pagination.Page(items[start:], false, "")
	}
	return pagination.Page(items[start:end], true, cursorAt(end))
}

func cursorAt(i int) string {
	return "c" + string(rune('0'+i))
}

func quotaResult[T any]() pagination.Result[T] {
	return pagination.Exhausted[T](&ratelimit.QuotaSignal{WaitSeconds: 5})
}

func (f *fakeSource) Profile(_ context.Context, req pagination.Request) (pagination.Result[github.Profile], error) {
	if f.enter("profile") {
		return quotaResult[github.Profile](), nil
	}
	p, ok := f.profiles[req.Login]
	if !ok {
		return pagination.Page[github.Profile](nil, false, ""), nil
	}
	return pagination.Page([]github.Profile{p}, false, ""), nil
}

func (f *fakeSource) Contributions(_ context.Context, req pagination.Request) (pagination.Result[github.Contributions], error) {
	if f.enter("contributions") {
		return quotaResult[github.Contributions](), nil
	}
	return pagination.Page([]github.Contributions{f.contributions[req.Login]}, false, ""), nil
}

func (f *fakeSource) Repositories(_ context.Context, req pagination.Request) (pagination.Result[github.Repository], error) {
	if f.enter("repositories") {
		return quotaResult[github.Repository](), nil
	}
	return page(f.repos[req.Login+"/"+req.Kind], req.Cursor, f.pageSize), nil
}

func (f *fakeSource) DefaultBranch(_ context.Context, req pagination.Request) (pagination.Result[string], error) {
	if f.enter("default_branch") {
		return quotaResult[string](), nil
	}
	name, ok := f.defaults[req.Owner+"/"+req.Repo]
	if !ok {
		return pagination.Page[string](nil, false, ""), nil
	}
	return pagination.Page([]string{name}, false, ""), nil
}

func (f *fakeSource) Branches(_ context.Context, req pagination.Request) (pagination.Result[string], error) {
	if f.enter("branches") {
		return quotaResult[string](), nil
	}
	if err := f.missing("branches", req.Owner+"/"+req.Repo); err != nil {
		return pagination.Result[string]{}, err
	}
	return page(f.branches[req.Owner+"/"+req.Repo], req.Cursor, f.pageSize), nil
}

func (f *fakeSource) BranchCommits(_ context.Context, req pagination.Request) (pagination.Result[github.Commit], error) {
	if f.enter("commits") {
		return quotaResult[github.Commit](), nil
	}
	return page(f.commits[req.Owner+"/"+req.Repo+"@"+req.Branch], req.Cursor, f.pageSize), nil
}

func (f *fakeSource) UserRepositories(_ context.Context, req pagination.Request) (pagination.Result[github.UserRepository], error) {
	if f.enter("user_repositories") {
		return quotaResult[github.UserRepository](), nil
	}
	if err := f.missing("user_repositories", req.Login); err != nil {
		return pagination.Result[github.UserRepository]{}, err
	}
	return page(f.userRepos[req.Login], req.Cursor, f.pageSize), nil
}

func (f *fakeSource) AuthoredCommits(_ context.Context, req pagination.Request) (pagination.Result[string], error) {
	if f.enter("authored_commits") {
		return quotaResult[string](), nil
	}
	key := req.Owner + "/" + req.Repo + "@" + req.Branch
	if err := f.missing("authored_commits", key); err != nil {
		return pagination.Result[string]{}, err
	}
	return page(f.authored[key], req.Cursor, f.pageSize), nil
}

func (f *fakeSource) CommitDetails(_ context.Context, req pagination.Request) (pagination.Result[github.CommitDetail], error) {
	if f.enter("commit_details") {
		return quotaResult[github.CommitDetail](), nil
	}
	d, ok := f.details[req.Owner+"/"+req.Repo+"#"+req.SHA]
	if !ok {
		return pagination.Page[github.CommitDetail](nil, false, ""), nil
	}
	return pagination.Page([]github.CommitDetail{d}, false, ""), nil
}

func newRun(ctx context.Context, headers []string, backoff run.Backoff) *run.Context {
	return run.New(ctx, headers, backoff, zerolog.Nop())
}
