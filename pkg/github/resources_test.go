package github

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/forge-miner/internal/testutil"
	"github.com/Sternrassler/forge-miner/pkg/pagination"
	"github.com/Sternrassler/forge-miner/pkg/run"
)

func TestRepositories(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()
	mock.On("repositories(first", testutil.NewDataResponse(`{"user":{"repositories":{
		"pageInfo":{"hasNextPage":true,"endCursor":"Y3Vyc29yOjI="},
		"nodes":[
			{"name":"hello","isFork":false,"createdAt":"2021-05-01T00:00:00Z","owner":{"login":"alice"},
			 "languages":{"edges":[{"size":1200,"node":{"name":"Go"}},{"size":300,"node":{"name":"Shell"}}]}},
			{"name":"empty","isFork":false,"createdAt":"2022-05-01T00:00:00Z","owner":{"login":"alice"},
			 "languages":{"edges":[]}}
		]
	}}}`))

	c := newTestClient(t, mock.URL(), nil)

	res, err := c.Repositories(context.Background(), pagination.Request{Login: "alice", Kind: OwnedOriginal})
	if err != nil {
		t.Fatalf("Repositories() error = %v", err)
	}
	if !res.HasNextPage() || res.EndCursor() != "Y3Vyc29yOjI=" {
		t.Errorf("page info = %v/%q", res.HasNextPage(), res.EndCursor())
	}

	repos := res.Items()
	if len(repos) != 2 {
		t.Fatalf("len(repos) = %d, want 2", len(repos))
	}
	if repos[0].Name != "hello" || repos[0].Owner != "alice" {
		t.Errorf("repo 0 = %+v", repos[0])
	}
	if len(repos[0].Languages) != 2 || repos[0].Languages[0] != (LanguageSize{Name: "Go", Size: 1200}) {
		t.Errorf("languages = %+v", repos[0].Languages)
	}

	vars := mock.GetLastVariables()
	if vars["fork"] != false {
		t.Errorf("fork = %v, want false", vars["fork"])
	}
	if vars["cursor"] != nil {
		t.Errorf("cursor = %v, want null on the first page", vars["cursor"])
	}
	aff, _ := vars["affiliations"].([]interface{})
	if len(aff) != 1 || aff[0] != "OWNER" {
		t.Errorf("affiliations = %v, want [OWNER]", vars["affiliations"])
	}
}

func TestRepositories_CategoryVariables(t *testing.T) {
	tests := []struct {
		kind    string
		fork    bool
		nAffils int
	}{
		{kind: OwnedOriginal, fork: false, nAffils: 1},
		{kind: OwnedForked, fork: true, nAffils: 1},
		{kind: CollaboratingOriginal, fork: false, nAffils: 2},
		{kind: CollaboratingForked, fork: true, nAffils: 2},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			mock := testutil.NewMockGraphQL()
			defer mock.Close()
			mock.On("repositories(first", testutil.NewDataResponse(
				`{"user":{"repositories":{"pageInfo":{"hasNextPage":false,"endCursor":null},"nodes":[]}}}`))

			c := newTestClient(t, mock.URL(), nil)
			req := pagination.Request{Login: "alice", Kind: tt.kind, Cursor: "abc"}
			if _, err := c.Repositories(context.Background(), req); err != nil {
				t.Fatalf("Repositories() error = %v", err)
			}

			vars := mock.GetLastVariables()
			if vars["fork"] != tt.fork {
				t.Errorf("fork = %v, want %v", vars["fork"], tt.fork)
			}
			if aff, _ := vars["affiliations"].([]interface{}); len(aff) != tt.nAffils {
				t.Errorf("affiliations = %v, want %d entries", vars["affiliations"], tt.nAffils)
			}
			if vars["cursor"] != "abc" {
				t.Errorf("cursor = %v, want abc", vars["cursor"])
			}
		})
	}
}

func TestRepositories_UnknownCategory(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0/graphql", nil)

	if _, err := c.Repositories(context.Background(), pagination.Request{Login: "alice", Kind: "starred"}); err == nil {
		t.Error("Repositories() with unknown category returned no error")
	}
}

func TestBranches(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()
	mock.On("refs(refPrefix", testutil.NewDataResponse(`{"repository":{"refs":{
		"pageInfo":{"hasNextPage":false,"endCursor":"MQ=="},
		"nodes":[{"name":"main"},{"name":"dev"}]
	}}}`))

	c := newTestClient(t, mock.URL(), nil)

	res, err := c.Branches(context.Background(), pagination.Request{Owner: "octo", Repo: "hello"})
	if err != nil {
		t.Fatalf("Branches() error = %v", err)
	}
	if got := res.Items(); len(got) != 2 || got[0] != "main" || got[1] != "dev" {
		t.Errorf("Branches() = %v", got)
	}
	if res.HasNextPage() || res.EndCursor() != "" {
		t.Errorf("last page carries cursor %q", res.EndCursor())
	}
}

func TestBranches_NotFound(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()
	mock.On("refs(refPrefix", testutil.NewNotFoundResponse("repository", "Repository", "octo/missing"))

	c := newTestClient(t, mock.URL(), nil)

	_, err := c.Branches(context.Background(), pagination.Request{Owner: "octo", Repo: "missing"})
	if !errors.Is(err, pagination.ErrNotFound) {
		t.Errorf("Branches() error = %v, want %v", err, pagination.ErrNotFound)
	}
}

func TestDefaultBranch(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{name: "named", data: `{"repository":{"defaultBranchRef":{"name":"trunk"}}}`, want: []string{"trunk"}},
		{name: "empty repository", data: `{"repository":{"defaultBranchRef":null}}`, want: []string{""}},
		{name: "no repository", data: `{"repository":null}`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockGraphQL()
			defer mock.Close()
			mock.On("defaultBranchRef", testutil.NewDataResponse(tt.data))

			c := newTestClient(t, mock.URL(), nil)
			res, err := c.DefaultBranch(context.Background(), pagination.Request{Owner: "octo", Repo: "hello"})
			if err != nil {
				t.Fatalf("DefaultBranch() error = %v", err)
			}

			got := res.Items()
			if len(got) != len(tt.want) {
				t.Fatalf("DefaultBranch() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("item %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBranchCommits(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()
	mock.On("history(", testutil.NewDataResponse(`{"repository":{"ref":{"target":{"history":{
		"pageInfo":{"hasNextPage":true,"endCursor":"c2"},
		"nodes":[
			{"oid":"a1","author":{"name":"Alice","email":"alice@example.com","user":{"login":"alice"}},
			 "authoredDate":"2024-03-01T10:00:00Z","changedFilesIfAvailable":3,
			 "additions":10,"deletions":2,"message":"Add feature","parents":{"totalCount":1}},
			{"oid":"b2","author":{"name":"Bot","email":"bot@example.com","user":null},
			 "authoredDate":"2024-02-01T10:00:00Z","changedFilesIfAvailable":null,
			 "additions":1,"deletions":0,"message":"Merge","parents":{"totalCount":2}}
		]
	}}}}}`))

	c := newTestClient(t, mock.URL(), nil)

	until := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	req := pagination.Request{Owner: "octo", Repo: "hello", Branch: "main", Until: until}
	res, err := c.BranchCommits(context.Background(), req)
	if err != nil {
		t.Fatalf("BranchCommits() error = %v", err)
	}
	if !res.HasNextPage() || res.EndCursor() != "c2" {
		t.Errorf("page info = %v/%q", res.HasNextPage(), res.EndCursor())
	}

	commits := res.Items()
	if len(commits) != 2 {
		t.Fatalf("len(commits) = %d, want 2", len(commits))
	}
	if commits[0].AuthorLogin != "alice" || commits[0].ChangedFiles == nil || *commits[0].ChangedFiles != 3 {
		t.Errorf("commit 0 = %+v", commits[0])
	}
	if commits[1].AuthorLogin != "" || commits[1].ChangedFiles != nil || commits[1].Parents != 2 {
		t.Errorf("commit 1 = %+v", commits[1])
	}

	vars := mock.GetLastVariables()
	if vars["branch"] != "main" || vars["since"] != nil || vars["until"] != "2024-12-31T00:00:00Z" {
		t.Errorf("variables = %v", vars)
	}
}

func TestBranchCommits_MissingBranch(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()
	mock.On("history(", testutil.NewDataResponse(`{"repository":{"ref":null}}`))

	c := newTestClient(t, mock.URL(), nil)

	_, err := c.BranchCommits(context.Background(), pagination.Request{Owner: "octo", Repo: "hello", Branch: "gone"})
	if !errors.Is(err, pagination.ErrNotFound) {
		t.Errorf("BranchCommits() error = %v, want %v", err, pagination.ErrNotFound)
	}
}

func TestBranchCommits_WalkAllPages(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()
	page := func(hasNext bool, cursor, oid string) testutil.MockResponse {
		next := "null"
		if hasNext {
			next = `"` + cursor + `"`
		}
		return testutil.NewDataResponse(`{"repository":{"ref":{"target":{"history":{
			"pageInfo":{"hasNextPage":` + map[bool]string{true: "true", false: "false"}[hasNext] + `,"endCursor":` + next + `},
			"nodes":[{"oid":"` + oid + `","author":{"name":"A","email":"a@x","user":null},
			"authoredDate":"2024-01-01T00:00:00Z","additions":1,"deletions":1,"message":"m","parents":{"totalCount":1}}]
		}}}}}`)
	}
	mock.On("history(", page(true, "p1", "c1"), page(true, "p2", "c2"), page(false, "", "c3"))

	c := newTestClient(t, mock.URL(), nil)
	rc := run.New(context.Background(), nil, nil, zerolog.Nop())

	commits, err := pagination.WalkAll[Commit](rc, c.BranchCommits, pagination.Request{Owner: "octo", Repo: "hello", Branch: "main"})
	if err != nil {
		t.Fatalf("WalkAll() error = %v", err)
	}
	if len(commits) != 3 || commits[2].OID != "c3" {
		t.Errorf("commits = %+v", commits)
	}
	if n := mock.GetRequestCount(); n != 3 {
		t.Errorf("requests = %d, want 3", n)
	}
}
