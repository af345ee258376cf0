package github

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/forge-miner/internal/testutil"
	"github.com/Sternrassler/forge-miner/pkg/pagination"
)

func TestUserRepositories(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()
	mock.On("{id,repositories", testutil.NewDataResponse(`{"user":{"id":"U_1","repositories":{
		"pageInfo":{"hasNextPage":true,"endCursor":"cjI="},
		"nodes":[{"name":"hello","owner":{"login":"alice"}},{"name":"infra","owner":{"login":"acme"}}]
	}}}`))

	c := newTestClient(t, mock.URL(), nil)

	res, err := c.UserRepositories(context.Background(), pagination.Request{Login: "alice"})
	if err != nil {
		t.Fatalf("UserRepositories() error = %v", err)
	}
	if !res.HasNextPage() || res.EndCursor() != "cjI=" {
		t.Errorf("page info = %v/%q", res.HasNextPage(), res.EndCursor())
	}

	want := []UserRepository{
		{UserID: "U_1", Owner: "alice", Name: "hello"},
		{UserID: "U_1", Owner: "acme", Name: "infra"},
	}
	got := res.Items()
	if len(got) != len(want) {
		t.Fatalf("repos = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("repo %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if vars := mock.GetLastVariables(); vars["login"] != "alice" {
		t.Errorf("login = %v, want alice", vars["login"])
	}
}

func TestUserRepositories_NotFound(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()
	mock.On("{id,repositories", testutil.NewNotFoundResponse("user", "User", "ghost"))

	c := newTestClient(t, mock.URL(), nil)

	_, err := c.UserRepositories(context.Background(), pagination.Request{Login: "ghost"})
	if !errors.Is(err, pagination.ErrNotFound) {
		t.Errorf("UserRepositories() error = %v, want %v", err, pagination.ErrNotFound)
	}
}

func TestAuthoredCommits(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()
	mock.On("author: $author", testutil.NewDataResponse(`{"repository":{"ref":{"target":{"history":{
		"pageInfo":{"hasNextPage":false,"endCursor":null},
		"nodes":[{"oid":"abc"},{"oid":"def"}]
	}}}}}`))

	c := newTestClient(t, mock.URL(), nil)

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := c.AuthoredCommits(context.Background(), pagination.Request{
		Owner: "octo", Repo: "hello", Branch: "main", Author: "U_1", Since: since,
	})
	if err != nil {
		t.Fatalf("AuthoredCommits() error = %v", err)
	}
	if got := res.Items(); len(got) != 2 || got[0] != "abc" || got[1] != "def" {
		t.Errorf("oids = %v, want [abc def]", got)
	}
	if res.HasNextPage() {
		t.Error("last page reports a next page")
	}

	vars := mock.GetLastVariables()
	author, _ := vars["author"].(map[string]interface{})
	if author["id"] != "U_1" {
		t.Errorf("author = %v, want id U_1", vars["author"])
	}
	if vars["since"] != "2024-01-01T00:00:00Z" {
		t.Errorf("since = %v", vars["since"])
	}
	if vars["until"] != nil {
		t.Errorf("until = %v, want null for an open range", vars["until"])
	}
}

func TestAuthoredCommits_MissingBranch(t *testing.T) {
	mock := testutil.NewMockGraphQL()
	defer mock.Close()
	mock.On("author: $author", testutil.NewDataResponse(`{"repository":{"ref":null}}`))

	c := newTestClient(t, mock.URL(), nil)

	_, err := c.AuthoredCommits(context.Background(), pagination.Request{Owner: "octo", Repo: "hello", Branch: "gone", Author: "U_1"})
	if !errors.Is(err, pagination.ErrNotFound) {
		t.Errorf("AuthoredCommits() error = %v, want %v", err, pagination.ErrNotFound)
	}
	if !strings.Contains(err.Error(), "octo/hello@gone") {
		t.Errorf("error = %q, want resource named", err)
	}
}
