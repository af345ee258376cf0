package github

import "time"

// Repository categories, walked in this order by the contributions pipeline.
const (
	OwnedOriginal         = "owned-original"
	OwnedForked           = "owned-forked"
	CollaboratingOriginal = "collaborating-original"
	CollaboratingForked   = "collaborating-forked"
)

// Categories lists the repository categories in walk order.
var Categories = []string{OwnedOriginal, OwnedForked, CollaboratingOriginal, CollaboratingForked}

// Profile is a user's profile and lifetime activity counters.
type Profile struct {
	Login     string    `json:"login"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio"`
	Company   string    `json:"company"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`

	Watching                     int `json:"watching"`
	StarredRepositories          int `json:"starred_repositories"`
	Following                    int `json:"following"`
	Followers                    int `json:"followers"`
	Gists                        int `json:"gists"`
	Issues                       int `json:"issues"`
	Projects                     int `json:"projects"`
	PullRequests                 int `json:"pull_requests"`
	Repositories                 int `json:"repositories"`
	RepositoryDiscussions        int `json:"repository_discussions"`
	CommitComments               int `json:"commit_comments"`
	IssueComments                int `json:"issue_comments"`
	GistComments                 int `json:"gist_comments"`
	RepositoryDiscussionComments int `json:"repository_discussion_comments"`
}

// Contributions are a user's contribution totals over a time range.
type Contributions struct {
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	Restricted   int `json:"restricted"`
	Commits      int `json:"commits"`
	Issues       int `json:"issues"`
	PullRequests int `json:"pull_requests"`
	Reviews      int `json:"reviews"`
	Repositories int `json:"repositories"`
}

// LanguageSize is the number of bytes of one language in a repository.
type LanguageSize struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// Repository is a repository node with its language breakdown.
type Repository struct {
	Name      string         `json:"name"`
	Owner     string         `json:"owner"`
	IsFork    bool           `json:"is_fork"`
	CreatedAt time.Time      `json:"created_at"`
	Languages []LanguageSize `json:"languages"`
}

// Commit is one commit of a branch history.
type Commit struct {
	OID          string    `json:"oid"`
	Author       string    `json:"author"`
	AuthorEmail  string    `json:"author_email"`
	AuthorLogin  string    `json:"author_login"`
	AuthoredDate time.Time `json:"authored_date"`
	ChangedFiles *int      `json:"changed_files,omitempty"`
	Additions    int       `json:"additions"`
	Deletions    int       `json:"deletions"`
	Message      string    `json:"message"`
	Parents      int       `json:"parents"`
}

// UserRepository is one repository of a user, carrying the user's node ID
// for author-filtered history queries.
type UserRepository struct {
	UserID string `json:"user_id"`
	Owner  string `json:"owner"`
	Name   string `json:"name"`
}

// LanguageChange is the number of lines a commit added and deleted in one
// language.
type LanguageChange struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// CommitDetail is a commit with its line changes per file language.
type CommitDetail struct {
	Commit
	Languages map[string]LanguageChange `json:"languages"`
}
