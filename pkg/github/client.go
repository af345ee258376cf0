// Package github implements the page-fetch functions of the collection
// engine on top of the GitHub GraphQL API. Commit details, which GraphQL
// does not expose per file, come from the REST API.
//
// Every resource method has the pagination.FetchFunc shape. A query the API
// rejects for quota reasons is returned as an exhausted result carrying the
// advised wait, never as an error; an unknown user, repository or branch is
// returned as pagination.ErrNotFound.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	rest "github.com/google/go-github/v75/github"
	"github.com/rs/zerolog"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/Sternrassler/forge-miner/pkg/logging"
	"github.com/Sternrassler/forge-miner/pkg/pagination"
	"github.com/Sternrassler/forge-miner/pkg/ratelimit"
)

// DefaultGraphQLURL is the public GitHub GraphQL endpoint.
const DefaultGraphQLURL = "https://api.github.com/graphql"

// Config holds the client configuration.
type Config struct {
	// Token is a personal access or OAuth token.
	Token string

	// GraphQLURL overrides the endpoint (GitHub Enterprise, tests).
	GraphQLURL string

	// RESTURL overrides the REST base URL. Empty derives it from GraphQLURL.
	RESTURL string

	// PageSize is the number of nodes requested per page (max 100).
	PageSize int

	// Timeout bounds a single HTTP round trip, retries included.
	Timeout time.Duration

	// Retry configures transport retries for network errors and 5xx.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(token string) Config {
	return Config{
		Token:      token,
		GraphQLURL: DefaultGraphQLURL,
		PageSize:   50,
		Timeout:    60 * time.Second,
		Retry:      DefaultRetryConfig(),
	}
}

// Client fetches pages of GitHub resources.
type Client struct {
	gql      *githubv4.Client
	rest     *rest.Client
	observer *headerObserver
	tracker  *ratelimit.Tracker
	pageSize int
	logger   zerolog.Logger
	now      func() time.Time
}

// NewClient creates a client. tracker may be nil.
func NewClient(cfg Config, tracker *ratelimit.Tracker) (*Client, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	if cfg.GraphQLURL == "" {
		cfg.GraphQLURL = DefaultGraphQLURL
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 100 {
		return nil, fmt.Errorf("page size must be between 1 and 100 (got %d)", cfg.PageSize)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	logger := logging.NewLogger("github-client")

	observer := &headerObserver{
		base:    newRetryTransport(http.DefaultTransport, cfg.Retry, logger),
		tracker: tracker,
		logger:  logger,
	}
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
			Base:   observer,
		},
	}

	restURL := cfg.RESTURL
	if restURL == "" {
		restURL = RESTBaseURL(cfg.GraphQLURL)
	}
	base, err := url.Parse(restURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REST URL %q: %w", restURL, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	restClient := rest.NewClient(httpClient)
	restClient.BaseURL = base

	return &Client{
		gql:      githubv4.NewEnterpriseClient(cfg.GraphQLURL, httpClient),
		rest:     restClient,
		observer: observer,
		tracker:  tracker,
		pageSize: cfg.PageSize,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// RESTBaseURL derives the REST base URL from a GraphQL endpoint:
// https://api.github.com/graphql becomes https://api.github.com/ and a GitHub
// Enterprise https://host/api/graphql becomes https://host/api/v3/.
func RESTBaseURL(graphqlURL string) string {
	switch {
	case strings.HasSuffix(graphqlURL, "/api/graphql"):
		return strings.TrimSuffix(graphqlURL, "graphql") + "v3/"
	case strings.HasSuffix(graphqlURL, "/graphql"):
		return strings.TrimSuffix(graphqlURL, "graphql")
	default:
		return strings.TrimSuffix(graphqlURL, "/") + "/"
	}
}

// query runs a GraphQL query and sorts failures into the three outcomes the
// engine distinguishes: quota signal, missing resource, other error.
func (c *Client) query(ctx context.Context, resource string, q interface{}, vars map[string]interface{}) (*ratelimit.QuotaSignal, error) {
	err := c.gql.Query(ctx, q, vars)
	if err == nil {
		return nil, nil
	}

	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return nil, err
	case isRateLimitError(err):
		signal := c.quotaSignal()
		c.logger.Warn().
			Str("resource", resource).
			Int("wait_seconds", signal.WaitSeconds).
			Msg("GitHub quota exhausted")
		return signal, nil
	case isNotFoundError(err):
		return nil, fmt.Errorf("%s: %s: %w", resource, err.Error(), pagination.ErrNotFound)
	default:
		return nil, &APIError{Resource: resource, Message: "query failed", Err: err}
	}
}

// quotaSignal derives the wait from the last response headers, falling back
// to the tracked reset time.
func (c *Client) quotaSignal() *ratelimit.QuotaSignal {
	h := c.observer.lastHeaders()
	if h.Get(ratelimit.HeaderRetryAfter) != "" || h.Get(ratelimit.HeaderReset) != "" {
		return ratelimit.SignalFromHeaders(h, c.now())
	}
	if c.tracker != nil {
		return c.tracker.Signal(c.now())
	}
	return ratelimit.SignalFromHeaders(h, c.now())
}

func cursorVar(cursor string) *githubv4.String {
	if cursor == "" {
		return nil
	}
	return githubv4.NewString(githubv4.String(cursor))
}

func dateTimeVar(t time.Time) *githubv4.DateTime {
	if t.IsZero() {
		return nil
	}
	return githubv4.NewDateTime(githubv4.DateTime{Time: t})
}

func gitTimestampVar(t time.Time) *githubv4.GitTimestamp {
	if t.IsZero() {
		return nil
	}
	return githubv4.NewGitTimestamp(githubv4.GitTimestamp{Time: t})
}

type pageInfo struct {
	HasNextPage bool
	EndCursor   githubv4.String
}
