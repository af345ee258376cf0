package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alecthomas/chroma/v2/lexers"
	rest "github.com/google/go-github/v75/github"

	"github.com/Sternrassler/forge-miner/pkg/pagination"
	"github.com/Sternrassler/forge-miner/pkg/ratelimit"
)

// PlainText is the language of files no lexer claims.
const PlainText = "Text only"

// CommitDetails fetches req.SHA of req.Owner/req.Repo through the REST API
// as a single-item page, with line changes summed per file language.
func (c *Client) CommitDetails(ctx context.Context, req pagination.Request) (pagination.Result[CommitDetail], error) {
	resource := fmt.Sprintf("commit %s@%s", repoName(req), req.SHA)

	rc, _, err := c.rest.Repositories.GetCommit(ctx, req.Owner, req.Repo, req.SHA, nil)
	if err != nil {
		signal, cerr := c.restError(ctx, resource, err)
		if cerr != nil {
			return pagination.Result[CommitDetail]{}, cerr
		}
		return pagination.Exhausted[CommitDetail](signal), nil
	}

	return pagination.Page([]CommitDetail{commitDetail(rc)}, false, ""), nil
}

func commitDetail(rc *rest.RepositoryCommit) CommitDetail {
	author := rc.GetCommit().GetAuthor()
	files := len(rc.Files)

	d := CommitDetail{
		Commit: Commit{
			OID:          rc.GetSHA(),
			Author:       author.GetName(),
			AuthorEmail:  author.GetEmail(),
			AuthorLogin:  rc.GetAuthor().GetLogin(),
			AuthoredDate: author.GetDate().Time,
			ChangedFiles: &files,
			Additions:    rc.GetStats().GetAdditions(),
			Deletions:    rc.GetStats().GetDeletions(),
			Message:      rc.GetCommit().GetMessage(),
			Parents:      len(rc.Parents),
		},
		Languages: make(map[string]LanguageChange),
	}

	for _, f := range rc.Files {
		lang := FileLanguage(f.GetFilename())
		lc := d.Languages[lang]
		lc.Additions += f.GetAdditions()
		lc.Deletions += f.GetDeletions()
		d.Languages[lang] = lc
	}
	return d
}

// FileLanguage names the language of a file by its name, or PlainText.
func FileLanguage(filename string) string {
	if l := lexers.Match(filename); l != nil {
		return l.Config().Name
	}
	return PlainText
}

// restError sorts a REST failure the way query sorts GraphQL failures.
func (c *Client) restError(ctx context.Context, resource string, err error) (*ratelimit.QuotaSignal, error) {
	var (
		rateErr  *rest.RateLimitError
		abuseErr *rest.AbuseRateLimitError
		respErr  *rest.ErrorResponse
	)

	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return nil, err
	case errors.As(err, &rateErr):
		signal := ratelimit.NewQuotaSignal(rateErr.Rate.Reset.Time, c.now())
		c.logger.Warn().Str("resource", resource).Int("wait_seconds", signal.WaitSeconds).Msg("GitHub quota exhausted")
		return signal, nil
	case errors.As(err, &abuseErr):
		signal := c.quotaSignal()
		if d := abuseErr.GetRetryAfter(); d > 0 {
			signal = &ratelimit.QuotaSignal{WaitSeconds: int(d.Seconds())}
		}
		c.logger.Warn().Str("resource", resource).Int("wait_seconds", signal.WaitSeconds).Msg("GitHub secondary rate limit")
		return signal, nil
	case errors.As(err, &respErr) && respErr.Response != nil:
		switch status := respErr.Response.StatusCode; {
		case status == http.StatusTooManyRequests,
			status == http.StatusForbidden && respErr.Response.Header.Get(ratelimit.HeaderRetryAfter) != "":
			return ratelimit.SignalFromHeaders(respErr.Response.Header, c.now()), nil
		case status == http.StatusNotFound, status == http.StatusUnprocessableEntity:
			return nil, fmt.Errorf("%s: %s: %w", resource, respErr.Message, pagination.ErrNotFound)
		}
	}
	return nil, &APIError{Resource: resource, Message: "request failed", Err: err}
}
