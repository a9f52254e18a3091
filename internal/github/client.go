// Package github is a small client for the GitHub REST endpoints the
// repository browser reads: repositories, pull requests and their commits,
// files, comments and reviews.
//
// Every Client acts as one user. It is built from that user's OAuth access
// token, and golang.org/x/oauth2 adds the Authorization header to each call.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/pr-manager/internal/apperror"
)

const (
	// DefaultBaseURL is the public GitHub REST API.
	DefaultBaseURL = "https://api.github.com"

	defaultTimeout = 15 * time.Second
	userAgent      = "PRManager/1.0"
	perPage        = "100"

	// Large pull requests produce large patches; anything past this is cut.
	maxPatchBytes = 10 << 20
)

// Client calls the GitHub REST API on behalf of a single user.
type Client struct {
	http    *http.Client
	baseURL string
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL replaces https://api.github.com (GitHub Enterprise, tests).
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithTimeout bounds every request the client sends.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient returns a Client that authenticates as the owner of accessToken.
// ctx only selects the underlying HTTP client (see oauth2.HTTPClient); each
// call takes its own context for cancellation.
func NewClient(ctx context.Context, accessToken string, opts ...Option) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "bearer"})
	c := &Client{
		http:    oauth2.NewClient(ctx, src),
		baseURL: DefaultBaseURL,
	}
	c.http.Timeout = defaultTimeout
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListRepositories returns the repositories the user can see, most recently
// updated first.
//
// GitHub API: GET /user/repos
func (c *Client) ListRepositories(ctx context.Context) ([]Repository, error) {
	q := url.Values{"sort": {"updated"}, "per_page": {perPage}, "type": {"all"}}
	var repos []Repository
	if err := c.getJSON(ctx, "/user/repos", q, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// ListPullRequests returns a repository's pull requests in the given state
// ("open", "closed" or "all"), most recently updated first.
//
// GitHub API: GET /repos/{owner}/{repo}/pulls
func (c *Client) ListPullRequests(ctx context.Context, owner, repo, state string) ([]PullRequest, error) {
	q := url.Values{"state": {state}, "per_page": {perPage}, "sort": {"updated"}}
	var prs []PullRequest
	if err := c.getJSON(ctx, repoPath(owner, repo, "pulls"), q, &prs); err != nil {
		return nil, err
	}
	return prs, nil
}

// PullRequest returns one pull request.
//
// GitHub API: GET /repos/{owner}/{repo}/pulls/{number}
func (c *Client) PullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	var pr PullRequest
	if err := c.getJSON(ctx, repoPath(owner, repo, "pulls", strconv.Itoa(number)), nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// PullRequestCommits returns the commits of a pull request, oldest first.
//
// GitHub API: GET /repos/{owner}/{repo}/pulls/{number}/commits
func (c *Client) PullRequestCommits(ctx context.Context, owner, repo string, number int) ([]Commit, error) {
	var commits []Commit
	p := repoPath(owner, repo, "pulls", strconv.Itoa(number), "commits")
	if err := c.getJSON(ctx, p, url.Values{"per_page": {perPage}}, &commits); err != nil {
		return nil, err
	}
	return commits, nil
}

// PullRequestFiles returns the files a pull request changes.
//
// GitHub API: GET /repos/{owner}/{repo}/pulls/{number}/files
func (c *Client) PullRequestFiles(ctx context.Context, owner, repo string, number int) ([]File, error) {
	var files []File
	p := repoPath(owner, repo, "pulls", strconv.Itoa(number), "files")
	if err := c.getJSON(ctx, p, url.Values{"per_page": {perPage}}, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// PullRequestComments returns the conversation comments of a pull request.
// GitHub files them under the issue with the same number.
//
// GitHub API: GET /repos/{owner}/{repo}/issues/{number}/comments
func (c *Client) PullRequestComments(ctx context.Context, owner, repo string, number int) ([]Comment, error) {
	var comments []Comment
	p := repoPath(owner, repo, "issues", strconv.Itoa(number), "comments")
	if err := c.getJSON(ctx, p, url.Values{"per_page": {perPage}}, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// PullRequestReviews returns the reviews submitted on a pull request.
//
// GitHub API: GET /repos/{owner}/{repo}/pulls/{number}/reviews
func (c *Client) PullRequestReviews(ctx context.Context, owner, repo string, number int) ([]Review, error) {
	var reviews []Review
	p := repoPath(owner, repo, "pulls", strconv.Itoa(number), "reviews")
	if err := c.getJSON(ctx, p, url.Values{"per_page": {perPage}}, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// ListCommits returns the latest commits on the repository's default branch.
//
// GitHub API: GET /repos/{owner}/{repo}/commits
func (c *Client) ListCommits(ctx context.Context, owner, repo string) ([]Commit, error) {
	var commits []Commit
	if err := c.getJSON(ctx, repoPath(owner, repo, "commits"), url.Values{"per_page": {perPage}}, &commits); err != nil {
		return nil, err
	}
	return commits, nil
}

// CommitPatch returns a commit in `git format-patch` form.
//
// GitHub API: GET /repos/{owner}/{repo}/commits/{sha} with the patch media type
func (c *Client) CommitPatch(ctx context.Context, owner, repo, sha string) (string, error) {
	resp, err := c.get(ctx, repoPath(owner, repo, "commits", sha), nil, "application/vnd.github.patch")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	patch, err := io.ReadAll(io.LimitReader(resp.Body, maxPatchBytes))
	if err != nil {
		return "", fmt.Errorf("github: reading patch for %s: %w", sha, err)
	}
	return string(patch), nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	resp, err := c.get(ctx, path, query, "application/vnd.github+json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("github: decoding %s: %w", path, err)
	}
	return nil
}

// get sends the request and turns non-2xx answers into errors. On success the
// caller owns the response body.
//
// ERROR MAPPING:
//
//	401 → apperror.ErrUnauthorized (stored token revoked or expired)
//	403 → apperror.ErrForbidden    (no access, or rate limited)
//	404 → apperror.ErrNotFound     (GitHub also answers 404 for private repos you cannot see)
//	other non-2xx → plain error
func (c *Client) get(ctx context.Context, path string, query url.Values, accept string) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("github: building request for %s: %w", path, err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: GET %s: %w", path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp, nil
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, apperror.Unauthorized("GitHub rejected the stored access token; sign in again")
	case http.StatusForbidden:
		return nil, apperror.Forbidden("GitHub denied access to " + path)
	case http.StatusNotFound:
		return nil, apperror.NotFound("github resource", path)
	default:
		return nil, fmt.Errorf("github: GET %s returned status %d", path, resp.StatusCode)
	}
}

// repoPath builds /repos/{owner}/{repo}/... with every segment escaped.
func repoPath(owner, repo string, rest ...string) string {
	segs := make([]string, 0, len(rest)+3)
	segs = append(segs, "repos", url.PathEscape(owner), url.PathEscape(repo))
	for _, s := range rest {
		segs = append(segs, url.PathEscape(s))
	}
	return "/" + strings.Join(segs, "/")
}
