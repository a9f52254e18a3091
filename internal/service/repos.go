package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/pr-manager/internal/analysis"
	"github.com/sakif/pr-manager/internal/apperror"
	"github.com/sakif/pr-manager/internal/github"
	"github.com/sakif/pr-manager/internal/repository"
)

// GitHubAPI is the part of *github.Client the repository browser uses.
type GitHubAPI interface {
	ListRepositories(ctx context.Context) ([]github.Repository, error)
	ListPullRequests(ctx context.Context, owner, repo, state string) ([]github.PullRequest, error)
	PullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	PullRequestCommits(ctx context.Context, owner, repo string, number int) ([]github.Commit, error)
	PullRequestFiles(ctx context.Context, owner, repo string, number int) ([]github.File, error)
	PullRequestComments(ctx context.Context, owner, repo string, number int) ([]github.Comment, error)
	PullRequestReviews(ctx context.Context, owner, repo string, number int) ([]github.Review, error)
	ListCommits(ctx context.Context, owner, repo string) ([]github.Commit, error)
	CommitPatch(ctx context.Context, owner, repo, sha string) (string, error)
}

// GitHubClientFactory returns a client acting as the holder of accessToken.
type GitHubClientFactory func(ctx context.Context, accessToken string) GitHubAPI

var (
	// GitHub allows letters, digits, '-', '_' and '.' in owner and repo names.
	repoNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,100}$`)
	shaPattern      = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)
)

// RepoService reads repositories and pull requests from GitHub as the signed-in
// user and runs the heuristic pull request analysis.
//
//	RepoHandler (HTTP) → RepoService → UserRepository (stored OAuth token)
//	                                 ↘ GitHubAPI (one client per call)
//	                                 ↘ analysis (pure)
type RepoService struct {
	users   repository.UserRepository
	clients GitHubClientFactory
	logger  *slog.Logger
}

// NewRepoService creates a RepoService.
func NewRepoService(users repository.UserRepository, clients GitHubClientFactory, logger *slog.Logger) *RepoService {
	return &RepoService{users: users, clients: clients, logger: logger}
}

// PullRequestLists splits a repository's pull requests by state.
type PullRequestLists struct {
	Open   []github.PullRequest `json:"open"`
	Closed []github.PullRequest `json:"closed"`
}

// CommitHistory is a repository's latest commits and their report.
type CommitHistory struct {
	Commits    []github.Commit       `json:"commits"`
	Analysis   analysis.CommitReport `json:"analysis"`
	TotalCount int                   `json:"total_count"`
}

// CommitPatch is one commit rendered as a patch.
type CommitPatch struct {
	Patch     string `json:"patch"`
	CommitSHA string `json:"commit_sha"`
}

// PullRequestAnalysis is the combined review aid for one pull request.
type PullRequestAnalysis struct {
	Commits         analysis.CommitReport `json:"commits"`
	Vulnerabilities []analysis.Finding    `json:"vulnerabilities"`
	Summary         AnalysisSummary       `json:"summary"`
	PRDetails       PullRequestDetails    `json:"pr_details"`
}

// AnalysisSummary counts what went into a PullRequestAnalysis.
type AnalysisSummary struct {
	TotalCommits         int `json:"total_commits"`
	FilesChanged         int `json:"files_changed"`
	TotalComments        int `json:"total_comments"`
	TotalReviews         int `json:"total_reviews"`
	VulnerabilitiesFound int `json:"vulnerabilities_found"`
}

// PullRequestDetails is the header of a PullRequestAnalysis.
type PullRequestDetails struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	User      string    `json:"user"`
}

// Repositories lists the repositories the user can see on GitHub.
func (s *RepoService) Repositories(ctx context.Context, userID string) ([]github.Repository, error) {
	gh, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}
	repos, err := gh.ListRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/repos: listing repositories: %w", err)
	}
	return nonNil(repos), nil
}

// PullRequests returns a repository's open and closed pull requests. The two
// lists are fetched concurrently.
func (s *RepoService) PullRequests(ctx context.Context, userID, owner, repo string) (*PullRequestLists, error) {
	if err := validateRepo(owner, repo); err != nil {
		return nil, err
	}
	gh, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}

	var lists PullRequestLists
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		lists.Open, err = gh.ListPullRequests(gctx, owner, repo, "open")
		return err
	})
	g.Go(func() (err error) {
		lists.Closed, err = gh.ListPullRequests(gctx, owner, repo, "closed")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service/repos: listing pull requests of %s/%s: %w", owner, repo, err)
	}

	lists.Open = nonNil(lists.Open)
	lists.Closed = nonNil(lists.Closed)
	return &lists, nil
}

// PullRequestCommits returns the commits of one pull request.
func (s *RepoService) PullRequestCommits(ctx context.Context, userID, owner, repo string, number int) ([]github.Commit, error) {
	if err := validatePullRequest(owner, repo, number); err != nil {
		return nil, err
	}
	gh, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}
	commits, err := gh.PullRequestCommits(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("service/repos: listing commits of %s/%s#%d: %w", owner, repo, number, err)
	}
	return nonNil(commits), nil
}

// RepositoryCommits returns the latest commits of a repository together with
// the commit message report.
func (s *RepoService) RepositoryCommits(ctx context.Context, userID, owner, repo string) (*CommitHistory, error) {
	if err := validateRepo(owner, repo); err != nil {
		return nil, err
	}
	gh, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}
	commits, err := gh.ListCommits(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("service/repos: listing commits of %s/%s: %w", owner, repo, err)
	}

	commits = nonNil(commits)
	return &CommitHistory{
		Commits:    commits,
		Analysis:   analysis.Commits(commitMessages(commits)),
		TotalCount: len(commits),
	}, nil
}

// CommitPatch returns one commit as a patch.
func (s *RepoService) CommitPatch(ctx context.Context, userID, owner, repo, sha string) (*CommitPatch, error) {
	if err := validateRepo(owner, repo); err != nil {
		return nil, err
	}
	if !shaPattern.MatchString(sha) {
		return nil, apperror.ValidationFailed("sha", "commit SHA must be 7 to 40 hex characters")
	}
	gh, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}
	patch, err := gh.CommitPatch(ctx, owner, repo, sha)
	if err != nil {
		return nil, fmt.Errorf("service/repos: fetching patch %s of %s/%s: %w", sha, owner, repo, err)
	}
	return &CommitPatch{Patch: patch, CommitSHA: sha}, nil
}

// AnalyzePullRequest fetches a pull request with its commits, files, comments
// and reviews, then scores the commit messages and scans the changed files.
//
// The five GitHub calls run concurrently; the first failure cancels the rest
// and fails the analysis.
func (s *RepoService) AnalyzePullRequest(ctx context.Context, userID, owner, repo string, number int) (*PullRequestAnalysis, error) {
	if err := validatePullRequest(owner, repo, number); err != nil {
		return nil, err
	}
	gh, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		pr       *github.PullRequest
		commits  []github.Commit
		files    []github.File
		comments []github.Comment
		reviews  []github.Review
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		pr, err = gh.PullRequest(gctx, owner, repo, number)
		return err
	})
	g.Go(func() (err error) {
		commits, err = gh.PullRequestCommits(gctx, owner, repo, number)
		return err
	})
	g.Go(func() (err error) {
		files, err = gh.PullRequestFiles(gctx, owner, repo, number)
		return err
	})
	g.Go(func() (err error) {
		comments, err = gh.PullRequestComments(gctx, owner, repo, number)
		return err
	})
	g.Go(func() (err error) {
		reviews, err = gh.PullRequestReviews(gctx, owner, repo, number)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service/repos: analyzing %s/%s#%d: %w", owner, repo, number, err)
	}

	changes := make([]analysis.FileChange, len(files))
	for i, f := range files {
		changes[i] = analysis.FileChange{Filename: f.Filename, Patch: f.Patch}
	}
	findings := analysis.ScanFiles(changes)

	s.logger.Debug("pull request analyzed",
		slog.String("repo", owner+"/"+repo),
		slog.Int("number", number),
		slog.Int("findings", len(findings)),
	)

	return &PullRequestAnalysis{
		Commits:         analysis.Commits(commitMessages(commits)),
		Vulnerabilities: findings,
		Summary: AnalysisSummary{
			TotalCommits:         len(commits),
			FilesChanged:         len(files),
			TotalComments:        len(comments),
			TotalReviews:         len(reviews),
			VulnerabilitiesFound: len(findings),
		},
		PRDetails: PullRequestDetails{
			Title:     pr.Title,
			Body:      pr.Body,
			State:     pr.State,
			CreatedAt: pr.CreatedAt,
			User:      pr.User.Login,
		},
	}, nil
}

// client builds a GitHub client from the user's stored OAuth token. Accounts
// that signed in before tokens were stored have none and must sign in again.
func (s *RepoService) client(ctx context.Context, userID string) (GitHubAPI, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("id", "user ID must not be empty")
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/repos: fetching user %s: %w", userID, err)
	}
	if user.GitHubToken == "" {
		return nil, apperror.Unauthorized("No GitHub access token on file; sign in again")
	}
	return s.clients(ctx, user.GitHubToken), nil
}

func validateRepo(owner, repo string) error {
	if !validName(owner) || !validName(repo) {
		return apperror.ValidationFailed("repository", "Invalid repository name format")
	}
	return nil
}

// validName also rejects "." and "..", which would change the API path.
func validName(name string) bool {
	return repoNamePattern.MatchString(name) && strings.Trim(name, ".") != ""
}

func validatePullRequest(owner, repo string, number int) error {
	if err := validateRepo(owner, repo); err != nil {
		return err
	}
	if number <= 0 {
		return apperror.ValidationFailed("number", "pull request number must be positive")
	}
	return nil
}

func commitMessages(commits []github.Commit) []string {
	msgs := make([]string, len(commits))
	for i, c := range commits {
		msgs[i] = c.Commit.Message
	}
	return msgs
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
