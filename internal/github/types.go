package github

import "time"

// The types keep only the fields the repository browser shows. JSON tags match
// GitHub's, so the API can pass them to the browser unchanged.
//
// GitHub API docs: https://docs.github.com/en/rest

// Account is the short user object GitHub embeds in other resources.
type Account struct {
	Login string `json:"login"`
}

// Repository is an entry of GET /user/repos.
type Repository struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`   // "owner/name"
	Description     string    `json:"description"` // null on GitHub decodes to ""
	HTMLURL         string    `json:"html_url"`
	Language        string    `json:"language"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	UpdatedAt       time.Time `json:"updated_at"`
	Private         bool      `json:"private"`
}

// PullRequest is a pull request as listed or fetched by number.
type PullRequest struct {
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	State       string     `json:"state"` // "open" or "closed"
	HTMLURL     string     `json:"html_url"`
	User        Account    `json:"user"`
	CommentsURL string     `json:"comments_url"`
	CommitsURL  string     `json:"commits_url"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at"` // nil while open
	MergedAt    *time.Time `json:"merged_at"` // nil unless merged
}

// Commit is an entry of a commit list.
type Commit struct {
	SHA     string       `json:"sha"`
	HTMLURL string       `json:"html_url,omitempty"`
	Commit  CommitDetail `json:"commit"`
}

// CommitDetail is the git-level part of a Commit.
type CommitDetail struct {
	Message string        `json:"message"`
	Author  *CommitAuthor `json:"author,omitempty"`
}

// CommitAuthor is who wrote a commit, as recorded by git.
type CommitAuthor struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date"`
}

// File is one changed file of a pull request.
type File struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"` // added, modified, removed, renamed...
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
	Patch     string `json:"patch,omitempty"` // absent for binary and very large diffs
}

// Comment is a conversation comment on a pull request.
type Comment struct {
	ID        int64     `json:"id"`
	User      Account   `json:"user"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Review is a submitted pull request review.
type Review struct {
	ID          int64      `json:"id"`
	User        Account    `json:"user"`
	State       string     `json:"state"` // APPROVED, CHANGES_REQUESTED, COMMENTED...
	Body        string     `json:"body"`
	SubmittedAt *time.Time `json:"submitted_at"`
}
