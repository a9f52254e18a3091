// Package model defines the data structures shared by the storage, service
// and HTTP layers.
package model

import "time"

// User is a GitHub account that has signed in at least once.
//
// The JSON shape is the session endpoint's wire contract: the front end reads
// `login`, `name` and `avatar_url` and ignores everything else, so those three
// keys must keep their snake_case names.
//
// WHY an internal ID next to GitHubID?
// GitHub IDs are integers owned by a third party. We mint our own xid so the
// token subject and foreign keys never depend on GitHub's numbering.
type User struct {
	ID          string    `json:"id"         db:"id"`
	GitHubID    int64     `json:"github_id"  db:"github_id"`
	Login       string    `json:"login"      db:"login"`      // GitHub handle, e.g. "octocat"
	Name        string    `json:"name"       db:"name"`       // display name, empty when unset on GitHub
	Email       string    `json:"email"      db:"email"`      // may be empty if hidden
	AvatarURL   string    `json:"avatar_url" db:"avatar_url"`
	GitHubToken string    `json:"-"          db:"github_token"` // OAuth access token, never serialized
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
