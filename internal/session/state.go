// Package session resolves, once per page load, whether the visitor holding a
// set of cookies has a live session, and exposes the result as a rendering
// state for the view layer.
//
// THE THREE STATES:
//
//	pending ──► authenticated(user)
//	        └─► unauthenticated
//
// Both settled states are terminal. A Bootstrapper lives for exactly one page
// load; the next page load builds a new one and asks the server again.
package session

// Status is the discriminator of a State.
type Status int

const (
	StatusPending Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// User is the part of the session endpoint's response the front end reads.
// Extra fields in the response are ignored. Values are kept verbatim.
type User struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// DisplayName returns the display name, falling back to the login handle.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Login
}

// State is the rendering state. User is non-nil only when Status is
// StatusAuthenticated.
type State struct {
	Status Status
	User   *User
}

func Pending() State {
	return State{Status: StatusPending}
}

func Authenticated(u User) State {
	return State{Status: StatusAuthenticated, User: &u}
}

func Unauthenticated() State {
	return State{Status: StatusUnauthenticated}
}

// Settled reports whether the session query has completed.
func (s State) Settled() bool {
	return s.Status != StatusPending
}

func (s State) String() string {
	if s.Status == StatusAuthenticated && s.User != nil {
		return "authenticated(" + s.User.Login + ")"
	}
	return s.Status.String()
}
