package session

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

// maxBodyBytes caps how much of the session endpoint's response we decode.
const maxBodyBytes = 1 << 20

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Bootstrapper runs the one session query of a page load.
//
// OWNERSHIP:
// The Bootstrapper is the only writer of the rendering-state slot, and it
// writes it exactly once. Readers get copies through State() or Resolve(), so
// nothing downstream can mutate what the query produced.
//
// FAILURE POLICY:
// "No session" (any non-2xx) and "could not ask" (transport error, timeout,
// cancelled context, unreadable body) are the same outcome: unauthenticated.
// Nothing is retried and no error reaches the caller.
type Bootstrapper struct {
	client      Doer
	endpoint    string
	credentials []*http.Cookie
	logger      *slog.Logger

	once sync.Once
	done chan struct{}

	mu    sync.RWMutex
	state State
}

// New creates a Bootstrapper in the pending state. credentials are the cookies
// a same-origin browser would attach to the request; they are forwarded
// unchanged.
func New(client Doer, endpoint string, logger *slog.Logger, credentials ...*http.Cookie) *Bootstrapper {
	return &Bootstrapper{
		client:      client,
		endpoint:    endpoint,
		credentials: credentials,
		logger:      logger,
		done:        make(chan struct{}),
		state:       Pending(),
	}
}

// Resolve issues the session query on the first call and returns the settled
// state. Concurrent and later calls wait for that first query and return its
// result without sending another request.
func (b *Bootstrapper) Resolve(ctx context.Context) State {
	b.once.Do(func() {
		st := b.query(ctx)

		b.mu.Lock()
		b.state = st
		b.mu.Unlock()
		close(b.done)

		b.logger.Debug("session resolved", slog.String("state", st.String()))
	})
	return b.State()
}

// State returns the current rendering state. It is Pending until Resolve
// settles.
func (b *Bootstrapper) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Done is closed once the state has settled.
func (b *Bootstrapper) Done() <-chan struct{} {
	return b.done
}

func (b *Bootstrapper) query(ctx context.Context) State {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint, nil)
	if err != nil {
		b.logger.Debug("session query: building request", slog.String("error", err.Error()))
		return Unauthenticated()
	}
	req.Header.Set("Accept", "application/json")
	for _, c := range b.credentials {
		req.AddCookie(c)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Debug("session query: request failed", slog.String("error", err.Error()))
		return Unauthenticated()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		b.logger.Debug("session query: no session", slog.Int("status", resp.StatusCode))
		return Unauthenticated()
	}

	var body wireUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		b.logger.Debug("session query: decoding user", slog.String("error", err.Error()))
		return Unauthenticated()
	}
	login := stringField(body.Login)
	if login == "" {
		b.logger.Debug("session query: response has no login")
		return Unauthenticated()
	}

	return Authenticated(User{
		Login:     login,
		Name:      stringField(body.Name),
		AvatarURL: stringField(body.AvatarURL),
	})
}

// wireUser is the session endpoint's body before validation. Fields stay raw
// so a mistyped optional field cannot void an otherwise valid session.
type wireUser struct {
	Login     json.RawMessage `json:"login"`
	Name      json.RawMessage `json:"name"`
	AvatarURL json.RawMessage `json:"avatar_url"`
}

// stringField returns raw's value when it is a JSON string and "" otherwise.
func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
