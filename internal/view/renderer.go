// Package view turns a session.State into HTML.
//
// The renderer is stateless after construction: every method is a pure
// function of its arguments, so the page handler can stream the pending view,
// wait for the bootstrapper, and then stream the settled view with the same
// Renderer value from many goroutines.
//
// TEMPLATE COMPOSITION:
// layout.html defines "head" and "tail"; loading.html, login.html and
// dashboard.html each define one fragment named after the state they show.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/sakif/pr-manager/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options configures the text and navigation targets of the views.
type Options struct {
	Title      string
	LoginPath  string // "begin login" navigates here
	LogoutPath string // "log out" navigates here
}

// DefaultOptions returns the paths served by this application's auth handler.
func DefaultOptions() Options {
	return Options{
		Title:      "PR Manager",
		LoginPath:  "/login/github",
		LogoutPath: "/logout",
	}
}

// Renderer renders the three rendering states.
type Renderer struct {
	templates *template.Template
	opts      Options
}

// pageData is what every template receives.
type pageData struct {
	Title      string
	LoginPath  string
	LogoutPath string
	User       *session.User
	Settled    bool
}

// NewRenderer parses the embedded templates once. Empty option fields take
// their DefaultOptions value.
func NewRenderer(opts Options) (*Renderer, error) {
	def := DefaultOptions()
	if opts.Title == "" {
		opts.Title = def.Title
	}
	if opts.LoginPath == "" {
		opts.LoginPath = def.LoginPath
	}
	if opts.LogoutPath == "" {
		opts.LogoutPath = def.LogoutPath
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parsing templates: %w", err)
	}

	return &Renderer{templates: tmpl, opts: opts}, nil
}

// RenderHead writes the document up to and including <body>.
func (r *Renderer) RenderHead(w io.Writer) error {
	return r.execute(w, "head", r.data(session.Pending()))
}

// Render writes the fragment for st:
//
//	pending          → loading indicator
//	unauthenticated  → login view with the "begin login" link
//	authenticated    → dashboard with display name, avatar and "log out" link
func (r *Renderer) Render(w io.Writer, st session.State) error {
	switch st.Status {
	case session.StatusPending:
		return r.execute(w, "loading", r.data(st))
	case session.StatusAuthenticated:
		if st.User == nil {
			return fmt.Errorf("view: authenticated state without a user")
		}
		return r.execute(w, "dashboard", r.data(st))
	default:
		return r.execute(w, "login", r.data(st))
	}
}

// RenderTail closes the document. Once st is settled it also hides the
// loading indicator that was streamed ahead of the settled view.
func (r *Renderer) RenderTail(w io.Writer, st session.State) error {
	return r.execute(w, "tail", r.data(st))
}

func (r *Renderer) data(st session.State) pageData {
	return pageData{
		Title:      r.opts.Title,
		LoginPath:  r.opts.LoginPath,
		LogoutPath: r.opts.LogoutPath,
		User:       st.User,
		Settled:    st.Settled(),
	}
}

func (r *Renderer) execute(w io.Writer, name string, data pageData) error {
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("view: rendering %s: %w", name, err)
	}
	return nil
}
