// Package handler contains the HTTP request handlers.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (query params, cookies, headers)
// 2. Call the service or session layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers hold no business logic; they are the glue between HTTP and the app.
package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/sakif/pr-manager/internal/session"
	"github.com/sakif/pr-manager/internal/view"
)

// PageHandler serves the single page of the front end.
//
// ONE PAGE LOAD:
//  1. a fresh session.Bootstrapper is bound to the request's cookies
//  2. the document head and the loading view are flushed to the browser
//  3. the bootstrapper asks the session endpoint, once
//  4. the login view or the dashboard follows, and the loader is hidden
//
// Nothing is shared between requests: the next load asks again.
type PageHandler struct {
	renderer *view.Renderer
	client   session.Doer
	endpoint string
	logger   *slog.Logger
}

// NewPageHandler creates a PageHandler. endpoint is the absolute URL of the
// session endpoint (GET /api/user on this server in production).
func NewPageHandler(renderer *view.Renderer, client session.Doer, endpoint string, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		renderer: renderer,
		client:   client,
		endpoint: endpoint,
		logger:   logger,
	}
}

// HandleIndex streams the page.
//
// HTTP: GET /
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	b := session.New(h.client, h.endpoint, h.logger, r.Cookies()...)

	// The pending part is rendered into a buffer first so a template failure
	// can still become a clean 500.
	var head bytes.Buffer
	if err := h.renderer.RenderHead(&head); err != nil {
		h.renderError(w, err)
		return
	}
	if err := h.renderer.Render(&head, b.State()); err != nil {
		h.renderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(head.Bytes()); err != nil {
		h.logger.Debug("page: client went away", slog.String("error", err.Error()))
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		// Not fatal: the whole page arrives at once instead.
		h.logger.Debug("page: flush not supported", slog.String("error", err.Error()))
	}

	st := b.Resolve(r.Context())

	// From here on the status line is out; failures can only be logged.
	if err := h.renderer.Render(w, st); err != nil {
		h.logger.Error("page: rendering settled view", slog.String("error", err.Error()))
		return
	}
	if err := h.renderer.RenderTail(w, st); err != nil {
		h.logger.Error("page: rendering tail", slog.String("error", err.Error()))
		return
	}
	_ = rc.Flush()
}

// HandleHealth reports liveness.
//
// HTTP: GET /healthz
func (h *PageHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PageHandler) renderError(w http.ResponseWriter, err error) {
	h.logger.Error("failed to render template", slog.String("error", err.Error()))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
