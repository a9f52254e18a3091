package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/pr-manager/internal/apperror"
	"github.com/sakif/pr-manager/internal/auth"
	"github.com/sakif/pr-manager/internal/service"
)

// RepoHandler serves the repository browser API. Every route sits behind
// RequireAuth and reads GitHub as the signed-in user.
//
// ROUTES (all GET, under /api):
//
//	/repositories                                   → repositories the user can see
//	/repository/{owner}/{repo}/prs                  → open and closed pull requests
//	/repository/{owner}/{repo}/pr/{number}/commits  → commits of one pull request
//	/repository/{owner}/{repo}/pr/{number}/analysis → commit report and file scan
//	/repository/{owner}/{repo}/commits              → latest commits with report
//	/repository/{owner}/{repo}/commit/{sha}/patch   → one commit as a patch
type RepoHandler struct {
	service *service.RepoService
	logger  *slog.Logger
}

// NewRepoHandler creates a RepoHandler.
func NewRepoHandler(svc *service.RepoService, logger *slog.Logger) *RepoHandler {
	return &RepoHandler{service: svc, logger: logger}
}

// Routes mounts the handlers on r. The caller applies authentication.
func (h *RepoHandler) Routes(r chi.Router) {
	r.Get("/repositories", h.HandleRepositories)
	r.Route("/repository/{owner}/{repo}", func(r chi.Router) {
		r.Get("/prs", h.HandlePullRequests)
		r.Get("/pr/{number}/commits", h.HandlePullRequestCommits)
		r.Get("/pr/{number}/analysis", h.HandlePullRequestAnalysis)
		r.Get("/commits", h.HandleRepositoryCommits)
		r.Get("/commit/{sha}/patch", h.HandleCommitPatch)
	})
}

// HandleRepositories lists the user's repositories, most recently updated first.
func (h *RepoHandler) HandleRepositories(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	repos, err := h.service.Repositories(r.Context(), userID)
	h.respond(w, r, repos, err)
}

// HandlePullRequests returns {"open": [...], "closed": [...]}.
func (h *RepoHandler) HandlePullRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	lists, err := h.service.PullRequests(r.Context(), userID, chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))
	h.respond(w, r, lists, err)
}

// HandlePullRequestCommits lists the commits of one pull request.
func (h *RepoHandler) HandlePullRequestCommits(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	number, ok := pullRequestNumber(w, r)
	if !ok {
		return
	}
	commits, err := h.service.PullRequestCommits(r.Context(), userID, chi.URLParam(r, "owner"), chi.URLParam(r, "repo"), number)
	h.respond(w, r, commits, err)
}

// HandlePullRequestAnalysis returns the commit report, the file scan findings,
// a count summary and the pull request header.
func (h *RepoHandler) HandlePullRequestAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	number, ok := pullRequestNumber(w, r)
	if !ok {
		return
	}
	result, err := h.service.AnalyzePullRequest(r.Context(), userID, chi.URLParam(r, "owner"), chi.URLParam(r, "repo"), number)
	h.respond(w, r, result, err)
}

// HandleRepositoryCommits returns {"commits", "analysis", "total_count"}.
func (h *RepoHandler) HandleRepositoryCommits(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	history, err := h.service.RepositoryCommits(r.Context(), userID, chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))
	h.respond(w, r, history, err)
}

// HandleCommitPatch returns {"patch", "commit_sha"}.
func (h *RepoHandler) HandleCommitPatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	patch, err := h.service.CommitPatch(r.Context(), userID, chi.URLParam(r, "owner"), chi.URLParam(r, "repo"), chi.URLParam(r, "sha"))
	h.respond(w, r, patch, err)
}

func (h *RepoHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Not authenticated",
		})
	}
	return userID, ok
}

func (h *RepoHandler) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		h.logger.Warn("repository API request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func pullRequestNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, apperror.ValidationFailed("number", "pull request number must be an integer"))
		return 0, false
	}
	return n, true
}
