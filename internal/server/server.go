// Package server sets up the HTTP server, router and route definitions.
//
// This is the composition root: every dependency is built and wired here,
// and nowhere else.
//
//	config → sqlite.DB ─┬─► AuthService ─┬─► AuthHandler
//	                    │                └─► RequireAuth, Purger
//	       TokenService ┘
//	         sqlite.DB + github.Client ───► RepoService ─► RepoHandler
//	       view.Renderer + session client ───► PageHandler
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/pr-manager/internal/auth"
	"github.com/sakif/pr-manager/internal/cleanup"
	"github.com/sakif/pr-manager/internal/config"
	"github.com/sakif/pr-manager/internal/github"
	"github.com/sakif/pr-manager/internal/handler"
	"github.com/sakif/pr-manager/internal/middleware"
	sqliteRepo "github.com/sakif/pr-manager/internal/repository/sqlite"
	"github.com/sakif/pr-manager/internal/service"
	"github.com/sakif/pr-manager/internal/view"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and the resources behind it. The database and the
// purge schedule are released when Start returns or Close is called.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	purger *cleanup.Purger
}

// New opens the database and wires every handler.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and routes.
//
// ROUTE STRUCTURE:
// GET /                 → page (streams loading view, then login or dashboard)
// GET /healthz          → liveness
// GET /login/github     → start GitHub OAuth
// GET /callback/github  → finish GitHub OAuth, set session cookie
// GET /logout           → revoke session, clear cookie
// GET /api/user         → session endpoint (401 without a live session)
// GET /api/repositories, /api/repository/{owner}/{repo}/...
//                       → repository browser (see handler.RepoHandler)
//
// MIDDLEWARE ORDER:
// RequestID → RealIP → Logger → Recoverer, so panics are logged with their
// request ID and still produce a 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	authService := service.NewAuthService(s.db, s.db, tokens, s.logger)

	purger, err := cleanup.NewPurger(authService, s.config.PurgeSchedule, s.logger)
	if err != nil {
		return err
	}
	s.purger = purger

	apiURL := s.config.Auth.GitHub.APIURL
	provider := auth.NewGitHubProvider(
		s.config.Auth.GitHub.ClientID,
		s.config.Auth.GitHub.ClientSecret,
		s.config.Auth.GitHub.CallbackURL,
		auth.WithAPIBaseURL(apiURL),
	)
	cookies := auth.CookieOptions{Secure: s.config.Auth.SecureCookie}
	authHandler := handler.NewAuthHandler(provider, authService, cookies, s.logger)

	githubClients := func(ctx context.Context, accessToken string) service.GitHubAPI {
		return github.NewClient(ctx, accessToken, github.WithBaseURL(apiURL))
	}
	repoHandler := handler.NewRepoHandler(service.NewRepoService(s.db, githubClients, s.logger), s.logger)

	renderer, err := view.NewRenderer(view.DefaultOptions())
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	sessionClient := &http.Client{Timeout: s.config.Session.Timeout}
	pageHandler := handler.NewPageHandler(renderer, sessionClient, s.config.Session.Endpoint, s.logger)

	// === Page and auth routes ===
	s.router.Get("/", pageHandler.HandleIndex)
	s.router.Get("/healthz", pageHandler.HandleHealth)
	s.router.Get("/login/github", authHandler.HandleGitHubLogin)
	s.router.Get("/callback/github", authHandler.HandleGitHubCallback)
	s.router.Get("/logout", authHandler.HandleLogout)

	// === API routes ===
	s.router.Route("/api", func(r chi.Router) {
		if origins := s.config.CORS.AllowedOrigins; len(origins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   origins,
				AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders:   []string{"Accept", "Content-Type"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(authService))
			r.Get("/user", authHandler.HandleUser)
			repoHandler.Routes(r)
		})
	})

	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops the purge schedule and closes the database.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.purger.Stop(ctx); err != nil {
		s.logger.Warn("purge job did not stop in time", slog.String("error", err.Error()))
	}
	return s.db.Close()
}

// Start serves HTTP until SIGINT or SIGTERM, then shuts down gracefully:
//  1. stop accepting connections and wait up to 30s for in-flight requests
//  2. stop the purge schedule
//  3. close the database (flushes WAL, releases the file lock)
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

	// The write timeout also covers the page handler waiting on the session
	// endpoint.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + s.config.Session.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("session_endpoint", s.config.Session.Endpoint),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	if n, err := s.purger.RunOnce(context.Background()); err != nil {
		s.logger.Warn("initial revocation purge failed", slog.String("error", err.Error()))
	} else if n > 0 {
		s.logger.Info("purged expired revocations", slog.Int64("count", n))
	}
	s.purger.Start()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
