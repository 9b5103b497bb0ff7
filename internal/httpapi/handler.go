package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"luhack/hub/internal/auth"
	"luhack/hub/internal/db"
	"luhack/hub/internal/metrics"
	"luhack/hub/internal/sqlcgen"
)

// Queries is the minimal DB interface the web surface needs.
// *sqlcgen.Queries satisfies this.
type Queries interface {
	UpsertUser(ctx context.Context, arg sqlcgen.UpsertUserParams) (sqlcgen.User, error)
	CreateWriteup(ctx context.Context, arg sqlcgen.CreateWriteupParams) (sqlcgen.Writeup, error)
	UpdateWriteup(ctx context.Context, arg sqlcgen.UpdateWriteupParams) (sqlcgen.Writeup, error)
	DeleteWriteup(ctx context.Context, id int32) (int64, error)
	GetWriteup(ctx context.Context, id int32) (sqlcgen.WriteupWithAuthor, error)
	GetWriteupBySlug(ctx context.Context, slug string) (sqlcgen.WriteupWithAuthor, error)
	GetWriteupByTitle(ctx context.Context, title string) (sqlcgen.WriteupWithAuthor, error)
	ListWriteups(ctx context.Context) ([]sqlcgen.WriteupWithAuthor, error)
	ListWriteupsByTag(ctx context.Context, tag string) ([]sqlcgen.WriteupWithAuthor, error)
	ListWriteupsByAuthorUsername(ctx context.Context, username string) ([]sqlcgen.WriteupWithAuthor, error)
	SearchWriteups(ctx context.Context, arg sqlcgen.SearchWriteupsParams) ([]sqlcgen.SearchWriteupsRow, error)
	ListWriteupTags(ctx context.Context) ([]sqlcgen.WriteupTagCount, error)
}

type Handler struct {
	log     zerolog.Logger
	pool    *db.Pool
	queries Queries
	tokens  *auth.Tokens
	metrics *metrics.Metrics
}

func NewHandler(log zerolog.Logger, pool *db.Pool, tokens *auth.Tokens, m *metrics.Metrics) *Handler {
	h := &Handler{log: log, pool: pool, tokens: tokens, metrics: m}
	if pool != nil {
		h.queries = pool.Queries()
	}
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)
	r.Use(h.identity)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// Session
	r.Get("/auth", h.handleAuth)
	r.Get("/logout", h.handleLogout)

	// Site
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/writeups/", http.StatusFound)
	})
	r.Route("/writeups", func(r chi.Router) {
		r.Get("/", h.handleWriteupsIndex)
		r.Get("/view/{slug}", h.handleWriteupView)
		r.Get("/tag/{tag}", h.handleWriteupsByTag)
		r.Get("/tags", h.handleWriteupTags)
		r.Get("/user/{username}", h.handleWriteupsByUser)
		r.Get("/search", h.handleWriteupSearch)
		r.Get("/new", h.handleWriteupNewForm)
		r.Post("/new", h.handleWriteupCreate)
		r.Get("/edit/{id}", h.handleWriteupEditForm)
		r.Post("/edit/{id}", h.handleWriteupUpdate)
		r.Post("/delete/{id}", h.handleWriteupDelete)
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		h.metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.Status(), duration)
		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) ensureQueries(w http.ResponseWriter, r *http.Request) bool {
	if h.queries == nil {
		h.renderError(w, r, http.StatusServiceUnavailable, "The database is not available right now.")
		return false
	}
	return true
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.pool == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "error": "database not configured"})
		return
	}

	if err := h.pool.Ping(ctx); err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}
