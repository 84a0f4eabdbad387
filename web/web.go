// Package web is the HTML front end of forkify. It serves the live views
// held by a controller.Controller, assembled in the page layout.
//
// Every interaction is a plain form: GET for lookups (search, result page,
// recipe), POST for mutations (servings, bookmark, upload). POST handlers
// answer with a 303 back to the page, so reloading never resubmits.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/forkify/controller"
	"github.com/hazyhaar/forkify/markup"
	"github.com/hazyhaar/forkify/shield"
	"github.com/hazyhaar/forkify/state"
)

// Config configures the front end.
type Config struct {
	MaxFormBytes int64                // Largest accepted form body. Default: 64KB.
	Uploads      int                  // Uploads per client per UploadWindow. Default: 5, negative: no limit.
	UploadWindow time.Duration        // Default: 1m.
	Headers      *shield.HeaderConfig // Default: shield.DefaultHeaders().
}

func (c *Config) defaults() {
	if c.MaxFormBytes <= 0 {
		c.MaxFormBytes = 64 * 1024
	}
	if c.Uploads == 0 {
		c.Uploads = 5
	}
	if c.UploadWindow <= 0 {
		c.UploadWindow = time.Minute
	}
	if c.Headers == nil {
		h := shield.DefaultHeaders()
		c.Headers = &h
	}
}

// Server serves one controller. All visitors share its state, like a
// single open browser tab.
type Server struct {
	ctrl    *controller.Controller
	config  Config
	logger  *slog.Logger
	uploads *shield.RateLimiter
}

// New creates a Server over ctrl.
func New(ctrl *controller.Controller, cfg Config, logger *slog.Logger) *Server {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ctrl:    ctrl,
		config:  cfg,
		logger:  logger,
		uploads: shield.NewRateLimiter(cfg.Uploads, cfg.UploadWindow),
	}
}

// Handler returns the router with the shield stack applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.Stack(*s.config.Headers, s.config.MaxFormBytes, s.logger) {
		r.Use(mw)
	}
	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP registers the routes on r.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", s.handleIndex)
	r.Get("/search", s.handleSearch)
	r.Get("/results/{page}", s.handleResults)
	r.Get("/recipes/new", s.handleNewRecipe)
	r.Get("/recipes/{id}", s.handleRecipe)
	r.Get("/views/{name}", s.handleView)

	r.Post("/servings/{n}", s.handleServings)
	r.Post("/bookmark", s.handleBookmark)
	r.With(s.uploads.Middleware).Post("/recipes", s.handleUpload)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, http.StatusOK, false)
}

// GET /search?q=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	err := s.ctrl.Search(r.Context(), q)
	s.page(w, r, s.status(r, err), false)
}

// GET /results/{page}
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}
	err = s.ctrl.Paginate(n)
	s.page(w, r, s.status(r, err), false)
}

// GET /recipes/{id}
func (s *Server) handleRecipe(w http.ResponseWriter, r *http.Request) {
	err := s.ctrl.ShowRecipe(r.Context(), chi.URLParam(r, "id"))
	s.page(w, r, s.status(r, err), false)
}

func (s *Server) handleNewRecipe(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.ResetUploadForm(); err != nil {
		s.page(w, r, s.status(r, err), false)
		return
	}
	s.page(w, r, http.StatusOK, true)
}

// GET /views/{name} returns one view fragment, as Markdown with
// ?format=markdown.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	v := s.ctrl.View(chi.URLParam(r, "name"))
	if v == nil {
		http.Error(w, "unknown view", http.StatusNotFound)
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		md, err := v.Markdown()
		if err != nil {
			shield.GetLogger(r.Context()).Error("web: markdown", "view", v.Name(), "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(md))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(v.HTML()))
}

// POST /servings/{n}
func (s *Server) handleServings(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		http.Error(w, "invalid servings", http.StatusBadRequest)
		return
	}
	if err := s.ctrl.UpdateServings(n); err != nil {
		s.page(w, r, s.status(r, err), false)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// POST /bookmark
func (s *Server) handleBookmark(w http.ResponseWriter, r *http.Request) {
	on, err := s.ctrl.ToggleBookmark(r.Context())
	if errors.Is(err, state.ErrNoRecipe) {
		s.page(w, r, s.status(r, err), false)
		return
	}
	if err != nil {
		// The toggle is kept in memory even when it could not be saved.
		shield.GetLogger(r.Context()).Error("web: bookmark", "error", err)
		shield.SetFlash(w, "error", "Your bookmarks could not be saved.")
	} else {
		shield.GetLogger(r.Context()).Debug("web: bookmark", "bookmarked", on)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// POST /recipes
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "form too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	draft := make(state.Draft, len(r.PostForm))
	for k := range r.PostForm {
		draft[k] = r.PostForm.Get(k)
	}

	rec, err := s.ctrl.UploadRecipe(r.Context(), draft)
	if err != nil && !errors.Is(err, state.ErrSuperseded) {
		s.page(w, r, s.status(r, err), true)
		return
	}
	shield.GetLogger(r.Context()).Info("web: recipe uploaded", "id", rec.ID)
	shield.SetFlash(w, "success", markup.UploadSuccess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// page writes the whole document. The upload window is only included when
// withUpload is set.
func (s *Server) page(w http.ResponseWriter, r *http.Request, status int, withUpload bool) {
	doc := s.ctrl.Document()
	if !withUpload {
		doc.Upload = ""
	}
	if f := shield.GetFlash(r.Context()); f != nil {
		doc.FlashType, doc.Flash = f.Type, f.Message
	}
	out, err := markup.Layout(doc)
	if err != nil {
		shield.GetLogger(r.Context()).Error("web: layout", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(out))
}

// status maps a controller error to the response status. The error view
// already tells the user what happened; the code is for clients and logs.
func (s *Server) status(r *http.Request, err error) int {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		shield.GetLogger(r.Context()).Error("web: request failed", "status", code, "error", err)
	} else if code >= http.StatusBadRequest {
		shield.GetLogger(r.Context()).Debug("web: request rejected", "status", code, "error", err)
	}
	return code
}

// StatusFor maps the state sentinels to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil, errors.Is(err, state.ErrSuperseded):
		return http.StatusOK
	case errors.Is(err, state.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, state.ErrFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, state.ErrInvalidServings):
		return http.StatusBadRequest
	case errors.Is(err, state.ErrNoRecipe):
		return http.StatusConflict
	case errors.Is(err, state.ErrTransport):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
