// Package recipeapi is an offline recipe API speaking the Forkify v2 wire
// format, backed by SQLite and seeded from a YAML fixture. forkify runs it
// in process when no network API should be used, and its tests run the
// forkifyapi client against it.
//
//	GET  /api/v2/recipes?search=<q>&key=<key>
//	GET  /api/v2/recipes/<id>?key=<key>
//	POST /api/v2/recipes?key=<key>
//
// Uploads need the server key. Uploaded recipes carry that key and are only
// listed and served to requests that present it.
package recipeapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/forkify/forkifyapi"
	"github.com/hazyhaar/forkify/guard"
)

// BasePath is where Handler mounts the API.
const BasePath = "/api/v2/recipes"

const maxUploadBytes = 1 << 20

// Server serves a Store.
type Server struct {
	store  *Store
	key    string
	logger *slog.Logger
}

// NewServer creates a Server. An empty key rejects every upload.
func NewServer(store *Store, key string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, key: key, logger: logger}
}

// Handler returns a router serving the API under BasePath.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route(BasePath, s.RegisterHTTP)
	return r
}

// RegisterHTTP registers the endpoints relative to r.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Get("/", s.handleSearch)
	r.Post("/", s.handleCreate)
	r.Get("/{id}", s.handleGet)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("search"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "error", "Please provide a search query")
		return
	}
	results, err := s.store.Search(r.Context(), q, r.URL.Query().Get("key"))
	if err != nil {
		s.logger.Error("recipeapi: search", "query", q, "error", err)
		writeError(w, http.StatusInternalServerError, "error", "internal error")
		return
	}
	n := len(results)
	writeJSON(w, http.StatusOK, forkifyapi.Envelope{
		Status:  "success",
		Results: &n,
		Data:    forkifyapi.Data{Recipes: results},
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if guard.RecipeID(id) != nil {
		writeError(w, http.StatusNotFound, "fail", "Invalid _id: "+id)
		return
	}
	rec, err := s.store.Get(r.Context(), id, r.URL.Query().Get("key"))
	if err != nil {
		s.logger.Error("recipeapi: get", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "error", "internal error")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "fail", "Invalid _id: "+id)
		return
	}
	writeJSON(w, http.StatusOK, forkifyapi.Envelope{Status: "success", Data: forkifyapi.Data{Recipe: rec}})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if s.key == "" || key != s.key {
		writeError(w, http.StatusUnauthorized, "error", "Invalid API key")
		return
	}

	body, err := guard.ReadAll(r.Body, maxUploadBytes)
	if errors.Is(err, guard.ErrTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "error", "Request body too large")
		return
	}
	var in forkifyapi.Recipe
	if err != nil || json.Unmarshal(body, &in) != nil {
		writeError(w, http.StatusBadRequest, "error", "Invalid request body")
		return
	}
	if msg := validate(&in); msg != "" {
		writeError(w, http.StatusBadRequest, "error", msg)
		return
	}
	in.Key = key

	rec, err := s.store.Create(r.Context(), &in)
	if err != nil {
		s.logger.Error("recipeapi: create", "title", in.Title, "error", err)
		writeError(w, http.StatusInternalServerError, "error", "internal error")
		return
	}
	s.logger.Info("recipeapi: recipe created", "id", rec.ID)
	writeJSON(w, http.StatusCreated, forkifyapi.Envelope{Status: "success", Data: forkifyapi.Data{Recipe: rec}})
}

func validate(r *forkifyapi.Recipe) string {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return "Recipe must have a title"
	case r.Servings <= 0:
		return "Recipe must have at least one serving"
	case r.CookingTime < 0:
		return "Cooking time cannot be negative"
	}
	if r.SourceURL != "" && guard.Link(r.SourceURL) != nil {
		return "Invalid source URL"
	}
	if r.ImageURL != "" && guard.Link(r.ImageURL) != nil {
		return "Invalid image URL"
	}
	for _, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Description) == "" {
			return "Every ingredient needs a description"
		}
	}
	return ""
}

func writeError(w http.ResponseWriter, code int, status, msg string) {
	writeJSON(w, code, forkifyapi.Envelope{Status: status, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
