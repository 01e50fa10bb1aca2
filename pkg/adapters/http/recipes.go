package http

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/aretw0/mise/internal/presentation/graph"
	"github.com/aretw0/mise/pkg/catalog"
	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/recipebook"
	"github.com/go-chi/chi/v5"
)

// MaxBodySize bounds request bodies.
const MaxBodySize = 1 << 20

func (s *Server) listRecipes(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.kitchen.ListRecipes(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func parseQuery(r *http.Request) (catalog.Query, error) {
	var (
		q   catalog.Query
		err error
	)
	params := r.URL.Query()
	if q.Difficulty, err = catalog.ParseDifficulty(params.Get("difficulty")); err != nil {
		return q, err
	}
	if q.Sort, err = catalog.ParseSort(params.Get("sort")); err != nil {
		return q, err
	}
	if raw := params.Get("favorites"); raw != "" {
		if q.FavoritesOnly, err = strconv.ParseBool(raw); err != nil {
			return q, fmt.Errorf("invalid favorites flag %q", raw)
		}
	}
	return q, nil
}

func (s *Server) createRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, ok := s.decodeRecipe(w, r)
	if !ok {
		return
	}
	saved, err := s.kitchen.SaveRecipe(r.Context(), recipe)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) updateRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, ok := s.decodeRecipe(w, r)
	if !ok {
		return
	}
	recipe.ID = chi.URLParam(r, "id")
	saved, err := s.kitchen.SaveRecipe(r.Context(), recipe)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// decodeRecipe checks the body against the Recipe schema before decoding it.
func (s *Server) decodeRecipe(w http.ResponseWriter, r *http.Request) (domain.Recipe, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return domain.Recipe{}, false
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("Invalid recipe body", "err", err)
		return domain.Recipe{}, false
	}
	if err := validateBody("Recipe", raw); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid recipe: %v", err))
		return domain.Recipe{}, false
	}

	var recipe domain.Recipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid recipe: %v", err))
		return domain.Recipe{}, false
	}
	return recipe, true
}

func (s *Server) importRecipes(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	format := recipebook.FormatYAML
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		format = recipebook.FormatJSON
	}

	list, err := recipebook.Parse(data, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := s.kitchen.ImportRecipes(r.Context(), list)
	if err != nil {
		writeJSON(w, statusOf(err), map[string]any{"imported": n, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (s *Server) getRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := s.kitchen.GetRecipe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (s *Server) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := s.kitchen.DeleteRecipe(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	recipe, err := s.kitchen.ToggleFavorite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.kitchen.Progress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	recipe, err := s.kitchen.GetRecipe(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var session *domain.Session
	if sess, ok := s.kitchen.Session(id); ok {
		session = &sess
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, graph.GenerateMermaid(recipe, session))
}
