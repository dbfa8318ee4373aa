package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vitrine/internal/domain/crud"
	"vitrine/internal/params"
)

// listResource answers GET /api/private/{entity}?page&limit&search.
func listResource[T any](app *application, w http.ResponseWriter, r *http.Request, repo *crud.Repository[T]) {
	p := params.ParsePagination(r.URL.Query())

	page, err := repo.List(r.Context(), p)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, page); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getResource answers GET /api/private/{entity}/{id}.
func getResource[T any](app *application, w http.ResponseWriter, r *http.Request, repo *crud.Repository[T], notFound string) {
	row, err := repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, crud.ErrNotFound) {
			app.notFoundResponse(w, r, notFound)
			return
		}
		app.internalServerError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, row); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteResource answers DELETE for entities without dependents or files.
func deleteResource[T any](app *application, w http.ResponseWriter, r *http.Request, repo *crud.Repository[T], notFound, deleted string) bool {
	if err := repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, crud.ErrNotFound) {
			app.notFoundResponse(w, r, notFound)
			return false
		}
		app.internalServerError(w, r, err)
		return false
	}
	if err := writeJSON(w, http.StatusOK, messageResponse{Message: deleted}); err != nil {
		app.internalServerError(w, r, err)
	}
	return true
}

// invalidBodyMessage answers a body that could not be decoded.
const invalidBodyMessage = "Corpo da requisição inválido"

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

// blankToNil trims s and maps an empty result to a NULL column.
func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
