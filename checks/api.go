package checks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// API is a read-only HTTP report over the stored checks
type API struct {
	repo *Repository
}

func NewAPI(repo *Repository) *API {
	return &API{
		repo: repo,
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Route("/checks", func(r chi.Router) {
		r.Get("/", a.listChecks)
		r.Get("/{checkID}", a.getCheck)
	})

	r.Get("/-/live", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/-/ready", a.ready)
}

func (a *API) listChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := a.repo.ListChecks(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(checks)
}

func (a *API) getCheck(w http.ResponseWriter, r *http.Request) {
	checkID := chi.URLParam(r, "checkID")
	if _, err := uuid.Parse(checkID); err != nil {
		http.Error(w, ErrNotFound.Error(), http.StatusNotFound)
		return
	}

	check, err := a.repo.GetCheck(r.Context(), checkID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(check)
}

func (a *API) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.repo.Ping(ctx); err != nil {
		http.Error(w, "store not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
