// Package simapi serves a simulated ads API: a fixed product catalog with
// synthetic daily performance and promotion windows.
package simapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AngelCh415/perftracker/internal/utils"
)

const maxDaysBack = 365

type Server struct {
	gen *Generator
	now func() time.Time
}

func NewServer(gen *Generator, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	return &Server{gen: gen, now: now}
}

func (s *Server) Routes(log *slog.Logger) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))

	mux.Get("/products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Products())
	})

	mux.Get("/daily-performance", func(w http.ResponseWriter, r *http.Request) {
		daysBack := 0
		if q := r.URL.Query().Get("days_back"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n < 0 || n > maxDaysBack {
				http.Error(w, "days_back must be an integer in [0, 365]", http.StatusBadRequest)
				return
			}
			daysBack = n
		}
		writeJSON(w, s.gen.Range(s.now(), daysBack))
	})

	mux.Get("/promotions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, promotions(s.now()))
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
