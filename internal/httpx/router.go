package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/perftracker/internal/forecast"
	"github.com/AngelCh415/perftracker/internal/ingest"
	"github.com/AngelCh415/perftracker/internal/metrics"
	"github.com/AngelCh415/perftracker/internal/utils"
)

// Pipeline is the ingest side the router triggers.
type Pipeline interface {
	Run(ctx context.Context, since *time.Time) (ingest.Report, error)
	ExportDay(ctx context.Context, date time.Time) (int, error)
}

func NewRouter(log *slog.Logger, etl Pipeline, mSvc *metrics.Service) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(utils.Logger(log))
	mux.Use(utils.Metrics)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.Post("/ingest/run", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("since")
		var since *time.Time
		if q != "" {
			t, err := time.Parse("2006-01-02", q)
			if err != nil {
				http.Error(w, "bad since (YYYY-MM-DD)", 400)
				return
			}
			since = &t
		}
		rep, err := etl.Run(r.Context(), since)
		if err != nil {
			http.Error(w, err.Error(), 502)
			return
		}
		writeJSON(w, rep)
	})

	mux.Post("/export/run", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("date")
		if q == "" {
			http.Error(w, "date required (YYYY-MM-DD)", 400)
			return
		}
		t, err := time.Parse("2006-01-02", q)
		if err != nil {
			http.Error(w, "bad date", 400)
			return
		}
		n, err := etl.ExportDay(r.Context(), t)
		if err != nil {
			http.Error(w, err.Error(), 502)
			return
		}
		writeJSON(w, map[string]any{"exported": n})
	})

	mux.Route("/kpis", func(k chi.Router) {
		k.Get("/", query(log, mSvc.KPIs))
		k.Get("/summary", query(log, mSvc.Summary))
		k.Get("/top-sellers", query(log, mSvc.TopSellers))
		k.Get("/worst-performers", query(log, mSvc.WorstPerformers))
		k.Get("/day-over-day", query(log, mSvc.DayOverDay))
		k.Get("/week-over-week", query(log, mSvc.WeekOverWeek))
	})
	mux.Get("/anomalies", query(log, mSvc.Anomalies))
	mux.Get("/forecast", query(log, mSvc.Forecast))
	mux.Get("/recommendations", query(log, mSvc.Recommendations))
	mux.Get("/promotions", query(log, mSvc.Promotions))

	return mux
}

// query adapts a service call to a handler and maps its errors to status
// codes: bad parameters and horizons past forecast.MaxDays 400, too little
// history 422, anything else 500.
func query[T any](log *slog.Logger, fn func(context.Context, url.Values) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := fn(r.Context(), r.URL.Query())
		switch {
		case err == nil:
			writeJSON(w, v)
		case errors.Is(err, metrics.ErrBadParam), errors.Is(err, forecast.ErrHorizonTooLong):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, forecast.ErrInsufficientData):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			log.Error("query failed", slog.String("path", r.URL.Path), slog.String("rid", utils.RID(r.Context())), slog.String("err", err.Error()))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
