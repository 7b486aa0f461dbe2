package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/perftracker/internal/config"
	"github.com/AngelCh415/perftracker/internal/ingest"
	"github.com/AngelCh415/perftracker/internal/metrics"
	"github.com/AngelCh415/perftracker/internal/simapi"
	"github.com/AngelCh415/perftracker/internal/store"
)

type app struct {
	cfg      config.Config
	log      *slog.Logger
	out      io.Writer
	product  string
	category string
}

func Execute(ctx context.Context) error {
	a := &app{cfg: config.FromEnv(), out: os.Stdout}
	a.log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: a.cfg.LogLevel}))
	return newRootCmd(a).ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "perftracker",
		Short:        "E-commerce ad performance analytics",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.product, "product", "", "restrict to one product")
	root.PersistentFlags().StringVar(&a.category, "category", "", "restrict to one category")

	root.AddCommand(
		a.etlCmd(),
		a.simapiCmd(),
		a.queryCmd("kpi", "KPI summary", func(s *metrics.Service, ctx context.Context, v url.Values) (any, error) {
			return s.Summary(ctx, v)
		}),
		a.queryCmd("top-sellers", "Products with the highest revenue", func(s *metrics.Service, ctx context.Context, v url.Values) (any, error) {
			return s.TopSellers(ctx, v)
		}),
		a.queryCmd("week-over-week", "Revenue change against the previous week", func(s *metrics.Service, ctx context.Context, v url.Values) (any, error) {
			return s.WeekOverWeek(ctx, v)
		}),
		a.queryCmd("anomalies", "Revenue anomalies in the recent window", func(s *metrics.Service, ctx context.Context, v url.Values) (any, error) {
			return s.Anomalies(ctx, v)
		}),
		a.queryCmd("recommend", "Rule-based recommendations", func(s *metrics.Service, ctx context.Context, v url.Values) (any, error) {
			return s.Recommendations(ctx, v)
		}),
		a.queryCmd("promotions", "Revenue lift of promotions", func(s *metrics.Service, ctx context.Context, v url.Values) (any, error) {
			return s.Promotions(ctx, v)
		}),
		a.forecastCmd(),
	)
	return root
}

func (a *app) etlCmd() *cobra.Command {
	var since string
	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Fetch the ads API and load the store once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var sincePtr *time.Time
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("bad --since: %w", err)
				}
				sincePtr = &t
			}
			st, closeStore, err := store.Open(cmd.Context(), a.cfg.DatabaseURL, a.log)
			if err != nil {
				return err
			}
			defer closeStore()
			rep, err := ingest.NewETL(ingest.NewHTTPClient(a.cfg.HTTPTimeout), st, a.log, a.cfg).Run(cmd.Context(), sincePtr)
			if err != nil {
				return err
			}
			return a.print(rep)
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "skip days before YYYY-MM-DD")
	return cmd
}

func (a *app) simapiCmd() *cobra.Command {
	var addr string
	var seed int64
	cmd := &cobra.Command{
		Use:   "simapi",
		Short: "Serve the simulated ads API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := &http.Server{
				Addr:              addr,
				Handler:           simapi.NewServer(simapi.NewGenerator(seed), time.Now).Routes(a.log),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-cmd.Context().Done()
				srv.Close()
			}()
			a.log.Info("simulated ads api listening", slog.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	cmd.Flags().Int64Var(&seed, "seed", 42, "generator seed")
	return cmd
}

func (a *app) forecastCmd() *cobra.Command {
	var days int
	var model string
	cmd := a.queryCmd("forecast", "Forecast daily revenue", func(s *metrics.Service, ctx context.Context, v url.Values) (any, error) {
		if days > 0 {
			v.Set("days", strconv.Itoa(days))
		}
		v.Set("model", model)
		return s.Forecast(ctx, v)
	})
	cmd.Flags().IntVar(&days, "days", 0, "horizon in days (FORECAST_DAYS when 0)")
	cmd.Flags().StringVar(&model, "model", "arima", "arima or ma")
	return cmd
}

type queryFunc func(s *metrics.Service, ctx context.Context, v url.Values) (any, error)

// queryCmd builds a read-only command. Without a database the in-memory
// store starts empty, so the ETL is run first to fill it.
func (a *app) queryCmd(use, short string, fn queryFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, closeStore, err := store.Open(ctx, a.cfg.DatabaseURL, a.log)
			if err != nil {
				return err
			}
			defer closeStore()
			if a.cfg.DatabaseURL == "" {
				etl := ingest.NewETL(ingest.NewHTTPClient(a.cfg.HTTPTimeout), st, a.log, a.cfg)
				if _, err := etl.Run(ctx, nil); err != nil {
					return err
				}
			}
			v := url.Values{}
			if a.product != "" {
				v.Set("product", a.product)
			}
			if a.category != "" {
				v.Set("category", a.category)
			}
			res, err := fn(metrics.NewService(st, a.log, a.cfg), ctx, v)
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
