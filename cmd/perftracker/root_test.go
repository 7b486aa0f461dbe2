package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/perftracker/internal/config"
	"github.com/AngelCh415/perftracker/internal/forecast"
	"github.com/AngelCh415/perftracker/internal/models"
	"github.com/AngelCh415/perftracker/internal/simapi"
)

func testApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	today := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	api := httptest.NewServer(simapi.NewServer(simapi.NewGenerator(3), func() time.Time { return today }).Routes(log))
	t.Cleanup(api.Close)

	var out bytes.Buffer
	return &app{
		cfg: config.Config{APIBaseURL: api.URL, DaysBack: 40, HTTPTimeout: 5 * time.Second, RetryBase: time.Millisecond, MaxRetries: 1},
		log: log,
		out: &out,
	}, &out
}

func run(t *testing.T, a *app, args ...string) error {
	t.Helper()
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}

func TestKPICommandLoadsThroughETL(t *testing.T) {
	a, out := testApp(t)
	require.NoError(t, run(t, a, "kpi", "--category", "Audio"))

	var sum models.KPISummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &sum))
	assert.Greater(t, sum.TotalRevenue, 0.0)
	assert.Greater(t, sum.AvgROAS, 0.0)
}

func TestForecastCommandMovingAverage(t *testing.T) {
	a, out := testApp(t)
	require.NoError(t, run(t, a, "forecast", "--product", "Desk Lamp", "--model", "ma", "--days", "5"))

	var res forecast.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "MA(7)", res.Model)
	assert.Len(t, res.Rows, 41+5)
}

func TestETLCommandRejectsBadSince(t *testing.T) {
	a, _ := testApp(t)
	err := run(t, a, "etl", "--since", "last week")
	assert.ErrorContains(t, err, "bad --since")
}
