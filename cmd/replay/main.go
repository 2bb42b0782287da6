// Command replay runs one fusion cycle over report and alert fixtures held in
// memory and prints the clusters that formed and what each one did. Nothing is
// written to the database or published.
//
// Thresholds come from the same environment variables as the service.
//
// Usage:
//
//	go run ./cmd/replay \
//	  -reports testdata/reports.json \
//	  -alerts testdata/alerts.json \
//	  -now 2025-07-01T18:00:00Z
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-fusion-service/internal/adapter/memory"
	"github.com/couchcryptid/hazard-fusion-service/internal/config"
	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
	"github.com/couchcryptid/hazard-fusion-service/internal/fusion"
	"github.com/couchcryptid/hazard-fusion-service/internal/observability"
)

func main() {
	reportsPath := flag.String("reports", "", "path to a JSON array of reports")
	alertsPath := flag.String("alerts", "", "optional path to a JSON array of existing alerts")
	now := flag.String("now", "", "optional RFC3339 time used for new alert timestamps")
	flag.Parse()

	if *reportsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*reportsPath, *alertsPath, *now, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(reportsPath, alertsPath, now string, out io.Writer) int {
	if now != "" {
		t, err := time.Parse(time.RFC3339, now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -now: %v\n", err)
			return 1
		}
		domain.SetClock(clockwork.NewFakeClockAt(t))
		defer domain.SetClock(nil)
	}

	var reports []domain.Report
	if err := readJSON(reportsPath, &reports); err != nil {
		fmt.Fprintf(os.Stderr, "read reports: %v\n", err)
		return 1
	}
	var alerts []domain.Alert
	if alertsPath != "" {
		if err := readJSON(alertsPath, &alerts); err != nil {
			fmt.Fprintf(os.Stderr, "read alerts: %v\n", err)
			return 1
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	repo := memory.NewRepository(reports, alerts)
	orch, err := fusion.NewOrchestrator(repo, nil, nil, cfg.Settings(), len(reports)+1, logger, observability.NewMetricsForTesting())
	if err != nil {
		fmt.Fprintf(os.Stderr, "build orchestrator: %v\n", err)
		return 1
	}

	res, runErr := orch.Run(context.Background())
	printResult(out, res, cfg.Settings().MinAlertConfidence)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "fusion cycle failed: %v\n", runErr)
		return 1
	}
	return 0
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func printResult(out io.Writer, res fusion.Result, minConfidence float64) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSIZE\tCENTROID\tHAZARD\tREGION\tSEVERITY\tCONFIDENCE\tDECISION")

	decisions := decide(res, minConfidence)
	for i, c := range res.Clusters {
		fmt.Fprintf(tw, "%d\t%d\t%.4f,%.4f\t%s\t%s\t%s\t%.2f\t%s\n",
			i+1, len(c.Reports), c.Centroid.Lat, c.Centroid.Lon,
			orDash(string(c.HazardType)), orDash(c.Region), c.Severity, c.Confidence, decisions[i])
	}
	_ = tw.Flush()

	fmt.Fprintf(out, "\n%d clusters, %d skipped, %d alerts created, %d alerts updated, %d reports verified\n",
		len(res.Clusters), res.SkippedClusters, len(res.NewAlerts), len(res.UpdatedAlerts), len(res.VerifiedReportIDs))
	if len(res.MalformedReports) > 0 {
		fmt.Fprintf(out, "malformed reports left pending: %s\n", strings.Join(res.MalformedReports, ", "))
	}
}

// decide attributes each cluster to the alert that absorbed its reports. The
// first cluster to reach a newly created alert created it; later ones merged.
func decide(res fusion.Result, minConfidence float64) []string {
	created := make(map[string]bool, len(res.NewAlerts))
	owner := make(map[string]string)
	for _, a := range append(append([]domain.Alert(nil), res.NewAlerts...), res.UpdatedAlerts...) {
		for _, id := range a.RelatedReports {
			owner[id] = a.ID
		}
	}
	for _, a := range res.NewAlerts {
		created[a.ID] = true
	}

	seen := make(map[string]bool)
	out := make([]string, len(res.Clusters))
	for i, c := range res.Clusters {
		if c.Confidence < minConfidence {
			out[i] = fmt.Sprintf("skip (below %.0f)", minConfidence)
			continue
		}
		alertID, ok := owner[c.Reports[0].ID]
		switch {
		case !ok:
			out[i] = "not persisted"
		case created[alertID] && !seen[alertID]:
			out[i] = "create " + alertID
		default:
			out[i] = "merge into " + alertID
		}
		if ok {
			seen[alertID] = true
		}
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
