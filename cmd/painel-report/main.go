// Command painel-report writes one user's dashboard report to a CSV or
// XLSX file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"painel/internal/cli"
	"painel/internal/config"
	"painel/internal/core"
	"painel/internal/dashboard"
	plog "painel/internal/log"
	"painel/internal/report"
	"painel/internal/services"
)

func main() {
	var (
		userID = flag.String("user", "", "user id whose dashboard is exported (required)")
		format = flag.String("format", "xlsx", "output format: csv or xlsx")
		out    = flag.String("out", "", "output file, defaults to relatorio-financeiro-<date>.<format>")
		from   = flag.String("from", "", "first day YYYY-MM-DD, overrides the saved range")
		to     = flag.String("to", "", "last day YYYY-MM-DD")
		preset = flag.String("preset", "", "date preset: today, yesterday, last7, thisMonth, lastMonth, all")
		search = flag.String("search", "", "table search text")
	)
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(plog.ComponentReport)
	if *userID == "" {
		logger.Error("Missing -user")
		flag.Usage()
		os.Exit(2)
	}
	write, ext, err := writerFor(*format)
	if err != nil {
		logger.Error("Invalid format", "error", err)
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)
	ctx := context.Background()
	res := cli.OpenBackend(ctx, logger, cfg)
	defer res.Close()

	loc := cfg.Location()
	core.SetDayZone(loc)
	now := time.Now().In(loc)
	sessions := services.NewSessionManager(res.Store, func() time.Time { return now }, nil)
	defer sessions.Close()

	sess, err := sessions.Get(ctx, *userID)
	if err != nil {
		logger.Error("Failed to load user data", "error", err, "user_id", *userID)
		os.Exit(1)
	}
	req := sess.ViewRequest(dashboard.TableFilter{Search: *search})
	rng, changed, err := rangeOverride(*from, *to, *preset, core.DayOf(now))
	if err != nil {
		logger.Error("Invalid date range", "error", err)
		os.Exit(2)
	}
	if changed {
		req.Config.DateRange = rng
	}
	rep := report.FromView(req.Snapshot, dashboard.BuildView(req), now)

	path := *out
	if path == "" {
		path = report.Filename(ext, now)
	}
	f, err := os.Create(path)
	if err != nil {
		logger.Error("Failed to create output file", "error", err, "path", path)
		os.Exit(1)
	}
	if err := write(f, rep); err != nil {
		f.Close()
		logger.Error("Failed to write report", "error", err, "path", path)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		logger.Error("Failed to close output file", "error", err, "path", path)
		os.Exit(1)
	}
	logger.Info("Report written",
		"path", path,
		"user_id", *userID,
		"period", rep.Period,
		"rows", len(rep.Rows))
}

func writerFor(format string) (func(io.Writer, *report.Report) error, string, error) {
	switch strings.ToLower(format) {
	case "csv":
		return report.WriteCSV, "csv", nil
	case "xlsx":
		return report.WriteXLSX, "xlsx", nil
	}
	return nil, "", fmt.Errorf("unknown format %q", format)
}

// rangeOverride resolves the date flags. changed is false when none is set.
func rangeOverride(from, to, preset string, today core.Day) (*core.DateRange, bool, error) {
	if preset != "" {
		r, err := dashboard.PresetRange(dashboard.Preset(preset), today)
		return r, err == nil, err
	}
	if from == "" {
		return nil, false, nil
	}
	start, ok := core.ParseDay(from)
	if !ok {
		return nil, false, fmt.Errorf("invalid -from %q", from)
	}
	r := &core.DateRange{From: start}
	if to != "" {
		end, ok := core.ParseDay(to)
		if !ok {
			return nil, false, fmt.Errorf("invalid -to %q", to)
		}
		r.To = end
	}
	return r, true, nil
}
