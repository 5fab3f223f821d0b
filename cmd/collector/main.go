package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/mfenwick/racecollect/internal/control"
	"github.com/mfenwick/racecollect/internal/core/config"
	"github.com/mfenwick/racecollect/internal/core/domain"
)

const usage = `Usage: collector <job> [date]

Jobs:
  racecards   scrape and sync today's racecards for every configured region
  results     scrape yesterday's results (date override: YYYY/MM/DD)
  both        racecards pass, then results pass
  health      one-shot API connectivity and freshness check
  help        print this message

Flags:
  -config path   configuration file (default config.yaml)
  -debug         enable debug logging
`

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	_ = godotenv.Load()

	if flag.NArg() < 1 || flag.Arg(0) == "help" {
		fmt.Fprint(os.Stderr, usage)
		if flag.NArg() >= 1 {
			os.Exit(control.ExitOK)
		}
		os.Exit(control.ExitUsage)
	}

	kind, ok := domain.ParseJobKind(flag.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown job %q\n\n%s", flag.Arg(0), usage)
		os.Exit(control.ExitUsage)
	}

	// Config file is optional when everything comes from the environment.
	path := *configPath
	if _, err := os.Stat(path); err != nil && path == "config.yaml" {
		path = ""
	}

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(control.ExitFailed)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(log)

	req := domain.JobRequest{
		Kind:    kind,
		Regions: cfg.RegionList(),
	}
	if flag.NArg() >= 2 {
		date := flag.Arg(1)
		if !domain.ValidDate(date) {
			fmt.Fprintf(os.Stderr, "invalid date %q, want YYYY/MM/DD\n\n%s", date, usage)
			os.Exit(control.ExitUsage)
		}
		req.Date = date
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// External termination aborts whatever sleep or call is in flight;
	// the next scheduled run re-collects from scratch.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warn("received signal, aborting run", "signal", sig.String())
		cancel()
	}()

	runner, err := control.NewRunner(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize runner", "error", err)
		os.Exit(control.ExitFailed)
	}

	code := runner.Run(ctx, req)
	runner.Close()
	os.Exit(code)
}
