package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"solana-token-aggregator/internal/aggregator"
	"solana-token-aggregator/internal/config"
)

// snapshotOutput is printed to stdout as JSON.
type snapshotOutput struct {
	Stats     aggregator.Stats `json:"stats"`
	Sources   []sourceLine     `json:"sources"`
	Persisted int              `json:"persisted"`
	Failed    int              `json:"persistFailed"`
}

type sourceLine struct {
	Source string `json:"source"`
	Stored int    `json:"stored"`
	Error  string `json:"error,omitempty"`
}

func snapshotCmd(c *cli.Context) error {
	cfg, err := config.FromContext(c)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetOutput(os.Stderr)

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, cleanup, err := buildService(ctx, cfg, false, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	defer svc.Stop()

	report, err := svc.Initialize(ctx)
	if err != nil {
		return err
	}

	out := snapshotOutput{
		Stats:     svc.Stats(),
		Persisted: report.Persisted.Stored,
		Failed:    report.Persisted.Failed,
	}
	for _, sr := range report.Sources {
		line := sourceLine{Source: sr.Source.String(), Stored: sr.Stored}
		if sr.Err != nil {
			line.Error = sr.Err.Error()
		}
		out.Sources = append(out.Sources, line)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
