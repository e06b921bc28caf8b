// Command aggregator merges Solana token metadata from several providers into
// one in-memory store and serves it over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"solana-token-aggregator/internal/config"
)

const appName = "solana-token-aggregator"

// Build information, set via -ldflags.
var (
	version = "v0.1.0"
	commit  = "dev"
	date    = ""
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	app := cli.NewApp()
	app.Name = appName
	app.Usage = "Solana token metadata aggregator"
	app.Version = version
	app.Commands = []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Fetch all sources, follow the live feed and serve the HTTP API",
			Flags:  config.Flags(),
			Action: serveCmd,
		},
		{
			Name:   "snapshot",
			Usage:  "Fetch all sources once, persist retained tokens and print a summary",
			Flags:  config.Flags(),
			Action: snapshotCmd,
		},
		{
			Name:   "version",
			Usage:  "Application version and build",
			Action: versionCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd(*cli.Context) error {
	fmt.Printf("%s %s (commit %s, built %s)\n", appName, version, commit, date)
	return nil
}
