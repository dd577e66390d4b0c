package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "phoenix",
		Usage: "Solana market transaction indexer CLI",
		Description: `A command-line tool for running and inspecting the phoenix indexer.

Configuration is read from the environment (NETWORK, SOLANA_RPC_URL, NATS_URL, ...).
Run results are written to stdout as JSON; logs go to stderr.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			runCommand(),
			marketCommand(),
			{
				Name:  "stream",
				Usage: "NATS JetStream transaction stream commands",
				Subcommands: []*cli.Command{
					subscribeCommand(),
					inspectStreamCommand(),
				},
			},
			{
				Name:  "schedule",
				Usage: "Temporal ingestion schedule commands",
				Subcommands: []*cli.Command{
					createScheduleCommand(),
					deleteScheduleCommand(),
				},
			},
			{
				Name:  "db",
				Usage: "Inspect transactions stored by the sink",
				Subcommands: []*cli.Command{
					listTransactionsCommand(),
					getTransactionCommand(),
				},
			},
			apiCommand(),
			versionCommand(),
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}
}
