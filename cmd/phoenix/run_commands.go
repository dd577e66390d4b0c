package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/brojonat/phoenix/service/config"
	"github.com/brojonat/phoenix/service/ingest"
	"github.com/brojonat/phoenix/service/market"
	natspkg "github.com/brojonat/phoenix/service/nats"
	"github.com/brojonat/phoenix/service/solana"
	"github.com/urfave/cli/v2"
)

type ingestRunner interface {
	Run(ctx context.Context, address string, limit int) (*ingest.Summary, error)
}

// newIngestRunner builds the pipeline from configuration. Tests replace it.
var newIngestRunner = func(cfg *config.Config, logger *slog.Logger) (ingestRunner, func(), error) {
	rpcClient := solana.NewRPCClient(cfg.SolanaRPCURL)
	solanaClient := solana.NewClient(rpcClient, solana.EndpointLabel(cfg.SolanaRPCURL), nil, logger)

	publisher, err := natspkg.NewPublisher(cfg.NATSURL, nil, logger)
	if err != nil {
		solanaClient.Close()
		return nil, nil, err
	}

	pipeline := ingest.NewPipeline(solanaClient, solanaClient, publisher, ingest.Config{
		Workers:        cfg.IngestWorkers,
		RPCTimeout:     cfg.RPCTimeout,
		PublishTimeout: cfg.PublishTimeout,
	}, nil, logger)

	closer := func() {
		publisher.Close()
		solanaClient.Close()
	}
	return pipeline, closer, nil
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one ingestion pass and print the summary",
		Description: `Resolve the latest signatures for the market address, fetch and map each
transaction, and publish it to the TRANSACTIONS stream.

The address comes from --address, MARKET_ADDRESS, or the network's market file.

Example:
  NETWORK=devnet phoenix run --limit 25`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "address",
				Aliases: []string{"a"},
				Usage:   "Address to index (overrides MARKET_ADDRESS and the market file)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of signatures to ingest (overrides SIGNATURE_LIMIT)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if c.IsSet("address") {
				cfg.MarketAddress = c.String("address")
			}
			if c.IsSet("limit") {
				cfg.SignatureLimit = c.Int("limit")
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			logger := setupLogger(cfg.LogLevel)

			m, err := market.Target(cfg.MarketsPath(), cfg.MarketQuery, cfg.MarketAddress)
			if err != nil {
				return fmt.Errorf("failed to select market: %w", err)
			}
			logger.Info(fmt.Sprintf("%s with address %s", m.Name(), m.Address),
				"network", cfg.Network,
				"limit", cfg.SignatureLimit,
			)

			runner, closer, err := newIngestRunner(cfg, logger)
			if err != nil {
				return err
			}
			defer closer()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, runErr := runner.Run(ctx, m.Address, cfg.SignatureLimit)
			if summary != nil {
				if err := outputJSON(writer(c), summary); err != nil {
					return err
				}
			}
			if runErr != nil {
				return fmt.Errorf("ingestion failed: %w", runErr)
			}
			return nil
		},
	}
}
