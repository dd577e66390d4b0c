package main

import (
	"fmt"
	"log/slog"

	"github.com/brojonat/phoenix/service/config"
	"github.com/brojonat/phoenix/service/market"
	"github.com/brojonat/phoenix/service/temporal"
	"github.com/urfave/cli/v2"
)

// newScheduler connects to Temporal. Tests replace it with a MockScheduler.
var newScheduler = func(cfg *config.Config, logger *slog.Logger) (temporal.Scheduler, func(), error) {
	c, err := temporal.NewClient(cfg.TemporalHost, cfg.TemporalNamespace, cfg.TemporalTaskQueue, logger)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

func createScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create or update the ingestion schedule for the market address",
		Description: `Schedule IngestMarketWorkflow for the configured market every POLL_INTERVAL.
Running it again updates the interval and limit of the existing schedule.

Example:
  phoenix schedule create --interval 1m --limit 50`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "address",
				Aliases: []string{"a"},
				Usage:   "Address to index (overrides MARKET_ADDRESS and the market file)",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Schedule interval (overrides POLL_INTERVAL)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Signatures per run (overrides SIGNATURE_LIMIT)",
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
			if c.IsSet("interval") {
				cfg.PollInterval = c.Duration("interval")
			}
			if c.IsSet("limit") {
				cfg.SignatureLimit = c.Int("limit")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := setupLogger(cfg.LogLevel)

			m, err := market.Target(cfg.MarketsPath(), cfg.MarketQuery, cfg.MarketAddress)
			if err != nil {
				return fmt.Errorf("failed to select market: %w", err)
			}

			scheduler, closer, err := newScheduler(cfg, logger)
			if err != nil {
				return err
			}
			defer closer()

			input := temporal.IngestMarketInput{
				Address: m.Address,
				Market:  m.Name(),
				Limit:   cfg.SignatureLimit,
			}
			if err := scheduler.UpsertIngestSchedule(c.Context, input, cfg.PollInterval); err != nil {
				return err
			}

			fmt.Fprintf(writer(c), "Schedule %s every %s (limit %d)\n",
				temporal.ScheduleID(m.Address), cfg.PollInterval, cfg.SignatureLimit)
			return nil
		},
	}
}

func deleteScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete the ingestion schedule for an address",
		ArgsUsage: "[address]",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			address := c.Args().First()
			if address == "" {
				m, err := market.Target(cfg.MarketsPath(), cfg.MarketQuery, cfg.MarketAddress)
				if err != nil {
					return fmt.Errorf("failed to select market: %w", err)
				}
				address = m.Address
			}

			logger := setupLogger(cfg.LogLevel)
			scheduler, closer, err := newScheduler(cfg, logger)
			if err != nil {
				return err
			}
			defer closer()

			if err := scheduler.DeleteIngestSchedule(c.Context, address); err != nil {
				return err
			}

			fmt.Fprintf(writer(c), "Deleted schedule %s\n", temporal.ScheduleID(address))
			return nil
		},
	}
}
