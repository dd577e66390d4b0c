package main

import (
	"fmt"
	"time"

	"github.com/brojonat/phoenix/client"
	"github.com/urfave/cli/v2"
)

func serverURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "server-url",
		Usage:   "Query API URL (served by the sink)",
		EnvVars: []string{"SERVER_URL"},
		Value:   "http://localhost:8080",
	}
}

func timeoutFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Request timeout",
		Value: 10 * time.Second,
	}
}

func apiCommand() *cli.Command {
	newClient := func(c *cli.Context) (*client.Client, error) {
		u := c.String("server-url")
		if u == "" {
			return nil, fmt.Errorf("server-url is required (set SERVER_URL env var or use --server-url)")
		}
		return client.NewClient(u, nil, nil), nil
	}

	return &cli.Command{
		Name:  "api",
		Usage: "Query the sink's HTTP API",
		Subcommands: []*cli.Command{
			{
				Name:  "health",
				Usage: "Check server health",
				Flags: []cli.Flag{serverURLFlag(), timeoutFlag()},
				Action: func(c *cli.Context) error {
					cl, err := newClient(c)
					if err != nil {
						return err
					}
					ctx, cancel := contextWithTimeout(c)
					defer cancel()
					if err := cl.Health(ctx); err != nil {
						return err
					}
					fmt.Fprintf(writer(c), "Server is healthy: %s\n", c.String("server-url"))
					return nil
				},
			},
			{
				Name:  "transactions",
				Usage: "List stored transactions",
				Flags: []cli.Flag{
					serverURLFlag(),
					timeoutFlag(),
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Page size (server default 100)"},
					&cli.IntFlag{Name: "offset", Usage: "Skip this many transactions"},
				},
				Action: func(c *cli.Context) error {
					cl, err := newClient(c)
					if err != nil {
						return err
					}
					ctx, cancel := contextWithTimeout(c)
					defer cancel()
					page, err := cl.ListTransactions(ctx, c.Int("limit"), c.Int("offset"))
					if err != nil {
						return err
					}
					return outputJSON(writer(c), page)
				},
			},
			{
				Name:      "transaction",
				Usage:     "Show one stored transaction",
				ArgsUsage: "<signature>",
				Flags:     []cli.Flag{serverURLFlag(), timeoutFlag()},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("requires exactly one argument: signature")
					}
					cl, err := newClient(c)
					if err != nil {
						return err
					}
					ctx, cancel := contextWithTimeout(c)
					defer cancel()
					tx, err := cl.GetTransaction(ctx, c.Args().First())
					if err != nil {
						return err
					}
					return outputJSON(writer(c), tx)
				},
			},
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			w := writer(c)
			fmt.Fprintf(w, "phoenix CLI\n")
			fmt.Fprintf(w, "  Version: %s\n", version)
			fmt.Fprintf(w, "  Commit:  %s\n", commit)
			fmt.Fprintf(w, "  Built:   %s\n", date)
			return nil
		},
	}
}
