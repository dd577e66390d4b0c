package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/brojonat/phoenix/service/market"
	"github.com/urfave/cli/v2"
)

func marketCommand() *cli.Command {
	return &cli.Command{
		Name:  "market",
		Usage: "Show the markets for the configured network",
		Description: `Without --query, list every market in the network's market file.
With --query, print the market the jq expression selects.

Example:
  phoenix market --query '.[] | select(.base_ticker == "SOL")'`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "jq expression selecting one market",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := cfg.MarketsPath()

			if c.IsSet("query") {
				m, err := market.Load(path, c.String("query"))
				if err != nil {
					return err
				}
				return outputJSON(writer(c), m)
			}

			markets, err := market.List(path)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return outputJSON(writer(c), markets)
			}

			w := tabwriter.NewWriter(writer(c), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MARKET\tADDRESS")
			for _, m := range markets {
				fmt.Fprintf(w, "%s\t%s\n", m.Name(), m.Address)
			}
			return w.Flush()
		},
	}
}
