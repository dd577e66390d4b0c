package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/phoenix/service/db"
	"github.com/urfave/cli/v2"
)

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database-url",
		Usage:   "Database connection URL",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func getStore(c *cli.Context) (*db.Store, error) {
	dsn := c.String("database-url")
	if dsn == "" {
		return nil, fmt.Errorf("database-url is required (set DATABASE_URL)")
	}
	return db.Open(c.Context, dsn)
}

func listTransactionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-transactions",
		Usage:   "List stored transactions, highest slot first",
		Aliases: []string{"txs"},
		Flags: []cli.Flag{
			databaseURLFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of transactions",
				Value:   50,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Skip this many transactions",
			},
		},
		Action: func(c *cli.Context) error {
			store, err := getStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			txs, err := store.ListTransactions(c.Context, db.ListTransactionsParams{
				Limit:  int32(c.Int("limit")),
				Offset: int32(c.Int("offset")),
			})
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(writer(c), txs)
			}

			w := tabwriter.NewWriter(writer(c), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SIGNATURE\tSLOT\tSTATUS\tOK\tFEE\tCU\tTIME")
			for _, tx := range txs {
				fmt.Fprintf(w, "%s\t%d\t%s\t%v\t%d\t%d\t%s\n",
					tx.Signature,
					tx.Slot,
					tx.ConfirmationStatus,
					tx.Successful,
					tx.Fee,
					tx.ComputeUnits,
					time.UnixMilli(tx.Timestamp).UTC().Format(time.RFC3339),
				)
			}
			w.Flush()

			total, err := store.CountTransactions(c.Context)
			if err == nil {
				fmt.Fprintf(os.Stderr, "\nShowing %d of %d transactions\n", len(txs), total)
			}
			return nil
		},
	}
}

func getTransactionCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-transaction",
		Usage:     "Show one stored transaction",
		Aliases:   []string{"get"},
		ArgsUsage: "<signature>",
		Flags:     []cli.Flag{databaseURLFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: signature")
			}

			store, err := getStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			tx, err := store.GetTransaction(c.Context, c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get transaction: %w", err)
			}
			return outputJSON(writer(c), tx)
		},
	}
}
