package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	natspkg "github.com/brojonat/phoenix/service/nats"
	"github.com/brojonat/phoenix/service/solana"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"
)

func natsURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "nats-url",
		Usage:   "NATS server URL",
		EnvVars: []string{"NATS_URL"},
		Value:   "nats://localhost:4222",
	}
}

// subscribeCommand streams canonical transactions off the stream.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:  "subscribe",
		Usage: "Stream transactions published to the transaction subject",
		Description: `Subscribe to canonical transactions published to NATS JetStream.

Messages are read from the TRANSACTIONS stream, subject "transaction".

Example:
  phoenix stream subscribe --json`,
		Flags: []cli.Flag{
			natsURLFlag(),
			&cli.BoolFlag{
				Name:    "durable",
				Aliases: []string{"d"},
				Usage:   "Create a durable consumer (survives restarts)",
			},
			&cli.StringFlag{
				Name:  "consumer-name",
				Usage: "Consumer name (used with --durable)",
				Value: "phoenix-cli",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Stop after this long (0 waits for Ctrl-C)",
			},
		},
		Action: func(c *cli.Context) error {
			nc, err := natspkg.Connect(c.String("nats-url"), "phoenix-cli")
			if err != nil {
				return err
			}
			defer nc.Close()

			js, err := jetstream.New(nc)
			if err != nil {
				return fmt.Errorf("failed to create JetStream context: %w", err)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout := c.Duration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			consumerConfig := jetstream.ConsumerConfig{
				FilterSubject: natspkg.Subject,
				AckPolicy:     jetstream.AckExplicitPolicy,
			}
			if c.Bool("durable") {
				consumerConfig.Durable = c.String("consumer-name")
				consumerConfig.Name = c.String("consumer-name")
			}

			cons, err := js.CreateOrUpdateConsumer(ctx, natspkg.StreamName, consumerConfig)
			if err != nil {
				return fmt.Errorf("failed to create consumer: %w", err)
			}

			jsonOutput := c.Bool("json")
			out := writer(c)
			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "Subscribing to %s on stream %s (Ctrl-C to exit)\n\n", natspkg.Subject, natspkg.StreamName)
			}

			msgChan := make(chan jetstream.Msg, 10)
			cc, err := cons.Consume(func(msg jetstream.Msg) {
				msgChan <- msg
			})
			if err != nil {
				return fmt.Errorf("failed to start consuming: %w", err)
			}
			defer cc.Stop()

			count := 0
			for {
				select {
				case msg := <-msgChan:
					tx, err := natspkg.DecodeTransaction(msg.Data())
					if err != nil {
						fmt.Fprintf(os.Stderr, "Error decoding transaction: %v\n", err)
						msg.Term()
						continue
					}
					count++
					if err := printTransaction(out, tx, count, jsonOutput); err != nil {
						return err
					}
					msg.Ack()

				case <-ctx.Done():
					if !jsonOutput {
						fmt.Fprintf(os.Stderr, "\nReceived %d transactions\n", count)
					}
					return nil
				}
			}
		},
	}
}

func printTransaction(w io.Writer, tx *solana.Transaction, n int, jsonOutput bool) error {
	if jsonOutput {
		data, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("failed to encode transaction: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	fmt.Fprintf(w, "Transaction #%d\n", n)
	fmt.Fprintf(w, "Signature:     %s\n", tx.Signature)
	fmt.Fprintf(w, "Time:          %s\n", time.UnixMilli(tx.Timestamp).UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Successful:    %v\n", tx.Successful)
	fmt.Fprintf(w, "Status:        %s\n", tx.ConfirmationStatus)
	fmt.Fprintf(w, "Slot:          %d\n", tx.Slot)
	fmt.Fprintf(w, "Fee:           %d lamports\n", tx.Fee)
	fmt.Fprintf(w, "Compute Units: %d\n\n", tx.ComputeUnits)
	return nil
}

// inspectStreamCommand shows information about the TRANSACTIONS stream.
func inspectStreamCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect the TRANSACTIONS JetStream stream",
		Flags: []cli.Flag{natsURLFlag()},
		Action: func(c *cli.Context) error {
			nc, err := natspkg.Connect(c.String("nats-url"), "phoenix-cli")
			if err != nil {
				return err
			}
			defer nc.Close()

			js, err := jetstream.New(nc)
			if err != nil {
				return fmt.Errorf("failed to create JetStream context: %w", err)
			}

			stream, err := js.Stream(c.Context, natspkg.StreamName)
			if err != nil {
				return fmt.Errorf("failed to get stream: %w", err)
			}
			info, err := stream.Info(c.Context)
			if err != nil {
				return fmt.Errorf("failed to get stream info: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(writer(c), info)
			}

			w := writer(c)
			fmt.Fprintf(w, "Stream:       %s\n", info.Config.Name)
			fmt.Fprintf(w, "Subjects:     %v\n", info.Config.Subjects)
			fmt.Fprintf(w, "Messages:     %d\n", info.State.Msgs)
			fmt.Fprintf(w, "Bytes:        %d\n", info.State.Bytes)
			fmt.Fprintf(w, "First Seq:    %d\n", info.State.FirstSeq)
			fmt.Fprintf(w, "Last Seq:     %d\n", info.State.LastSeq)
			fmt.Fprintf(w, "Consumers:    %d\n", info.State.Consumers)
			fmt.Fprintf(w, "Max Age:      %s\n", info.Config.MaxAge)
			return nil
		},
	}
}
