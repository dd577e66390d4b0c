package nats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brojonat/phoenix/service/solana"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Handler processes one canonical transaction taken off the stream.
// Returning an error redelivers the message.
type Handler func(ctx context.Context, tx *solana.Transaction) error

// MaxDeliver bounds redeliveries of a message the handler keeps rejecting.
const MaxDeliver = 5

// Consumer reads transactions from a durable JetStream consumer.
type Consumer struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	durable string
	logger  *slog.Logger
}

// NewConsumer connects to NATS and ensures the stream exists.
func NewConsumer(natsURL, durable string, logger *slog.Logger) (*Consumer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := Connect(natsURL, "phoenix-"+durable)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Consumer{
		nc:      nc,
		js:      js,
		durable: durable,
		logger:  logger.With("component", "nats_consumer", "durable", durable),
	}, nil
}

// Run consumes until ctx is cancelled. Messages are acked only after the
// handler succeeds, so a crash mid-handler redelivers.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	if err := EnsureStream(ctx, c.js, c.logger); err != nil {
		return fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	cons, err := c.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       c.durable,
		FilterSubject: Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxDeliver:    MaxDeliver,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		handleMessage(ctx, msg, handler, c.logger)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer cc.Stop()

	c.logger.Info("consuming transactions", "stream", StreamName, "subject", Subject)

	<-ctx.Done()
	c.logger.Info("consumer stopping")
	return nil
}

// Close closes the connection to NATS.
func (c *Consumer) Close() error {
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}

// ackable is the part of jetstream.Msg the handler loop needs.
type ackable interface {
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

// handleMessage decodes and dispatches one message. Payloads that can never
// decode are terminated rather than redelivered.
func handleMessage(ctx context.Context, msg ackable, handler Handler, logger *slog.Logger) {
	tx, err := DecodeTransaction(msg.Data())
	if err != nil {
		logger.ErrorContext(ctx, "dropping undecodable message", "error", err)
		if termErr := msg.Term(); termErr != nil {
			logger.WarnContext(ctx, "failed to terminate message", "error", termErr)
		}
		return
	}

	if err := handler(ctx, tx); err != nil {
		logger.WarnContext(ctx, "handler failed, requesting redelivery",
			"signature", tx.Signature,
			"error", err,
		)
		if nakErr := msg.Nak(); nakErr != nil {
			logger.WarnContext(ctx, "failed to nak message", "error", nakErr)
		}
		return
	}

	if err := msg.Ack(); err != nil {
		logger.WarnContext(ctx, "failed to ack message",
			"signature", tx.Signature,
			"error", err,
		)
	}
}
