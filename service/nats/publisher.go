package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/phoenix/service/metrics"
	"github.com/brojonat/phoenix/service/solana"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher defines the interface for publishing canonical transactions.
type Publisher interface {
	// PublishTransaction publishes a single transaction to the "transaction"
	// subject. Every call appends a new message; consumers dedupe on signature.
	PublishTransaction(ctx context.Context, tx *solana.Transaction) (*Ack, error)

	// Close closes the connection to NATS.
	Close() error
}

// streamPublisher is the slice of jetstream.JetStream the publisher uses.
type streamPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// JetStreamPublisher publishes transactions to NATS JetStream.
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      streamPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Connect dials NATS with the reconnect settings every phoenix component uses.
func Connect(natsURL, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1), // Unlimited reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// NewPublisher creates a new JetStream publisher.
// It connects to NATS and ensures the stream exists.
// If metrics is nil, no metrics will be recorded.
func NewPublisher(natsURL string, m *metrics.Metrics, logger *slog.Logger) (*JetStreamPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := Connect(natsURL, "phoenix-publisher")
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := EnsureStream(ctx, js, logger); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
		"subject", Subject,
	)

	return &JetStreamPublisher{
		nc:      nc,
		js:      js,
		logger:  logger,
		metrics: m,
	}, nil
}

// EnsureStream creates the JetStream stream if it doesn't exist.
func EnsureStream(ctx context.Context, js jetstream.JetStream, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	stream, err := js.Stream(ctx, StreamName)
	if err == nil {
		info, err := stream.Info(ctx)
		if err == nil {
			logger.Debug("JetStream stream already exists",
				"stream", StreamName,
				"messages", info.State.Msgs,
			)
		}
		return nil
	}

	logger.Info("creating JetStream stream", "stream", StreamName)

	streamConfig := jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Canonical Solana transactions for indexed markets",
		Subjects:    []string{Subject},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	}

	if _, err := js.CreateStream(ctx, streamConfig); err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	logger.Info("JetStream stream created successfully", "stream", StreamName)
	return nil
}

// PublishTransaction publishes tx and waits for the stream's acknowledgement.
// The context bounds the wait; a timeout is reported as ErrPublish.
func (p *JetStreamPublisher) PublishTransaction(ctx context.Context, tx *solana.Transaction) (*Ack, error) {
	data, err := EncodeTransaction(tx)
	if err != nil {
		return nil, err
	}

	msg := nats.NewMsg(Subject)
	msg.Data = data

	start := time.Now()
	pubAck, err := p.js.PublishMsg(ctx, msg)
	p.record(err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPublish, tx.Signature, err)
	}

	ack := &Ack{
		Stream:   pubAck.Stream,
		Sequence: pubAck.Sequence,
	}

	p.logger.DebugContext(ctx, "published transaction",
		"subject", Subject,
		"signature", tx.Signature,
		"sequence", ack.Sequence,
		"confirmation_status", tx.ConfirmationStatus,
	)

	return ack, nil
}

func (p *JetStreamPublisher) record(err error, d time.Duration) {
	if p.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	p.metrics.RecordNATSPublish(Subject, status, d.Seconds())
}

// Close drains pending publishes and closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	p.logger.Info("NATS publisher closed")
	return nil
}
