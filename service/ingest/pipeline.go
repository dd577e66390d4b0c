// Package ingest runs the resolve, fetch, map and publish steps for one
// address and reports what happened to every signature.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/phoenix/service/metrics"
	"github.com/brojonat/phoenix/service/nats"
	"github.com/brojonat/phoenix/service/solana"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SignatureResolver lists the signatures for an address, most recent first.
type SignatureResolver interface {
	Resolve(ctx context.Context, address string, limit int) ([]solana.SignatureInfo, error)
}

// TransactionFetcher retrieves the transaction behind a signature.
type TransactionFetcher interface {
	Fetch(ctx context.Context, info solana.SignatureInfo) (*solana.RawTransaction, error)
}

// Publisher hands a canonical transaction to the broker.
type Publisher interface {
	PublishTransaction(ctx context.Context, tx *solana.Transaction) (*nats.Ack, error)
}

// Config bounds a run's concurrency and remote calls.
type Config struct {
	Workers        int
	RPCTimeout     time.Duration
	PublishTimeout time.Duration
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Workers:        4,
		RPCTimeout:     10 * time.Second,
		PublishTimeout: 5 * time.Second,
	}
}

// Failure describes one signature that was not published.
type Failure struct {
	Signature string `json:"signature"`
	Stage     Stage  `json:"stage"`
	Kind      Kind   `json:"kind"`
	Error     string `json:"error"`
	Err       error  `json:"-"`
}

// Summary is the outcome of one run. Failures and PublishedSignatures follow
// resolver order.
type Summary struct {
	RunID               string        `json:"run_id"`
	Address             string        `json:"address"`
	Attempted           int           `json:"attempted"`
	Published           int           `json:"published"`
	Failed              int           `json:"failed"`
	Skipped             int           `json:"skipped"`
	Failures            []Failure     `json:"failures,omitempty"`
	PublishedSignatures []string      `json:"published_signatures,omitempty"`
	Duration            time.Duration `json:"duration"`
}

// Pipeline wires a resolver, fetcher and publisher together.
type Pipeline struct {
	resolver  SignatureResolver
	fetcher   TransactionFetcher
	publisher Publisher
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewPipeline creates a pipeline. Zero config values fall back to
// DefaultConfig. If metrics is nil, no metrics will be recorded.
func NewPipeline(
	resolver SignatureResolver,
	fetcher TransactionFetcher,
	publisher Publisher,
	cfg Config,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Pipeline {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = def.RPCTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		resolver:  resolver,
		fetcher:   fetcher,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With("component", "pipeline"),
		metrics:   m,
	}
}

type unitState int

const (
	unitSkipped unitState = iota
	unitPublished
	unitFailed
)

type unitOutcome struct {
	state   unitState
	failure Failure
}

// Run ingests up to limit signatures for address.
//
// Only a resolution failure returns an error; the summary is still returned
// and reports zero attempts. Per-signature failures are recorded in the
// summary and never stop the run. Cancelling ctx stops dispatching new
// signatures, which are then counted as skipped.
func (p *Pipeline) Run(ctx context.Context, address string, limit int) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		RunID:   uuid.NewString(),
		Address: address,
	}
	logger := p.logger.With("run_id", summary.RunID, "address", address)

	logger.InfoContext(ctx, "starting ingestion run", "limit", limit, "workers", p.cfg.Workers)

	rctx, cancel := context.WithTimeout(ctx, p.cfg.RPCTimeout)
	infos, err := p.resolver.Resolve(rctx, address, limit)
	cancel()
	if err != nil {
		summary.Duration = time.Since(start)
		logger.ErrorContext(ctx, "signature resolution failed", "error", err)
		if p.metrics != nil {
			p.metrics.RecordItemFailure(string(StageResolve), string(Classify(err)))
			p.metrics.RecordRun(address, "resolution_failed", summary.Duration.Seconds(), 0, 0, 0)
		}
		return summary, fmt.Errorf("run %s: %w", summary.RunID, err)
	}

	logger.DebugContext(ctx, "resolved signatures", "count", len(infos))

	outcomes := make([]unitOutcome, len(infos))

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Workers)

	for i, info := range infos {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = p.process(ctx, info, logger)
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range outcomes {
		switch o.state {
		case unitPublished:
			summary.Attempted++
			summary.Published++
			summary.PublishedSignatures = append(summary.PublishedSignatures, infos[i].Signature)
		case unitFailed:
			summary.Attempted++
			summary.Failed++
			summary.Failures = append(summary.Failures, o.failure)
		default:
			summary.Skipped++
		}
	}
	summary.Duration = time.Since(start)

	status := "success"
	switch {
	case ctx.Err() != nil:
		status = "canceled"
	case summary.Failed > 0:
		status = "partial"
	}

	if p.metrics != nil {
		p.metrics.RecordRun(address, status, summary.Duration.Seconds(), summary.Published, summary.Failed, summary.Skipped)
	}

	logger.InfoContext(ctx, "ingestion run complete",
		"status", status,
		"attempted", summary.Attempted,
		"published", summary.Published,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"duration", summary.Duration,
	)

	return summary, nil
}

// process runs fetch, map and publish for one signature. Remote calls are
// detached from run cancellation and bounded by their own timeouts, so an
// in-flight call finishes or times out on its own. A unit never publishes
// once the run is cancelled.
func (p *Pipeline) process(ctx context.Context, info solana.SignatureInfo, logger *slog.Logger) unitOutcome {
	if ctx.Err() != nil {
		return unitOutcome{state: unitSkipped}
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.RPCTimeout)
	raw, err := p.fetcher.Fetch(fctx, info)
	cancel()
	if err != nil {
		return p.fail(ctx, logger, info, StageFetch, err)
	}

	tx, err := solana.MapTransaction(raw)
	if err != nil {
		return p.fail(ctx, logger, info, StageMap, err)
	}
	if p.metrics != nil {
		p.metrics.RecordTransactionMapped(string(tx.ConfirmationStatus))
	}

	if err := ctx.Err(); err != nil {
		return p.fail(ctx, logger, info, StagePublish, fmt.Errorf("%w: %w", ErrCanceled, err))
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.PublishTimeout)
	_, err = p.publisher.PublishTransaction(pctx, tx)
	cancel()
	if err != nil {
		if !errors.Is(err, nats.ErrPublish) {
			err = fmt.Errorf("%w: %w", nats.ErrPublish, err)
		}
		return p.fail(ctx, logger, info, StagePublish, err)
	}

	return unitOutcome{state: unitPublished}
}

func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, info solana.SignatureInfo, stage Stage, err error) unitOutcome {
	kind := Classify(err)
	logger.WarnContext(ctx, "signature failed",
		"signature", info.Signature,
		"stage", stage,
		"kind", kind,
		"error", err,
	)
	if p.metrics != nil {
		p.metrics.RecordItemFailure(string(stage), string(kind))
	}
	return unitOutcome{
		state: unitFailed,
		failure: Failure{
			Signature: info.Signature,
			Stage:     stage,
			Kind:      kind,
			Error:     err.Error(),
			Err:       err,
		},
	}
}
