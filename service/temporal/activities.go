package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/phoenix/service/ingest"
	solanago "github.com/gagliardetto/solana-go"
	temporalsdk "go.temporal.io/sdk/temporal"
)

// IngestMarketInput contains the input parameters for ingesting a market.
type IngestMarketInput struct {
	Address string `json:"address"`
	Market  string `json:"market,omitempty"` // display name, e.g. "SOL-USDC"
	Limit   int    `json:"limit"`
}

// IngestMarketResult contains the result of one scheduled ingestion.
type IngestMarketResult struct {
	Address   string           `json:"address"`
	Market    string           `json:"market,omitempty"`
	RunID     string           `json:"run_id"`
	Attempted int              `json:"attempted"`
	Published int              `json:"published"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Failures  []ingest.Failure `json:"failures,omitempty"`
	PollTime  time.Time        `json:"poll_time"`
	Error     *string          `json:"error,omitempty"`
}

// RunIngestionInput contains parameters for the RunIngestion activity.
type RunIngestionInput struct {
	Address string `json:"address"`
	Limit   int    `json:"limit"`
}

// Runner runs one ingestion pass. *ingest.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, address string, limit int) (*ingest.Summary, error)
}

// Activities holds the dependencies needed by Temporal activities.
type Activities struct {
	runner Runner
	logger *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
func NewActivities(runner Runner, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		runner: runner,
		logger: logger,
	}
}

// RunIngestion resolves, fetches, maps and publishes the latest signatures
// for an address. Per-signature failures are part of the returned summary;
// only resolution failures fail the activity. A malformed address is
// reported as non-retryable.
func (a *Activities) RunIngestion(ctx context.Context, input RunIngestionInput) (*ingest.Summary, error) {
	a.logger.DebugContext(ctx, "running ingestion",
		"address", input.Address,
		"limit", input.Limit,
	)

	if _, err := solanago.PublicKeyFromBase58(input.Address); err != nil {
		return nil, temporalsdk.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid address %q", input.Address),
			"InvalidAddress",
			err,
		)
	}

	summary, err := a.runner.Run(ctx, input.Address, input.Limit)
	if err != nil {
		a.logger.ErrorContext(ctx, "ingestion run failed",
			"address", input.Address,
			"error", err,
		)
		return nil, fmt.Errorf("ingest %s: %w", input.Address, err)
	}

	return summary, nil
}
