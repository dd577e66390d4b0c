package temporal

import (
	"fmt"
	"time"

	"github.com/brojonat/phoenix/service/ingest"
	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// IngestMarketWorkflow runs one ingestion pass for a market address.
// It is triggered by a Temporal schedule at POLL_INTERVAL.
//
// Re-running publishes the same signatures again; the stream and the sink
// both deduplicate on signature.
func IngestMarketWorkflow(ctx workflow.Context, input IngestMarketInput) (*IngestMarketResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("IngestMarketWorkflow started", "address", input.Address, "market", input.Market)

	result := &IngestMarketResult{
		Address:  input.Address,
		Market:   input.Market,
		PollTime: workflow.Now(ctx),
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        30 * time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{"InvalidAddress"},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var summary *ingest.Summary
	err := workflow.ExecuteActivity(ctx, a.RunIngestion, RunIngestionInput{
		Address: input.Address,
		Limit:   input.Limit,
	}).Get(ctx, &summary)
	if err != nil {
		logger.Error("ingestion failed", "address", input.Address, "error", err)
		errMsg := fmt.Sprintf("ingestion failed: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("ingestion failed: %w", err)
	}

	result.RunID = summary.RunID
	result.Attempted = summary.Attempted
	result.Published = summary.Published
	result.Failed = summary.Failed
	result.Skipped = summary.Skipped
	result.Failures = summary.Failures

	logger.Info("IngestMarketWorkflow completed",
		"address", input.Address,
		"run_id", result.RunID,
		"attempted", result.Attempted,
		"published", result.Published,
		"failed", result.Failed,
	)

	return result, nil
}
