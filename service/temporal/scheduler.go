package temporal

import (
	"context"
	"time"
)

// Scheduler manages Temporal schedules for market ingestion.
// Each address gets its own schedule that triggers IngestMarketWorkflow.
type Scheduler interface {
	// UpsertIngestSchedule creates the schedule for an address, or updates
	// its interval and limit if it already exists.
	UpsertIngestSchedule(ctx context.Context, input IngestMarketInput, interval time.Duration) error

	// DeleteIngestSchedule deletes the schedule for an address.
	DeleteIngestSchedule(ctx context.Context, address string) error
}

// ScheduleID returns the Temporal schedule ID for an address.
func ScheduleID(address string) string {
	return "ingest-market-" + address
}
