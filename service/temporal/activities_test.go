package temporal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/brojonat/phoenix/service/ingest"
	"github.com/brojonat/phoenix/service/solana"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalsdk "go.temporal.io/sdk/temporal"
)

// MockRunner is a testify mock for Runner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, address string, limit int) (*ingest.Summary, error) {
	args := m.Called(ctx, address, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.Summary), args.Error(1)
}

func newTestActivities(runner Runner) *Activities {
	return NewActivities(runner, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestActivities_RunIngestion(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the pipeline summary", func(t *testing.T) {
		runner := &MockRunner{}
		summary := &ingest.Summary{RunID: "run-1", Address: testMarketAddress, Attempted: 2, Published: 2}
		runner.On("Run", mock.Anything, testMarketAddress, 10).Return(summary, nil)

		got, err := newTestActivities(runner).RunIngestion(ctx, RunIngestionInput{Address: testMarketAddress, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, summary, got)
		runner.AssertExpectations(t)
	})

	t.Run("resolution failure fails the activity", func(t *testing.T) {
		runner := &MockRunner{}
		runner.On("Run", mock.Anything, testMarketAddress, 10).
			Return(&ingest.Summary{Address: testMarketAddress}, fmt.Errorf("run x: %w", solana.ErrResolution))

		got, err := newTestActivities(runner).RunIngestion(ctx, RunIngestionInput{Address: testMarketAddress, Limit: 10})
		require.Error(t, err)
		assert.ErrorIs(t, err, solana.ErrResolution)
		assert.Nil(t, got)
	})

	t.Run("malformed address is not retried", func(t *testing.T) {
		runner := &MockRunner{}

		_, err := newTestActivities(runner).RunIngestion(ctx, RunIngestionInput{Address: "not-an-address", Limit: 10})
		require.Error(t, err)

		var appErr *temporalsdk.ApplicationError
		require.ErrorAs(t, err, &appErr)
		assert.True(t, appErr.NonRetryable())
		assert.Equal(t, "InvalidAddress", appErr.Type())
		runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestMockScheduler(t *testing.T) {
	ctx := context.Background()
	s := NewMockScheduler()

	input := IngestMarketInput{Address: testMarketAddress, Market: "SOL-USDC", Limit: 10}
	require.NoError(t, s.UpsertIngestSchedule(ctx, input, 30*time.Second))
	require.NoError(t, s.UpsertIngestSchedule(ctx, input, time.Minute))

	got, interval, ok := s.GetSchedule(testMarketAddress)
	require.True(t, ok)
	assert.Equal(t, input, got)
	assert.Equal(t, time.Minute, interval)
	assert.Equal(t, 1, s.ScheduleCount())

	require.NoError(t, s.DeleteIngestSchedule(ctx, testMarketAddress))
	assert.Error(t, s.DeleteIngestSchedule(ctx, testMarketAddress))
	assert.Equal(t, "ingest-market-"+testMarketAddress, ScheduleID(testMarketAddress))
}
