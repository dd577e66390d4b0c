package temporal

import (
	"errors"
	"testing"
	"time"

	"github.com/brojonat/phoenix/service/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

const testMarketAddress = "4DoNfFBfF7UokCC2FQzriy7yHK6DY6NVdYpuekQ5pRgg"

func TestIngestMarketWorkflow(t *testing.T) {
	tests := []struct {
		name           string
		mockActivity   func(*testsuite.MockCallWrapper)
		expectedError  bool
		validateResult func(*testing.T, *IngestMarketResult)
	}{
		{
			name: "successful run",
			mockActivity: func(m *testsuite.MockCallWrapper) {
				m.Return(&ingest.Summary{
					RunID:               "run-1",
					Address:             testMarketAddress,
					Attempted:           3,
					Published:           2,
					Failed:              1,
					PublishedSignatures: []string{"sig1", "sig3"},
					Failures: []ingest.Failure{
						{Signature: "sig2", Stage: ingest.StageFetch, Kind: ingest.KindNotFound, Error: "transaction not found"},
					},
				}, nil)
			},
			validateResult: func(t *testing.T, result *IngestMarketResult) {
				assert.Equal(t, testMarketAddress, result.Address)
				assert.Equal(t, "SOL-USDC", result.Market)
				assert.Equal(t, "run-1", result.RunID)
				assert.Equal(t, 3, result.Attempted)
				assert.Equal(t, 2, result.Published)
				assert.Equal(t, 1, result.Failed)
				require.Len(t, result.Failures, 1)
				assert.Equal(t, ingest.KindNotFound, result.Failures[0].Kind)
				assert.Nil(t, result.Error)
			},
		},
		{
			name: "resolution failure fails the workflow",
			mockActivity: func(m *testsuite.MockCallWrapper) {
				m.Return(nil, errors.New("signature resolution failed: rpc unavailable"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testSuite := &testsuite.WorkflowTestSuite{}
			env := testSuite.NewTestWorkflowEnvironment()

			activities := &Activities{}
			env.RegisterActivity(activities.RunIngestion)
			tt.mockActivity(env.OnActivity(activities.RunIngestion, mock.Anything, mock.Anything))

			env.ExecuteWorkflow(IngestMarketWorkflow, IngestMarketInput{
				Address: testMarketAddress,
				Market:  "SOL-USDC",
				Limit:   10,
			})

			require.True(t, env.IsWorkflowCompleted())

			if tt.expectedError {
				assert.Error(t, env.GetWorkflowError())
				return
			}

			assert.NoError(t, env.GetWorkflowError())
			var result IngestMarketResult
			require.NoError(t, env.GetWorkflowResult(&result))
			tt.validateResult(t, &result)
		})
	}
}

func TestIngestMarketWorkflow_ActivityRetries(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	activities := &Activities{}
	env.RegisterActivity(activities.RunIngestion)

	callCount := 0
	env.OnActivity(activities.RunIngestion, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		callCount++
		if callCount < 3 {
			panic("transient error") // Temporal retries on panics
		}
	}).Return(&ingest.Summary{RunID: "run-3", Address: testMarketAddress, Attempted: 1, Published: 1}, nil)

	env.ExecuteWorkflow(IngestMarketWorkflow, IngestMarketInput{Address: testMarketAddress, Limit: 1})

	assert.NoError(t, env.GetWorkflowError())

	var result IngestMarketResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, 1, result.Published)
	assert.Equal(t, 3, callCount)
}

func TestIngestMarketWorkflow_CompletesWithoutTimers(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	activities := &Activities{}
	env.RegisterActivity(activities.RunIngestion)
	env.OnActivity(activities.RunIngestion, mock.Anything, mock.Anything).
		Return(&ingest.Summary{Address: testMarketAddress}, nil)

	startTime := env.Now()
	env.ExecuteWorkflow(IngestMarketWorkflow, IngestMarketInput{Address: testMarketAddress})

	assert.NoError(t, env.GetWorkflowError())
	assert.Less(t, env.Now().Sub(startTime), 30*time.Second)
}
