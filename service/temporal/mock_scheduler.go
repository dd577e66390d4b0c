package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type mockSchedule struct {
	input    IngestMarketInput
	interval time.Duration
}

// MockScheduler is a mock implementation of Scheduler for testing.
type MockScheduler struct {
	mu        sync.Mutex
	schedules map[string]mockSchedule // keyed by schedule ID
	createErr error
	deleteErr error
}

// NewMockScheduler creates a new MockScheduler.
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{
		schedules: make(map[string]mockSchedule),
	}
}

// UpsertIngestSchedule creates or updates a schedule.
func (m *MockScheduler) UpsertIngestSchedule(ctx context.Context, input IngestMarketInput, interval time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	m.schedules[ScheduleID(input.Address)] = mockSchedule{input: input, interval: interval}
	return nil
}

// DeleteIngestSchedule records that a schedule was deleted.
func (m *MockScheduler) DeleteIngestSchedule(ctx context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteErr != nil {
		return m.deleteErr
	}
	id := ScheduleID(address)
	if _, exists := m.schedules[id]; !exists {
		return fmt.Errorf("schedule %q not found", id)
	}
	delete(m.schedules, id)
	return nil
}

// SetCreateError makes UpsertIngestSchedule return an error.
func (m *MockScheduler) SetCreateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr = err
}

// SetDeleteError makes DeleteIngestSchedule return an error.
func (m *MockScheduler) SetDeleteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
}

// GetSchedule returns the input and interval scheduled for an address.
func (m *MockScheduler) GetSchedule(address string) (IngestMarketInput, time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[ScheduleID(address)]
	return s.input, s.interval, ok
}

// ScheduleCount returns the number of schedules.
func (m *MockScheduler) ScheduleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.schedules)
}
