package checkout

import (
	"context"
	"sync"

	"github.com/fjod/go_checkout/domain"
)

// MockPort implements submission.Port for testing. Results are consumed as
// a queue, the last one repeating. OnSubmit runs inside the call, which
// lets tests mutate the cart while the submission is in flight. Started and
// Release turn the call into a blocking one for busy-state tests.
type MockPort struct {
	mu       sync.Mutex
	Results  []*domain.SubmissionResult
	Err      error
	Requests []*domain.SubmissionRequest

	OnSubmit func(req *domain.SubmissionRequest)
	Started  chan struct{}
	Release  chan struct{}
}

func (m *MockPort) Submit(ctx context.Context, req *domain.SubmissionRequest) (*domain.SubmissionResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.OnSubmit != nil {
		m.OnSubmit(req)
	}
	if m.Started != nil {
		m.Started <- struct{}{}
	}
	if m.Release != nil {
		select {
		case <-m.Release:
		case <-ctx.Done():
		}
	}

	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	result := m.Results[0]
	if len(m.Results) > 1 {
		m.Results = m.Results[1:]
	}
	return result, nil
}

func (m *MockPort) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockEvents captures published order events.
type MockEvents struct {
	mu           sync.Mutex
	OrderNumbers []string
	Err          error
}

func (m *MockEvents) OrderPlaced(_ context.Context, _ *domain.SubmissionRequest, orderNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrderNumbers = append(m.OrderNumbers, orderNumber)
	return m.Err
}
