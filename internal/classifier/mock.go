package classifier

import (
	"context"
	"sync"

	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// MockClient is a test Client. Responses and errors are keyed by normalized
// merchant; anything else gets Default. Every call is recorded.
type MockClient struct {
	Responses map[string]Response
	Errors    map[string]error
	// Hook, when set, runs before the lookup and may block or fail the call.
	Hook    func(ctx context.Context, req Request) error
	calls   []Request
	Default Response
	mu      sync.Mutex
}

// NewMockClient creates a mock that answers Others at 0.50 by default.
func NewMockClient() *MockClient {
	return &MockClient{
		Responses: make(map[string]Response),
		Errors:    make(map[string]error),
		Default: Response{
			CategoryID:      model.OthersCategoryID,
			CategoryName:    "Others",
			ConfidenceScore: 0.5,
		},
	}
}

// Categorize implements Client.
func (m *MockClient) Categorize(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	hook := m.Hook
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, req); err != nil {
			return Response{}, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.Errors[req.MerchantNormalized]; ok {
		return Response{}, err
	}
	if resp, ok := m.Responses[req.MerchantNormalized]; ok {
		return resp, nil
	}
	return m.Default, nil
}

// Calls returns a copy of the recorded requests.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times Categorize was called.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
