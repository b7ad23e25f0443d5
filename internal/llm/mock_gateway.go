package llm

import (
	"context"
	"sync"

	"github.com/raine/vendepro/internal/listing"
)

// MockGateway is a test double for Gateway.
// Each method can be overridden with a custom function.
// If not overridden, methods return sensible defaults.
// Thread-safe for use in concurrent tests.
type MockGateway struct {
	AnalyzeFunc func(ctx context.Context, image []byte, details listing.Details) (*listing.AnalysisResult, error)
	EnhanceFunc func(ctx context.Context, image []byte, instruction string) ([]byte, error)

	mu sync.Mutex

	// Calls tracks all method invocations for assertions
	Calls []MockCall
}

// MockCall records a method call for test assertions.
type MockCall struct {
	Method string
	Args   []any
}

// Ensure MockGateway implements Gateway
var _ Gateway = (*MockGateway)(nil)

func (m *MockGateway) Analyze(ctx context.Context, image []byte, details listing.Details) (*listing.AnalysisResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Analyze", Args: []any{image, details}})
	fn := m.AnalyzeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, image, details)
	}
	return &listing.AnalysisResult{FullAnalysis: FallbackAnalysis}, nil
}

func (m *MockGateway) Enhance(ctx context.Context, image []byte, instruction string) ([]byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Enhance", Args: []any{image, instruction}})
	fn := m.EnhanceFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, image, instruction)
	}
	return nil, nil
}

// CallCount returns how many times method was invoked.
func (m *MockGateway) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}
