package predictor

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// MockSession is a Session that only accepts configured input shapes.
type MockSession struct {
	mu     sync.Mutex
	accept [][]int
	output []float32
	calls  [][]int
	closed bool
}

// NewMockSession creates a session accepting the given shapes and returning output.
func NewMockSession(output []float32, accept ...[]int) *MockSession {
	return &MockSession{accept: accept, output: output}
}

// Run returns the configured output when shape is accepted.
func (m *MockSession) Run(shape []int, input []float32) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.New("session closed")
	}
	m.calls = append(m.calls, slices.Clone(shape))

	for _, a := range m.accept {
		if slices.Equal(a, shape) {
			return slices.Clone(m.output), nil
		}
	}
	return nil, fmt.Errorf("unexpected input shape %v", shape)
}

// Close marks the session closed.
func (m *MockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns the shapes Run was called with.
func (m *MockSession) Calls() [][]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// Closed reports whether Close was called.
func (m *MockSession) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// OpenMock returns an OpenFunc that always yields session.
func OpenMock(session Session) OpenFunc {
	return func(string) (Session, error) {
		return session, nil
	}
}
