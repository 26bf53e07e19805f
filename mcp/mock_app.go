package mcp

import (
	"context"
	"errors"
	"sync"
)

// MockCall records a method call for verification
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockSiftApp is a mock implementation of SiftApp for testing
type MockSiftApp struct {
	mu    sync.Mutex
	Calls []MockCall

	// Extraction
	ExtractResult *Result
	ExtractError  error

	// History
	History        bool
	ListRunsResult []RunSummary
	ListRunsError  error
	GetRunResult   *Result
	GetRunError    error

	// Utility
	AppVersion string
}

// NewMockSiftApp creates a new MockSiftApp with sensible defaults
func NewMockSiftApp() *MockSiftApp {
	return &MockSiftApp{
		Calls:          make([]MockCall, 0),
		AppVersion:     "1.0.0-test",
		ExtractResult:  SampleResult("-", "hello world!!"),
		ListRunsResult: []RunSummary{},
	}
}

// recordCall records a method call
func (m *MockSiftApp) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// GetCalls returns all recorded calls
func (m *MockSiftApp) GetCalls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall{}, m.Calls...)
}

// WasMethodCalled checks if a method was called
func (m *MockSiftApp) WasMethodCalled(method string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.Calls {
		if call.Method == method {
			return true
		}
	}
	return false
}

// GetLastCallByMethod returns the last call to a specific method
func (m *MockSiftApp) GetLastCallByMethod(method string) *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == method {
			return &m.Calls[i]
		}
	}
	return nil
}

func (m *MockSiftApp) GetAppVersion() string {
	m.recordCall("GetAppVersion")
	return m.AppVersion
}

func (m *MockSiftApp) Extract(ctx context.Context, req ExtractRequest) (*Result, error) {
	m.recordCall("Extract", req)
	return m.ExtractResult, m.ExtractError
}

func (m *MockSiftApp) HasHistory() bool {
	m.recordCall("HasHistory")
	return m.History
}

func (m *MockSiftApp) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	m.recordCall("ListRuns", limit)
	return m.ListRunsResult, m.ListRunsError
}

func (m *MockSiftApp) GetRun(ctx context.Context, id string) (*Result, error) {
	m.recordCall("GetRun", id)
	return m.GetRunResult, m.GetRunError
}

// SetupWithHistory enables history and sets the stored runs
func (m *MockSiftApp) SetupWithHistory(runs ...RunSummary) *MockSiftApp {
	m.History = true
	m.ListRunsResult = runs
	return m
}

// SetupWithError configures a specific method to return an error
func (m *MockSiftApp) SetupWithError(method string, err error) *MockSiftApp {
	switch method {
	case "Extract":
		m.ExtractError = err
	case "ListRuns":
		m.ListRunsError = err
	case "GetRun":
		m.GetRunError = err
	}
	return m
}

// ErrMockFailure is a generic error for tests
var ErrMockFailure = errors.New("mock failure")

// SampleResult returns a Result holding strs
func SampleResult(source string, strs ...string) *Result {
	if strs == nil {
		strs = []string{}
	}
	return &Result{
		ID:         "00000000-0000-4000-8000-000000000001",
		Source:     source,
		Format:     "raw",
		Mode:       "walk",
		Strings:    strs,
		Candidates: len(strs),
		Bytes:      64,
		CreatedAt:  1700000000000,
	}
}

// SampleRun returns a RunSummary for id
func SampleRun(id string) RunSummary {
	return RunSummary{
		ID:         id,
		Source:     "conv.pb",
		Format:     "raw",
		Mode:       "walk",
		Count:      3,
		Candidates: 9,
		Bytes:      512,
		CreatedAt:  1700000000000,
	}
}
