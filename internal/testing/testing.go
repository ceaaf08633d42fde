// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/ytrelay/internal/models"
	"github.com/desertthunder/ytrelay/internal/profiles"
)

// MockExtractor is a test double for [extractor.Extractor]. Results are keyed by target.
type MockExtractor struct {
	Results map[string]*models.Info
	Err     error

	mu       sync.Mutex
	targets  []string
	profiles []profiles.OptionProfile
}

func (m *MockExtractor) Extract(ctx context.Context, target string, p profiles.OptionProfile) (*models.Info, error) {
	m.mu.Lock()
	m.targets = append(m.targets, target)
	m.profiles = append(m.profiles, p)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, ok := m.Results[target]
	if !ok {
		return nil, errors.New("mock: no result for " + target)
	}
	return info, nil
}

func (m *MockExtractor) Name() string { return "mock" }

// Targets returns every target passed to Extract, in call order.
func (m *MockExtractor) Targets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.targets...)
}

// LastProfile returns the profile passed to the most recent Extract call.
func (m *MockExtractor) LastProfile() profiles.OptionProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.profiles) == 0 {
		return profiles.OptionProfile{}
	}
	return m.profiles[len(m.profiles)-1]
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
	requests []*http.Request
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	return m.response, m.err
}

// Requests returns the requests seen so far.
func (m *MockRoundTripper) Requests() []*http.Request {
	return m.requests
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// TrackingBody is a response body that records whether it was closed.
type TrackingBody struct {
	io.Reader

	mu     sync.Mutex
	closed bool
}

func NewTrackingBody(r io.Reader) *TrackingBody {
	return &TrackingBody{Reader: r}
}

func (b *TrackingBody) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func (b *TrackingBody) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func StrPtr(s string) *string { return &s }

func FloatPtr(f float64) *float64 { return &f }

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
