package notion

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport replays a fixed sequence of responses, one per call,
// grounded on the teacher's client_test.go fake-transport pattern.
type scriptedTransport struct {
	mu        sync.Mutex
	responses []*http.Response
	calls     int
}

func (t *scriptedTransport) Do(_ *http.Request) (*http.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	resp := t.responses[t.calls]
	t.calls++

	return resp, nil
}

func jsonResp(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestClientRetriesThrottleThenSucceeds(t *testing.T) {
	transport := &scriptedTransport{responses: []*http.Response{
		jsonResp(http.StatusTooManyRequests, ""),
		jsonResp(http.StatusTooManyRequests, ""),
		jsonResp(http.StatusOK, `{"id":"page-1"}`),
	}}

	var sleeps []time.Duration

	c := &client{
		baseURL:    "https://example.test",
		httpClient: transport,
		token:      StaticToken("tok"),
		limiter:    NewLimiter(1, time.Millisecond),
		logger:     discardLogger(),
		sleepFunc: func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		},
	}

	id, err := c.Create(context.Background(), "parent-1", KindLeaf, "Notes", nil)
	require.NoError(t, err)
	assert.Equal(t, "page-1", id)
	assert.Equal(t, 3, transport.calls)

	require.Len(t, sleeps, 2)
	assertWithinJitter(t, sleeps[0], 1*time.Second)
	assertWithinJitter(t, sleeps[1], 2*time.Second)
}

func TestClientFailsImmediatelyOnNotFound(t *testing.T) {
	transport := &scriptedTransport{responses: []*http.Response{
		jsonResp(http.StatusNotFound, `{}`),
	}}

	c := &client{
		baseURL:    "https://example.test",
		httpClient: transport,
		token:      StaticToken("tok"),
		limiter:    NewLimiter(1, time.Millisecond),
		logger:     discardLogger(),
		sleepFunc: func(context.Context, time.Duration) error {
			t.Fatal("should not sleep on a non-retryable status")
			return nil
		},
	}

	_, err := c.FetchContent(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, 1, transport.calls)
}

func assertWithinJitter(t *testing.T, got, want time.Duration) {
	t.Helper()

	low := time.Duration(float64(want) * 0.75)
	high := time.Duration(float64(want) * 1.25)
	assert.GreaterOrEqual(t, got, low)
	assert.LessOrEqual(t, got, high)
}
