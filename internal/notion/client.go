package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// DefaultBaseURL is the production remote document service endpoint.
const DefaultBaseURL = "https://api.notion.com/v1"

// Retry schedule, grounded on the teacher's graph/client.go constants but
// with spec.md's own numbers: base 1s, factor 2, max 64s (teacher used 60s),
// ±25% jitter, up to 5 retries after the first attempt.
const (
	maxRetries     = 5
	baseBackoff    = 1 * time.Second
	maxBackoff     = 64 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
	userAgent      = "pagesync/0.1"
)

// TokenSource provides the bearer token used to authenticate every request.
// Defined at the consumer per "accept interfaces, return structs" (teacher's
// graph.TokenSource doc comment) — StaticToken below is the static
// implementation; the request path only depends on the interface.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource over a fixed bearer token, the only auth mode
// spec.md §6.4 requires (no OAuth device-code flow: the remote document
// service is addressed with a long-lived integration token supplied via
// --token or PAGESYNC_API_TOKEN).
type StaticToken string

func (s StaticToken) Token() (string, error) { return string(s), nil }

// httpClient is the HTTP transport client implements against. *http.Client
// satisfies it; tests substitute a fake to script responses.
type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// client is the rate-limited, retrying HTTP client backing the Client
// interface's FetchTree/FetchContent/Create/Update/Delete/FindByTitle
// methods (pages.go). Grounded on the teacher's graph.Client: request
// construction, authentication, retry-with-backoff, and error
// classification, generalized from OAuth2 bearer refresh to a static token.
type client struct {
	baseURL    string
	httpClient httpClient
	token      TokenSource
	limiter    *Limiter
	logger     *slog.Logger

	// sleepFunc is the backoff wait seam; tests override it to assert the
	// retry schedule without real delays (spec.md §8 scenario 6).
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient builds the remote client. httpClient defaults to
// http.DefaultClient if nil; limiter defaults to spec.md §4.3's defaults if
// nil.
func NewClient(baseURL string, hc httpClient, token TokenSource, limiter *Limiter, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}

	if hc == nil {
		hc = http.DefaultClient
	}

	if limiter == nil {
		limiter = NewLimiter(0, 0)
	}

	return &client{
		baseURL:    baseURL,
		httpClient: hc,
		token:      token,
		limiter:    limiter,
		logger:     logger,
		sleepFunc:  timeSleep,
	}
}

// do executes one authenticated request with the full rate-limit + retry
// discipline: acquire the shared Limiter, then retry transient failures
// with exponential backoff, exactly as the teacher's doRetry does for
// non-5xx/non-429 responses (those fail immediately).
func (c *client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	release, err := c.limiter.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("notion: %w", err)
	}
	defer release()

	var attempt int

	for {
		resp, err := c.doOnce(ctx, method, path, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("notion: request canceled: %w", ctx.Err())
			}

			if attempt >= maxRetries {
				return nil, fmt.Errorf("%w: %s %s failed after %d retries: %w", ErrTransport, method, path, maxRetries, err)
			}

			backoff := c.calcBackoff(attempt)
			c.logger.Warn("retrying after transport error",
				slog.String("method", method), slog.String("path", path),
				slog.Int("attempt", attempt+1), slog.Duration("backoff", backoff))

			if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
				return nil, fmt.Errorf("notion: request canceled: %w", sleepErr)
			}

			attempt++

			continue
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return resp, nil
		}

		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		reqID := resp.Header.Get("request-id")

		if isRetryable(resp.StatusCode) && attempt < maxRetries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("method", method), slog.String("path", path),
				slog.Int("status", resp.StatusCode), slog.Int("attempt", attempt+1), slog.Duration("backoff", backoff))

			if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
				return nil, fmt.Errorf("notion: request canceled: %w", sleepErr)
			}

			attempt++

			continue
		}

		return nil, &NotionError{StatusCode: resp.StatusCode, RequestID: reqID, Message: string(errBody), Err: classifyStatus(resp.StatusCode)}
	}
}

func (c *client) doOnce(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// retryBackoff honors Retry-After on throttled responses, same precedence
// rule as the teacher's client.go (the server's stated wait wins over the
// computed schedule).
func (c *client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter, matching
// spec.md §4.3's schedule exactly (base 1s, factor 2, cap 64s).
func (c *client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1)
	backoff += jitter

	return time.Duration(backoff)
}

func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return nil
}
