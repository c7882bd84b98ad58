package detector

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Errors for resilient feed calls.
var (
	// ErrFeedUnavailable is returned when the circuit breaker is open.
	ErrFeedUnavailable = errors.New("detection feed unavailable")
)

// ResilientConfig tunes the retry and circuit breaker behavior of the
// feed client.
type ResilientConfig struct {
	// Name identifies the feed for circuit breaker naming.
	Name string

	// Timeout is the per-request timeout. Default: 10 seconds.
	Timeout time.Duration

	// MaxRetries bounds retry attempts per call. Default: 3.
	MaxRetries uint64

	// InitialInterval is the first retry backoff. Default: 200ms.
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff. Default: 5 seconds.
	MaxInterval time.Duration

	// BreakerTimeout is how long an open circuit stays open before
	// probing again. Default: 60 seconds.
	BreakerTimeout time.Duration

	// OnStateChange is called when the circuit breaker changes state.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultResilientConfig returns the default feed client tuning.
func DefaultResilientConfig(name string) ResilientConfig {
	return ResilientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		BreakerTimeout:  60 * time.Second,
	}
}

// resilientClient wraps an http.Client with a circuit breaker and
// exponential-backoff retries. Transient failures (network errors, 5xx)
// retry; an open circuit fails fast with ErrFeedUnavailable.
type resilientClient struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	cfg        ResilientConfig
}

func newResilientClient(cfg ResilientConfig) *resilientClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = cfg.OnStateChange
	}

	return &resilientClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    gobreaker.NewCircuitBreaker[*http.Response](settings), //nolint:bodyclose // type param, not response
		cfg:        cfg,
	}
}

// Do executes the request with breaker protection and retries. The caller
// owns the returned response body.
func (c *resilientClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0 // retries bounded by WithMaxRetries

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var lastResp *http.Response

	operation := func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			r, err := c.httpClient.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			// 5xx responses count against the breaker and are retried.
			if r.StatusCode >= 500 {
				return r, &serverError{statusCode: r.StatusCode}
			}
			return r, nil
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrFeedUnavailable)
			}
			if resp != nil {
				discardResponse(lastResp)
				lastResp = resp
			}
			return err
		}

		discardResponse(lastResp)
		lastResp = resp
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		if lastResp != nil {
			return lastResp, nil
		}
		return nil, err
	}
	return lastResp, nil
}

// BreakerState exposes the circuit state for readiness reporting.
func (c *resilientClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// discardResponse drains and closes a superseded response body so the
// underlying connection can be reused.
func discardResponse(resp *http.Response) {
	if resp == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

type serverError struct {
	statusCode int
}

func (e *serverError) Error() string {
	return "server error: " + http.StatusText(e.statusCode)
}
