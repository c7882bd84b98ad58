package detector

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

// scriptedTransport serves one canned status per round trip, repeating
// the last one, and remembers every body it handed out.
type scriptedTransport struct {
	statuses []int
	bodies   []*trackedBody
}

func (t *scriptedTransport) RoundTrip(*http.Request) (*http.Response, error) {
	status := t.statuses[0]
	if len(t.statuses) > 1 {
		t.statuses = t.statuses[1:]
	}
	body := &trackedBody{Reader: strings.NewReader("{}")}
	t.bodies = append(t.bodies, body)
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       body,
	}, nil
}

func TestResilientClient_ClosesSupersededResponses(t *testing.T) {
	cfg := DefaultResilientConfig("test-feed")
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 2 * time.Millisecond

	client := newResilientClient(cfg)
	transport := &scriptedTransport{statuses: []int{502, 503, 200}}
	client.httpClient = &http.Client{Transport: transport}

	req, err := http.NewRequest(http.MethodGet, "http://feed.local/detections", http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, transport.bodies, 3)
	assert.True(t, transport.bodies[0].closed, "first retried response must be closed")
	assert.True(t, transport.bodies[1].closed, "second retried response must be closed")
	assert.False(t, transport.bodies[2].closed, "caller owns the returned body")
}

func TestResilientClient_ExhaustedRetriesReturnLastResponse(t *testing.T) {
	cfg := DefaultResilientConfig("test-feed")
	cfg.MaxRetries = 2
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 2 * time.Millisecond

	client := newResilientClient(cfg)
	transport := &scriptedTransport{statuses: []int{500}}
	client.httpClient = &http.Client{Transport: transport}

	req, err := http.NewRequest(http.MethodGet, "http://feed.local/detections", http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	require.Len(t, transport.bodies, 3)
	for i, body := range transport.bodies[:len(transport.bodies)-1] {
		assert.True(t, body.closed, "superseded response %d must be closed", i)
	}
	assert.False(t, transport.bodies[len(transport.bodies)-1].closed)
}
