package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRequest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"value": "ok"}`)
	}))
	defer ts.Close()

	var resp struct {
		Value string `json:"value"`
	}
	err := SendRequest(context.Background(), ts.Client(), "POST", ts.URL,
		map[string]string{"Authorization": "Bearer token"},
		map[string]string{"k": "v"}, &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Value)
}

func TestSendRequest_NonOKBecomesUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "slow down"}`, http.StatusTooManyRequests)
	}))
	defer ts.Close()

	err := SendRequest(context.Background(), ts.Client(), "POST", ts.URL, nil, nil, nil)
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.True(t, upstream.Transient())
}

func TestStreamRequest_FeedsNonEmptyLines(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		fmt.Fprint(w, "data: one\n\ndata: two\n\n")
	}))
	defer ts.Close()

	var lines []string
	err := StreamRequest(context.Background(), ts.Client(), "POST", ts.URL, nil, nil, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"data: one", "data: two"}, lines)
}

func TestStreamRequest_ProcessorErrorStopsStream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: one\ndata: two\n")
	}))
	defer ts.Close()

	boom := errors.New("boom")
	count := 0
	err := StreamRequest(context.Background(), ts.Client(), "POST", ts.URL, nil, nil, func(line string) error {
		count++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, count)
}

func TestTransientClassification(t *testing.T) {
	assert.True(t, (&UpstreamError{StatusCode: 500}).Transient())
	assert.True(t, (&UpstreamError{StatusCode: 503}).Transient())
	assert.True(t, (&UpstreamError{StatusCode: 408}).Transient())
	assert.False(t, (&UpstreamError{StatusCode: 401}).Transient())
	assert.False(t, (&UpstreamError{StatusCode: 404}).Transient())
}
