package risk

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scores", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"general": 62.5,
			"large_cap": 71.0,
			"ema": 80.0,
			"combined": 66.0,
			"spy_price": 560.2,
			"vix_price": 18.4
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, slog.Default())

	scores, err := client.Scores(context.Background())

	require.NoError(t, err)
	assert.InEpsilon(t, 62.5, scores.General, 1e-9)
	assert.InEpsilon(t, 71.0, scores.LargeCap, 1e-9)
	assert.InEpsilon(t, 18.4, scores.VIXPrice, 1e-9)
}

func TestClientCachesScores(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"general": 50}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, slog.Default())

	_, err := client.Scores(context.Background())
	require.NoError(t, err)

	_, err = client.Scores(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load())
}

func TestClientErrorNotCached(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, slog.Default())

	_, err := client.Scores(context.Background())
	require.Error(t, err)

	_, err = client.Scores(context.Background())
	require.Error(t, err)

	assert.Equal(t, int64(2), calls.Load())
}
