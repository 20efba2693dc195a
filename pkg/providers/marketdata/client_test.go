package marketdata

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote/AAPL", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ticker": "AAPL", "price": 231.5}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, slog.Default())

	price, err := client.Price(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.InEpsilon(t, 231.5, price, 1e-9)
}

func TestClientHistoricalClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/history/TSLA", r.URL.Path)
		assert.Equal(t, "1w", r.URL.Query().Get("lookback"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ticker": "TSLA", "close": 204.2}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, slog.Default())

	closePrice, err := client.HistoricalClose(context.Background(), "TSLA", "1w")

	require.NoError(t, err)
	assert.InEpsilon(t, 204.2, closePrice, 1e-9)
}

func TestClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, slog.Default())

	_, err := client.Price(context.Background(), "AAPL")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClientMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, slog.Default())

	_, err := client.Price(context.Background(), "AAPL")

	require.Error(t, err)
}
