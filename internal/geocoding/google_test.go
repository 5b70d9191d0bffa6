package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, <-chan *url.URL) {
	t.Helper()
	captured := make(chan *url.URL, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case captured <- r.URL:
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestGoogleClient_ReverseOK(t *testing.T) {
	srv, urls := newTestServer(t, http.StatusOK, `{
		"status": "OK",
		"results": [
			{"formatted_address": "1600 Amphitheatre Pkwy, Mountain View, CA 94043, USA"},
			{"formatted_address": "Mountain View, CA, USA"}
		]
	}`)

	client := NewGoogleClient("test-key", srv.URL, time.Second)
	r, err := client.Reverse(context.Background(), 37.4224764, -122.0842499)
	require.NoError(t, err)

	assert.True(t, r.OK())
	assert.Equal(t, "1600 Amphitheatre Pkwy, Mountain View, CA 94043, USA", r.FormattedAddress)
	u := <-urls
	assert.Equal(t, "/maps/api/geocode/json", u.Path)
	assert.Equal(t, "37.422476,-122.084250", u.Query().Get("latlng"))
	assert.Equal(t, "test-key", u.Query().Get("key"))
}

func TestGoogleClient_ReverseNotOK(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"status": "ZERO_RESULTS", "results": []}`)

	r, err := NewGoogleClient("k", srv.URL, time.Second).Reverse(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.False(t, r.OK())
	assert.Equal(t, StatusZeroResults, r.Status)
}

func TestGoogleClient_OKWithoutResults(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"status": "OK", "results": []}`)

	r, err := NewGoogleClient("k", srv.URL, time.Second).Reverse(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusZeroResults, r.Status)
}

func TestGoogleClient_TransportErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusInternalServerError, `boom`)
		_, err := NewGoogleClient("k", srv.URL, time.Second).Reverse(context.Background(), 0, 0)
		assert.Error(t, err)
	})

	t.Run("bad json", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusOK, `{"status":`)
		_, err := NewGoogleClient("k", srv.URL, time.Second).Reverse(context.Background(), 0, 0)
		assert.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusOK, `{}`)
		srv.Close()
		_, err := NewGoogleClient("k", srv.URL, time.Second).Reverse(context.Background(), 0, 0)
		assert.Error(t, err)
	})
}

func TestGoogleClient_MissingKey(t *testing.T) {
	srv, urls := newTestServer(t, http.StatusOK, `{}`)

	r, err := NewGoogleClient("", srv.URL, time.Second).Reverse(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusRequestDenied, r.Status)
	assert.Empty(t, urls)
}
