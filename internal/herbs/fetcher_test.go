package herbs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const errorPage = `<!DOCTYPE html><html><body><h1>404 Not Found</h1></body></html>`

func jsonServer(t *testing.T, payload string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func htmlServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(errorPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcherRequiresURLs(t *testing.T) {
	_, err := NewFetcher(nil)
	require.Error(t, err)

	_, err = NewFetcher([]string{"  "})
	require.Error(t, err)
}

func TestFetcherSendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(samplePayload))
	}))
	t.Cleanup(srv.Close)

	f, err := NewFetcher([]string{srv.URL})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Osanyin-Herbal-Remedy/1.0", gotUA)
}

func TestFetcherAcceptsValidPayload(t *testing.T) {
	srv := jsonServer(t, samplePayload, nil)

	f, err := NewFetcher([]string{srv.URL})
	require.NoError(t, err)

	body, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte(samplePayload), body)
	require.Equal(t, 0, f.FallbackIndex())
}

func TestFetcherFallbackLadder(t *testing.T) {
	bad1 := htmlServer(t)
	bad2 := htmlServer(t)
	good := jsonServer(t, samplePayload, nil)

	f, err := NewFetcher([]string{bad1.URL, bad2.URL, good.URL})
	require.NoError(t, err)

	body, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte(samplePayload), body)
	require.Equal(t, 2, f.FallbackIndex())
}

func TestFetcherFallbackIndexIsSticky(t *testing.T) {
	bad := htmlServer(t)
	var hits atomic.Int64
	good := jsonServer(t, samplePayload, &hits)

	f, err := NewFetcher([]string{bad.URL, good.URL})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, f.FallbackIndex())

	// A second fetch starts from the advanced index, not the first URL.
	_, err = f.Fetch(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, hits.Load())

	f.ResetFallback()
	require.Equal(t, 0, f.FallbackIndex())
}

func TestFetcherExhaustsLadder(t *testing.T) {
	bad1 := htmlServer(t)
	bad2 := htmlServer(t)

	f, err := NewFetcher([]string{bad1.URL, bad2.URL})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	require.Error(t, err)

	var rejected *ContentRejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, 2, rejected.Attempts)
	require.Equal(t, 1, f.FallbackIndex())
}

func TestFetcherTransportErrorDoesNotAdvance(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close() // connection refused from now on
	good := jsonServer(t, samplePayload, nil)

	f, err := NewFetcher([]string{dead.URL, good.URL})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	require.Error(t, err)

	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	require.Equal(t, 0, f.FallbackIndex())
}

func TestContentRejectedHeuristic(t *testing.T) {
	require.False(t, contentRejected([]byte(`{"herbs":[]}`)))
	require.False(t, contentRejected([]byte("  \n  {\"herbs\":[]}")))
	require.True(t, contentRejected([]byte(errorPage)))
	require.True(t, contentRejected([]byte("404: Not Found")))
	require.True(t, contentRejected([]byte("<!doctype html>")))
	// Non-JSON without error markers is left for the decoder to reject.
	require.False(t, contentRejected([]byte("plain text")))
}
