package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		DialTimeout:     5 * time.Second,
		TCPKeepalive:    5 * time.Second,
		IdleConnTimeout: 30 * time.Second,
		MaxIdleConns:    10,
		HTTP2:           true,
	}
}

func TestClientFunc(t *testing.T) {
	var got *http.Request
	client := ClientFunc(func(req *http.Request) (*http.Response, error) {
		got = req
		return nil, fmt.Errorf("nope")
	})

	req, err := http.NewRequest(http.MethodGet, "https://example.com/", nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	assert.Error(t, err)
	assert.Same(t, req, got)
}

func TestPooledClient_Roundtrip(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Probe", "yes")
		fmt.Fprint(w, "hello")
	}))
	defer ts.Close()

	client := New(testOptions())
	defer client.CloseIdleConnections()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "yes", resp.Header.Get("X-Probe"))
	assert.Equal(t, "hello", string(body))
}

func TestPooledClient_DoesNotFollowRedirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/moved" {
			http.Redirect(w, r, "/target", http.StatusFound)
			return
		}
		fmt.Fprint(w, "target")
	}))
	defer ts.Close()

	client := New(testOptions())
	defer client.CloseIdleConnections()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/moved", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode, "redirects surface as 3xx successes")
	assert.Equal(t, "/target", resp.Header.Get("Location"))
}

func TestPooledClient_TransportError(t *testing.T) {
	client := New(Options{DialTimeout: 200 * time.Millisecond})

	// A port nothing listens on: the transport error must surface as an
	// error, not as a response.
	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1:1/", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	assert.Error(t, err)
	assert.Nil(t, resp)
}
