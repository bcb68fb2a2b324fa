package multiplexer

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegFailure_Render(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		kind failureKind
		want string
	}{
		{"request invalid", failureRequestInvalid, "the request was invalid: boom"},
		{"request failure", failureRequest, "the request failed: boom"},
		{"response failure", failureResponse, "failure during response: boom"},
		{"timeout", failureTimeout, "timeout elapsed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := legFailure{kind: tt.kind, err: cause}
			assert.Equal(t, tt.want, f.render())
		})
	}
}

func TestFailed_InvalidRequestDurationIsZero(t *testing.T) {
	res := failed(failureRequestInvalid, errors.New("bad uri"), 42*time.Millisecond)
	require.NotNil(t, res.failure)
	assert.Equal(t, time.Duration(0), res.failure.duration)
}

func TestAggregate(t *testing.T) {
	headers := http.Header{
		"Content-Type": []string{"text/plain"},
		"Set-Cookie":   []string{"a=1", "b=2"},
	}

	results := []legResult{
		succeeded(200, headers, "hello", 120*time.Millisecond),
		failed(failureTimeout, errors.New("deadline"), 25*time.Millisecond),
		failed(failureRequestInvalid, errors.New("bad uri"), 0),
	}

	resp := aggregate(results)
	require.Len(t, resp.Responses, len(results))

	success := resp.Responses[0].Success
	require.NotNil(t, success)
	assert.Equal(t, 200, success.Status)
	assert.Equal(t, "hello", *success.Content)
	assert.Equal(t, int64(120), success.DurationMsec)
	assert.Equal(t, "text/plain", success.Headers["Content-Type"])
	assert.Equal(t, "b=2", success.Headers["Set-Cookie"], "repeated headers keep the last value")

	timeout := resp.Responses[1].Failure
	require.NotNil(t, timeout)
	assert.Equal(t, "timeout elapsed", timeout.Error)
	assert.Equal(t, int64(25), timeout.DurationMsec)

	invalid := resp.Responses[2].Failure
	require.NotNil(t, invalid)
	assert.Equal(t, int64(0), invalid.DurationMsec)
}

func TestSinceSaturating_NeverNegative(t *testing.T) {
	future := time.Now().Add(time.Hour)
	assert.Equal(t, time.Duration(0), sinceSaturating(future))
}
