package imagestudio

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmissionError_Message(t *testing.T) {
	err := &AdmissionError{Wait: 1300 * time.Millisecond}
	assert.Equal(t, "Please wait 1.3 seconds before next request", err.Error())

	wrapped := fmt.Errorf("generate: %w", err)
	got, ok := AsAdmissionError(wrapped)
	require.True(t, ok)
	assert.Equal(t, err.Wait, got.Wait)

	_, ok = AsAdmissionError(errors.New("other"))
	assert.False(t, ok)
}

func TestClassifyRemoteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "429", err: errors.New("Error 429: Too Many Requests"), want: "rate"},
		{name: "quota", err: errors.New("QUOTA exceeded"), want: "rate"},
		{name: "rate limit", err: errors.New("hit the rate limit"), want: "rate"},
		{name: "500", err: errors.New("status 500"), want: "upstream"},
		{name: "INTERNAL", err: errors.New("INTERNAL error occurred"), want: "upstream"},
		{name: "lowercase internal is not upstream", err: errors.New("internal thing"), want: "remote"},
		{name: "other", err: errors.New("permission denied"), want: "remote"},
		{name: "cancelled", err: context.Canceled, want: "remote"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyRemoteError(tt.err, "m")
			require.Error(t, got)
			assert.ErrorIs(t, got, tt.err)

			var rem *RemoteError
			switch tt.want {
			case "rate":
				assert.True(t, IsRateLimitError(got))
			case "upstream":
				assert.True(t, IsUpstreamError(got))
			case "remote":
				assert.ErrorAs(t, got, &rem)
			}
		})
	}
}

func TestClassifyRemoteError_PassThrough(t *testing.T) {
	assert.NoError(t, ClassifyRemoteError(nil, "m"))

	rl := &RateLimitError{Model: "m", Err: errors.New("500 but already classified")}
	assert.Same(t, rl, ClassifyRemoteError(rl, "m"))

	up := &UpstreamError{Model: "m", Err: errors.New("quota")}
	assert.Same(t, up, ClassifyRemoteError(up, "m"))
}

func TestRemoteError_MessageIsUnderlying(t *testing.T) {
	err := ClassifyRemoteError(errors.New("bad request"), "m")
	assert.Equal(t, "bad request", err.Error())
}
