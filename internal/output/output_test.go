package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	err := &Error{Code: CodeAPI, Message: "boom"}
	assert.Equal(t, "boom", err.Error())

	withHint := &Error{Code: CodeAuth, Message: "no credential", Hint: "Run: bkt auth login"}
	assert.Equal(t, "no credential: Run: bkt auth login", withHint.Error())
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{CodeUsage, ExitUsage},
		{CodeNotFound, ExitNotFound},
		{CodeAuth, ExitAuth},
		{CodeForbidden, ExitForbidden},
		{CodeRateLimit, ExitRateLimit},
		{CodeNetwork, ExitNetwork},
		{CodeAPI, ExitAPI},
		{"anything else", ExitAPI},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCodeFor(tt.code), "code %q", tt.code)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrNetwork(cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable)
}

func TestRateLimitHint(t *testing.T) {
	err := ErrRateLimit(42)
	assert.Contains(t, err.Error(), "42 seconds")
	assert.Equal(t, 42, err.RetryAfter)

	assert.Contains(t, ErrRateLimit(0).Error(), "later")
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	code := PrintError(&buf, ErrAuth("Not authenticated"))
	assert.Equal(t, ExitAuth, code)
	assert.Equal(t, "Error: Not authenticated: Run: bkt auth login\n", buf.String())

	buf.Reset()
	code = PrintError(&buf, errors.New("plain"))
	assert.Equal(t, ExitAPI, code)
	assert.Equal(t, "Error: plain\n", buf.String())
}
