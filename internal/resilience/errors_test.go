package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"marked", Transient(errors.New("busy"), 503), true},
		{"wrapped", fmt.Errorf("census: %w", Transient(errors.New("busy"), 429)), true},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"message", errors.New("read tcp: i/o timeout"), true},
		{"permanent", errors.New("unknown variable P9_999N"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestStatusError(t *testing.T) {
	assert.True(t, IsTransient(StatusError(503, "https://api.census.gov/data", "")))
	assert.True(t, IsTransient(StatusError(429, "https://api.census.gov/data", "")))

	err := StatusError(400, "https://api.census.gov/data", "")
	assert.False(t, IsTransient(err))
	assert.Equal(t, "http 400 from https://api.census.gov/data", err.Error())

	err = StatusError(400, "https://api.census.gov/data", "error: unknown variable 'P1_001X'")
	assert.Equal(t, "http 400 from https://api.census.gov/data: error: unknown variable 'P1_001X'", err.Error())
}
