package discovery

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMXError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			"nxdomain",
			&net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true},
			ErrDomainNotFound,
		},
		{
			"timeout",
			&net.DNSError{Err: "i/o timeout", Name: "slow.example", IsTimeout: true},
			ErrDNSFailure,
		},
		{
			"temporary",
			&net.DNSError{Err: "server misbehaving", Name: "flaky.example", IsTemporary: true},
			ErrDNSFailure,
		},
		{
			// A timeout that also reads as not-found is still transient.
			"timeout wins over not-found",
			&net.DNSError{Err: "i/o timeout", Name: "x.example", IsTimeout: true, IsNotFound: true},
			ErrDNSFailure,
		},
		{
			"non-dns error",
			errors.New("socket exhaustion"),
			ErrDNSFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyMXError("example.com", tt.err), tt.want)
		})
	}
}

func TestNewNetResolverDefaults(t *testing.T) {
	r := NewNetResolver(0)
	assert.Greater(t, int64(r.Timeout), int64(0))
}
