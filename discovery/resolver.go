// discovery/resolver.go
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// MX lookup failure classes. The three are deliberately distinct: a missing
// record set or a missing domain is a statement about the domain, while a
// resolver failure only means we could not find out.
var (
	ErrNoMXRecords    = errors.New("domain has no MX records")
	ErrDomainNotFound = errors.New("domain does not exist")
	ErrDNSFailure     = errors.New("DNS lookup failed")
)

// MXResolver resolves the primary mail exchanger for a domain.
type MXResolver interface {
	LookupPrimaryMX(ctx context.Context, domain string) (string, error)
}

// NetResolver is the production MXResolver backed by the system resolver.
type NetResolver struct {
	Timeout  time.Duration
	resolver net.Resolver
}

// NewNetResolver returns a resolver with the given per-lookup timeout.
func NewNetResolver(timeout time.Duration) *NetResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NetResolver{Timeout: timeout}
}

// LookupPrimaryMX returns the highest-priority exchange hostname with the
// trailing dot stripped. net.Resolver already returns records sorted by
// preference.
func (r *NetResolver) LookupPrimaryMX(ctx context.Context, domain string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	records, err := r.resolver.LookupMX(ctx, domain)
	if err != nil {
		classified := classifyMXError(domain, err)
		if errors.Is(classified, ErrDomainNotFound) {
			// The stdlib reports NXDOMAIN and an empty MX answer the same
			// way, so check whether the name resolves at all before calling
			// the domain dead.
			if addrs, hostErr := r.resolver.LookupHost(ctx, domain); hostErr == nil && len(addrs) > 0 {
				return "", fmt.Errorf("%w: %s", ErrNoMXRecords, domain)
			}
		}
		return "", classified
	}
	if len(records) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoMXRecords, domain)
	}
	return strings.TrimSuffix(records[0].Host, "."), nil
}

func classifyMXError(domain string, err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout || dnsErr.IsTemporary {
			return fmt.Errorf("%w: %v", ErrDNSFailure, err)
		}
		if dnsErr.IsNotFound {
			return fmt.Errorf("%w: %s", ErrDomainNotFound, domain)
		}
	}
	return fmt.Errorf("%w: %v", ErrDNSFailure, err)
}
