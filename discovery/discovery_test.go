package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver records lookups and serves canned answers.
type fakeResolver struct {
	mu    sync.Mutex
	calls int
	host  string
	err   error
}

func (f *fakeResolver) LookupPrimaryMX(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.host, f.err
}

// fakeProber records probed addresses and answers from a per-address script.
type fakeProber struct {
	mu       sync.Mutex
	calls    int
	outcomes map[string]Outcome
	fallback Outcome
}

func (f *fakeProber) Probe(_ context.Context, address, _ string) Outcome {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if outcome, ok := f.outcomes[address]; ok {
		return outcome
	}
	return f.fallback
}

func newTestService(resolver MXResolver, prober Prober) *Service {
	return NewService(resolver, prober, DefaultPolicy(), log.New(io.Discard, "", 0), 4)
}

func TestDiscoverHappyPath(t *testing.T) {
	resolver := &fakeResolver{host: "mx1.acme.com"}
	prober := &fakeProber{
		outcomes: map[string]Outcome{
			"john.doe@acme.com": {Classification: Accepted, Code: 250},
		},
		fallback: Outcome{Classification: Rejected, Code: 550},
	}
	svc := newTestService(resolver, prober)

	result, err := svc.Discover(context.Background(), "john", "doe", "acme.com", true)
	require.NoError(t, err)
	require.NotNil(t, result.BestMatch)

	assert.Equal(t, "john.doe@acme.com", result.BestMatch.Email)
	assert.Equal(t, 0.9, result.BestMatch.Confidence)
	require.NotNil(t, result.BestMatch.Valid)
	assert.True(t, *result.BestMatch.Valid)
	assert.Equal(t, "SMTP verified (250)", result.BestMatch.Reason)
	assert.Equal(t, 7, result.TotalFound)
}

func TestDiscoverNoMXRecords(t *testing.T) {
	resolver := &fakeResolver{err: fmt.Errorf("lookup: %w", ErrNoMXRecords)}
	prober := &fakeProber{}
	svc := newTestService(resolver, prober)

	result, err := svc.Discover(context.Background(), "john", "doe", "acme.com", true)
	require.NoError(t, err)

	for _, c := range result.Candidates {
		assert.LessOrEqual(t, c.Confidence, 0.2)
	}
	require.NotNil(t, result.BestMatch)
	require.NotNil(t, result.BestMatch.Valid)
	assert.False(t, *result.BestMatch.Valid)
	// No exchanger means nothing to probe.
	assert.Equal(t, 0, prober.calls)
}

func TestDiscoverUnverifiedSkipsNetwork(t *testing.T) {
	resolver := &fakeResolver{host: "mx1.acme.com"}
	prober := &fakeProber{fallback: Outcome{Classification: Accepted, Code: 250}}
	svc := newTestService(resolver, prober)

	result, err := svc.Discover(context.Background(), "john", "doe", "acme.com", false)
	require.NoError(t, err)

	assert.Equal(t, 0, resolver.calls)
	assert.Equal(t, 0, prober.calls)
	for _, c := range result.Candidates {
		assert.Equal(t, 0.5, c.Confidence)
		assert.Nil(t, c.Valid)
		assert.Equal(t, "Pattern generated", c.Reason)
	}
}

func TestDiscoverGreylisted(t *testing.T) {
	resolver := &fakeResolver{host: "mx1.acme.com"}
	prober := &fakeProber{fallback: Outcome{Classification: Greylisted, Code: 451}}
	svc := newTestService(resolver, prober)

	result, err := svc.Discover(context.Background(), "john", "doe", "acme.com", true)
	require.NoError(t, err)
	require.NotNil(t, result.BestMatch)

	assert.Equal(t, 0.5, result.BestMatch.Confidence)
	assert.Nil(t, result.BestMatch.Valid)
	assert.Contains(t, result.BestMatch.Reason, "Greylisted (451)")
}

func TestDiscoverStableSortKeepsGenerationOrderOnTies(t *testing.T) {
	resolver := &fakeResolver{host: "mx1.acme.com"}
	// Every probe answers the same, so all seven candidates tie and the
	// ranked order must equal the generation order.
	prober := &fakeProber{fallback: Outcome{Classification: Greylisted, Code: 451}}
	svc := newTestService(resolver, prober)

	result, err := svc.Discover(context.Background(), "john", "doe", "acme.com", true)
	require.NoError(t, err)

	generated := GenerateCandidates("john", "doe", "acme.com")
	require.Len(t, result.Candidates, len(generated))
	for i, c := range result.Candidates {
		assert.Equal(t, generated[i].Address, c.Email)
	}
}

func TestDiscoverRankingDescending(t *testing.T) {
	resolver := &fakeResolver{host: "mx1.acme.com"}
	prober := &fakeProber{
		outcomes: map[string]Outcome{
			"john@acme.com":     {Classification: Accepted, Code: 250},
			"john_doe@acme.com": {Classification: Greylisted, Code: 451},
		},
		fallback: Outcome{Classification: Rejected, Code: 550},
	}
	svc := newTestService(resolver, prober)

	result, err := svc.Discover(context.Background(), "john", "doe", "acme.com", true)
	require.NoError(t, err)

	for i := 1; i < len(result.Candidates); i++ {
		assert.GreaterOrEqual(t, result.Candidates[i-1].Confidence, result.Candidates[i].Confidence)
	}
	assert.Equal(t, "john@acme.com", result.Candidates[0].Email)
	assert.Equal(t, "john_doe@acme.com", result.Candidates[1].Email)
}

func TestDiscoverMXLookupMemoisedPerCall(t *testing.T) {
	resolver := &fakeResolver{host: "mx1.acme.com"}
	prober := &fakeProber{fallback: Outcome{Classification: Rejected, Code: 550}}
	svc := newTestService(resolver, prober)

	_, err := svc.Discover(context.Background(), "john", "doe", "acme.com", true)
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.calls)

	// A second call resolves again: nothing is cached across calls.
	_, err = svc.Discover(context.Background(), "john", "doe", "acme.com", true)
	require.NoError(t, err)
	assert.Equal(t, 2, resolver.calls)
}

func TestDiscoverInputErrors(t *testing.T) {
	svc := newTestService(&fakeResolver{}, &fakeProber{})

	_, err := svc.Discover(context.Background(), "", "doe", "acme.com", false)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Discover(context.Background(), "john", "doe", "nodots", false)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Discover(context.Background(), "john", "doe", "", false)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDiscoverEmptyLastNameStillRuns(t *testing.T) {
	resolver := &fakeResolver{host: "mx1.acme.com"}
	prober := &fakeProber{fallback: Outcome{Classification: Accepted, Code: 250}}
	svc := newTestService(resolver, prober)

	result, err := svc.Discover(context.Background(), "madonna", "", "acme.com", true)
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalFound)
	assert.Equal(t, "madonna@acme.com", result.BestMatch.Email)
}

func TestDiscoverDNSFailureIsInconclusive(t *testing.T) {
	resolver := &fakeResolver{err: fmt.Errorf("lookup: %w", ErrDNSFailure)}
	svc := newTestService(resolver, &fakeProber{})

	result, err := svc.Discover(context.Background(), "john", "doe", "acme.com", true)
	require.NoError(t, err)

	for _, c := range result.Candidates {
		assert.Equal(t, 0.2, c.Confidence)
		assert.Nil(t, c.Valid, "a resolver failure must not read as a negative on the address")
	}
}

func TestDiscoverResultDeterministic(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("transient")}
	svc := newTestService(resolver, &fakeProber{})

	first, err := svc.Discover(context.Background(), "jane", "smith", "example.org", true)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := svc.Discover(context.Background(), "jane", "smith", "example.org", true)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
