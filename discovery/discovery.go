// discovery/discovery.go
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrInvalidInput covers requests that cannot produce any candidate: empty
// first name or a malformed company domain. It is the only expected error
// Discover returns; everything network-shaped becomes a scored outcome.
var ErrInvalidInput = errors.New("invalid discovery input")

// RankedCandidate joins a generated candidate with its scored outcome. Valid
// is the tri-state reachability from verification (null when unknown), not
// the syntax check.
type RankedCandidate struct {
	Email      string  `json:"email"`
	Pattern    Pattern `json:"pattern"`
	Valid      *bool   `json:"valid"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	SMTPCode   int     `json:"smtp_code,omitempty"`
}

// Result is the outcome of one discovery run, ordered by descending
// confidence with the generation order breaking ties.
type Result struct {
	Candidates []RankedCandidate `json:"candidates"`
	BestMatch  *RankedCandidate  `json:"best_match"`
	TotalFound int               `json:"total_found"`
}

// Service composes the pattern generator, MX resolver, SMTP prober and
// scorer. It is stateless between calls; nothing is cached across requests.
type Service struct {
	resolver    MXResolver
	prober      Prober
	scorer      Scorer
	logger      *log.Logger
	concurrency int
}

// NewService wires a discovery service. Resolver and prober are injected so
// tests can substitute fakes for the network.
func NewService(resolver MXResolver, prober Prober, policy Policy, logger *log.Logger, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		resolver:    resolver,
		prober:      prober,
		scorer:      Scorer{Policy: policy},
		logger:      logger,
		concurrency: concurrency,
	}
}

// NewDefaultService builds a service backed by the real network stack.
func NewDefaultService(timeout time.Duration, logger *log.Logger) *Service {
	return NewService(NewNetResolver(timeout), NewSMTPProber(timeout), DefaultPolicy(), logger, 4)
}

// Discover generates candidate addresses for a person at a domain and, when
// verify is set, probes each one concurrently before ranking. With verify
// unset no network call is made and every candidate carries the fixed
// unverified score.
func (s *Service) Discover(ctx context.Context, firstName, lastName, domain string, verify bool) (*Result, error) {
	if strings.TrimSpace(firstName) == "" {
		return nil, fmt.Errorf("%w: first name is required", ErrInvalidInput)
	}
	normalized := NormalizeDomain(domain)
	if normalized == "" || !strings.Contains(normalized, ".") {
		return nil, fmt.Errorf("%w: malformed company domain %q", ErrInvalidInput, domain)
	}

	candidates := GenerateCandidates(firstName, lastName, normalized)
	s.logger.Printf("Generated %d candidates for %s %s @ %s", len(candidates), firstName, lastName, normalized)

	outcomes := make([]VerificationOutcome, len(candidates))
	if verify {
		s.verifyAll(ctx, candidates, outcomes)
	} else {
		for i, c := range candidates {
			outcomes[i] = s.scorer.ScoreUnverified(c)
		}
	}

	ranked := make([]RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = RankedCandidate{
			Email:      c.Address,
			Pattern:    c.Pattern,
			Valid:      outcomes[i].Reachable,
			Confidence: outcomes[i].Confidence,
			Reason:     outcomes[i].Reason,
			SMTPCode:   outcomes[i].SMTPCode,
		}
	}

	// Stable sort so equal confidences keep generation order. Callers rely
	// on identical inputs producing identical rankings.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	result := &Result{Candidates: ranked, TotalFound: len(ranked)}
	if len(ranked) > 0 {
		best := ranked[0]
		result.BestMatch = &best
	}
	return result, nil
}

// verifyAll probes every candidate with a bounded fan-out so the end-to-end
// latency stays close to the slowest single probe. MX lookups are memoised
// for the duration of this call only.
func (s *Service) verifyAll(ctx context.Context, candidates []Candidate, outcomes []VerificationOutcome) {
	mx := newMXMemo(s.resolver)

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.concurrency)
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = s.verifyOne(ctx, c, mx)
		}(i, c)
	}
	wg.Wait()
}

func (s *Service) verifyOne(ctx context.Context, c Candidate, mx *mxMemo) VerificationOutcome {
	if !c.Valid {
		return s.scorer.Score(c, nil, Outcome{})
	}

	domain := c.Address[strings.LastIndex(c.Address, "@")+1:]
	host, err := mx.lookup(ctx, domain)
	if err != nil {
		return s.scorer.Score(c, err, Outcome{})
	}

	probe := s.prober.Probe(ctx, c.Address, host)
	outcome := s.scorer.Score(c, nil, probe)
	s.logger.Printf("Probed %s via %s: %s (%.2f)", c.Address, host, probe.Classification, outcome.Confidence)
	return outcome
}

// mxMemo caches MX lookups within a single Discover call. All candidates of
// one run share a domain, so the exchanger is resolved once no matter how
// many probes fan out.
type mxMemo struct {
	resolver MXResolver

	mu      sync.Mutex
	entries map[string]*mxEntry
}

type mxEntry struct {
	once sync.Once
	host string
	err  error
}

func newMXMemo(resolver MXResolver) *mxMemo {
	return &mxMemo{resolver: resolver, entries: make(map[string]*mxEntry)}
}

func (m *mxMemo) lookup(ctx context.Context, domain string) (string, error) {
	m.mu.Lock()
	entry, ok := m.entries[domain]
	if !ok {
		entry = &mxEntry{}
		m.entries[domain] = entry
	}
	m.mu.Unlock()

	entry.once.Do(func() {
		entry.host, entry.err = m.resolver.LookupPrimaryMX(ctx, domain)
	})
	return entry.host, entry.err
}
