// discovery/score.go
package discovery

import (
	"errors"
	"fmt"
)

// Policy holds the tunable confidence weights. DisconnectedEarly and
// ProbeError scoring as weak positives is a heuristic (servers that defend
// against enumeration tend to drop sessions exactly when the mailbox exists),
// not a proof, which is why the weights live here instead of in code.
type Policy struct {
	AcceptedScore     float64
	GreylistedScore   float64
	RejectedScore     float64
	UnreachableScore  float64
	DisconnectedScore float64
	ProbeErrorScore   float64
	UnverifiedScore   float64

	// DefensiveAsPositive marks DisconnectedEarly/ProbeError outcomes as
	// reachable. Disable it to report those outcomes as unknown instead.
	DefensiveAsPositive bool
}

// DefaultPolicy mirrors the scores the discovery pipeline has always used.
func DefaultPolicy() Policy {
	return Policy{
		AcceptedScore:       0.9,
		GreylistedScore:     0.5,
		RejectedScore:       0.1,
		UnreachableScore:    0.0,
		DisconnectedScore:   0.3,
		ProbeErrorScore:     0.2,
		UnverifiedScore:     0.5,
		DefensiveAsPositive: true,
	}
}

// VerificationOutcome is the scored result for one candidate. Reachable is
// tri-state: nil means the checks were inconclusive or skipped, which must
// not be conflated with a definitive false.
type VerificationOutcome struct {
	Reachable  *bool
	Confidence float64
	Reason     string
	SMTPCode   int
}

// Scorer maps (syntax validity, MX result, SMTP classification) onto a
// bounded confidence score with a reason naming the signal.
type Scorer struct {
	Policy Policy
}

// ScoreUnverified is the fast-path score used when probing was not requested.
func (s *Scorer) ScoreUnverified(c Candidate) VerificationOutcome {
	if !c.Valid {
		return VerificationOutcome{Reachable: ptr(false), Confidence: 0.0, Reason: "Invalid email format"}
	}
	return VerificationOutcome{
		Confidence: clamp(s.Policy.UnverifiedScore),
		Reason:     "Pattern generated",
	}
}

// Score maps a candidate's MX lookup error (nil on success) and probe outcome
// to a verification outcome. The mapping is deterministic and exhaustive.
func (s *Scorer) Score(c Candidate, mxErr error, probe Outcome) VerificationOutcome {
	if !c.Valid {
		return VerificationOutcome{Reachable: ptr(false), Confidence: 0.0, Reason: "Invalid email format"}
	}

	if mxErr != nil {
		switch {
		case errors.Is(mxErr, ErrDomainNotFound):
			return VerificationOutcome{Reachable: ptr(false), Confidence: 0.0, Reason: "Domain does not exist"}
		case errors.Is(mxErr, ErrNoMXRecords):
			return VerificationOutcome{Reachable: ptr(false), Confidence: clamp(0.1), Reason: "No MX records found"}
		default:
			// Transient resolver trouble says nothing about the address.
			return VerificationOutcome{Confidence: clamp(0.2), Reason: "DNS lookup failed (retryable)"}
		}
	}

	switch probe.Classification {
	case Accepted:
		return VerificationOutcome{
			Reachable:  ptr(true),
			Confidence: clamp(s.Policy.AcceptedScore),
			Reason:     fmt.Sprintf("SMTP verified (%d)", probe.Code),
			SMTPCode:   probe.Code,
		}
	case Greylisted:
		return VerificationOutcome{
			Confidence: clamp(s.Policy.GreylistedScore),
			Reason:     fmt.Sprintf("Greylisted (%d)", probe.Code),
			SMTPCode:   probe.Code,
		}
	case Rejected:
		return VerificationOutcome{
			Reachable:  ptr(false),
			Confidence: clamp(s.Policy.RejectedScore),
			Reason:     fmt.Sprintf("SMTP rejected (%d)", probe.Code),
			SMTPCode:   probe.Code,
		}
	case Unreachable:
		return VerificationOutcome{
			Reachable:  ptr(false),
			Confidence: clamp(s.Policy.UnreachableScore),
			Reason:     "Cannot connect to mail server",
		}
	case DisconnectedEarly:
		return VerificationOutcome{
			Reachable:  s.defensiveReachable(),
			Confidence: clamp(s.Policy.DisconnectedScore),
			Reason:     "Server disconnected (likely exists)",
		}
	default: // ProbeError
		return VerificationOutcome{
			Reachable:  s.defensiveReachable(),
			Confidence: clamp(s.Policy.ProbeErrorScore),
			Reason:     "SMTP error: " + truncate(probe.Detail, 50),
		}
	}
}

func (s *Scorer) defensiveReachable() *bool {
	if s.Policy.DefensiveAsPositive {
		return ptr(true)
	}
	return nil
}

func clamp(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func ptr(b bool) *bool {
	return &b
}
