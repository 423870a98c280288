// discovery/pattern.go
package discovery

import (
	"regexp"
	"strings"

	"github.com/badoux/checkmail"
)

// Pattern identifies one of the canonical local-part layouts used when
// guessing a person's corporate address.
type Pattern string

const (
	PatternFirstDotLast Pattern = "first.last" // john.doe@acme.com
	PatternFirst        Pattern = "first"      // john@acme.com
	PatternFirstLast    Pattern = "firstlast"  // johndoe@acme.com
	PatternFLast        Pattern = "flast"      // jdoe@acme.com
	PatternFirstDotL    Pattern = "first.l"    // john.d@acme.com
	PatternFirstUndLast Pattern = "first_last" // john_doe@acme.com
	PatternLastDotFirst Pattern = "last.first" // doe.john@acme.com
	PatternOther        Pattern = "other"
)

// patternSpec builds the local part for one pattern, or returns false when
// the pattern does not apply to the given name (e.g. no last name).
type patternSpec struct {
	name  Pattern
	build func(first, last string) (string, bool)
}

// patternSpecs is ordered by how common each layout is in the wild. The
// declaration order here is the tie-break key for ranking, so it must stay
// stable across runs.
var patternSpecs = []patternSpec{
	{PatternFirstDotLast, func(first, last string) (string, bool) {
		if last == "" {
			return "", false
		}
		return first + "." + last, true
	}},
	{PatternFirst, func(first, _ string) (string, bool) {
		return first, true
	}},
	{PatternFirstLast, func(first, last string) (string, bool) {
		if last == "" {
			return "", false
		}
		return first + last, true
	}},
	{PatternFLast, func(first, last string) (string, bool) {
		if last == "" {
			return "", false
		}
		return first[:1] + last, true
	}},
	{PatternFirstDotL, func(first, last string) (string, bool) {
		if last == "" {
			return "", false
		}
		return first + "." + last[:1], true
	}},
	{PatternFirstUndLast, func(first, last string) (string, bool) {
		if last == "" {
			return "", false
		}
		return first + "_" + last, true
	}},
	{PatternLastDotFirst, func(first, last string) (string, bool) {
		if last == "" {
			return "", false
		}
		return last + "." + first, true
	}},
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Candidate is one generated address. Index records the position in the
// generated list and is used to keep ranking deterministic on ties.
type Candidate struct {
	Address string
	Pattern Pattern
	Valid   bool
	Index   int
}

// NormalizeDomain lowercases a company domain and strips scheme and www
// prefixes so "https://www.Acme.com" and "acme.com" generate the same
// candidates.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, "/")
}

// GenerateCandidates builds the ordered candidate list for a person at a
// domain. Patterns that need a last name are silently skipped when none is
// given, addresses failing syntax validation are dropped, and duplicates are
// removed case-insensitively keeping the first occurrence.
func GenerateCandidates(firstName, lastName, domain string) []Candidate {
	first := strings.ToLower(strings.TrimSpace(firstName))
	last := strings.ToLower(strings.TrimSpace(lastName))
	domain = NormalizeDomain(domain)

	if first == "" || domain == "" {
		return nil
	}

	seen := make(map[string]struct{}, len(patternSpecs))
	candidates := make([]Candidate, 0, len(patternSpecs))

	for _, spec := range patternSpecs {
		local, ok := spec.build(first, last)
		if !ok {
			continue
		}
		address := local + "@" + domain
		if !isValidAddress(address) {
			continue
		}
		key := strings.ToLower(address)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, Candidate{
			Address: address,
			Pattern: spec.name,
			Valid:   true,
			Index:   len(candidates),
		})
	}

	return candidates
}

func isValidAddress(address string) bool {
	if !emailRegex.MatchString(address) {
		return false
	}
	return checkmail.ValidateFormat(address) == nil
}
