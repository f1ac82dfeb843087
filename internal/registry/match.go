package registry

import "strings"

// match.go holds the pure predicates shared by the search and count
// aggregators. Both paths must agree exactly on what "matches", so all
// filter evaluation lives here and nowhere else.

// matchText reports whether term is a case-insensitive substring of
// field. An empty field never matches a non-empty term.
func matchText(field, term string) bool {
	if field == "" {
		return false
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(term))
}

// matchTerms reports whether every required term is satisfied by at
// least one of the entity's own terms, where "satisfied" means the
// required term is a case-insensitive substring of the entity term.
//
// Rules:
//   - Empty required list matches anything (no constraint).
//   - Empty entity list fails any non-empty required list.
//   - Terms are ANDed across the required list; within the entity list
//     any single term may satisfy a given requirement.
func matchTerms(entityTerms, required []string) bool {
	if len(required) == 0 {
		return true
	}
	if len(entityTerms) == 0 {
		return false
	}
	for _, req := range required {
		found := false
		for _, have := range entityTerms {
			if matchText(have, req) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MatchesFilter reports whether a satisfies every constraint f
// specifies. Constraints are implicitly ANDed; absent constraints are
// vacuously true, so the empty filter matches every agent.
func MatchesFilter(a Agent, f Filter) bool {
	if f.Name != "" && !matchText(a.Name, f.Name) {
		return false
	}
	if !matchTerms(a.Capabilities, f.Capabilities) {
		return false
	}
	if !matchTerms(a.Skills, f.Skills) {
		return false
	}
	if !matchTerms(a.Domains, f.Domains) {
		return false
	}
	if !matchTerms(a.TrustModels, f.TrustModels) {
		return false
	}
	if f.Active != nil && a.Active != *f.Active {
		return false
	}
	if f.SupportsX402 != nil && a.SupportsX402 != *f.SupportsX402 {
		return false
	}
	return true
}

// RequiresClientFilter reports whether f contains any constraint the
// per-chain primitives cannot evaluate natively (free text or term
// lists). When true, the aggregator must scan pages and filter here;
// when false a single passthrough page fetch suffices.
func RequiresClientFilter(f Filter) bool {
	return f.Name != "" ||
		len(f.Capabilities) > 0 ||
		len(f.Skills) > 0 ||
		len(f.Domains) > 0 ||
		len(f.TrustModels) > 0
}
