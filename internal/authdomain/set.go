package authdomain

import "sort"

// Set is an unordered, deduplicated collection of authentication
// domains.
type Set map[AuthDomain]struct{}

// NewSet builds a set from the given domains.
func NewSet(domains ...AuthDomain) Set {
	s := make(Set, len(domains))
	for _, d := range domains {
		s.Add(d)
	}
	return s
}

// Add inserts a domain into the set.
func (s Set) Add(d AuthDomain) { s[d] = struct{}{} }

// Contains reports whether the set holds the given domain.
func (s Set) Contains(d AuthDomain) bool {
	_, ok := s[d]
	return ok
}

// Len returns the number of domains in the set.
func (s Set) Len() int { return len(s) }

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for d := range s {
		out[d] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold exactly the same domains.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for d := range s {
		if !other.Contains(d) {
			return false
		}
	}
	return true
}

// Sorted returns the canonical strings of all domains in lexical
// order, for deterministic serialization and display.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d.String())
	}
	sort.Strings(out)
	return out
}
