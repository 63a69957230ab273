package permission

import "sort"

// Set is an unordered collection of permissions.
type Set map[Permission]struct{}

// NewSet creates a Set holding the given permissions. Empty tokens are dropped.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	s.Add(perms...)
	return s
}

// FromStrings builds a Set from raw strings, dropping empty ones.
func FromStrings(raw []string) Set {
	s := make(Set, len(raw))
	for _, r := range raw {
		s.Add(Permission(r))
	}
	return s
}

// Add inserts permissions into the set.
func (s Set) Add(perms ...Permission) {
	for _, p := range perms {
		if p == "" {
			continue
		}
		s[p] = struct{}{}
	}
}

// Has reports whether p is in the set.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAll reports whether every permission in required is present.
// An empty required list is always satisfied.
func (s Set) HasAll(required []Permission) bool {
	for _, p := range required {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Union returns a new set holding the members of s and other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for p := range s {
		out[p] = struct{}{}
	}
	for p := range other {
		out[p] = struct{}{}
	}
	return out
}

// Slice returns the members sorted lexically.
func (s Set) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the members as sorted strings.
func (s Set) Strings() []string {
	perms := s.Slice()
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}
