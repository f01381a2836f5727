package social

import (
	"slices"
	"sort"
	"strings"
)

// Person is a single member of the network.
type Person struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Age       int      `json:"age"`
	Email     string   `json:"email"`
	Interests []string `json:"interests"`
	Friends   []int    `json:"friends"`
}

// NormalizeInterests lowercases and trims interest tags. Empty tags are
// dropped; repeats are kept.
func NormalizeInterests(interests []string) []string {
	out := make([]string, 0, len(interests))
	for _, in := range interests {
		in = strings.ToLower(strings.TrimSpace(in))
		if in == "" {
			continue
		}
		out = append(out, in)
	}
	return out
}

// InterestSet returns the interests as a set.
func (p Person) InterestSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.Interests))
	for _, in := range p.Interests {
		set[in] = struct{}{}
	}
	return set
}

// SharesInterest reports whether p and other have at least one interest in common.
func (p Person) SharesInterest(other Person) bool {
	if len(p.Interests) == 0 || len(other.Interests) == 0 {
		return false
	}
	set := p.InterestSet()
	for _, in := range other.Interests {
		if _, ok := set[in]; ok {
			return true
		}
	}
	return false
}

// CommonInterests returns the sorted, de-duplicated intersection of both interest sets.
func (p Person) CommonInterests(other Person) []string {
	set := p.InterestSet()
	seen := make(map[string]struct{})
	common := []string{}
	for _, in := range other.Interests {
		if _, ok := set[in]; !ok {
			continue
		}
		if _, dup := seen[in]; dup {
			continue
		}
		seen[in] = struct{}{}
		common = append(common, in)
	}
	sort.Strings(common)
	return common
}

// HasFriend reports whether id is in p's adjacency list.
func (p Person) HasFriend(id int) bool {
	return slices.Contains(p.Friends, id)
}

// Degree is the number of direct connections.
func (p Person) Degree() int {
	return len(p.Friends)
}

// Clone returns a deep copy so callers cannot alias the store's slices.
func (p Person) Clone() Person {
	c := p
	c.Interests = slices.Clone(p.Interests)
	c.Friends = slices.Clone(p.Friends)
	if c.Interests == nil {
		c.Interests = []string{}
	}
	if c.Friends == nil {
		c.Friends = []int{}
	}
	return c
}
