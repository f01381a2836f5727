// Package social holds the in-memory people graph: persons, their
// friendships, and the operations that keep both sides of every friendship in
// step.
package social

import (
	"slices"
	"sort"
	"strings"
)

// Edge is an unordered friendship, stored with the smaller id in A.
type Edge struct {
	A int `json:"a"`
	B int `json:"b"`
}

// NewEdge returns the canonical form of the pair.
func NewEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Connection is an edge annotated with both persons and what they share.
type Connection struct {
	From            Person   `json:"from"`
	To              Person   `json:"to"`
	CommonInterests []string `json:"common_interests"`
}

// Graph is a plain-data view of the network or of a subgraph of it.
type Graph struct {
	Nodes []Person `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// Store owns every Person and, through their adjacency lists, every edge.
// The edge relation is never stored separately. Store is not safe for
// concurrent use; callers serialize access.
type Store struct {
	persons map[int]*Person
	nextID  int
}

// NewStore returns an empty store whose first id is 1.
func NewStore() *Store {
	return &Store{
		persons: make(map[int]*Person),
		nextID:  1,
	}
}

// AddPerson validates and inserts a new person with a fresh id. It does not
// create any edges.
func (s *Store) AddPerson(name string, age int, email string, interests []string) (Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Person{}, NewValidationError("name", "must not be empty")
	}
	if age < 0 {
		return Person{}, NewValidationError("age", "must not be negative, got %d", age)
	}

	p := &Person{
		ID:        s.nextID,
		Name:      name,
		Age:       age,
		Email:     strings.TrimSpace(email),
		Interests: NormalizeInterests(interests),
		Friends:   []int{},
	}
	s.persons[p.ID] = p
	s.nextID++
	return p.Clone(), nil
}

// Connect adds the symmetric edge a–b. It returns false without changing
// anything when a == b, either id is unknown, or the edge already exists.
func (s *Store) Connect(a, b int) bool {
	if a == b {
		return false
	}
	pa, okA := s.persons[a]
	pb, okB := s.persons[b]
	if !okA || !okB {
		return false
	}
	if pa.HasFriend(b) {
		return false
	}
	pa.Friends = append(pa.Friends, b)
	pb.Friends = append(pb.Friends, a)
	return true
}

// Disconnect removes the edge a–b if present on both sides.
func (s *Store) Disconnect(a, b int) bool {
	pa, okA := s.persons[a]
	pb, okB := s.persons[b]
	if !okA || !okB || !pa.HasFriend(b) {
		return false
	}
	pa.Friends = removeID(pa.Friends, b)
	pb.Friends = removeID(pb.Friends, a)
	return true
}

// RemovePerson deletes a person and every edge touching it. The id is not
// handed out again.
func (s *Store) RemovePerson(id int) bool {
	p, ok := s.persons[id]
	if !ok {
		return false
	}
	for _, friend := range p.Friends {
		if other, ok := s.persons[friend]; ok {
			other.Friends = removeID(other.Friends, id)
		}
	}
	delete(s.persons, id)
	return true
}

// Connected reports whether the edge a–b exists.
func (s *Store) Connected(a, b int) bool {
	p, ok := s.persons[a]
	return ok && p.HasFriend(b)
}

// Has reports whether id exists.
func (s *Store) Has(id int) bool {
	_, ok := s.persons[id]
	return ok
}

// Person returns a copy of the person with the given id.
func (s *Store) Person(id int) (Person, bool) {
	p, ok := s.persons[id]
	if !ok {
		return Person{}, false
	}
	return p.Clone(), true
}

// FindByName returns persons whose name contains substr, ignoring case, in
// ascending id order.
func (s *Store) FindByName(substr string) []Person {
	needle := strings.ToLower(substr)
	out := []Person{}
	for _, id := range s.ids() {
		p := s.persons[id]
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Persons returns every person in ascending id order.
func (s *Store) Persons() []Person {
	out := make([]Person, 0, len(s.persons))
	for _, id := range s.ids() {
		out = append(out, s.persons[id].Clone())
	}
	return out
}

// IDs returns every person id in ascending order.
func (s *Store) IDs() []int {
	return s.ids()
}

// Neighbors returns the adjacency list of id, or nil if id is unknown.
func (s *Store) Neighbors(id int) []int {
	p, ok := s.persons[id]
	if !ok {
		return nil
	}
	return slices.Clone(p.Friends)
}

// Degree returns the number of friends of id.
func (s *Store) Degree(id int) int {
	if p, ok := s.persons[id]; ok {
		return len(p.Friends)
	}
	return 0
}

// Len is the number of persons.
func (s *Store) Len() int {
	return len(s.persons)
}

// EdgeCount is the number of distinct friendships.
func (s *Store) EdgeCount() int {
	total := 0
	for _, p := range s.persons {
		total += len(p.Friends)
	}
	return total / 2
}

// Edges returns each friendship once, smaller id first, sorted.
func (s *Store) Edges() []Edge {
	edges := []Edge{}
	for _, id := range s.ids() {
		for _, friend := range s.persons[id].Friends {
			if id < friend {
				edges = append(edges, Edge{A: id, B: friend})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	return edges
}

// Connections returns every edge annotated with the shared interests of its
// endpoints.
func (s *Store) Connections() []Connection {
	edges := s.Edges()
	out := make([]Connection, 0, len(edges))
	for _, e := range edges {
		from, to := s.persons[e.A], s.persons[e.B]
		out = append(out, Connection{
			From:            from.Clone(),
			To:              to.Clone(),
			CommonInterests: from.CommonInterests(*to),
		})
	}
	return out
}

// Graph returns the full network as plain data.
func (s *Store) Graph() *Graph {
	return &Graph{Nodes: s.Persons(), Edges: s.Edges()}
}

// NextID is the id the next AddPerson call will assign.
func (s *Store) NextID() int {
	return s.nextID
}

func (s *Store) ids() []int {
	ids := make([]int, 0, len(s.persons))
	for id := range s.persons {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func removeID(ids []int, id int) []int {
	idx := slices.Index(ids, id)
	if idx < 0 {
		return ids
	}
	return slices.Delete(ids, idx, idx+1)
}
