package social

import (
	"slices"
	"strings"
)

// PersonRecord is the serialized form of a Person.
type PersonRecord struct {
	ID        int      `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Age       int      `json:"age" yaml:"age"`
	Email     string   `json:"email" yaml:"email"`
	Interests []string `json:"interests" yaml:"interests"`
	Friends   []int    `json:"friends" yaml:"friends"`
}

// EdgeRecord is the serialized form of a friendship.
type EdgeRecord struct {
	OriginID      int `json:"origin_id" yaml:"origin_id"`
	DestinationID int `json:"destination_id" yaml:"destination_id"`
}

// Records serializes the store. Friend lists are read from the live
// adjacency lists and edges are emitted once per unordered pair.
func (s *Store) Records() ([]PersonRecord, []EdgeRecord) {
	persons := make([]PersonRecord, 0, len(s.persons))
	for _, id := range s.ids() {
		p := s.persons[id]
		persons = append(persons, PersonRecord{
			ID:        p.ID,
			Name:      p.Name,
			Age:       p.Age,
			Email:     p.Email,
			Interests: NormalizeInterests(p.Interests),
			Friends:   slices.Clone(p.Friends),
		})
	}
	edges := s.Edges()
	out := make([]EdgeRecord, 0, len(edges))
	for _, e := range edges {
		out = append(out, EdgeRecord{OriginID: e.A, DestinationID: e.B})
	}
	return persons, out
}

// FromRecords builds a new store from serialized records. Edges are created
// through Connect from both the edge records and each person's friend list,
// so the result always satisfies the store invariants. References to unknown
// ids are skipped. The caller's store is never touched, which makes a failed
// load impossible to half-apply.
func FromRecords(persons []PersonRecord, edges []EdgeRecord) (*Store, error) {
	s := NewStore()
	maxID := 0
	for _, rec := range persons {
		if rec.ID <= 0 {
			return nil, NewValidationError("id", "person id must be positive, got %d", rec.ID)
		}
		if _, dup := s.persons[rec.ID]; dup {
			return nil, NewValidationError("id", "duplicate person id %d", rec.ID)
		}
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			return nil, NewValidationError("name", "person %d has an empty name", rec.ID)
		}
		age := rec.Age
		if age < 0 {
			age = 0
		}
		s.persons[rec.ID] = &Person{
			ID:        rec.ID,
			Name:      name,
			Age:       age,
			Email:     rec.Email,
			Interests: NormalizeInterests(rec.Interests),
			Friends:   []int{},
		}
		maxID = max(maxID, rec.ID)
	}
	s.nextID = maxID + 1

	for _, e := range edges {
		s.Connect(e.OriginID, e.DestinationID)
	}
	for _, rec := range persons {
		for _, friend := range rec.Friends {
			s.Connect(rec.ID, friend)
		}
	}
	return s, nil
}

// DedupeEdges drops repeated and self-referencing edge records, keeping the
// canonical smaller-id-first form of each pair in first-seen order.
func DedupeEdges(edges []EdgeRecord) []EdgeRecord {
	seen := make(map[Edge]struct{}, len(edges))
	out := make([]EdgeRecord, 0, len(edges))
	for _, e := range edges {
		if e.OriginID == e.DestinationID {
			continue
		}
		key := NewEdge(e.OriginID, e.DestinationID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, EdgeRecord{OriginID: key.A, DestinationID: key.B})
	}
	return out
}
