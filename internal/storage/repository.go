// Package storage defines how a network snapshot is persisted. Backends live
// in subpackages; this package holds the shared contract and record format.
package storage

import (
	"context"
	"errors"
	"sort"

	"github.com/efebarandurmaz/socialgraph/internal/social"
)

// Backend names accepted by configuration.
const (
	BackendJSONFile = "jsonfile"
	BackendBadger   = "badger"
	BackendNeo4j    = "neo4j"
)

// ErrClosed is returned by a repository used after Close.
var ErrClosed = errors.New("storage: repository closed")

// Repository loads and saves whole-network snapshots. Save replaces the
// stored network; a failed Save leaves the previous one readable.
type Repository interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Close(ctx context.Context) error
}

// Snapshot is the persisted form of the network.
type Snapshot struct {
	Persons     []social.PersonRecord `json:"persons" yaml:"persons"`
	Connections []social.EdgeRecord   `json:"connections" yaml:"connections"`
}

// FromStore captures the current state of s.
func FromStore(s *social.Store) *Snapshot {
	persons, edges := s.Records()
	return &Snapshot{Persons: persons, Connections: edges}
}

// Store rebuilds an in-memory store from the snapshot.
func (snap *Snapshot) Store() (*social.Store, error) {
	if snap == nil {
		return social.NewStore(), nil
	}
	return social.FromRecords(snap.Persons, snap.Connections)
}

// Normalize sorts persons by id, lowercases interests and dedupes edges by
// canonical unordered pair. It is applied before every write.
func (snap *Snapshot) Normalize() {
	if snap.Persons == nil {
		snap.Persons = []social.PersonRecord{}
	}
	for i := range snap.Persons {
		snap.Persons[i].Interests = social.NormalizeInterests(snap.Persons[i].Interests)
		if snap.Persons[i].Friends == nil {
			snap.Persons[i].Friends = []int{}
		}
	}
	sort.SliceStable(snap.Persons, func(i, j int) bool {
		return snap.Persons[i].ID < snap.Persons[j].ID
	})
	snap.Connections = social.DedupeEdges(snap.Connections)
}

// Empty reports whether the snapshot holds no persons.
func (snap *Snapshot) Empty() bool {
	return snap == nil || len(snap.Persons) == 0
}
