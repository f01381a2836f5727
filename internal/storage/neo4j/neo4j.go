// Package neo4j stores the network as (:Person)-[:FRIENDS_WITH]->(:Person)
// in a Neo4j database. Each friendship is one relationship directed from the
// smaller id to the larger and matched undirected.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/efebarandurmaz/socialgraph/internal/social"
	"github.com/efebarandurmaz/socialgraph/internal/storage"
)

const (
	cypherClear = "MATCH (p:Person) DETACH DELETE p"

	cypherCreatePersons = "UNWIND $persons AS row " +
		"CREATE (:Person {id: row.id, name: row.name, age: row.age, email: row.email, interests: row.interests})"

	cypherCreateEdges = "UNWIND $edges AS row " +
		"MATCH (a:Person {id: row.a}), (b:Person {id: row.b}) " +
		"CREATE (a)-[:FRIENDS_WITH]->(b)"

	cypherLoadPersons = "MATCH (p:Person) " +
		"RETURN p.id AS id, p.name AS name, p.age AS age, p.email AS email, p.interests AS interests " +
		"ORDER BY id"

	cypherLoadEdges = "MATCH (a:Person)-[:FRIENDS_WITH]-(b:Person) WHERE a.id < b.id " +
		"RETURN a.id AS a, b.id AS b ORDER BY a, b"
)

// Config holds connection settings.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Repository implements storage.Repository using Neo4j.
type Repository struct {
	driver   neo4j.DriverWithContext
	database string
}

// Open connects and verifies connectivity.
func Open(ctx context.Context, cfg Config) (*Repository, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Repository{driver: driver, database: cfg.Database}, nil
}

func (r *Repository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
}

// Save replaces every Person node in one write transaction.
func (r *Repository) Save(ctx context.Context, snap *storage.Snapshot) error {
	snap.Normalize()
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, cypherClear, nil); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, cypherCreatePersons, map[string]any{"persons": personRows(snap)}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, cypherCreateEdges, map[string]any{"edges": edgeRows(snap)}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("store network: %w", err)
	}
	return nil
}

// Load reads all persons and friendships.
func (r *Repository) Load(ctx context.Context) (*storage.Snapshot, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		snap := &storage.Snapshot{}

		records, err := tx.Run(ctx, cypherLoadPersons, nil)
		if err != nil {
			return nil, err
		}
		for records.Next(ctx) {
			snap.Persons = append(snap.Persons, personFromValues(records.Record().AsMap()))
		}
		if err := records.Err(); err != nil {
			return nil, err
		}

		records, err = tx.Run(ctx, cypherLoadEdges, nil)
		if err != nil {
			return nil, err
		}
		for records.Next(ctx) {
			m := records.Record().AsMap()
			snap.Connections = append(snap.Connections, social.EdgeRecord{
				OriginID:      toInt(m["a"]),
				DestinationID: toInt(m["b"]),
			})
		}
		return snap, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load network: %w", err)
	}
	return result.(*storage.Snapshot), nil
}

// Ping verifies the server is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

// Close releases the driver.
func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

func personRows(snap *storage.Snapshot) []map[string]any {
	rows := make([]map[string]any, 0, len(snap.Persons))
	for _, p := range snap.Persons {
		interests := p.Interests
		if interests == nil {
			interests = []string{}
		}
		rows = append(rows, map[string]any{
			"id":        int64(p.ID),
			"name":      p.Name,
			"age":       int64(p.Age),
			"email":     p.Email,
			"interests": interests,
		})
	}
	return rows
}

func edgeRows(snap *storage.Snapshot) []map[string]any {
	rows := make([]map[string]any, 0, len(snap.Connections))
	for _, e := range snap.Connections {
		rows = append(rows, map[string]any{"a": int64(e.OriginID), "b": int64(e.DestinationID)})
	}
	return rows
}

// personFromValues converts a result row. Friend lists are rebuilt from the
// relationships, so they are left empty here.
func personFromValues(m map[string]any) social.PersonRecord {
	rec := social.PersonRecord{
		ID:        toInt(m["id"]),
		Age:       toInt(m["age"]),
		Interests: []string{},
		Friends:   []int{},
	}
	rec.Name, _ = m["name"].(string)
	rec.Email, _ = m["email"].(string)
	if list, ok := m["interests"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				rec.Interests = append(rec.Interests, s)
			}
		}
	}
	return rec
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

var _ storage.Repository = (*Repository)(nil)
