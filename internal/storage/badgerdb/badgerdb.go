// Package badgerdb stores the network in an embedded BadgerDB.
//
// Layout:
//
//	person/<id>       JSON-encoded social.PersonRecord
//	edge/<a>/<b>      empty value, a < b
//
// Ids are zero padded so key order matches numeric order.
package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/efebarandurmaz/socialgraph/internal/social"
	"github.com/efebarandurmaz/socialgraph/internal/storage"
)

const (
	personPrefix = "person/"
	edgePrefix   = "edge/"
)

// Config holds configuration for the database.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// Logger receives badger's internal log lines. Nil disables them.
	Logger *zap.Logger
}

// DefaultConfig returns a durable on-disk configuration for path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Repository implements storage.Repository over BadgerDB.
type Repository struct {
	mu     sync.RWMutex
	db     *badger.DB
	closed bool
}

// Open opens or creates the database.
func Open(cfg Config) (*Repository, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badgerdb: path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{log: cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Repository{db: db}, nil
}

// Load reads every person and edge key.
func (r *Repository) Load(ctx context.Context) (*storage.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, storage.ErrClosed
	}

	snap := &storage.Snapshot{}
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(personPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec social.PersonRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			snap.Persons = append(snap.Persons, rec)
		}

		prefix = []byte(edgePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			e, err := parseEdgeKey(string(it.Item().Key()))
			if err != nil {
				return err
			}
			snap.Connections = append(snap.Connections, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load network: %w", err)
	}
	return snap, nil
}

// Save replaces the stored network in a single transaction.
func (r *Repository) Save(ctx context.Context, snap *storage.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return storage.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	snap.Normalize()
	err := r.db.Update(func(txn *badger.Txn) error {
		for _, prefix := range []string{personPrefix, edgePrefix} {
			if err := deletePrefix(txn, []byte(prefix)); err != nil {
				return err
			}
		}
		for _, p := range snap.Persons {
			val, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("encode person %d: %w", p.ID, err)
			}
			if err := txn.Set(personKey(p.ID), val); err != nil {
				return err
			}
		}
		for _, e := range snap.Connections {
			if err := txn.Set(edgeKey(e.OriginID, e.DestinationID), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save network: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *Repository) Close(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}

// Ping reports whether the database is usable.
func (r *Repository) Ping(context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed || r.db.IsClosed() {
		return storage.ErrClosed
	}
	return nil
}

func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func personKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%010d", personPrefix, id))
}

func edgeKey(a, b int) []byte {
	return []byte(fmt.Sprintf("%s%010d/%010d", edgePrefix, a, b))
}

func parseEdgeKey(key string) (social.EdgeRecord, error) {
	parts := strings.Split(strings.TrimPrefix(key, edgePrefix), "/")
	if len(parts) != 2 {
		return social.EdgeRecord{}, fmt.Errorf("malformed edge key %q", key)
	}
	a, errA := strconv.Atoi(parts[0])
	b, errB := strconv.Atoi(parts[1])
	if err := errors.Join(errA, errB); err != nil {
		return social.EdgeRecord{}, fmt.Errorf("malformed edge key %q: %w", key, err)
	}
	return social.EdgeRecord{OriginID: a, DestinationID: b}, nil
}

// badgerLogger adapts zap to badger.Logger.
type badgerLogger struct {
	log *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Errorf(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warnf(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Infof(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debugf(strings.TrimSpace(format), args...)
}

var _ storage.Repository = (*Repository)(nil)
