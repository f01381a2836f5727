package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/socialgraph/internal/social"
	"github.com/efebarandurmaz/socialgraph/internal/storage"
)

func sampleSnapshot() *storage.Snapshot {
	return &storage.Snapshot{
		Persons: []social.PersonRecord{
			{ID: 1, Name: "Ana", Age: 30, Interests: []string{"Music", "art"}, Friends: []int{2}},
			{ID: 2, Name: "Bob", Interests: []string{"music"}, Friends: []int{1}},
		},
		Connections: []social.EdgeRecord{
			{OriginID: 2, DestinationID: 1},
			{OriginID: 1, DestinationID: 2},
		},
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	repo := New(filepath.Join(t.TempDir(), "absent.json"))
	snap, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Empty())
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "net.json")
	repo := New(path)

	require.NoError(t, repo.Save(ctx, sampleSnapshot()))

	snap, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Persons, 2)
	assert.Equal(t, []string{"music", "art"}, snap.Persons[0].Interests)
	assert.Equal(t, []social.EdgeRecord{{OriginID: 1, DestinationID: 2}}, snap.Connections)

	s, err := snap.Store()
	require.NoError(t, err)
	assert.Equal(t, 1, s.EdgeCount())
	assert.Equal(t, 3, s.NextID())
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	repo := New(filepath.Join(dir, "net.json"))
	require.NoError(t, repo.Save(context.Background(), sampleSnapshot()))
	require.NoError(t, repo.Save(context.Background(), &storage.Snapshot{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "net.json", entries[0].Name())
}

func TestSave_FailureKeepsPreviousDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "net.json")
	repo := New(path)
	require.NoError(t, repo.Save(context.Background(), sampleSnapshot()))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// a directory at the target path makes the rename fail
	blocked := New(filepath.Join(dir, "blocked"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "blocked"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocked", "x"), []byte("x"), 0o644))
	assert.Error(t, blocked.Save(context.Background(), sampleSnapshot()))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"net.json", "blocked"}, names)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := New(path).Load(context.Background())
	assert.Error(t, err)
}

func TestClosed(t *testing.T) {
	repo := New(filepath.Join(t.TempDir(), "net.json"))
	require.NoError(t, repo.Close(context.Background()))

	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrClosed)
	assert.ErrorIs(t, repo.Save(context.Background(), &storage.Snapshot{}), storage.ErrClosed)
}
