package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/socialgraph/internal/analysis"
	"github.com/efebarandurmaz/socialgraph/internal/config"
	"github.com/efebarandurmaz/socialgraph/internal/server"
	"github.com/efebarandurmaz/socialgraph/internal/social"
	"github.com/efebarandurmaz/socialgraph/internal/storage"
	"github.com/efebarandurmaz/socialgraph/internal/storage/badgerdb"
	"github.com/efebarandurmaz/socialgraph/internal/storage/jsonfile"
)

// run executes one CLI invocation against the given data file, the way a
// fresh process would.
func run(t *testing.T, data string, args ...string) (string, string, error) {
	t.Helper()
	a := &app{}
	root := newRootCmd(a)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--data", data, "--backend", "jsonfile", "--log-level", "error"}, args...))

	err := root.ExecuteContext(context.Background())
	require.NoError(t, a.close(context.Background()))
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, data string, args ...string) string {
	t.Helper()
	out, stderr, err := run(t, data, args...)
	require.NoError(t, err, stderr)
	return out
}

func TestCLI_PersonLifecycle(t *testing.T) {
	data := filepath.Join(t.TempDir(), "net.json")

	out := mustRun(t, data, "--json", "person", "add", "--name", "Ana", "--age", "30", "--interests", "music,art")
	var added struct {
		Person          social.Person `json:"person"`
		AutoConnections int           `json:"auto_connections"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	assert.Equal(t, 1, added.Person.ID)
	assert.Equal(t, 0, added.AutoConnections)

	out = mustRun(t, data, "--json", "person", "add", "--name", "Bob", "--interests", "Music")
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	assert.Equal(t, 1, added.AutoConnections)

	mustRun(t, data, "person", "add", "--name", "Cid", "--interests", "golf")

	// each invocation reloads from disk
	var persons []social.Person
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, data, "--json", "person", "list")), &persons))
	require.Len(t, persons, 3)
	assert.Equal(t, []int{2}, persons[0].Friends)

	out = mustRun(t, data, "person", "find", "bo")
	assert.Contains(t, out, "Bob")
	assert.NotContains(t, out, "Cid")

	out = mustRun(t, data, "person", "show", "1")
	assert.Contains(t, out, "Ana (#1)")

	mustRun(t, data, "person", "remove", "3")
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, data, "--json", "person", "list")), &persons))
	assert.Len(t, persons, 2)

	_, _, err := run(t, data, "person", "show", "3")
	assert.True(t, social.IsNotFound(err))
}

func TestCLI_Connections(t *testing.T) {
	data := filepath.Join(t.TempDir(), "net.json")
	mustRun(t, data, "person", "add", "--name", "Ana", "--interests", "music")
	mustRun(t, data, "person", "add", "--name", "Bob", "--interests", "music")
	mustRun(t, data, "person", "add", "--name", "Cid", "--interests", "golf")

	_, stderr, err := run(t, data, "connect", "1", "2")
	require.NoError(t, err)
	assert.Contains(t, stderr, "already connected")

	out := mustRun(t, data, "connect", "1", "3")
	assert.Contains(t, out, "connected 1 and 3")

	_, _, err = run(t, data, "connect", "1", "x")
	assert.True(t, social.IsValidation(err))

	var conns []social.Connection
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, data, "--json", "connections")), &conns))
	assert.Len(t, conns, 2)

	mustRun(t, data, "disconnect", "1", "2")
	_, _, err = run(t, data, "disconnect", "1", "2")
	assert.True(t, social.IsValidation(err))

	snap, err := jsonfile.New(data).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []social.EdgeRecord{{OriginID: 1, DestinationID: 3}}, snap.Connections)
}

func TestCLI_Analysis(t *testing.T) {
	data := filepath.Join(t.TempDir(), "net.json")
	mustRun(t, data, "person", "add", "--name", "Ana", "--interests", "music,art")
	mustRun(t, data, "person", "add", "--name", "Bob", "--interests", "music")
	mustRun(t, data, "person", "add", "--name", "Cid", "--interests", "art")

	var st analysis.Stats
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, data, "--json", "stats")), &st))
	assert.Equal(t, 3, st.Persons)
	assert.Equal(t, 2, st.Connections)
	assert.True(t, st.Connected)

	var rep analysis.CentralityReport
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, data, "--json", "centrality")), &rep))
	require.NotEmpty(t, rep.Degree)
	assert.Equal(t, "Ana", rep.Degree[0].Name)
	assert.Equal(t, "Ana", rep.Closeness[0].Name)

	out := mustRun(t, data, "communities")
	assert.Contains(t, out, "Ana")

	var pa analysis.PersonAnalysis
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, data, "--json", "person", "analyze", "1")), &pa))
	assert.Equal(t, 2, pa.Degree)

	out = mustRun(t, data, "ego", "2", "--format", "dot")
	assert.Contains(t, out, "graph ego_2 {")
	assert.Contains(t, out, `"1" -- "2" [label="music"];`)
}

func TestCLI_Recommend(t *testing.T) {
	data := filepath.Join(t.TempDir(), "net.json")
	mustRun(t, data, "person", "add", "--name", "Ana", "--interests", "music")
	mustRun(t, data, "person", "add", "--name", "Bob", "--interests", "music")
	mustRun(t, data, "disconnect", "1", "2")

	out := mustRun(t, data, "recommend", "1")
	assert.Contains(t, out, "Recommendations for Ana")
	assert.Contains(t, out, "Bob")

	_, _, err := run(t, data, "recommend", "9")
	assert.True(t, social.IsNotFound(err))
}

func TestCLI_ExportImport(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "net.json")
	mustRun(t, data, "person", "add", "--name", "Ana", "--interests", "music")
	mustRun(t, data, "person", "add", "--name", "Bob", "--interests", "music")

	yamlPath := filepath.Join(dir, "net.yaml")
	mustRun(t, data, "export", "--format", "yaml", "-o", yamlPath)
	snap, err := storage.ReadYAMLFile(yamlPath)
	require.NoError(t, err)
	assert.Len(t, snap.Persons, 2)

	out := mustRun(t, data, "export", "--format", "mermaid", "--communities")
	assert.Contains(t, out, "subgraph community_1")

	_, _, err = run(t, data, "export", "--format", "svg")
	assert.ErrorContains(t, err, "unknown export format")

	other := filepath.Join(dir, "other.json")
	out = mustRun(t, other, "import", "--file", yamlPath)
	assert.Contains(t, out, "imported 2 persons and 1 connections")

	var persons []social.Person
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, other, "--json", "person", "list")), &persons))
	assert.Equal(t, "Ana", persons[0].Name)
}

func TestCLI_Validation(t *testing.T) {
	data := filepath.Join(t.TempDir(), "net.json")

	_, _, err := run(t, data, "person", "add", "--name", " ")
	assert.True(t, social.IsValidation(err))

	_, _, err = run(t, data, "person", "add", "--name", "Ana", "--age", "-3")
	assert.True(t, social.IsValidation(err))

	_, _, err = run(t, data, "person", "show", "0")
	assert.True(t, social.IsValidation(err))

	_, err = os.Stat(data)
	assert.True(t, os.IsNotExist(err), "failed commands must not write the network")
}

func TestNeo4jPassword(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	cfg.Neo4j.Password = "configured"
	pw, err := neo4jPassword(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "configured", pw)

	cfg.Neo4j.Password = ""
	cfg.Secrets.Provider = "file"
	cfg.Secrets.File = filepath.Join(t.TempDir(), "secrets.yaml")
	require.NoError(t, os.WriteFile(cfg.Secrets.File, []byte("neo4j_password: from-file\n"), 0o600))
	pw, err = neo4jPassword(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "from-file", pw)
}

func TestOpenRepository(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "net.json")

	repo, err := openRepository(ctx, cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &jsonfile.Repository{}, repo)

	cfg.Storage.Backend = storage.BackendBadger
	cfg.Storage.Path = filepath.Join(t.TempDir(), "badger")
	repo, err = openRepository(ctx, cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &badgerdb.Repository{}, repo)
	require.NoError(t, repo.Close(ctx))

	cfg.Storage.Backend = storage.BackendNeo4j
	cfg.Secrets.Provider = "file"
	cfg.Secrets.File = filepath.Join(t.TempDir(), "absent.yaml")
	_, err = openRepository(ctx, cfg, nil)
	assert.ErrorContains(t, err, "secrets")

	cfg.Storage.Backend = "sqlite"
	_, err = openRepository(ctx, cfg, nil)
	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestWaitForShutdown_FailedSave(t *testing.T) {
	errDisk := errors.New("disk full")
	shutdown := server.NewShutdownHandler(&server.ShutdownConfig{Timeout: time.Second})
	shutdown.Register(server.NetworkSaveHook(func(context.Context) error { return errDisk }))
	shutdown.Start()

	go shutdown.Shutdown()
	err := waitForShutdown(shutdown, make(chan error))
	require.Error(t, err)
	assert.ErrorIs(t, err, errDisk)
	assert.ErrorContains(t, err, "network-save")
}

func TestWaitForShutdown_ListenerError(t *testing.T) {
	shutdown := server.NewShutdownHandler(&server.ShutdownConfig{Timeout: time.Second})
	shutdown.Register(server.NetworkSaveHook(func(context.Context) error { return nil }))
	shutdown.Start()

	errs := make(chan error, 1)
	errs <- errors.New("address in use")
	err := waitForShutdown(shutdown, errs)
	assert.ErrorContains(t, err, "http server: address in use")

	closed := make(chan error)
	close(closed)
	other := server.NewShutdownHandler(&server.ShutdownConfig{Timeout: time.Second})
	other.Start()
	assert.NoError(t, waitForShutdown(other, closed))
}
