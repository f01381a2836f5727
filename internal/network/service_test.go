package network

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/socialgraph/internal/events"
	"github.com/efebarandurmaz/socialgraph/internal/observability"
	"github.com/efebarandurmaz/socialgraph/internal/social"
	"github.com/efebarandurmaz/socialgraph/internal/storage"
)

// memRepo is an in-memory repository whose calls can be made to fail.
type memRepo struct {
	mu      sync.Mutex
	snap    *storage.Snapshot
	loadErr error
	saveErr error
	saves   int
}

func (r *memRepo) Load(context.Context) (*storage.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	if r.snap == nil {
		return &storage.Snapshot{}, nil
	}
	return r.snap, nil
}

func (r *memRepo) Save(_ context.Context, snap *storage.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	snap.Normalize()
	r.snap = snap
	r.saves++
	return nil
}

func (r *memRepo) Close(context.Context) error { return nil }

func newTestService(t *testing.T, opts ...Option) (*Service, *memRepo) {
	t.Helper()
	repo := &memRepo{}
	opts = append([]Option{WithRepository(repo, "memory")}, opts...)
	return New(opts...), repo
}

func mustAdd(t *testing.T, s *Service, name string, interests ...string) social.Person {
	t.Helper()
	p, _, err := s.AddPerson(context.Background(), NewPerson{Name: name, Interests: interests})
	require.NoError(t, err)
	return p
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	ana, created, err := s.AddPerson(ctx, NewPerson{Name: "Ana", Interests: []string{"music", "art"}})
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	bob, created, err := s.AddPerson(ctx, NewPerson{Name: "Bob", Interests: []string{"music"}})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, []int{ana.ID}, bob.Friends)

	st := s.Statistics(ctx)
	assert.Equal(t, 2, st.Persons)
	assert.Equal(t, 1, st.Connections)
	assert.InDelta(t, 1.0, st.Density, 1e-9)
	assert.InDelta(t, 1.0, st.AverageDegree, 1e-9)
	assert.Equal(t, 1, st.Components)
	assert.True(t, st.Connected)
}

func TestAddPerson_Validation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := s.AddPerson(ctx, NewPerson{Name: "   "})
	require.Error(t, err)
	var verr *social.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	_, _, err = s.AddPerson(ctx, NewPerson{Name: "Ana", Age: -1})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "age", verr.Field)

	assert.Empty(t, s.Persons())
}

func TestAddPerson_NormalizesAndConnects(t *testing.T) {
	s, _ := newTestService(t)
	mustAdd(t, s, "Ana", "Music")
	mustAdd(t, s, "Cid", "golf")
	p := mustAdd(t, s, "  Bob ", "MUSIC", "golf")

	assert.Equal(t, "Bob", p.Name)
	assert.Equal(t, []string{"music", "golf"}, p.Interests)
	assert.Equal(t, []int{1, 2}, p.Friends)
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	a := mustAdd(t, s, "Ana", "music")
	b := mustAdd(t, s, "Bob", "golf")

	assert.True(t, social.IsValidation(s.Connect(ctx, a.ID, a.ID)))
	assert.True(t, social.IsNotFound(s.Connect(ctx, a.ID, 99)))

	require.NoError(t, s.Connect(ctx, a.ID, b.ID))
	err := s.Connect(ctx, b.ID, a.ID)
	assert.True(t, social.IsConflict(err))

	_, conns := s.Size()
	assert.Equal(t, 1, conns)
}

func TestConnectRaw(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	mustAdd(t, s, "Ana")
	mustAdd(t, s, "Bob")

	assert.True(t, social.IsValidation(s.ConnectRaw(ctx, "one", "2")))
	assert.True(t, social.IsValidation(s.ConnectRaw(ctx, "1", "2x")))
	assert.True(t, social.IsValidation(s.ConnectRaw(ctx, "1", "-2")))
	require.NoError(t, s.ConnectRaw(ctx, " 1 ", "2"))
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	for _, raw := range []string{"", "abc", "1.5", "0"} {
		_, err := ParseID(raw)
		assert.True(t, social.IsValidation(err), raw)
	}
}

func TestDisconnectAndRemove(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	a := mustAdd(t, s, "Ana", "music")
	b := mustAdd(t, s, "Bob", "music")
	c := mustAdd(t, s, "Cid", "music")

	require.NoError(t, s.Disconnect(ctx, a.ID, b.ID))
	assert.True(t, social.IsValidation(s.Disconnect(ctx, a.ID, b.ID)))
	assert.True(t, social.IsNotFound(s.Disconnect(ctx, a.ID, 42)))

	require.NoError(t, s.RemovePerson(ctx, c.ID))
	assert.True(t, social.IsNotFound(s.RemovePerson(ctx, c.ID)))

	persons, conns := s.Size()
	assert.Equal(t, 2, persons)
	assert.Equal(t, 0, conns)

	got, err := s.Person(a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Friends)
}

func TestFindByName(t *testing.T) {
	s, _ := newTestService(t)
	mustAdd(t, s, "Anabel")
	mustAdd(t, s, "Bob")
	mustAdd(t, s, "Joana")

	found, err := s.FindByName("ANA")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Anabel", found[0].Name)
	assert.Equal(t, "Joana", found[1].Name)

	_, err = s.FindByName("  ")
	assert.True(t, social.IsValidation(err))
}

func TestRecommendAndSummary(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	a := mustAdd(t, s, "Ana", "music")
	mustAdd(t, s, "Bob", "music")
	c := mustAdd(t, s, "Cid", "golf")
	d := mustAdd(t, s, "Dee", "music", "golf")
	require.NoError(t, s.Disconnect(ctx, a.ID, d.ID))

	recs, err := s.Recommend(ctx, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, d.ID, recs[0].PersonID)
	assert.Equal(t, []string{"music"}, recs[0].CommonInterests)

	sum, err := s.RecommendationSummary(ctx, a.ID)
	require.NoError(t, err)
	// candidates exclude Ana and her friend Bob
	assert.Equal(t, 2, sum.TotalCandidates)
	assert.Equal(t, 1, sum.CompatibleCandidates)
	assert.InDelta(t, 50.0, sum.CompatiblePercent, 1e-9)

	_, err = s.Recommend(ctx, 99, 0)
	assert.True(t, social.IsNotFound(err))
	_, err = s.RecommendationSummary(ctx, 99)
	assert.True(t, social.IsNotFound(err))
	_ = c
}

func TestEgoAndAnalysis(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	a := mustAdd(t, s, "Ana", "music")
	mustAdd(t, s, "Bob", "music")
	mustAdd(t, s, "Cid", "golf")

	g, err := s.Ego(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)

	_, err = s.Ego(ctx, 42)
	assert.True(t, social.IsNotFound(err))

	communities := s.Communities(ctx)
	require.Len(t, communities, 2)
	assert.Equal(t, "Ana", communities[0][0].Name)
	assert.Equal(t, "Cid", communities[1][0].Name)

	rep := s.Centrality(ctx)
	assert.Len(t, rep.Degree, 3)
	assert.Empty(t, rep.Closeness)

	pa, err := s.AnalyzePerson(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"music": 1}, pa.InterestConnections)
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestService(t)
	mustAdd(t, s, "Ana", "music")
	mustAdd(t, s, "Bob", "music")
	require.NoError(t, s.Save(ctx))
	assert.Equal(t, 1, repo.saves)

	fresh := New(WithRepository(repo, "memory"))
	require.NoError(t, fresh.Load(ctx))
	assert.Equal(t, s.Persons(), fresh.Persons())

	// next id continues after the loaded persons
	p := mustAdd(t, fresh, "Cid")
	assert.Equal(t, 3, p.ID)
}

func TestLoad_FailureKeepsState(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestService(t)
	mustAdd(t, s, "Ana", "music")
	before := s.Persons()

	repo.loadErr = errors.New("disk on fire")
	err := s.Reload(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, before, s.Persons())

	// invalid records fail while rebuilding, also without touching state
	repo.loadErr = nil
	repo.snap = &storage.Snapshot{Persons: []social.PersonRecord{{ID: 1, Name: "A"}, {ID: 1, Name: "B"}}}
	err = s.Reload(ctx)
	assert.True(t, social.IsValidation(err))
	assert.Equal(t, before, s.Persons())
}

func TestSave_FailureIsReported(t *testing.T) {
	s, repo := newTestService(t)
	mustAdd(t, s, "Ana")
	repo.saveErr = errors.New("read-only filesystem")

	err := s.Save(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only filesystem")
	assert.Equal(t, 0, repo.saves)
}

func TestNoRepository(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.Load(context.Background()), ErrNoRepository)
	assert.ErrorIs(t, s.Save(context.Background()), ErrNoRepository)
	assert.ErrorIs(t, s.Ping(context.Background()), ErrNoRepository)
	assert.NoError(t, s.Close(context.Background()))
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	mustAdd(t, s, "Old")

	err := s.Import(ctx, &storage.Snapshot{
		Persons: []social.PersonRecord{
			{ID: 5, Name: "Ana", Interests: []string{"Music"}, Friends: []int{6}},
			{ID: 6, Name: "Bob"},
		},
	})
	require.NoError(t, err)
	persons := s.Persons()
	require.Len(t, persons, 2)
	assert.Equal(t, []int{5}, persons[1].Friends)

	assert.Error(t, s.Import(ctx, &storage.Snapshot{Persons: []social.PersonRecord{{ID: 0, Name: "x"}}}))
	assert.Len(t, s.Persons(), 2)
}

func TestObservability(t *testing.T) {
	ctx := context.Background()
	var audit bytes.Buffer
	metrics := observability.NewCollector("test")
	s, _ := newTestService(t,
		WithMetrics(metrics),
		WithAudit(observability.NewAuditLoggerWithWriter(&audit)),
	)

	a := mustAdd(t, s, "Ana", "music")
	b := mustAdd(t, s, "Bob", "music")
	c := mustAdd(t, s, "Cid")
	require.NoError(t, s.Connect(ctx, a.ID, c.ID))
	require.NoError(t, s.Disconnect(ctx, a.ID, b.ID))
	require.NoError(t, s.Save(ctx))

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.PersonsAdded))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ConnectionsCreated.WithLabelValues(observability.SourceAuto)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ConnectionsCreated.WithLabelValues(observability.SourceManual)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NetworkConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageOperations.WithLabelValues("memory", "save", "ok")))

	out := audit.String()
	for _, event := range []string{"person.add", "connection.create", "connection.remove", "network.save"} {
		assert.Contains(t, out, `"event_type":"`+event+`"`)
	}
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(eventType string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	s, _ := newTestService(t, WithEvents(pub))

	mustAdd(t, s, "Ana", "music")
	mustAdd(t, s, "Bob", "music")
	require.NoError(t, s.Disconnect(ctx, 1, 2))
	require.NoError(t, s.Connect(ctx, 1, 2))
	assert.Error(t, s.Connect(ctx, 1, 2))
	require.NoError(t, s.RemovePerson(ctx, 2))
	require.NoError(t, s.Save(ctx))
	require.NoError(t, s.Reload(ctx))

	assert.Equal(t, []string{
		events.PersonAdded,
		events.PersonAdded,
		events.ConnectionRemoved,
		events.ConnectionAdded,
		events.PersonRemoved,
		events.NetworkSaved,
		events.NetworkLoaded,
	}, pub.types)
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = s.AddPerson(ctx, NewPerson{Name: "P", Interests: []string{"music"}})
		}()
		go func() {
			defer wg.Done()
			_ = s.Statistics(ctx)
			_, _ = s.FindByName("p")
		}()
	}
	wg.Wait()

	st := s.Statistics(ctx)
	assert.Equal(t, 8, st.Persons)
	assert.Equal(t, 28, st.Connections)
}
