// Package network is the orchestration layer between the user surfaces (CLI
// and HTTP) and the core graph packages. It owns the live store, validates
// input, runs the auto-connector after each insertion, and moves snapshots
// to and from the configured repository.
package network

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/efebarandurmaz/socialgraph/internal/analysis"
	"github.com/efebarandurmaz/socialgraph/internal/egonet"
	"github.com/efebarandurmaz/socialgraph/internal/events"
	"github.com/efebarandurmaz/socialgraph/internal/observability"
	"github.com/efebarandurmaz/socialgraph/internal/recommend"
	"github.com/efebarandurmaz/socialgraph/internal/social"
	"github.com/efebarandurmaz/socialgraph/internal/storage"
)

// ErrNoRepository is returned by Load and Save when no repository is set.
var ErrNoRepository = errors.New("network: no repository configured")

// NewPerson is the input for AddPerson.
type NewPerson struct {
	Name      string   `json:"name" yaml:"name" validate:"required,max=200"`
	Age       int      `json:"age" yaml:"age" validate:"gte=0"`
	Email     string   `json:"email" yaml:"email"`
	Interests []string `json:"interests" yaml:"interests" validate:"dive,max=100"`
}

// Service owns one network. All methods are safe for concurrent use.
type Service struct {
	mu       sync.RWMutex
	store    *social.Store
	engine   *recommend.Engine
	analyzer *analysis.Analyzer
	repo     storage.Repository
	backend  string
	validate *validator.Validate
	logger   *zap.Logger
	audit    *observability.AuditLogger
	metrics  *observability.Collector
	events   events.Publisher
}

// Option configures a Service.
type Option func(*Service)

// WithRepository sets the persistence backend. name labels logs and metrics.
func WithRepository(repo storage.Repository, name string) Option {
	return func(s *Service) {
		s.repo = repo
		s.backend = name
	}
}

// WithEngine replaces the recommendation engine.
func WithEngine(e *recommend.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithAnalyzer replaces the analyzer.
func WithAnalyzer(a *analysis.Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.analyzer = a
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = observability.LoggerOrNop(l) }
}

func WithAudit(a *observability.AuditLogger) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

func WithMetrics(c *observability.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithEvents publishes every successful mutation and load to p.
func WithEvents(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// New returns a service over an empty network.
func New(opts ...Option) *Service {
	s := &Service{
		store:    social.NewStore(),
		engine:   recommend.New(),
		logger:   zap.NewNop(),
		audit:    observability.NopAuditLogger(),
		events:   events.Nop(),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.analyzer == nil {
		s.analyzer = analysis.New(analysis.WithLogger(s.logger))
	}
	return s
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
}

// validationError converts the first validator failure to the domain error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return social.NewValidationError("", "%v", err)
	}
	e := verrs[0]
	field := e.Field()
	switch e.Tag() {
	case "required":
		return social.NewValidationError(field, "is required")
	case "gte":
		return social.NewValidationError(field, "must be at least %s", e.Param())
	case "max":
		return social.NewValidationError(field, "must be at most %s characters", e.Param())
	default:
		return social.NewValidationError(field, "is invalid")
	}
}

// ParseID converts user input to a person id.
func ParseID(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, social.NewValidationError("id", "%q is not a numeric id", raw)
	}
	if id <= 0 {
		return 0, social.NewValidationError("id", "must be positive, got %d", id)
	}
	return id, nil
}

// AddPerson validates and inserts a person, then connects them to everyone
// they share an interest with. It returns the stored person and the number
// of friendships created.
func (s *Service) AddPerson(ctx context.Context, in NewPerson) (social.Person, int, error) {
	ctx, span := observability.StartNetworkSpan(ctx, "add_person")
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		err = validationError(err)
		observability.RecordError(span, err)
		return social.Person{}, 0, err
	}

	s.mu.Lock()
	p, err := s.store.AddPerson(in.Name, in.Age, in.Email, in.Interests)
	if err != nil {
		s.mu.Unlock()
		observability.RecordError(span, err)
		return social.Person{}, 0, err
	}
	created := social.AutoConnect(s.store, p.ID)
	p, _ = s.store.Person(p.ID)
	s.updateSizeLocked()
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("person.id", p.ID), attribute.Int("auto_connections", created))
	s.metrics.RecordPersonAdded()
	s.metrics.RecordConnections(observability.SourceAuto, created)
	s.audit.LogPersonAdded(ctx, p.ID, p.Name, created)
	s.events.Publish(events.PersonAdded, map[string]any{"person": p, "auto_connections": created})
	s.logger.Info("person added",
		zap.Int("id", p.ID),
		zap.String("name", p.Name),
		zap.Int("auto_connections", created))
	return p, created, nil
}

// Connect creates a friendship. A self connection is a ValidationError, an
// unknown id a NotFoundError, and an existing friendship a ConflictError
// which callers may treat as a warning.
func (s *Service) Connect(ctx context.Context, a, b int) error {
	ctx, span := observability.StartNetworkSpan(ctx, "connect",
		attribute.Int("person.a", a), attribute.Int("person.b", b))
	defer span.End()

	s.mu.Lock()
	err := s.connectLocked(a, b)
	if err == nil {
		s.updateSizeLocked()
	}
	s.mu.Unlock()

	if err != nil {
		if social.IsConflict(err) {
			s.logger.Warn("connection already exists", zap.Int("a", a), zap.Int("b", b))
		}
		observability.RecordError(span, err)
		return err
	}
	s.metrics.RecordConnections(observability.SourceManual, 1)
	s.audit.LogConnection(ctx, a, b, observability.SourceManual)
	s.events.Publish(events.ConnectionAdded, social.EdgeRecord{OriginID: a, DestinationID: b})
	s.logger.Info("persons connected", zap.Int("a", a), zap.Int("b", b))
	return nil
}

func (s *Service) connectLocked(a, b int) error {
	if a == b {
		return social.NewValidationError("id", "a person cannot be connected to themself")
	}
	for _, id := range []int{a, b} {
		if !s.store.Has(id) {
			return &social.NotFoundError{ID: id}
		}
	}
	if s.store.Connected(a, b) {
		return &social.ConflictError{A: a, B: b}
	}
	s.store.Connect(a, b)
	return nil
}

// ConnectRaw parses both ids before connecting.
func (s *Service) ConnectRaw(ctx context.Context, rawA, rawB string) error {
	a, err := ParseID(rawA)
	if err != nil {
		return err
	}
	b, err := ParseID(rawB)
	if err != nil {
		return err
	}
	return s.Connect(ctx, a, b)
}

// Disconnect removes a friendship. Removing a friendship that does not exist
// is a ValidationError.
func (s *Service) Disconnect(ctx context.Context, a, b int) error {
	ctx, span := observability.StartNetworkSpan(ctx, "disconnect",
		attribute.Int("person.a", a), attribute.Int("person.b", b))
	defer span.End()

	s.mu.Lock()
	err := s.disconnectLocked(a, b)
	if err == nil {
		s.updateSizeLocked()
	}
	s.mu.Unlock()

	if err != nil {
		observability.RecordError(span, err)
		return err
	}
	s.metrics.RecordDisconnect()
	s.audit.LogDisconnect(ctx, a, b)
	s.events.Publish(events.ConnectionRemoved, social.EdgeRecord{OriginID: a, DestinationID: b})
	s.logger.Info("persons disconnected", zap.Int("a", a), zap.Int("b", b))
	return nil
}

func (s *Service) disconnectLocked(a, b int) error {
	for _, id := range []int{a, b} {
		if !s.store.Has(id) {
			return &social.NotFoundError{ID: id}
		}
	}
	if !s.store.Disconnect(a, b) {
		return social.NewValidationError("id", "persons %d and %d are not connected", a, b)
	}
	return nil
}

// RemovePerson deletes a person and all of their friendships.
func (s *Service) RemovePerson(ctx context.Context, id int) error {
	ctx, span := observability.StartNetworkSpan(ctx, "remove_person", attribute.Int("person.id", id))
	defer span.End()

	s.mu.Lock()
	dropped := s.store.Degree(id)
	ok := s.store.RemovePerson(id)
	if ok {
		s.updateSizeLocked()
	}
	s.mu.Unlock()

	if !ok {
		err := &social.NotFoundError{ID: id}
		observability.RecordError(span, err)
		return err
	}
	s.metrics.RecordPersonRemoved()
	s.audit.LogPersonRemoved(ctx, id, dropped)
	s.events.Publish(events.PersonRemoved, map[string]any{"id": id, "dropped_connections": dropped})
	s.logger.Info("person removed", zap.Int("id", id), zap.Int("dropped_connections", dropped))
	return nil
}

// Person returns one person.
func (s *Service) Person(id int) (social.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.store.Person(id)
	if !ok {
		return social.Person{}, &social.NotFoundError{ID: id}
	}
	return p, nil
}

// FindByName does a case-insensitive substring search. An empty query is a
// ValidationError.
func (s *Service) FindByName(query string) ([]social.Person, error) {
	if strings.TrimSpace(query) == "" {
		return nil, social.NewValidationError("query", "must not be empty")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.FindByName(strings.TrimSpace(query)), nil
}

// Persons returns everyone ordered by id.
func (s *Service) Persons() []social.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Persons()
}

// Connections returns every friendship with its shared interests.
func (s *Service) Connections() []social.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Connections()
}

// Graph returns the whole network as plain data.
func (s *Service) Graph() *social.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Graph()
}

// Size returns the number of persons and friendships.
func (s *Service) Size() (persons, connections int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Len(), s.store.EdgeCount()
}

// Ego returns the person, their friends and the friendships among them.
func (s *Service) Ego(ctx context.Context, id int) (*social.Graph, error) {
	_, span := observability.StartNetworkSpan(ctx, "ego", attribute.Int("person.id", id))
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	g, err := egonet.Extract(s.store, id)
	observability.RecordError(span, err)
	return g, err
}

// candidatesLocked is everyone except the subject and their friends.
func (s *Service) candidatesLocked(subject social.Person) []social.Person {
	all := s.store.Persons()
	out := make([]social.Person, 0, len(all))
	for _, p := range all {
		if p.ID == subject.ID || subject.HasFriend(p.ID) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Recommend ranks potential friends for id. limit <= 0 uses the engine
// default.
func (s *Service) Recommend(ctx context.Context, id, limit int) ([]recommend.Recommendation, error) {
	_, span := observability.StartNetworkSpan(ctx, "recommend", attribute.Int("person.id", id))
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	subject, ok := s.store.Person(id)
	if !ok {
		err := &social.NotFoundError{ID: id}
		observability.RecordError(span, err)
		return nil, err
	}
	s.metrics.RecordRecommendation()
	return s.engine.Recommend(subject, s.candidatesLocked(subject), limit), nil
}

// RecommendationSummary reports how many candidates share an interest.
func (s *Service) RecommendationSummary(ctx context.Context, id int) (recommend.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subject, ok := s.store.Person(id)
	if !ok {
		return recommend.Summary{}, &social.NotFoundError{ID: id}
	}
	return s.engine.Summarize(subject, s.candidatesLocked(subject)), nil
}

// Statistics returns whole-network metrics.
func (s *Service) Statistics(ctx context.Context) analysis.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defer s.timeAnalysis(ctx, "statistics")()
	return s.analyzer.Statistics(s.store)
}

// Centrality returns the degree and closeness rankings.
func (s *Service) Centrality(ctx context.Context) analysis.CentralityReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defer s.timeAnalysis(ctx, "centrality")()
	return s.analyzer.Centrality(s.store)
}

// Communities returns the detected communities with their members.
func (s *Service) Communities(ctx context.Context) [][]social.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defer s.timeAnalysis(ctx, "communities")()

	parts := s.analyzer.DetectCommunities(s.store)
	out := make([][]social.Person, 0, len(parts))
	for _, ids := range parts {
		members := make([]social.Person, 0, len(ids))
		for _, id := range ids {
			if p, ok := s.store.Person(id); ok {
				members = append(members, p)
			}
		}
		out = append(out, members)
	}
	return out
}

// AnalyzePerson summarizes one person's position in the network.
func (s *Service) AnalyzePerson(ctx context.Context, id int) (analysis.PersonAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defer s.timeAnalysis(ctx, "person")()
	return s.analyzer.AnalyzePerson(s.store, id)
}

func (s *Service) timeAnalysis(ctx context.Context, name string) func() {
	start := time.Now()
	_, span := observability.StartAnalysisSpan(ctx, name, s.store.Len())
	return func() {
		span.End()
		s.metrics.RecordAnalysis(name, time.Since(start))
	}
}

// Snapshot captures the live network with friend lists recomputed from the
// current adjacency.
func (s *Service) Snapshot() *storage.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return storage.FromStore(s.store)
}

// Load replaces the network with the repository contents. The live network
// is only swapped once the new one has been fully built, so a failed load
// leaves it untouched.
func (s *Service) Load(ctx context.Context) error {
	return s.load(ctx, "load")
}

// Reload is Load for a running service.
func (s *Service) Reload(ctx context.Context) error {
	return s.load(ctx, "reload")
}

func (s *Service) load(ctx context.Context, op string) error {
	if s.repo == nil {
		return ErrNoRepository
	}
	ctx, span := observability.StartStorageSpan(ctx, s.backend, op)
	defer span.End()

	start := time.Now()
	snap, err := s.repo.Load(ctx)
	var next *social.Store
	if err == nil {
		next, err = snap.Store()
	}
	s.metrics.RecordStorage(s.backend, "load", err, time.Since(start))
	if err != nil {
		err = fmt.Errorf("%s network from %s: %w", op, s.backend, err)
		observability.RecordError(span, err)
		s.audit.LogStorage(ctx, observability.AuditNetworkLoad, s.backend, 0, 0, err)
		s.logger.Error("network load failed", zap.String("backend", s.backend), zap.Error(err))
		return err
	}
	return s.swap(ctx, next, observability.AuditNetworkLoad)
}

// Import replaces the network with snap, e.g. one read from a YAML file.
func (s *Service) Import(ctx context.Context, snap *storage.Snapshot) error {
	next, err := snap.Store()
	if err != nil {
		s.audit.LogStorage(ctx, observability.AuditNetworkImport, "import", 0, 0, err)
		return fmt.Errorf("import network: %w", err)
	}
	return s.swap(ctx, next, observability.AuditNetworkImport)
}

func (s *Service) swap(ctx context.Context, next *social.Store, event observability.AuditEventType) error {
	s.mu.Lock()
	s.store = next
	persons, connections := next.Len(), next.EdgeCount()
	s.updateSizeLocked()
	s.mu.Unlock()

	s.audit.LogStorage(ctx, event, s.backend, persons, connections, nil)
	s.events.Publish(events.NetworkLoaded, map[string]any{
		"source":      string(event),
		"persons":     persons,
		"connections": connections,
	})
	s.logger.Info("network loaded",
		zap.String("source", string(event)),
		zap.Int("persons", persons),
		zap.Int("connections", connections))
	return nil
}

// Save writes the live network to the repository.
func (s *Service) Save(ctx context.Context) error {
	if s.repo == nil {
		return ErrNoRepository
	}
	ctx, span := observability.StartStorageSpan(ctx, s.backend, "save")
	defer span.End()

	snap := s.Snapshot()
	start := time.Now()
	err := s.repo.Save(ctx, snap)
	s.metrics.RecordStorage(s.backend, "save", err, time.Since(start))
	s.audit.LogStorage(ctx, observability.AuditNetworkSave, s.backend, len(snap.Persons), len(snap.Connections), err)
	if err != nil {
		err = fmt.Errorf("save network to %s: %w", s.backend, err)
		observability.RecordError(span, err)
		s.logger.Error("network save failed", zap.String("backend", s.backend), zap.Error(err))
		return err
	}
	s.events.Publish(events.NetworkSaved, map[string]any{
		"backend":     s.backend,
		"persons":     len(snap.Persons),
		"connections": len(snap.Connections),
	})
	s.logger.Debug("network saved",
		zap.String("backend", s.backend),
		zap.Int("persons", len(snap.Persons)),
		zap.Int("connections", len(snap.Connections)))
	return nil
}

// Ping checks the repository when it supports health checks.
func (s *Service) Ping(ctx context.Context) error {
	if s.repo == nil {
		return ErrNoRepository
	}
	if p, ok := s.repo.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the repository.
func (s *Service) Close(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Close(ctx)
}

func (s *Service) updateSizeLocked() {
	s.metrics.SetNetworkSize(s.store.Len(), s.store.EdgeCount())
}
