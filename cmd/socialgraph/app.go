package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/efebarandurmaz/socialgraph/internal/analysis"
	"github.com/efebarandurmaz/socialgraph/internal/config"
	"github.com/efebarandurmaz/socialgraph/internal/events"
	"github.com/efebarandurmaz/socialgraph/internal/network"
	"github.com/efebarandurmaz/socialgraph/internal/observability"
	"github.com/efebarandurmaz/socialgraph/internal/recommend"
	"github.com/efebarandurmaz/socialgraph/internal/report"
	"github.com/efebarandurmaz/socialgraph/internal/secrets"
	"github.com/efebarandurmaz/socialgraph/internal/storage"
	"github.com/efebarandurmaz/socialgraph/internal/storage/badgerdb"
	"github.com/efebarandurmaz/socialgraph/internal/storage/jsonfile"
	neo4jstore "github.com/efebarandurmaz/socialgraph/internal/storage/neo4j"
)

// flags are the persistent root flags. Empty values keep the configured one.
type flags struct {
	configPath string
	backend    string
	dataPath   string
	logLevel   string
	jsonOutput bool
}

// app holds everything a command needs. It is built once per invocation by
// the root command's PersistentPreRunE.
type app struct {
	flags flags

	cfg      *config.Config
	logger   *zap.Logger
	audit    *observability.AuditLogger
	tracer   *observability.TracerProvider
	events   *events.Hub
	metrics  *observability.Collector
	svc      *network.Service
	renderer *report.Renderer

	// handedOff is set once serve registers the closers as shutdown hooks.
	handedOff bool
}

func (a *app) init(ctx context.Context) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	if a.flags.backend != "" {
		cfg.Storage.Backend = a.flags.backend
	}
	if a.flags.dataPath != "" {
		cfg.Storage.Path = a.flags.dataPath
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	a.cfg = cfg

	a.logger, err = observability.NewLogger(observability.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	for _, w := range cfg.Validate() {
		a.logger.Warn("config", zap.String("warning", w))
	}

	a.audit, err = observability.NewAuditLogger(observability.AuditConfig{
		Enabled:    cfg.Audit.Enabled,
		OutputPath: cfg.Audit.Path,
	})
	if err != nil {
		return fmt.Errorf("audit logger: %w", err)
	}

	tc := observability.DefaultTracingConfig()
	tc.OTLPEndpoint = cfg.Tracing.Endpoint
	tc.SampleRate = cfg.Tracing.SampleRate
	tc.ServiceVersion = version
	if cfg.Tracing.ServiceName != "" {
		tc.ServiceName = cfg.Tracing.ServiceName
	}
	a.tracer, err = observability.InitTracing(ctx, tc)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	repo, err := openRepository(ctx, cfg, a.logger)
	if err != nil {
		return err
	}

	a.metrics = observability.NewCollector("socialgraph")
	a.events = events.NewHub(events.WithLogger(a.logger))
	a.svc = network.New(
		network.WithRepository(repo, cfg.Storage.Backend),
		network.WithEngine(recommend.New(recommend.WithLimit(cfg.Recommend.Limit))),
		network.WithAnalyzer(analysis.New(analysis.WithLogger(a.logger))),
		network.WithLogger(a.logger),
		network.WithAudit(a.audit),
		network.WithMetrics(a.metrics),
		network.WithEvents(a.events),
	)
	a.renderer = report.New()

	if err := a.svc.Load(ctx); err != nil {
		return err
	}
	return nil
}

// openRepository builds the configured storage backend.
func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Repository, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case storage.BackendJSONFile:
		return jsonfile.New(cfg.Storage.Path), nil
	case storage.BackendBadger:
		bc := badgerdb.DefaultConfig(cfg.Storage.Path)
		bc.Logger = logger
		repo, err := badgerdb.Open(bc)
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		return repo, nil
	case storage.BackendNeo4j:
		password, err := neo4jPassword(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repo, err := neo4jstore.Open(ctx, neo4jstore.Config{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: password,
			Database: cfg.Neo4j.Database,
		})
		if err != nil {
			return nil, fmt.Errorf("open neo4j store: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// neo4jPassword prefers the configured password and otherwise asks the
// secrets manager. A missing secret leaves the password empty.
func neo4jPassword(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.Neo4j.Password != "" {
		return cfg.Neo4j.Password, nil
	}
	mgr, err := secrets.NewManager(&secrets.Config{
		Provider: cfg.Secrets.Provider,
		File:     cfg.Secrets.File,
	})
	if err != nil {
		return "", fmt.Errorf("secrets: %w", err)
	}
	return mgr.GetOrDefault(ctx, secrets.KeyNeo4jPassword, ""), nil
}

// close releases whatever init managed to build. Safe to call after a
// partial init.
func (a *app) close(ctx context.Context) error {
	if a.handedOff {
		return nil
	}
	var errs []error
	if a.svc != nil {
		errs = append(errs, a.svc.Close(ctx))
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}

// print writes v as indented JSON with --json, otherwise the styled text.
func (a *app) print(w io.Writer, v any, styled func() string) error {
	if a.flags.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, styled())
	return err
}
