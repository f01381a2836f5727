package observability

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditPersonAdd        AuditEventType = "person.add"
	AuditPersonRemove     AuditEventType = "person.remove"
	AuditConnectionCreate AuditEventType = "connection.create"
	AuditConnectionRemove AuditEventType = "connection.remove"
	AuditNetworkLoad      AuditEventType = "network.load"
	AuditNetworkSave      AuditEventType = "network.save"
	AuditNetworkImport    AuditEventType = "network.import"
)

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled bool
	// OutputPath is a file path, "stdout" or "stderr".
	OutputPath string
}

// AuditLogger writes one JSON line per mutation of the network. It uses its
// own zap core so audit lines never mix with diagnostics.
type AuditLogger struct {
	log    *zap.Logger
	closer io.Closer
}

// NewAuditLogger opens the configured sink. A disabled config yields a
// logger that drops everything.
func NewAuditLogger(cfg AuditConfig) (*AuditLogger, error) {
	if !cfg.Enabled {
		return NopAuditLogger(), nil
	}

	var (
		w      io.Writer
		closer io.Closer
	)
	switch cfg.OutputPath {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		w, closer = f, f
	}

	a := NewAuditLoggerWithWriter(w)
	a.closer = closer
	return a, nil
}

// NewAuditLoggerWithWriter writes audit lines to w.
func NewAuditLoggerWithWriter(w io.Writer) *AuditLogger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.MessageKey = "message"
	enc.LevelKey = ""
	enc.CallerKey = ""
	enc.StacktraceKey = ""

	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), zapcore.InfoLevel)
	return &AuditLogger{log: zap.New(core)}
}

// NopAuditLogger drops every event.
func NopAuditLogger() *AuditLogger {
	return &AuditLogger{log: zap.NewNop()}
}

// Log writes one event. The trace id of ctx is attached when present.
func (a *AuditLogger) Log(ctx context.Context, event AuditEventType, err error, fields ...zap.Field) {
	if a == nil {
		return
	}
	fields = append(fields,
		zap.String("event_type", string(event)),
		zap.Bool("success", err == nil),
	)
	if err != nil {
		fields = append(fields, zap.String("error_detail", err.Error()))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	a.log.Info(string(event), fields...)
}

// LogPersonAdded records a new person and how many friendships were created
// for them automatically.
func (a *AuditLogger) LogPersonAdded(ctx context.Context, id int, name string, autoConnections int) {
	a.Log(ctx, AuditPersonAdd, nil,
		zap.Int("person_id", id),
		zap.String("name", name),
		zap.Int("auto_connections", autoConnections),
	)
}

// LogPersonRemoved records a removal and the friendships it dropped.
func (a *AuditLogger) LogPersonRemoved(ctx context.Context, id, droppedConnections int) {
	a.Log(ctx, AuditPersonRemove, nil,
		zap.Int("person_id", id),
		zap.Int("dropped_connections", droppedConnections),
	)
}

// LogConnection records a friendship creation.
func (a *AuditLogger) LogConnection(ctx context.Context, from, to int, source string) {
	a.Log(ctx, AuditConnectionCreate, nil,
		zap.Int("from", from),
		zap.Int("to", to),
		zap.String("source", source),
	)
}

// LogDisconnect records a friendship removal.
func (a *AuditLogger) LogDisconnect(ctx context.Context, from, to int) {
	a.Log(ctx, AuditConnectionRemove, nil, zap.Int("from", from), zap.Int("to", to))
}

// LogStorage records a load, save or import.
func (a *AuditLogger) LogStorage(ctx context.Context, event AuditEventType, backend string, persons, connections int, err error) {
	a.Log(ctx, event, err,
		zap.String("backend", backend),
		zap.Int("persons", persons),
		zap.Int("connections", connections),
	)
}

// Close flushes and closes a file sink.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	_ = a.log.Sync()
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
