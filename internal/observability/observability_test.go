package observability

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	assert.Equal(t, "socialgraph", cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracing(ctx, &TracingConfig{ServiceName: "test"})
	require.NoError(t, err)
	assert.NotNil(t, tp.Tracer())
	assert.NoError(t, tp.Shutdown(ctx))

	tp, err = InitTracing(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, tp)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestSpans(t *testing.T) {
	ctx := context.Background()

	_, span := StartNetworkSpan(ctx, "connect", attribute.Int("person.id", 1))
	RecordNetworkSize(span, 2, 1)
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	_, span = StartAnalysisSpan(ctx, "communities", 10)
	span.End()

	_, span = StartStorageSpan(ctx, "jsonfile", "save")
	span.End()
}

func TestNewLogger(t *testing.T) {
	for _, cfg := range []LogConfig{
		{},
		{Level: "debug", Format: "console"},
		{Level: "WARN", Format: "json"},
	} {
		l, err := NewLogger(cfg)
		require.NoError(t, err, "%+v", cfg)
		assert.NotNil(t, l)
	}

	_, err := NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
	_, err = NewLogger(LogConfig{Format: "xml"})
	assert.Error(t, err)

	assert.NotNil(t, LoggerOrNop(nil))
}

func TestCollector(t *testing.T) {
	c := NewCollector("test")

	c.RecordConnections(SourceAuto, 3)
	c.RecordConnections(SourceManual, 1)
	c.RecordConnections(SourceManual, 0)
	c.RecordPersonAdded()
	c.RecordPersonRemoved()
	c.RecordDisconnect()
	c.RecordRecommendation()
	c.SetNetworkSize(5, 4)
	c.RecordStorage("jsonfile", "save", nil, time.Millisecond)
	c.RecordStorage("jsonfile", "save", errors.New("disk full"), time.Millisecond)
	c.RecordAnalysis("statistics", time.Millisecond)
	c.RecordHTTPRequest("GET", "/api/v1/persons", "200", time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.ConnectionsCreated.WithLabelValues(SourceAuto)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ConnectionsCreated.WithLabelValues(SourceManual)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.PersonsAdded))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.NetworkPersons))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StorageOperations.WithLabelValues("jsonfile", "save", "error")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "test_connections_created_total")
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordConnections(SourceAuto, 1)
		c.RecordPersonAdded()
		c.SetNetworkSize(1, 1)
		c.RecordStorage("badger", "load", nil, 0)
	})
}

func TestCollector_Independent(t *testing.T) {
	a, b := NewCollector("x"), NewCollector("x")
	a.RecordPersonAdded()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PersonsAdded))
}

func readAuditLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	a := NewAuditLoggerWithWriter(&buf)
	ctx := context.Background()

	a.LogPersonAdded(ctx, 1, "Ana", 2)
	a.LogConnection(ctx, 1, 2, SourceManual)
	a.LogDisconnect(ctx, 1, 2)
	a.LogPersonRemoved(ctx, 1, 1)
	a.LogStorage(ctx, AuditNetworkSave, "jsonfile", 1, 0, errors.New("disk full"))

	lines := readAuditLines(t, &buf)
	require.Len(t, lines, 5)

	assert.Equal(t, "person.add", lines[0]["event_type"])
	assert.Equal(t, 2.0, lines[0]["auto_connections"])
	assert.Equal(t, true, lines[0]["success"])
	assert.NotEmpty(t, lines[0]["timestamp"])
	assert.NotContains(t, lines[0], "level")

	assert.Equal(t, "connection.create", lines[1]["event_type"])
	assert.Equal(t, "manual", lines[1]["source"])
	assert.Equal(t, "connection.remove", lines[2]["event_type"])
	assert.Equal(t, "person.remove", lines[3]["event_type"])

	assert.Equal(t, "network.save", lines[4]["event_type"])
	assert.Equal(t, false, lines[4]["success"])
	assert.Equal(t, "disk full", lines[4]["error_detail"])
}

func TestAuditLogger_TraceID(t *testing.T) {
	var buf bytes.Buffer
	a := NewAuditLoggerWithWriter(&buf)

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	a.LogDisconnect(ctx, 1, 2)
	span.End()

	lines := readAuditLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, span.SpanContext().TraceID().String(), lines[0]["trace_id"])
}

func TestNewAuditLogger(t *testing.T) {
	a, err := NewAuditLogger(AuditConfig{Enabled: false})
	require.NoError(t, err)
	a.LogDisconnect(context.Background(), 1, 2)
	assert.NoError(t, a.Close())

	path := filepath.Join(t.TempDir(), "audit.log")
	a, err = NewAuditLogger(AuditConfig{Enabled: true, OutputPath: path})
	require.NoError(t, err)
	a.LogConnection(context.Background(), 1, 2, SourceAuto)
	require.NoError(t, a.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event_type":"connection.create"`)

	_, err = NewAuditLogger(AuditConfig{Enabled: true, OutputPath: filepath.Join(t.TempDir(), "missing", "audit.log")})
	assert.Error(t, err)

	var nilLogger *AuditLogger
	assert.NotPanics(t, func() { nilLogger.LogDisconnect(context.Background(), 1, 2) })
}
