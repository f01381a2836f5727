package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// ==================== EnvProvider Tests ====================

func TestEnvProvider_Name(t *testing.T) {
	p := NewEnvProvider("")
	if p.Name() != "env" {
		t.Fatalf("expected 'env', got %s", p.Name())
	}
}

func TestEnvProvider_Get_WithPrefix(t *testing.T) {
	t.Setenv("SOCIALGRAPH_NEO4J_PASSWORD", "prefixed")

	p := NewEnvProvider("")
	val, err := p.Get(context.Background(), KeyNeo4jPassword)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "prefixed" {
		t.Fatalf("expected 'prefixed', got %s", val)
	}
}

func TestEnvProvider_Get_WithoutPrefix(t *testing.T) {
	t.Setenv("SG_TEST_DIRECT", "direct")

	p := NewEnvProvider("SOCIALGRAPH_")
	val, err := p.Get(context.Background(), "sg_test_direct")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "direct" {
		t.Fatalf("expected 'direct', got %s", val)
	}
}

func TestEnvProvider_Get_NotFound(t *testing.T) {
	p := NewEnvProvider("SOCIALGRAPH_")
	if _, err := p.Get(context.Background(), "nonexistent_secret_xyz"); err == nil {
		t.Fatal("expected error for missing secret")
	}
}

// ==================== FileProvider Tests ====================

func writeSecrets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write secrets: %v", err)
	}
	return path
}

func TestFileProvider_Get(t *testing.T) {
	p, err := NewFileProvider(writeSecrets(t, "neo4j_password: s3cret\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "file" {
		t.Fatalf("expected 'file', got %s", p.Name())
	}

	val, err := p.Get(context.Background(), KeyNeo4jPassword)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "s3cret" {
		t.Fatalf("expected 's3cret', got %s", val)
	}

	if _, err := p.Get(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestFileProvider_JSON(t *testing.T) {
	p, err := NewFileProvider(writeSecrets(t, `{"neo4j_password": "from-json"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	val, _ := p.Get(context.Background(), KeyNeo4jPassword)
	if val != "from-json" {
		t.Fatalf("expected 'from-json', got %s", val)
	}
}

func TestFileProvider_Reload(t *testing.T) {
	path := writeSecrets(t, "neo4j_password: old\n")
	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.WriteFile(path, []byte("neo4j_password: new\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := p.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	val, _ := p.Get(context.Background(), KeyNeo4jPassword)
	if val != "new" {
		t.Fatalf("expected 'new', got %s", val)
	}
}

func TestFileProvider_Errors(t *testing.T) {
	if _, err := NewFileProvider(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := NewFileProvider(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := NewFileProvider(writeSecrets(t, "- not\n- a map\n")); err == nil {
		t.Fatal("expected error for malformed file")
	}
}

// ==================== Manager Tests ====================

func TestManager_DefaultConfig(t *testing.T) {
	t.Setenv("SOCIALGRAPH_NEO4J_PASSWORD", "env-pass")

	m, err := NewManager(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	val, err := m.Get(context.Background(), KeyNeo4jPassword)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "env-pass" {
		t.Fatalf("expected 'env-pass', got %s", val)
	}
}

func TestManager_FileFallsBackToEnv(t *testing.T) {
	t.Setenv("SOCIALGRAPH_ONLY_IN_ENV", "env-value")

	m, err := NewManager(&Config{Provider: "file", File: writeSecrets(t, "neo4j_password: file-pass\n")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if val, _ := m.Get(ctx, KeyNeo4jPassword); val != "file-pass" {
		t.Fatalf("expected 'file-pass', got %s", val)
	}
	if val, _ := m.Get(ctx, "only_in_env"); val != "env-value" {
		t.Fatalf("expected fallback 'env-value', got %s", val)
	}
}

func TestManager_Cache(t *testing.T) {
	t.Setenv("SOCIALGRAPH_CACHED", "first")

	m, _ := NewManager(DefaultConfig())
	ctx := context.Background()
	if val, _ := m.Get(ctx, "cached"); val != "first" {
		t.Fatalf("expected 'first', got %s", val)
	}

	t.Setenv("SOCIALGRAPH_CACHED", "second")
	if val, _ := m.Get(ctx, "cached"); val != "first" {
		t.Fatalf("expected cached 'first', got %s", val)
	}
}

func TestManager_GetOrDefault(t *testing.T) {
	m, _ := NewManager(DefaultConfig())
	if val := m.GetOrDefault(context.Background(), "nonexistent_secret_xyz", "fallback"); val != "fallback" {
		t.Fatalf("expected 'fallback', got %s", val)
	}
}

func TestManager_Errors(t *testing.T) {
	if _, err := NewManager(&Config{Provider: "vault"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if _, err := NewManager(&Config{Provider: "file"}); err == nil {
		t.Fatal("expected error for file provider without path")
	}
}
