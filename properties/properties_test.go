package properties

import (
	"os"
	"testing"
	"time"
)

func TestMap_SetLookupDelete(t *testing.T) {
	m := NewMap()
	m.Set("http.request.orders.connectionTimeout", "750")

	if v, ok := m.Lookup("http.request.orders.connectionTimeout"); !ok || v != "750" {
		t.Errorf("expected 750, got %q (ok=%v)", v, ok)
	}

	m.Delete("http.request.orders.connectionTimeout")
	if _, ok := m.Lookup("http.request.orders.connectionTimeout"); ok {
		t.Error("expected key to be gone after Delete")
	}
}

func TestMap_ReplaceCopiesInput(t *testing.T) {
	m := NewMap()
	m.Set("old", "1")

	src := map[string]string{"fresh": "2"}
	m.Replace(src)
	src["fresh"] = "mutated"

	if _, ok := m.Lookup("old"); ok {
		t.Error("expected Replace to drop previous keys")
	}
	if v := m.GetString("fresh", ""); v != "2" {
		t.Errorf("expected Replace to copy values, got %q", v)
	}
}

func TestMap_TypedGetters(t *testing.T) {
	m := NewMap()
	m.Set("timeout", " 42 ")
	m.Set("stale", "false")
	m.Set("junk", "not-a-number")

	if v := m.GetInt("timeout", 2000); v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
	if v := m.GetInt("junk", 2000); v != 2000 {
		t.Errorf("expected fallback on junk, got %d", v)
	}
	if v := m.GetInt("missing", 2000); v != 2000 {
		t.Errorf("expected fallback on miss, got %d", v)
	}
	if v := m.GetBool("stale", true); v {
		t.Error("expected false")
	}
	if v := m.GetBool("junk", true); !v {
		t.Error("expected fallback on junk")
	}
	if v := m.GetString("missing", "default"); v != "default" {
		t.Errorf("expected fallback, got %q", v)
	}
}

func TestEnv_Lookup(t *testing.T) {
	os.Setenv("HTTP_REQUEST_ORDERS_CONNECTIONTIMEOUT", "750")
	defer os.Unsetenv("HTTP_REQUEST_ORDERS_CONNECTIONTIMEOUT")

	e := Env{}
	if v := e.GetInt("http.request.orders.connectionTimeout", 2000); v != 750 {
		t.Errorf("expected 750, got %d", v)
	}
	if v := e.GetInt("http.request.orders.socketTimeout", 2000); v != 2000 {
		t.Errorf("expected fallback on unset variable, got %d", v)
	}
}

func TestEnv_Prefix(t *testing.T) {
	os.Setenv("RESTCALL_HTTP_PROXY_HOST", "proxy.internal")
	defer os.Unsetenv("RESTCALL_HTTP_PROXY_HOST")

	e := Env{Prefix: "RESTCALL"}
	if v := e.GetString("http.proxy.host", ""); v != "proxy.internal" {
		t.Errorf("expected proxy.internal, got %q", v)
	}
}

func TestFile_FlattenAndExpand(t *testing.T) {
	os.Setenv("PROXY_HOST", "proxy.internal")
	defer os.Unsetenv("PROXY_HOST")

	content := `
http:
  request:
    orders:
      connectionTimeout: 750
      staleConnectionCheck: false
  proxy:
    host: ${PROXY_HOST}
    port: 8080
empty:
`
	tmpFile, err := os.CreateTemp("", "props_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	tmpFile.Close()

	f, err := NewFile(tmpFile.Name())
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	if v := f.GetInt("http.request.orders.connectionTimeout", 0); v != 750 {
		t.Errorf("expected 750, got %d", v)
	}
	if v := f.GetBool("http.request.orders.staleConnectionCheck", true); v {
		t.Error("expected false")
	}
	if v := f.GetString("http.proxy.host", ""); v != "proxy.internal" {
		t.Errorf("expected expanded proxy host, got %q", v)
	}
	if v := f.GetInt("http.proxy.port", 0); v != 8080 {
		t.Errorf("expected 8080, got %d", v)
	}
	if _, ok := f.Lookup("empty"); ok {
		t.Error("expected null values to be skipped")
	}
}

func TestFile_ReloadOnChange(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "props_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write([]byte("greeting: hello\n")); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	tmpFile.Close()

	f, err := NewFile(tmpFile.Name())
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	if v := f.GetString("greeting", ""); v != "hello" {
		t.Fatalf("expected hello, got %q", v)
	}

	if err := os.WriteFile(tmpFile.Name(), []byte("greeting: goodbye\n"), 0644); err != nil {
		t.Fatalf("Failed to rewrite temp file: %v", err)
	}
	// Push the mtime forward so the change is visible on coarse clocks.
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(tmpFile.Name(), later, later); err != nil {
		t.Fatalf("Failed to bump mtime: %v", err)
	}

	if v := f.GetString("greeting", ""); v != "goodbye" {
		t.Errorf("expected reloaded value, got %q", v)
	}
}

func TestFile_KeepsSnapshotOnFailedReload(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "props_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write([]byte("greeting: hello\n")); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	tmpFile.Close()

	f, err := NewFile(tmpFile.Name())
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	if err := os.WriteFile(tmpFile.Name(), []byte("greeting: [unclosed\n"), 0644); err != nil {
		t.Fatalf("Failed to rewrite temp file: %v", err)
	}
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(tmpFile.Name(), later, later); err != nil {
		t.Fatalf("Failed to bump mtime: %v", err)
	}

	if v := f.GetString("greeting", ""); v != "hello" {
		t.Errorf("expected the previous snapshot to survive a bad reload, got %q", v)
	}
}

func TestFile_MissingFile(t *testing.T) {
	if _, err := NewFile("/nonexistent/properties.yaml"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestFile_InvalidYAML(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "props_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write([]byte("greeting: [unclosed\n")); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	tmpFile.Close()

	if _, err := NewFile(tmpFile.Name()); err == nil {
		t.Error("expected an error for invalid YAML")
	}
}

func TestChain_FirstHitWins(t *testing.T) {
	primary := NewMap()
	primary.Set("shared", "primary")
	secondary := NewMap()
	secondary.Set("shared", "secondary")
	secondary.Set("only", "secondary")

	c := NewChain(primary, secondary)

	if v := c.GetString("shared", ""); v != "primary" {
		t.Errorf("expected the first source to win, got %q", v)
	}
	if v := c.GetString("only", ""); v != "secondary" {
		t.Errorf("expected fallthrough to later sources, got %q", v)
	}
	if v := c.GetString("missing", "default"); v != "default" {
		t.Errorf("expected fallback, got %q", v)
	}
}
