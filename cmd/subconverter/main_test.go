package main

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/SubConverter/internal/config"
	"github.com/example/SubConverter/internal/fetch"
	"github.com/example/SubConverter/internal/subscription"
)

const testTemplate = `{
    "outbounds": [
        {"type": "selector", "tag": "proxy", "outbounds": []},
        {"type": "urltest", "tag": "auto", "outbounds": []},
        {"type": "direct", "tag": "direct"}
    ]
}`

func TestRootCommandEndToEnd(t *testing.T) {
	links := "ss://YWVzLTI1Ni1nY206cGFzcw==@1.2.3.4:8388#HK-1\nfoo://garbage\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(base64.StdEncoding.EncodeToString([]byte(links))))
	}))
	defer srv.Close()

	dir := t.TempDir()
	tpl := filepath.Join(dir, "template.json")
	out := filepath.Join(dir, "config.json")
	cache := filepath.Join(dir, "cache")
	if err := os.WriteFile(tpl, []byte(testTemplate), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"--config", filepath.Join(dir, "absent.yaml"),
		"--url", srv.URL,
		"--template", tpl,
		"--output", out,
		"--cache-dir", cache,
		"--log-level", "error",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	var doc struct {
		Outbounds []map[string]any `json:"outbounds"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Outbounds) != 4 {
		t.Fatalf("unexpected outbound count: %d", len(doc.Outbounds))
	}
	if doc.Outbounds[3]["type"] != "shadowsocks" || doc.Outbounds[3]["tag"] != "HK-1" {
		t.Fatalf("unexpected appended outbound: %v", doc.Outbounds[3])
	}
	if _, err := os.Stat(filepath.Join(cache, "orig")); err != nil {
		t.Fatalf("blob not cached: %v", err)
	}

	// A second, offline run reuses the cache.
	_ = os.Remove(out)
	cmd = newRootCommand()
	cmd.SetArgs([]string{
		"--config", filepath.Join(dir, "absent.yaml"),
		"--template", tpl,
		"--output", out,
		"--cache-dir", cache,
		"--offline",
		"--log-level", "error",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("offline execute failed: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("offline run wrote nothing: %v", err)
	}
}

func TestRootCommandFatalWritesNothing(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "template.json")
	out := filepath.Join(dir, "config.json")
	if err := os.WriteFile(tpl, []byte(`{"log": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cache := filepath.Join(dir, "cache")
	if err := os.MkdirAll(cache, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cache, "orig"), []byte("c3M6Ly8="), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"--config", filepath.Join(dir, "absent.yaml"),
		"--template", tpl,
		"--output", out,
		"--cache-dir", cache,
		"--offline",
		"--log-level", "error",
	})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected template shape failure")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("no output may be written on failure")
	}
}

func TestRootCommandKeepsCacheOnErrorPage(t *testing.T) {
	good := base64.StdEncoding.EncodeToString([]byte("ss://YWVzLTI1Ni1nY206cGFzcw==@1.2.3.4:8388#HK-1\n"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	tpl := filepath.Join(dir, "template.json")
	out := filepath.Join(dir, "config.json")
	cacheDir := filepath.Join(dir, "cache")
	if err := os.WriteFile(tpl, []byte(testTemplate), 0o644); err != nil {
		t.Fatal(err)
	}
	cache := &fetch.Cache{Dir: cacheDir}
	if err := cache.Store(srv.URL, []byte(good)); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"--config", filepath.Join(dir, "absent.yaml"),
		"--url", srv.URL,
		"--template", tpl,
		"--output", out,
		"--cache-dir", cacheDir,
		"--log-level", "error",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute should fall back to the cache: %v", err)
	}
	_, blob, err := cache.Load()
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) != good {
		t.Fatalf("cached blob replaced by an error page: %q", blob)
	}
}

func TestDedupPolicyAndRules(t *testing.T) {
	if dedupPolicy(config.DedupLast) != subscription.DedupLast || dedupPolicy("first") != subscription.DedupFirst {
		t.Fatalf("unexpected dedup mapping")
	}
	rules := groupRules([]config.Group{{Tag: " ai ", Exclude: []string{"HK"}}})
	if len(rules) != 1 || rules[0].Tag != "ai" || rules[0].Exclude[0] != "HK" {
		t.Fatalf("unexpected rules: %+v", rules)
	}
}
