package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Template != "sing-box_1.11.json" || cfg.Output != "config.json" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}
	if cfg.Timeout != 20*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.Timeout)
	}
	if cfg.Dedup != DedupFirst {
		t.Fatalf("expected dedup first, got %q", cfg.Dedup)
	}
	if len(cfg.Groups) != 3 || cfg.Groups[2].Tag != "ai" {
		t.Fatalf("unexpected default groups: %+v", cfg.Groups)
	}
	if len(cfg.Groups[2].Exclude) != len(DefaultExcludePatterns) {
		t.Fatalf("ai group should carry the default exclusions")
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
url: https://example.com/sub
template: tpl.json
timeout: 5s
dedup: LAST
exclude_patterns: ["JP"]
groups:
  - tag: proxy
  - tag: streaming
    include: ["US", "JP"]
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.URL != "https://example.com/sub" || cfg.Template != "tpl.json" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.Timeout)
	}
	if cfg.Dedup != DedupLast {
		t.Fatalf("expected normalized dedup last, got %q", cfg.Dedup)
	}
	if len(cfg.Groups) != 2 || cfg.Groups[1].Tag != "streaming" || len(cfg.Groups[1].Include) != 2 {
		t.Fatalf("unexpected groups: %+v", cfg.Groups)
	}
	if len(cfg.ExcludePatterns) != 1 || cfg.ExcludePatterns[0] != "JP" {
		t.Fatalf("unexpected exclude patterns: %v", cfg.ExcludePatterns)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"dedup":     "dedup: newest\n",
		"empty tag": "groups:\n  - tag: \"\"\n",
		"duplicate": "groups:\n  - tag: proxy\n  - tag: proxy\n",
	}
	for name, raw := range cases {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !strings.Contains(err.Error(), path) {
			t.Fatalf("%s: error should name the file, got %v", name, err)
		}
	}
}
