package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DedupFirst = "first"
	DedupLast  = "last"
)

// DefaultExcludePatterns drops regions where AI services refuse traffic
// from the ai group.
var DefaultExcludePatterns = []string{
	"香港", "Hong Kong", "HongKong",
	"澳门", "Macau",
	"中国", "China",
	"俄罗斯", "Russia",
}

type Group struct {
	Tag     string   `yaml:"tag"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

type Config struct {
	URL             string        `yaml:"url"`
	Template        string        `yaml:"template"`
	Output          string        `yaml:"output"`
	CacheDir        string        `yaml:"cache_dir"`
	Timeout         time.Duration `yaml:"timeout"`
	UserAgent       string        `yaml:"user_agent"`
	Dedup           string        `yaml:"dedup"`
	ExcludePatterns []string      `yaml:"exclude_patterns"`
	Groups          []Group       `yaml:"groups"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path and fills in defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Template == "" {
		c.Template = "sing-box_1.11.json"
	}
	if c.Output == "" {
		c.Output = "config.json"
	}
	if c.CacheDir == "" {
		c.CacheDir = ".subcache"
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "SubConverter/1.0"
	}
	c.Dedup = strings.ToLower(strings.TrimSpace(c.Dedup))
	if c.Dedup == "" {
		c.Dedup = DedupFirst
	}
	if c.ExcludePatterns == nil {
		c.ExcludePatterns = append([]string(nil), DefaultExcludePatterns...)
	}
	if len(c.Groups) == 0 {
		c.Groups = []Group{
			{Tag: "proxy"},
			{Tag: "auto"},
			{Tag: "ai"},
		}
	}
	for i := range c.Groups {
		if c.Groups[i].Tag == "ai" && c.Groups[i].Exclude == nil {
			c.Groups[i].Exclude = c.ExcludePatterns
		}
	}
}

func (c *Config) Validate() error {
	if c.Dedup != DedupFirst && c.Dedup != DedupLast {
		return fmt.Errorf("dedup must be %q or %q, got %q", DedupFirst, DedupLast, c.Dedup)
	}
	seen := make(map[string]struct{}, len(c.Groups))
	for _, g := range c.Groups {
		tag := strings.TrimSpace(g.Tag)
		if tag == "" {
			return errors.New("groups contains an entry with an empty tag")
		}
		if _, ok := seen[tag]; ok {
			return fmt.Errorf("group %q is listed twice", tag)
		}
		seen[tag] = struct{}{}
	}
	return nil
}
