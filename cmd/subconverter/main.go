package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/example/SubConverter/internal/config"
	"github.com/example/SubConverter/internal/convert"
	"github.com/example/SubConverter/internal/fetch"
	"github.com/example/SubConverter/internal/subscription"
	"github.com/example/SubConverter/internal/template"
)

type flags struct {
	config   string
	url      string
	template string
	output   string
	cacheDir string
	timeout  time.Duration
	offline  bool
	logLevel string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logrus.Errorln(err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "subconverter",
		Short:         "Convert an ss/vmess subscription into a sing-box config",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(f.logLevel); err != nil {
				return err
			}
			cfg, err := config.Load(f.config)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			applyFlags(cmd, cfg, f)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, f.offline)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "config.yaml", "path to config.yaml")
	fl.StringVarP(&f.url, "url", "u", "", "subscription url (overrides config, cached for later runs)")
	fl.StringVarP(&f.template, "template", "t", "", "sing-box template json")
	fl.StringVarP(&f.output, "output", "o", "", "output config path")
	fl.StringVar(&f.cacheDir, "cache-dir", "", "directory holding the cached url and blob")
	fl.DurationVar(&f.timeout, "timeout", 0, "HTTP client timeout")
	fl.BoolVar(&f.offline, "offline", false, "use the cached blob without fetching")
	fl.StringVar(&f.logLevel, "log-level", "", "log level (default from LOG_LEVEL, else info)")
	return cmd
}

func setupLogging(level string) error {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	logLevel := logrus.InfoLevel
	if level != "" {
		l, err := logrus.ParseLevel(level)
		if err != nil {
			return err
		}
		logLevel = l
	}
	logrus.SetLevel(logLevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config, f flags) {
	changed := cmd.Flags().Changed
	if changed("url") {
		cfg.URL = strings.TrimSpace(f.url)
	}
	if changed("template") {
		cfg.Template = f.template
	}
	if changed("output") {
		cfg.Output = f.output
	}
	if changed("cache-dir") {
		cfg.CacheDir = f.cacheDir
	}
	if changed("timeout") && f.timeout > 0 {
		cfg.Timeout = f.timeout
	}
}

func run(ctx context.Context, cfg *config.Config, offline bool) error {
	raw, err := fetch.Resolve(ctx,
		fetch.NewClient(cfg.Timeout, cfg.UserAgent),
		&fetch.Cache{Dir: cfg.CacheDir},
		cfg.URL, offline, validBlob)
	if err != nil {
		return fmt.Errorf("subscription: %w", err)
	}

	doc, err := template.Load(cfg.Template)
	if err != nil {
		return fmt.Errorf("template %s: %w", cfg.Template, err)
	}

	report, err := convert.Run(raw, doc, convert.Options{
		Dispatcher: subscription.DefaultDispatcher(),
		Dedup:      dedupPolicy(cfg.Dedup),
		Groups:     groupRules(cfg.Groups),
		Logger:     logrus.StandardLogger(),
	})
	if err != nil {
		return err
	}

	if err := doc.Save(cfg.Output); err != nil {
		return fmt.Errorf("write %s: %w", cfg.Output, err)
	}
	logrus.WithFields(logrus.Fields{
		"outbounds": len(report.Tags),
		"skipped":   len(report.Warnings),
		"conflicts": len(report.Conflicts),
		"groups":    strings.Join(report.Rewritten, ","),
	}).Infoln("[Main] wrote", cfg.Output)
	return nil
}

// validBlob keeps error pages and other non-subscription bodies out of
// the cache.
func validBlob(b []byte) error {
	_, err := subscription.DecodeBlob(string(b))
	return err
}

func dedupPolicy(s string) subscription.DedupPolicy {
	if s == config.DedupLast {
		return subscription.DedupLast
	}
	return subscription.DedupFirst
}

func groupRules(groups []config.Group) []template.GroupRule {
	rules := make([]template.GroupRule, 0, len(groups))
	for _, g := range groups {
		rules = append(rules, template.GroupRule{
			Tag:     strings.TrimSpace(g.Tag),
			Include: g.Include,
			Exclude: g.Exclude,
		})
	}
	return rules
}
