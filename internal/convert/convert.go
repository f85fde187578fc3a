package convert

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/example/SubConverter/internal/subscription"
	"github.com/example/SubConverter/internal/template"
)

type Options struct {
	Dispatcher *subscription.Dispatcher
	Dedup      subscription.DedupPolicy
	Groups     []template.GroupRule
	Logger     logrus.FieldLogger
}

// Report summarises one run.
type Report struct {
	Tags          []string
	Duplicates    int
	Conflicts     []string
	Warnings      []subscription.Warning
	MissingGroups []string
	Rewritten     []string
}

// Run decodes raw, parses every link and merges the result into doc. A
// broken blob or template aborts the run before doc is modified; broken
// links are only reported.
func Run(raw string, doc *template.Document, opts Options) (*Report, error) {
	if opts.Dispatcher == nil {
		opts.Dispatcher = subscription.DefaultDispatcher()
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	lines, err := subscription.DecodeBlob(raw)
	if err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	log.Debugf("[Convert] decoded %d lines", len(lines))

	missing, err := doc.Validate(opts.Groups)
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	for _, tag := range missing {
		log.Warnf("[Convert] template has no group outbound %q", tag)
	}

	parsed := opts.Dispatcher.ParseLines(lines)
	for _, w := range parsed.Warnings {
		log.WithField("line", w.Line).Warnln("[Convert] skip:", w.Err)
	}

	usable, conflicting := subscription.DropReserved(parsed.Outbounds, doc.Tags())
	conflicts := make([]string, 0, len(conflicting))
	for _, o := range conflicting {
		log.Warnf("[Convert] skip %q: tag already used by the template", o.Tag())
		conflicts = append(conflicts, o.Tag())
	}

	outs, tags := subscription.Dedupe(usable, opts.Dedup)
	dups := len(usable) - len(outs)
	if dups > 0 {
		log.Debugf("[Convert] dropped %d duplicate tag(s)", dups)
	}

	rewritten := doc.Merge(outs, tags, opts.Groups)
	log.Infof("[Convert] %d outbound(s) accepted", len(tags))
	log.Infof("[Convert] tags: %v", tags)

	return &Report{
		Tags:          tags,
		Duplicates:    dups,
		Conflicts:     conflicts,
		Warnings:      parsed.Warnings,
		MissingGroups: missing,
		Rewritten:     rewritten,
	}, nil
}
