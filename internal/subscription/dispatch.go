package subscription

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// LinkParser turns one link line of a given scheme into an Outbound.
type LinkParser interface {
	Scheme() string
	Parse(line string) (Outbound, error)
}

// Dispatcher routes link lines to the parser registered for their scheme.
type Dispatcher struct {
	parsers map[string]LinkParser
}

func NewDispatcher(parsers ...LinkParser) *Dispatcher {
	d := &Dispatcher{parsers: make(map[string]LinkParser, len(parsers))}
	for _, p := range parsers {
		d.Register(p)
	}
	return d
}

func DefaultDispatcher() *Dispatcher {
	return NewDispatcher(NewUserInfoParser("ss"), NewVMessParser())
}

// Register adds p, replacing any parser already bound to its scheme.
func (d *Dispatcher) Register(p LinkParser) {
	d.parsers[strings.ToLower(p.Scheme())] = p
}

func (d *Dispatcher) Schemes() []string {
	keys := lo.Keys(d.parsers)
	sort.Strings(keys)
	return keys
}

type ParseResult struct {
	Outbounds []Outbound
	Warnings  []Warning
}

// ParseLines parses every non-blank line in order. Lines with an unknown
// scheme or a malformed link are recorded as warnings and skipped.
func (d *Dispatcher) ParseLines(lines []string) ParseResult {
	var res ParseResult
	for i, line := range lines {
		line = trimLink(line)
		if strings.TrimSpace(line) == "" {
			continue
		}
		out, err := d.ParseLine(line)
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{Line: i + 1, Text: line, Err: err})
			continue
		}
		res.Outbounds = append(res.Outbounds, out)
	}
	return res
}

func (d *Dispatcher) ParseLine(line string) (Outbound, error) {
	scheme := linkScheme(line)
	p, ok := d.parsers[scheme]
	if !ok {
		return nil, &UnknownSchemeError{Scheme: scheme}
	}
	return p.Parse(line)
}

// trimLink drops leading whitespace and the line ending. Trailing spaces
// belong to the tag and are kept.
func trimLink(line string) string {
	return strings.TrimRight(strings.TrimLeft(line, " \t"), "\r\n")
}

func linkScheme(line string) string {
	idx := strings.Index(line, "://")
	if idx <= 0 {
		return ""
	}
	return strings.ToLower(line[:idx])
}
