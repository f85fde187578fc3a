package template

import (
	"strings"

	"github.com/samber/lo"
)

type EntryKind int

const (
	LeafEntry EntryKind = iota
	GroupEntry
)

// groupTypes are the sing-box outbound types whose members are other tags.
var groupTypes = map[string]struct{}{
	"selector": {},
	"urltest":  {},
}

// classify tells group entries from leaf entries by their type, falling
// back to the presence of a member list for custom group types.
func classify(entry *Object) EntryKind {
	if v, ok := entry.Get("type"); ok {
		if t, ok := v.(string); ok {
			if _, ok := groupTypes[t]; ok {
				return GroupEntry
			}
		}
	}
	if v, ok := entry.Get("outbounds"); ok {
		switch v.(type) {
		case []any, []string:
			return GroupEntry
		}
	}
	return LeafEntry
}

func entryTag(entry *Object) string {
	v, _ := entry.Get("tag")
	tag, _ := v.(string)
	return tag
}

// GroupRule selects which accepted tags become members of the group
// entry named Tag.
type GroupRule struct {
	Tag     string
	Include []string
	Exclude []string
}

// Members filters tags in order. A tag containing any Exclude substring
// is dropped; when Include is set a tag must contain one of its substrings.
func (r GroupRule) Members(tags []string) []string {
	return lo.Filter(tags, func(tag string, _ int) bool {
		if lo.SomeBy(r.Exclude, func(p string) bool { return p != "" && strings.Contains(tag, p) }) {
			return false
		}
		if len(r.Include) == 0 {
			return true
		}
		return lo.SomeBy(r.Include, func(p string) bool { return strings.Contains(tag, p) })
	})
}

func ruleTags(rules []GroupRule) []string {
	return lo.Map(rules, func(r GroupRule, _ int) string { return r.Tag })
}
