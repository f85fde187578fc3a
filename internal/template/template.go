package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/example/SubConverter/internal/fsutil"
	"github.com/example/SubConverter/internal/subscription"
)

// ShapeError means the template cannot host the generated outbounds.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return "template shape: " + e.Reason
}

func shapeErrorf(format string, args ...any) error {
	return &ShapeError{Reason: fmt.Sprintf(format, args...)}
}

// Document is a sing-box config template. Only the outbounds array is
// interpreted; every other key is carried through untouched and in order.
type Document struct {
	root      *Object
	outbounds []any
}

func Load(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(data []byte) (*Document, error) {
	v, err := decodeOrdered(data)
	if err != nil {
		return nil, fmt.Errorf("parse template json: %w", err)
	}
	root, ok := v.(*Object)
	if !ok {
		return nil, shapeErrorf("top level is %T, want an object", v)
	}
	raw, ok := root.Get("outbounds")
	if !ok {
		return nil, shapeErrorf("missing outbounds array")
	}
	outbounds, ok := raw.([]any)
	if !ok {
		return nil, shapeErrorf("outbounds is %T, want an array", raw)
	}
	for i, o := range outbounds {
		entry, ok := o.(*Object)
		if !ok {
			return nil, shapeErrorf("outbounds[%d] is %T, want an object", i, o)
		}
		if tag, ok := entry.Get("tag"); ok {
			if _, ok := tag.(string); !ok {
				return nil, shapeErrorf("outbounds[%d].tag is %T, want a string", i, tag)
			}
		}
	}
	return &Document{root: root, outbounds: outbounds}, nil
}

// Outbounds returns the current outbounds array. Template entries are
// *Object; merged entries are subscription.Outbound values.
func (d *Document) Outbounds() []any {
	return d.outbounds
}

// Tags lists the tags of the template's own entries.
func (d *Document) Tags() []string {
	var tags []string
	for _, o := range d.outbounds {
		if entry, ok := o.(*Object); ok {
			if tag := entryTag(entry); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// Members returns the member list of the group entry tagged tag.
func (d *Document) Members(tag string) ([]string, bool) {
	entry := d.findGroup(tag)
	if entry == nil {
		return nil, false
	}
	raw, _ := entry.Get("outbounds")
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, m := range v {
			if s, ok := m.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, true
}

// Validate checks that at least one rule names a group entry of the
// template and returns the rule tags that have no matching group.
func (d *Document) Validate(rules []GroupRule) (missing []string, err error) {
	found := 0
	for _, r := range rules {
		if d.findGroup(r.Tag) != nil {
			found++
			continue
		}
		missing = append(missing, r.Tag)
	}
	if found == 0 {
		return missing, shapeErrorf("no group outbound matches any of %v", ruleTags(rules))
	}
	return missing, nil
}

func (d *Document) findGroup(tag string) *Object {
	for _, o := range d.outbounds {
		entry, ok := o.(*Object)
		if !ok {
			continue
		}
		if classify(entry) == GroupEntry && entryTag(entry) == tag {
			return entry
		}
	}
	return nil
}

// Merge rewrites the member list of every group entry matched by a rule
// and appends outs after the existing entries. It returns the tags of the
// rewritten groups. Callers drop outs whose tags collide with Tags().
func (d *Document) Merge(outs []subscription.Outbound, tags []string, rules []GroupRule) []string {
	byTag := make(map[string]GroupRule, len(rules))
	for _, r := range rules {
		byTag[r.Tag] = r
	}

	var rewritten []string
	for _, o := range d.outbounds {
		entry, ok := o.(*Object)
		if !ok || classify(entry) != GroupEntry {
			continue
		}
		tag := entryTag(entry)
		rule, ok := byTag[tag]
		if !ok {
			continue
		}
		entry.Set("outbounds", rule.Members(tags))
		rewritten = append(rewritten, tag)
	}

	for _, out := range outs {
		d.outbounds = append(d.outbounds, out)
	}
	d.root.Set("outbounds", d.outbounds)
	return rewritten
}

// Marshal renders the document with four-space indentation. Non-ASCII tag
// text is written verbatim.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(d.root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Document) Save(path string) error {
	b, err := d.Marshal()
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, b)
}
