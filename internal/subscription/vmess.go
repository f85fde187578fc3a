package subscription

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var vmessRequiredKeys = []string{"host", "add", "id", "net", "path", "port", "ps", "aid"}

type vmessParser struct{}

// NewVMessParser parses vmess://BASE64(json) links.
func NewVMessParser() LinkParser {
	return vmessParser{}
}

func (vmessParser) Scheme() string { return "vmess" }

func (vmessParser) Parse(line string) (Outbound, error) {
	line = strings.TrimSpace(line)
	idx := strings.Index(line, "://")
	if idx < 0 {
		return nil, malformed("vmess", "missing ://", nil)
	}
	raw := line[idx+3:]
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}

	payload, err := decodeBase64(raw)
	if err != nil {
		return nil, malformed("vmess", "base64 decode", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, malformed("vmess", "json", err)
	}
	for _, k := range vmessRequiredKeys {
		if _, ok := m[k]; !ok {
			return nil, malformed("vmess", fmt.Sprintf("missing %q", k), nil)
		}
	}

	var host, add, id, network, path, ps string
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"host", &host}, {"add", &add}, {"id", &id}, {"net", &network}, {"path", &path}, {"ps", &ps},
	} {
		if err := json.Unmarshal(m[f.key], f.dst); err != nil {
			return nil, malformed("vmess", fmt.Sprintf("field %q", f.key), err)
		}
	}
	port, err := jsonInt(m["port"])
	if err != nil {
		return nil, malformed("vmess", "port", err)
	}
	if port <= 0 || port > 65535 {
		return nil, malformed("vmess", fmt.Sprintf("invalid port %d", port), nil)
	}
	aid, err := jsonInt(m["aid"])
	if err != nil {
		return nil, malformed("vmess", "aid", err)
	}
	if aid < 0 {
		return nil, malformed("vmess", fmt.Sprintf("invalid aid %d", aid), nil)
	}

	tag := strings.TrimRight(ps, "\r")
	switch {
	case strings.TrimSpace(add) == "":
		return nil, malformed("vmess", "missing add (server)", nil)
	case strings.TrimSpace(id) == "":
		return nil, malformed("vmess", "missing id (UUID)", nil)
	case strings.TrimSpace(tag) == "":
		return nil, malformed("vmess", "empty ps (tag)", nil)
	}

	security := "auto"
	if raw, ok := m["scy"]; ok {
		var scy string
		if json.Unmarshal(raw, &scy) == nil && scy != "" {
			security = scy
		}
	}

	out := &VMessOutbound{
		OutboundType: TypeVMess,
		OutboundTag:  tag,
		Server:       add,
		ServerPort:   port,
		UUID:         id,
		AlterID:      aid,
		Security:     security,
		Network:      "tcp",
		Transport: &V2RayTransport{
			Type: network,
			Path: path,
		},
	}
	if host != "" {
		out.Transport.Headers = map[string]string{"Host": host}
	}
	return out, nil
}

// jsonInt accepts both 443 and "443"; providers emit either.
func jsonInt(raw json.RawMessage) (int, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	switch val := v.(type) {
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return 0, errors.New("empty value")
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q", val)
		}
		return n, nil
	case float64:
		if val != float64(int(val)) {
			return 0, fmt.Errorf("not an integer: %v", val)
		}
		return int(val), nil
	default:
		return 0, errors.New("missing or wrong type")
	}
}
