package subscription

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// reUserInfoLink matches scheme://userinfo@host:port[/][?query]#tag after
// the line has been percent-decoded.
var reUserInfoLink = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.\-]*)://([^@]+)@([^#?/]+):(\d+)/?(?:\?([^#]*))?#(.*)$`)

type userInfoParser struct {
	scheme string
}

// NewUserInfoParser parses links shaped like ss://BASE64(method:password)@host:port#tag.
// Schemes other than ss keep their token as the outbound type.
func NewUserInfoParser(scheme string) LinkParser {
	return &userInfoParser{scheme: strings.ToLower(scheme)}
}

func (p *userInfoParser) Scheme() string { return p.scheme }

func (p *userInfoParser) Parse(line string) (Outbound, error) {
	decoded := unescapeLenient(trimLink(line))
	m := reUserInfoLink.FindStringSubmatch(decoded)
	if m == nil {
		return nil, malformed(p.scheme, "link does not match scheme://userinfo@host:port#tag", nil)
	}
	scheme, userinfo, host, portStr, query, tag := strings.ToLower(m[1]), m[2], m[3], m[4], m[5], m[6]

	method, password, err := decodeSSUserInfo(userinfo)
	if err != nil {
		return nil, malformed(p.scheme, "userinfo", err)
	}
	port, err := parsePort(portStr)
	if err != nil {
		return nil, malformed(p.scheme, "port", err)
	}
	tag = strings.TrimRight(tag, "\r")
	if strings.TrimSpace(tag) == "" {
		return nil, malformed(p.scheme, "empty tag", nil)
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if host == "" {
		return nil, malformed(p.scheme, "missing host", nil)
	}

	out := &ShadowsocksOutbound{
		OutboundType: canonicalType(scheme),
		OutboundTag:  tag,
		Server:       host,
		ServerPort:   port,
		Method:       method,
		Password:     password,
	}
	out.Plugin, out.PluginOpts = parseSSPlugin(query)
	return out, nil
}

// unescapeLenient decodes valid %XX sequences and keeps anything else,
// such as the '%' in "50%off", as written.
func unescapeLenient(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func decodeSSUserInfo(user string) (method, password string, err error) {
	dec, err := decodeBase64(user)
	if err != nil {
		return "", "", fmt.Errorf("not base64: %w", err)
	}
	s := string(dec)
	if strings.Count(s, ":") != 1 {
		return "", "", errors.New("expected exactly one ':' between method and password")
	}
	method, password, _ = strings.Cut(s, ":")
	if method == "" {
		return "", "", errors.New("empty encryption method")
	}
	return method, password, nil
}

// parseSSPlugin reads the SIP002 plugin parameter ("name;opt=v;opt2=v2").
// The query is already percent-decoded so ';' cannot be used as a pair
// separator here.
func parseSSPlugin(query string) (plugin, opts string) {
	for _, kv := range strings.Split(query, "&") {
		v, ok := strings.CutPrefix(kv, "plugin=")
		if !ok || v == "" {
			continue
		}
		plugin, opts, _ = strings.Cut(v, ";")
		if plugin == "simple-obfs" {
			plugin = "obfs-local"
		}
		return plugin, opts
	}
	return "", ""
}

func parsePort(p string) (int, error) {
	if p == "" {
		return 0, errors.New("missing port")
	}
	v, err := strconv.Atoi(p)
	if err != nil {
		return 0, fmt.Errorf("cannot parse port %q", p)
	}
	if v <= 0 || v > 65535 {
		return 0, fmt.Errorf("invalid port %d", v)
	}
	return v, nil
}
