package subscription

import (
	"encoding/base64"
	"errors"
	"strings"
	"unicode/utf8"
)

// PadBase64 appends the '=' padding that s is missing.
func PadBase64(s string) string {
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return s
}

// decodeBase64 accepts both alphabets and missing padding, which
// subscription providers mix freely.
func decodeBase64(b64 string) ([]byte, error) {
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		return nil, errors.New("empty base64 payload")
	}
	b64 = strings.ReplaceAll(b64, "-", "+")
	b64 = strings.ReplaceAll(b64, "_", "/")
	return base64.StdEncoding.DecodeString(PadBase64(b64))
}

// DecodeBlob decodes a raw subscription into its lines. The result may end
// with an empty line; callers skip empty lines.
func DecodeBlob(raw string) ([]string, error) {
	data, err := decodeBase64(strings.TrimSpace(raw))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if !utf8.Valid(data) {
		return nil, &DecodeError{Err: errors.New("decoded payload is not valid UTF-8")}
	}
	return strings.Split(string(data), "\n"), nil
}
