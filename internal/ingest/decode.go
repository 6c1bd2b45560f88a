package ingest

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode"

	"github.com/radif/ingest/internal/fileerr"
)

var dataURLHeader = regexp.MustCompile(`(?i)^data:[^;,]*(;[^;,]+)*;base64,`)

// DecodePayload decodes an inline base64 payload, optionally prefixed with a
// data URL header. The decoded bytes must re-encode to exactly the
// (whitespace-stripped, padding-normalized) input, which rejects truncated or
// non-canonical input that a lenient decoder would accept.
func DecodePayload(payload string) ([]byte, error) {
	s := strings.TrimSpace(payload)
	if loc := dataURLHeader.FindStringIndex(s); loc != nil {
		s = s[loc[1]:]
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, fileerr.InvalidData("payload is empty", nil)
	}

	normalized := normalizePadding(s)
	decoded, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return nil, fileerr.InvalidData("malformed base64", err)
	}
	if len(decoded) == 0 {
		return nil, fileerr.InvalidData("decoded payload is empty", nil)
	}
	if base64.StdEncoding.EncodeToString(decoded) != normalized {
		return nil, fileerr.InvalidData("base64 does not round-trip", nil)
	}
	return decoded, nil
}

func normalizePadding(s string) string {
	s = strings.TrimRight(s, "=")
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return s
}
