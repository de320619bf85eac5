package toolcall

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Repair normalizes near-JSON text into strictly valid JSON, best effort.
// Valid input is returned verbatim. Only brace-delimited objects are
// repaired; anything else (arrays, scalars, prose) is returned unchanged so
// the caller surfaces the original parse error. Repair never fails: when a
// rewrite does not produce valid JSON, the original text is returned.
//
// The heuristic tolerates the usual model quirks: unquoted keys, single
// quotes, bare word values, trailing commas. It splits at the first
// unquoted colon of each pair, so a bare value containing a literal colon
// (e.g. {time: 10:30}) keeps the remainder as its value; that ambiguity is
// a known limitation.
func Repair(raw string) string {
	if gjson.Valid(raw) {
		return raw
	}
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return raw
	}
	body := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if body == "" {
		return "{}"
	}

	var b strings.Builder
	b.WriteByte('{')
	first := true
	for _, seg := range splitTopLevel(body) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue // trailing or doubled comma
		}
		key, val, ok := splitPair(seg)
		if !ok {
			continue // no separator, cannot form a pair
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(normalizeKey(key))
		b.WriteByte(':')
		b.WriteString(normalizeValue(val))
	}
	b.WriteByte('}')

	out := b.String()
	if !gjson.Valid(out) {
		return raw
	}
	return out
}

// splitTopLevel splits s into comma-separated segments, treating a comma as
// a separator only at bracket/brace depth 0 and outside single or double
// quotes. Backslash escapes inside quotes are honored.
func splitTopLevel(s string) []string {
	var segs []string
	var depth int
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		case ',':
			if depth == 0 {
				segs = append(segs, s[start:i])
				start = i + 1
			}
		}
	}
	return append(segs, s[start:])
}

// splitPair splits a segment at its first unquoted, depth-0 colon.
func splitPair(seg string) (key, val string, ok bool) {
	var depth int
	var quote byte
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		case ':':
			if depth == 0 {
				return strings.TrimSpace(seg[:i]), strings.TrimSpace(seg[i+1:]), true
			}
		}
	}
	return "", "", false
}

// normalizeKey strips any existing quoting and re-emits the key as a JSON
// double-quoted string.
func normalizeKey(key string) string {
	return strconv.Quote(strings.Trim(key, `"'`))
}

// normalizeValue re-emits a raw value portion as a valid JSON value:
// quoted text becomes a double-quoted JSON string, numbers and the
// true/false/null literals (case-folded) pass through, nested structures
// pass through when valid (objects are repaired recursively when not), and
// everything else is treated as a bare string.
func normalizeValue(val string) string {
	if val == "" {
		return `""`
	}
	if len(val) >= 2 {
		if q := val[0]; (q == '\'' || q == '"') && val[len(val)-1] == q {
			if q == '"' && gjson.Valid(val) {
				return val
			}
			content := val[1 : len(val)-1]
			if q == '\'' {
				content = strings.ReplaceAll(content, `\'`, `'`)
			}
			return strconv.Quote(content)
		}
	}
	switch val[0] {
	case '{', '[':
		if gjson.Valid(val) {
			return val
		}
		if val[0] == '{' && strings.HasSuffix(val, "}") {
			if fixed := Repair(val); gjson.Valid(fixed) {
				return fixed
			}
		}
		return strconv.Quote(val)
	}
	if lower := strings.ToLower(val); lower == "true" || lower == "false" || lower == "null" {
		return lower
	}
	// A bare token that is already a valid JSON document here can only be
	// a number; strings and literals were handled above.
	if gjson.Valid(val) {
		return val
	}
	return strconv.Quote(val)
}
