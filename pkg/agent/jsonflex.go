package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Reasoning services emit JSON-ish objects in several broken dialects:
// single-quoted keys, Python literals, trailing commas, prose wrapped
// around the object. ParseLooseObject runs an ordered chain of pure parse
// attempts and reports the first that yields an object.

var (
	fencedJSONRe    = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	braceSpanRe     = regexp.MustCompile(`(?s)\{.*\}`)
	pyTrueRe        = regexp.MustCompile(`\bTrue\b`)
	pyFalseRe       = regexp.MustCompile(`\bFalse\b`)
	pyNoneRe        = regexp.MustCompile(`\bNone\b`)
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// ParseLooseObject decodes text into a JSON object, tolerating common
// reasoning-service malformations. Returns false if no strategy produced
// an object.
func ParseLooseObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	if obj, ok := decodeObject(trimmed); ok {
		return obj, true
	}
	if obj, ok := decodeObject(normalizeQuotes(trimmed)); ok {
		return obj, true
	}
	if obj, ok := decodeObject(normalizeLiterals(trimmed)); ok {
		return obj, true
	}
	if span := braceSpanRe.FindString(trimmed); span != "" && span != trimmed {
		if obj, ok := decodeObject(span); ok {
			return obj, true
		}
		if obj, ok := decodeObject(normalizeQuotes(span)); ok {
			return obj, true
		}
		if obj, ok := decodeObject(normalizeLiterals(span)); ok {
			return obj, true
		}
	}
	return nil, false
}

// ExtractFencedObject pulls the first ```json fenced object out of text.
func ExtractFencedObject(text string) (string, bool) {
	m := fencedJSONRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func decodeObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// normalizeQuotes swaps single-quote delimiters for double quotes. Crude,
// but matches the malformation it targets: whole objects emitted with
// single-quoted keys and values.
func normalizeQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `"`)
}

// normalizeLiterals rewrites Python-style literals and trailing commas,
// then normalizes quotes.
func normalizeLiterals(s string) string {
	s = pyTrueRe.ReplaceAllString(s, "true")
	s = pyFalseRe.ReplaceAllString(s, "false")
	s = pyNoneRe.ReplaceAllString(s, "null")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return normalizeQuotes(s)
}
