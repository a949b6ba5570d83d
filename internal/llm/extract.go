package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSONFound is returned when a model response holds no JSON object.
var ErrNoJSONFound = errors.New("no JSON object found in model response")

var (
	jsonFenceRe = regexp.MustCompile("(?s)```(?:json|JSON)[ \t]*\r?\n?(.*?)```")
	anyFenceRe  = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n?(.*?)```")
)

// ExtractJSON pulls a JSON object out of free-form model output. It tries a
// ```json fence, then any fence, then the first balanced {...} span that
// parses.
func ExtractJSON(raw string) (string, error) {
	for _, re := range []*regexp.Regexp{jsonFenceRe, anyFenceRe} {
		for _, m := range re.FindAllStringSubmatch(raw, -1) {
			candidate := strings.TrimSpace(m[1])
			if isJSONObject(candidate) {
				return candidate, nil
			}
		}
	}
	if candidate, ok := firstBalancedObject(raw); ok {
		return candidate, nil
	}
	return "", ErrNoJSONFound
}

// DecodeJSON extracts a JSON object from raw and unmarshals it into v.
func DecodeJSON(raw string, v any) error {
	candidate, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return fmt.Errorf("failed to decode model JSON: %w", err)
	}
	return nil
}

func isJSONObject(s string) bool {
	return strings.HasPrefix(s, "{") && json.Valid([]byte(s))
}

// firstBalancedObject scans for '{' positions and returns the first
// brace-balanced span that is valid JSON. Braces inside strings are ignored.
func firstBalancedObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := matchBrace(s, start); end > 0 {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the brace closing s[start], or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// StripCodeFence removes a fence wrapped around the whole response, which
// models sometimes add around markdown answers.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
