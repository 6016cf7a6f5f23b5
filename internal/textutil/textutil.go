package textutil

import (
	"encoding/json"
	"regexp"
	"strings"
)

// MDImage matches a markdown image tag: ![alt](path)
var MDImage = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)

var (
	codeFence   = regexp.MustCompile("```[a-zA-Z]*\n?")
	unsupported = regexp.MustCompile(`[^\x{0000}-\x{007F}\x{0600}-\x{06FF}\x{060C}\x{061F}\x{0021}\x{002D}\s]`)
)

// CleanQuestion strips a leading "سؤال:" or "qa:" marker from raw input.
func CleanQuestion(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(lowered, "سؤال:") || strings.HasPrefix(lowered, "qa:") {
		if _, rest, ok := strings.Cut(raw, ":"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return strings.TrimSpace(raw)
}

// StripUnsupported removes characters the Arabic report font cannot render
// (emoji and similar), keeping Basic Latin, the Arabic block and Arabic
// punctuation.
func StripUnsupported(text string) string {
	return unsupported.ReplaceAllString(text, "")
}

// CleanJSONBlock removes markdown code fences and stray backticks around a
// generated JSON payload.
func CleanJSONBlock(text string) string {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
	return strings.TrimSpace(strings.Trim(cleaned, "`"))
}

// ExtractJSONObject returns the substring between the first '{' and the last
// '}' of a cleaned generation output, or "" when no object is present.
func ExtractJSONObject(text string) string {
	cleaned := CleanJSONBlock(text)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end < start {
		return ""
	}
	return cleaned[start : end+1]
}

// ParseLooseJSON decodes generation output into out, tolerating code fences
// and single-quoted pseudo-JSON. Returns false when nothing parseable
// remains.
func ParseLooseJSON(raw string, out any) bool {
	cleaned := CleanJSONBlock(raw)
	if cleaned == "" {
		return false
	}
	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return true
	}
	fixed := strings.ReplaceAll(cleaned, "'", `"`)
	return json.Unmarshal([]byte(fixed), out) == nil
}

// WrapLine word-wraps a line to roughly maxChars characters per output line.
// Counting is rune-based so Arabic words are not over-split.
func WrapLine(line string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = 70
	}
	words := strings.Fields(line)
	var out []string
	var buf []string
	bufLen := 0
	for _, w := range words {
		wl := len([]rune(w))
		if bufLen+wl+len(buf) > maxChars && len(buf) > 0 {
			out = append(out, strings.Join(buf, " "))
			buf = []string{w}
			bufLen = wl
		} else {
			buf = append(buf, w)
			bufLen += wl
		}
	}
	if len(buf) > 0 {
		out = append(out, strings.Join(buf, " "))
	}
	return out
}
