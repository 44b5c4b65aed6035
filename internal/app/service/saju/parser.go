package saju

import "encoding/json"

const summaryFallbackLimit = 200

type analysisPayload struct {
	Summary      string `json:"summary"`
	FullAnalysis string `json:"full_analysis"`
}

// parseAnalysis extracts the first balanced brace-delimited substring from
// the provider's text and reads summary/full_analysis from it. Any parse
// failure falls back to the raw text, so parsing never fails a request.
func parseAnalysis(text string) (summary, full string) {
	if block, ok := extractJSONBlock(text); ok {
		var p analysisPayload
		if err := json.Unmarshal([]byte(block), &p); err == nil {
			full = p.FullAnalysis
			if full == "" {
				full = text
			}
			return p.Summary, full
		}
	}
	return truncateRunes(text, summaryFallbackLimit), text
}

// extractJSONBlock returns the first balanced {...} substring, tracking
// string literals so braces inside values don't break the depth count.
func extractJSONBlock(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
