package forge

import "strings"

const fence = "```"

// ExtractCode pulls generated source out of a model response. The interior of
// the first fenced block wins, with any language tag on the opening line
// dropped. An unterminated fence yields everything after its opening line.
// Text without a fence is returned trimmed, on the assumption that it is raw
// code.
func ExtractCode(raw string) string {
	start := strings.Index(raw, fence)
	if start == -1 {
		return strings.TrimSpace(raw)
	}

	body := raw[start+len(fence):]
	// Skip the language tag (```go, ```golang, ...).
	if nl := strings.IndexByte(body, '\n'); nl != -1 {
		tag := strings.TrimSpace(body[:nl])
		if !strings.ContainsAny(tag, " \t(){};=") {
			body = body[nl+1:]
		}
	} else {
		// Single line: ```code``` or a bare tag with nothing after it.
		if end := strings.Index(body, fence); end != -1 {
			return strings.TrimSpace(body[:end])
		}
		return ""
	}

	if end := strings.Index(body, fence); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
