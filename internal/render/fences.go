package render

import "strings"

const fence = "```"

// StripFences removes a code fence wrapped around the whole document. The
// leading fence (with any language tag) and the trailing fence are each removed
// when present, independently of one another. Fences inside the body are kept.
func StripFences(s string) string {
	out := s
	if body := strings.TrimLeft(out, " \t\r\n"); strings.HasPrefix(body, fence) {
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			out = body[nl+1:]
		} else {
			out = strings.TrimPrefix(strings.TrimPrefix(body, fence), "markdown")
		}
	}
	if body := strings.TrimRight(out, " \t\r\n"); strings.HasSuffix(body, fence) {
		out = strings.TrimSuffix(body, fence)
	}
	return out
}
