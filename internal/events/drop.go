package events

import "strings"

// SplitDropPayload splits a raw drag-and-drop payload into individual links.
//
// Drop sources may concatenate several links without any delimiter, so the payload is split at every occurrence
// of the "http" scheme token. Canonical spotify: URIs separated by whitespace are accepted as well.
func SplitDropPayload(payload string) []string {
	var out []string
	for _, field := range strings.Fields(payload) {
		if !strings.Contains(field, "http") {
			out = append(out, field)
			continue
		}

		if prefix, _, _ := strings.Cut(field, "http"); prefix != "" {
			out = append(out, prefix)
		}
		for _, part := range strings.Split(field, "http")[1:] {
			out = append(out, "http"+part)
		}
	}
	return out
}
