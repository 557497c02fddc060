package converters

import (
	"regexp"
	"strings"
)

var extraMarkerRE = regexp.MustCompile(`extra\s*==\s*["']([^"']+)["']`)

// SplitExtra pulls the `extra == "name"` clause out of a marker expression
// and returns the extra name and the remaining markers.
//
//	SplitExtra(`python_version < "3" and extra == "test"`) // "test", `python_version < "3"`
func SplitExtra(markers string) (extra, rest string) {
	m := extraMarkerRE.FindStringSubmatchIndex(markers)
	if m == nil {
		return "", strings.TrimSpace(markers)
	}
	extra = markers[m[2]:m[3]]
	before := strings.TrimSpace(markers[:m[0]])
	after := strings.TrimSpace(markers[m[1]:])
	before = strings.TrimSpace(strings.TrimSuffix(before, "and"))
	after = strings.TrimSpace(strings.TrimPrefix(after, "and"))

	switch {
	case before == "":
		rest = after
	case after == "":
		rest = before
	default:
		rest = before + " and " + after
	}
	return extra, unwrapParens(rest)
}

// JoinExtra adds an `extra == "name"` clause to markers.
func JoinExtra(markers, extra string) string {
	markers = strings.TrimSpace(markers)
	switch {
	case extra == "":
		return markers
	case markers == "":
		return `extra == "` + extra + `"`
	case strings.Contains(markers, " or "):
		return "(" + markers + `) and extra == "` + extra + `"`
	default:
		return markers + ` and extra == "` + extra + `"`
	}
}

func unwrapParens(s string) string {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return s
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return s
			}
		}
	}
	return strings.TrimSpace(s[1 : len(s)-1])
}
