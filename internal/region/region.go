// Package region defines the delimited text regions that wrap every injected
// code block, and removes them exactly. A region is a start-marker line, an
// arbitrary interior, and the nearest subsequent end-marker line of the same
// comment style. Removal drops exactly the region's lines, making it the
// precise inverse of line-based insertion: once a region is stripped the rest
// of the file is byte-identical to what it was before insertion.
package region

import "strings"

// markerPrefix is embedded in every start and end marker. Wildcard removal
// matches on this prefix alone, so instrument identifiers must not contain it.
const markerPrefix = "probekit:"

// Dialect selects the line-comment convention used for region markers.
type Dialect struct {
	Name    string
	Comment string // line-comment leader, e.g. "//" or "#"
}

var (
	// CLine is the C-family dialect ("//"), used for the JS/TS family.
	CLine = Dialect{Name: "c", Comment: "//"}
	// HashLine is the Python-family dialect ("#").
	HashLine = Dialect{Name: "hash", Comment: "#"}
)

// dialects is the registered dialect list tried by wildcard removal, in order.
// Adding a third language means appending here, not touching the matcher.
var dialects = []Dialect{CLine, HashLine}

// All returns the registered dialects.
func All() []Dialect {
	return dialects
}

// Begin returns the start-marker line for id in this dialect.
func (d Dialect) Begin(id string) string {
	return d.Comment + " " + markerPrefix + "begin " + id
}

// End returns the end-marker line for id in this dialect.
func (d Dialect) End(id string) string {
	return d.Comment + " " + markerPrefix + "end " + id
}

// isBegin reports whether line is a start marker in this dialect. An empty id
// matches any start marker (the wildcard case). Surrounding whitespace is
// tolerated so re-indented markers are still found.
func (d Dialect) isBegin(line, id string) bool {
	trimmed := strings.TrimSpace(line)
	if id != "" {
		return trimmed == d.Begin(id)
	}
	return strings.HasPrefix(trimmed, d.Comment+" "+markerPrefix+"begin")
}

func (d Dialect) isEnd(line, id string) bool {
	trimmed := strings.TrimSpace(line)
	if id != "" {
		return trimmed == d.End(id)
	}
	return strings.HasPrefix(trimmed, d.Comment+" "+markerPrefix+"end")
}

// Strip removes the region delimited with id in dialect d from text.
// Returns the new text and the number of regions removed. Absent regions are
// a no-op, and stripping twice equals stripping once.
func Strip(text string, d Dialect, id string) (string, int) {
	return strip(text, d, id)
}

// StripAll removes every region of every registered dialect from text,
// whatever its id. A file is assumed to use one dialect consistently, but
// the caller does not need to know which.
func StripAll(text string) (string, int) {
	total := 0
	for _, d := range dialects {
		var n int
		text, n = strip(text, d, "")
		total += n
	}
	return text, total
}

// strip walks the line array and drops each region in full. A start marker
// with no subsequent end marker is left untouched: partial deletion would
// orphan the interior, so an unterminated region is not a region.
func strip(text string, d Dialect, id string) (string, int) {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	removed := 0

	for i := 0; i < len(lines); i++ {
		if !d.isBegin(lines[i], id) {
			kept = append(kept, lines[i])
			continue
		}
		// Find the nearest end marker of the same style (and id, unless
		// wildcard). Interior lines are skipped verbatim, whatever they
		// contain.
		end := -1
		for j := i + 1; j < len(lines); j++ {
			if d.isEnd(lines[j], id) {
				end = j
				break
			}
		}
		if end == -1 {
			kept = append(kept, lines[i])
			continue
		}
		i = end
		removed++
	}

	if removed == 0 {
		return text, 0
	}
	return strings.Join(kept, "\n"), removed
}

// ContainsMarker reports whether text still holds any region marker of any
// registered dialect. Used to verify cleanup.
func ContainsMarker(text string) bool {
	return strings.Contains(text, markerPrefix+"begin") || strings.Contains(text, markerPrefix+"end")
}
