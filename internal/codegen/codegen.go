// Package codegen turns an instrument descriptor into injectable source text
// for the target language. Each block is a fire-and-forget HTTP POST to the
// local log collector, wrapped in the region markers that make exact removal
// possible. Generation is deterministic: no randomness and no timestamps are
// captured here — the injected code computes its own timestamp when it fires
// inside the host program.
package codegen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/probekit/probekit/internal/region"
)

// Language is the enumerated set of target languages.
type Language int

const (
	JavaScript Language = iota
	TypeScript
	Python
)

func (l Language) String() string {
	switch l {
	case TypeScript:
		return "typescript"
	case Python:
		return "python"
	default:
		return "javascript"
	}
}

// ParseLanguage maps a language name to its enum member.
func ParseLanguage(name string) (Language, bool) {
	switch strings.ToLower(name) {
	case "javascript", "js":
		return JavaScript, true
	case "typescript", "ts":
		return TypeScript, true
	case "python", "py":
		return Python, true
	}
	return JavaScript, false
}

// Detect infers the language from the file extension, falling back to
// fallback when the extension is not recognized.
func Detect(path string, fallback Language) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return JavaScript
	case ".ts", ".tsx", ".mts", ".cts":
		return TypeScript
	case ".py":
		return Python
	}
	return fallback
}

// Dialect returns the region marker dialect for the language. Unlisted
// languages use the C-family dialect, matching the emission fallback.
func (l Language) Dialect() region.Dialect {
	if l == Python {
		return region.HashLine
	}
	return region.CLine
}

// Generate produces the delimited code block for one instrument. The block
// has no trailing newline; the file mutator splices it in as whole lines.
func Generate(id, file string, line, port int, lang Language, captures []string) string {
	var body string
	switch lang {
	case Python:
		body = pythonBody(id, file, line, port, captures)
	default:
		// Unrecognized languages fall back to the C-family emission.
		body = javascriptBody(id, file, line, port, captures)
	}
	d := lang.Dialect()
	return d.Begin(id) + "\n" + body + "\n" + d.End(id)
}

// javascriptBody emits a single fetch call. Delivery failure is swallowed by
// .catch; captured names are read inside try/catch so an unbound name (or a
// TDZ access) degrades to undefined instead of throwing in the host program.
func javascriptBody(id, file string, line, port int, captures []string) string {
	var data strings.Builder
	for i, name := range captures {
		if i > 0 {
			data.WriteString(", ")
		}
		fmt.Fprintf(&data, "%s: (() => { try { return %s } catch (e) { return undefined } })()", quoteJSKey(name), name)
	}
	return fmt.Sprintf(
		"fetch('http://localhost:%d/log', { method: 'POST', headers: { 'Content-Type': 'application/json' }, "+
			"body: JSON.stringify({ id: '%s', location: '%s:%d', timestamp: Date.now(), data: { %s } }) }).catch(() => {});",
		port, escapeSingle(id), escapeSingle(file), line, data.String())
}

// pythonBody emits a urllib POST inside a blanket try/except so nothing can
// propagate into the host program. Captured names are looked up with
// locals()/globals() get, mapping absent names to None.
func pythonBody(id, file string, line, port int, captures []string) string {
	var data strings.Builder
	for i, name := range captures {
		if i > 0 {
			data.WriteString(", ")
		}
		fmt.Fprintf(&data, "'%s': locals().get('%s', globals().get('%s'))",
			escapeSingle(name), escapeSingle(name), escapeSingle(name))
	}
	lines := []string{
		"try:",
		"    import json as _probekit_json",
		"    import time as _probekit_time",
		"    import urllib.request as _probekit_request",
		fmt.Sprintf("    _probekit_payload = _probekit_json.dumps({'id': '%s', 'location': '%s:%d', 'timestamp': int(_probekit_time.time() * 1000), 'data': {%s}}).encode('utf-8')",
			escapeSingle(id), escapeSingle(file), line, data.String()),
		fmt.Sprintf("    _probekit_request.urlopen(_probekit_request.Request('http://localhost:%d/log', data=_probekit_payload, headers={'Content-Type': 'application/json'}), timeout=1)", port),
		"except Exception:",
		"    pass",
	}
	return strings.Join(lines, "\n")
}

// escapeSingle makes s safe inside a single-quoted JS or Python string.
func escapeSingle(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// quoteJSKey renders a capture name as a JS object key, quoting it when it
// is not a plain identifier.
func quoteJSKey(name string) string {
	plain := name != ""
	for i, r := range name {
		if r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		plain = false
		break
	}
	if plain {
		return name
	}
	return "'" + escapeSingle(name) + "'"
}
