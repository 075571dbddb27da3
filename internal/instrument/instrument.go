// Package instrument holds the descriptor for a single injected logging point
// and the in-memory registry of instruments owned by the active session.
package instrument

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/probekit/probekit/internal/codegen"
)

// Instrument is one injected logging point tied to a file and line.
type Instrument struct {
	ID        string           `json:"id"`
	File      string           `json:"file"` // absolute path, resolved at creation
	Line      int              `json:"line"` // 1-indexed insertion position
	Language  codegen.Language `json:"-"`
	Captures  []string         `json:"captures"`
	CreatedAt time.Time        `json:"created_at"`
	// Stale is set when the target file was modified outside the tool after
	// insertion, meaning the recorded location may have drifted.
	Stale bool `json:"stale,omitempty"`
}

// New builds an instrument for a working-directory-relative (or absolute)
// file path. The identifier is a UUID: safe to embed verbatim in source text
// and in regex-matched markers, and never reused after removal.
func New(file string, line int, captures []string, fallback codegen.Language) (Instrument, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return Instrument{}, fmt.Errorf("resolve %s: %w", file, err)
	}
	if captures == nil {
		captures = []string{}
	}
	return Instrument{
		ID:        uuid.NewString(),
		File:      abs,
		Line:      line,
		Language:  codegen.Detect(abs, fallback),
		Captures:  captures,
		CreatedAt: time.Now(),
	}, nil
}

// Location renders the file:line string embedded in generated code and log
// entries. It reflects the position at insertion time and is not corrected
// if the file is edited afterward.
func (in Instrument) Location() string {
	return fmt.Sprintf("%s:%d", in.File, in.Line)
}
