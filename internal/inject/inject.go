// Package inject applies generated code blocks to files on disk: line-indexed
// insertion and region-based removal. Operations are plain read/modify/write —
// the tool serves one interactive operator, so no locking against concurrent
// external edits is attempted.
package inject

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/probekit/probekit/internal/region"
)

// ErrFileNotFound is returned when the insertion target does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrLineOutOfRange is returned when the target line is outside [1, lineCount+1].
var ErrLineOutOfRange = errors.New("line out of range")

// InsertBlock splices block (one or more lines, no trailing newline) into
// path before the 1-indexed line. Line lineCount+1 appends at the end.
func InsertBlock(path string, line int, block string) error {
	data, mode, err := readWithMode(path)
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")
	if line < 1 || line > len(lines)+1 {
		return fmt.Errorf("%w: line %d not in [1, %d]", ErrLineOutOfRange, line, len(lines)+1)
	}

	blockLines := strings.Split(block, "\n")
	spliced := make([]string, 0, len(lines)+len(blockLines))
	spliced = append(spliced, lines[:line-1]...)
	spliced = append(spliced, blockLines...)
	spliced = append(spliced, lines[line-1:]...)

	return os.WriteFile(path, []byte(strings.Join(spliced, "\n")), mode)
}

// RemoveRegion strips the region with the given id and dialect from path.
// A missing file means the target was deleted externally; that counts as
// nothing to remove, not an error. The file is rewritten only when its
// content actually changed.
func RemoveRegion(path string, d region.Dialect, id string) (bool, error) {
	data, mode, err := readWithMode(path)
	if errors.Is(err, ErrFileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	stripped, n := region.Strip(string(data), d, id)
	if n == 0 {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(stripped), mode); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// RemoveAll strips every region of every dialect from path and returns how
// many were removed. Like RemoveRegion, a missing file removes nothing.
func RemoveAll(path string) (int, error) {
	data, mode, err := readWithMode(path)
	if errors.Is(err, ErrFileNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	stripped, n := region.StripAll(string(data))
	if n == 0 {
		return 0, nil
	}
	if err := os.WriteFile(path, []byte(stripped), mode); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}

// readWithMode reads path and its permission bits so writes preserve them.
func readWithMode(path string) ([]byte, fs.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	return data, info.Mode().Perm(), nil
}
