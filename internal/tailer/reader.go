package tailer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// ErrLogNotFound is returned by a Reader when the log file does not exist.
var ErrLogNotFound = errors.New("log file not found")

// Reader returns the complete lines appended to a file since the previous call.
type Reader interface {
	Scan() ([]string, error)
}

// Strategy selects how a Reader detects new content.
type Strategy string

const (
	// StrategyOffset remembers the byte offset read so far and only reads the delta.
	StrategyOffset Strategy = "offset"
	// StrategyRescan re-reads the whole file every pass and skips lines seen before.
	StrategyRescan Strategy = "rescan"
)

// NewReader returns the Reader for the given strategy.
func NewReader(s Strategy, path string, fromEnd bool) (Reader, error) {
	switch s {
	case StrategyOffset, "":
		return &OffsetReader{path: path, fromEnd: fromEnd}, nil
	case StrategyRescan:
		return NewRescanReader(path), nil
	default:
		return nil, fmt.Errorf("unknown tail strategy %q (want offset or rescan)", s)
	}
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrLogNotFound, path)
	}
	return f, err
}

// ---------------------------------------------------------------------------
// Offset Reader
// ---------------------------------------------------------------------------

// OffsetReader tracks how far into the file it has read. A trailing line
// without a newline is held back until it is completed. If the file shrinks
// below the offset it is treated as truncated and read again from the start.
type OffsetReader struct {
	path    string
	offset  int64
	partial string
	fromEnd bool
	started bool
}

// NewOffsetReader reads path from its beginning.
func NewOffsetReader(path string) *OffsetReader {
	return &OffsetReader{path: path}
}

// Offset returns the number of bytes consumed so far.
func (r *OffsetReader) Offset() int64 {
	return r.offset
}

func (r *OffsetReader) Scan() ([]string, error) {
	f, err := open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	if !r.started {
		r.started = true
		if r.fromEnd {
			r.offset = info.Size()
			return nil, nil
		}
	}

	if info.Size() < r.offset {
		r.offset = 0
		r.partial = ""
	}

	if _, err := f.Seek(r.offset, io.SeekStart); err != nil {
		return nil, err
	}

	var lines []string
	br := bufio.NewReader(f)
	for {
		chunk, err := br.ReadString('\n')
		r.offset += int64(len(chunk))

		if err == io.EOF {
			r.partial += chunk
			return lines, nil
		}
		if err != nil {
			return lines, err
		}

		lines = append(lines, trimEOL(r.partial+chunk))
		r.partial = ""
	}
}

// ---------------------------------------------------------------------------
// Rescan Reader
// ---------------------------------------------------------------------------

// RescanReader re-reads the whole file on every pass and returns only lines
// whose exact content has not been returned before. The seen set grows with
// the log and is never pruned.
type RescanReader struct {
	path string
	seen map[string]struct{}
}

func NewRescanReader(path string) *RescanReader {
	return &RescanReader{path: path, seen: make(map[string]struct{})}
}

// Seen returns the number of distinct lines remembered.
func (r *RescanReader) Seen() int {
	return len(r.seen)
}

func (r *RescanReader) Scan() ([]string, error) {
	f, err := open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	br := bufio.NewReader(f)
	for {
		chunk, err := br.ReadString('\n')
		if chunk != "" {
			line := trimEOL(chunk)
			if _, ok := r.seen[line]; !ok {
				r.seen[line] = struct{}{}
				lines = append(lines, line)
			}
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
}

func trimEOL(s string) string {
	return strings.TrimRight(s, "\r\n")
}
