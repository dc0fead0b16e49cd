package csvio

// stream.go wraps CSV input so that common export artifacts never reach
// the parser:
//
//   - A byte order mark is dropped; UTF-16 files with a BOM are decoded
//   - Invalid UTF-8 sequences become U+FFFD
//   - Bytes consumed are counted for metrics and progress
//
// Everything streams; nothing loads the whole file into memory.

import (
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Sanitize wraps r with BOM handling and UTF-8 repair.
func Sanitize(r io.Reader) io.Reader {
	t := transform.Chain(unicode.BOMOverride(transform.Nop), runes.ReplaceIllFormed())
	return transform.NewReader(r, t)
}

// CountingReader tracks the bytes read through it.
type CountingReader struct {
	reader    io.Reader
	bytesRead int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.bytesRead += int64(n)
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (c *CountingReader) BytesRead() int64 { return c.bytesRead }

// CleanCell strips spreadsheet export artifacts from a cell:
// surrounding whitespace, the ="..." formula wrapper used to keep leading
// zeros, a bare leading "=", and wrapping quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// DetectComma guesses the field delimiter from the first line of sample.
// It counts candidate delimiters outside quoted sections and returns the
// most frequent one, preferring ',' on ties and when none appear.
func DetectComma(sample []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	counts := make(map[rune]int, len(candidates))

	inQuotes := false
	for _, r := range string(sample) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		if r == '\n' || r == '\r' {
			break
		}
		counts[r]++
	}

	best, bestCount := ',', 0
	for _, c := range candidates {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}
