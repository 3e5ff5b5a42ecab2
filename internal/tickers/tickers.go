package tickers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// symbolPattern matches normalized ticker symbols: uppercase alphanumerics
// plus '.', '=' and '-', between 1 and 8 characters.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9.=-]{1,8}$`)

// Normalize trims and upper-cases a raw symbol and reports whether the
// result is a valid ticker. Normalizing an already-normalized symbol is a
// no-op.
func Normalize(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if !symbolPattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// Dedupe removes duplicate symbols while preserving first-seen order.
func Dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Source yields the ticker universe for a pipeline run. Implementations
// must return a deduplicated list of normalized symbols.
type Source interface {
	Symbols() ([]string, error)
}

// FileSource reads one symbol per line from a plain text file. Blank lines
// and lines starting with '#' are ignored; invalid symbols are dropped.
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Symbols implements Source.
func (f *FileSource) Symbols() ([]string, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ticker file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads symbols from r, one per line, normalizing, validating and
// deduplicating them.
func Parse(r io.Reader) ([]string, error) {
	var symbols []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if sym, ok := Normalize(line); ok {
			symbols = append(symbols, sym)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ticker list: %w", err)
	}
	return Dedupe(symbols), nil
}
