package tickers

import (
	"os"
	"strings"
	"testing"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"simple", "AAPL", "AAPL", true},
		{"lowercase", "msft", "MSFT", true},
		{"whitespace", "  GOOGL \n", "GOOGL", true},
		{"dot class", "BRK.B", "BRK.B", true},
		{"futures", "ES=F", "ES=F", true},
		{"hyphen", "BF-B", "BF-B", true},
		{"empty", "", "", false},
		{"too long", "ABCDEFGHI", "", false},
		{"spaces inside", "A B", "", false},
		{"underscore", "AB_C", "", false},
		{"unicode", "ÅAPL", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.input)
			if ok != tt.ok {
				t.Fatalf("Normalize(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"AAPL", "brk.b", " es=f ", "BF-B", "A1"}
	for _, input := range inputs {
		once, ok := Normalize(input)
		if !ok {
			t.Fatalf("Normalize(%q) unexpectedly invalid", input)
		}
		twice, ok := Normalize(once)
		if !ok {
			t.Fatalf("Normalize(%q) invalid on second pass", once)
		}
		if once != twice {
			t.Errorf("Normalize not idempotent: %q -> %q -> %q", input, once, twice)
		}
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"AAPL", "MSFT", "AAPL", "GOOGL", "MSFT"})
	want := []string{"AAPL", "MSFT", "GOOGL"}
	if len(got) != len(want) {
		t.Fatalf("Dedupe returned %d symbols, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Dedupe[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParse(t *testing.T) {
	input := `# portfolio
AAPL
msft

aapl
not a symbol
BRK.B
`
	got, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() returned unexpected error: %v", err)
	}
	want := []string{"AAPL", "MSFT", "BRK.B"}
	if len(got) != len(want) {
		t.Fatalf("Parse returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Parse[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFileSource_MissingFile(t *testing.T) {
	src := NewFileSource("/nonexistent/tickers.txt")
	if _, err := src.Symbols(); err == nil {
		t.Error("Symbols() expected error for missing file, got nil")
	}
}

func TestFileSource(t *testing.T) {
	path := t.TempDir() + "/tickers.txt"
	if err := writeFile(path, "AAPL\nGOOGL\n"); err != nil {
		t.Fatalf("failed to write ticker file: %v", err)
	}
	src := NewFileSource(path)
	got, err := src.Symbols()
	if err != nil {
		t.Fatalf("Symbols() returned unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "GOOGL" {
		t.Errorf("Symbols() = %v, want [AAPL GOOGL]", got)
	}
}
