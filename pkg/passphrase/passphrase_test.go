package passphrase

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

func TestGenerateShape(t *testing.T) {
	g := New()
	for i := 0; i < 500; i++ {
		p, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		parts := strings.Split(p, Separator)
		if len(parts) != 4 {
			t.Fatalf("Generate() = %q, want 4 dash separated parts", p)
		}
		for _, w := range parts[:3] {
			if w == "" || strings.ToLower(w) != w {
				t.Fatalf("Generate() = %q, word %q is not lowercase", p, w)
			}
		}
		n, err := strconv.Atoi(parts[3])
		if err != nil {
			t.Fatalf("Generate() = %q, suffix not numeric: %v", p, err)
		}
		if n < MinSuffix || n > MaxSuffix {
			t.Fatalf("Generate() = %q, suffix %d out of range", p, n)
		}
	}
}

func TestGenerateDistinct(t *testing.T) {
	g := New()
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		p, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		seen[p] = struct{}{}
	}
	// 200 draws from ~38 billion combinations; a handful of collisions would
	// already indicate a broken source.
	if len(seen) < 195 {
		t.Fatalf("only %d distinct passphrases out of 200", len(seen))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerateRandomFailure(t *testing.T) {
	g := New(WithRandom(failingReader{}))
	p, err := g.Generate()
	if err == nil {
		t.Fatalf("Generate() = %q, want error", p)
	}
	if p != "" {
		t.Fatalf("Generate() returned %q alongside error", p)
	}
}

func TestWordListsLoaded(t *testing.T) {
	g := New()
	for i, list := range g.lists {
		if len(list) < 100 {
			t.Fatalf("list %d has %d words", i, len(list))
		}
		for _, w := range list {
			if strings.Contains(w, Separator) {
				t.Fatalf("list %d word %q contains separator", i, w)
			}
		}
	}
}

func TestParseWords(t *testing.T) {
	got := parseWords([]byte("# comment\nAlpha\n\n  beta  \n"))
	if len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Fatalf("parseWords() = %v", got)
	}
}
