// Package passphrase generates memorable machine secrets of the form
// adverb-adjective-name-NNN.
package passphrase

import (
	"bufio"
	"bytes"
	"crypto/rand"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
)

const (
	// Separator joins the words and the numeric suffix.
	Separator = "-"
	// MinSuffix and MaxSuffix bound the numeric suffix, both inclusive.
	MinSuffix = 10
	MaxSuffix = 999
)

var (
	//go:embed words/adverbs.txt
	adverbsFile []byte
	//go:embed words/adjectives.txt
	adjectivesFile []byte
	//go:embed words/names.txt
	namesFile []byte
)

// Generator draws passphrases from the embedded word lists. The zero value is
// not usable; construct one with New.
type Generator struct {
	rand  io.Reader
	lists [3][]string
}

// Option customises a Generator.
type Option func(*Generator)

// WithRandom replaces crypto/rand.Reader as the entropy source.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) {
		if r != nil {
			g.rand = r
		}
	}
}

// New returns a Generator backed by crypto/rand.
func New(opts ...Option) *Generator {
	g := &Generator{
		rand: rand.Reader,
		lists: [3][]string{
			parseWords(adverbsFile),
			parseWords(adjectivesFile),
			parseWords(namesFile),
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a new passphrase. An error is only returned when the
// entropy source fails.
func (g *Generator) Generate() (string, error) {
	if g == nil {
		return "", errors.New("nil generator")
	}

	parts := make([]string, 0, len(g.lists)+1)
	for _, list := range g.lists {
		if len(list) == 0 {
			return "", errors.New("empty word list")
		}
		idx, err := g.intn(len(list))
		if err != nil {
			return "", err
		}
		parts = append(parts, list[idx])
	}

	n, err := g.intn(MaxSuffix - MinSuffix + 1)
	if err != nil {
		return "", err
	}
	parts = append(parts, strconv.Itoa(MinSuffix+n))

	return strings.Join(parts, Separator), nil
}

func (g *Generator) intn(n int) (int, error) {
	v, err := rand.Int(g.rand, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(v.Int64()), nil
}

func parseWords(data []byte) []string {
	var words []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		words = append(words, word)
	}
	return words
}
