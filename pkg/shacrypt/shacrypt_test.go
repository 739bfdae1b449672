package shacrypt

import (
	"errors"
	"strings"
	"testing"
)

func TestHashFormat(t *testing.T) {
	h := New()
	tests := []struct {
		name  string
		input string
	}{
		{name: "passphrase", input: "quickly-brave-otter-42"},
		{name: "empty", input: ""},
		{name: "unicode", input: "pässwörd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Hash(tt.input)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if !strings.HasPrefix(got, Prefix) {
				t.Fatalf("Hash() = %q, want %q prefix", got, Prefix)
			}
			fields := strings.Split(strings.TrimPrefix(got, Prefix), "$")
			if len(fields) != 2 {
				t.Fatalf("Hash() = %q, want salt and digest", got)
			}
			if len(fields[0]) != SaltLen {
				t.Fatalf("salt %q has length %d, want %d", fields[0], len(fields[0]), SaltLen)
			}
			for _, c := range fields[0] {
				if !strings.ContainsRune(saltAlphabet, c) {
					t.Fatalf("salt %q contains %q", fields[0], c)
				}
			}
			if len(fields[1]) != 86 {
				t.Fatalf("digest length = %d, want 86", len(fields[1]))
			}
			if err := h.Verify(got, tt.input); err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if err := h.Verify(got, tt.input+"x"); !errors.Is(err, ErrMismatch) {
				t.Fatalf("Verify() with wrong input error = %v, want ErrMismatch", err)
			}
		})
	}
}

func TestHashSaltsDiffer(t *testing.T) {
	h := New()
	a, err := h.Hash("same")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	b, err := h.Hash("same")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same input are identical: %q", a)
	}
}

func TestKnownVector(t *testing.T) {
	// glibc crypt(3) reference value.
	const hash = "$6$saltstring$svn8UoSVapNtMuq1ukKS4tPQd8iKwSMHWjl/O817G3uBnIFNjnQJuesI68u4OTLiBFdcbYEdFCoEOfaS35inz1"
	if err := New().Verify(hash, "Hello world!"); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestHashRandomFailure(t *testing.T) {
	if got, err := NewWithRandom(errReader{}).Hash("x"); err == nil {
		t.Fatalf("Hash() = %q, want error", got)
	}
}
