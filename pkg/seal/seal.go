// Package seal wraps export streams in optional zstd compression and age
// encryption.
package seal

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"github.com/klauspost/compress/zstd"
)

// Options selects the layers applied to a stream. Layers are applied in
// order: compression first, then encryption.
type Options struct {
	Compress   bool
	Recipients []string
}

// Encrypted reports whether any age recipient is configured.
func (o Options) Encrypted() bool { return len(o.Recipients) > 0 }

// Extension returns the file suffix matching the configured layers.
func (o Options) Extension() string {
	ext := ""
	if o.Compress {
		ext += ".zst"
	}
	if o.Encrypted() {
		ext += ".age"
	}
	return ext
}

// ParseRecipients parses age X25519 recipients, ignoring blanks.
func ParseRecipients(raw []string) ([]age.Recipient, error) {
	var out []age.Recipient
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		rec, err := age.ParseX25519Recipient(r)
		if err != nil {
			return nil, fmt.Errorf("parse age recipient %q: %w", r, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

type layeredWriter struct {
	io.Writer
	closers []io.Closer
}

// Close flushes the layers from the innermost outwards.
func (w *layeredWriter) Close() error {
	var errs []error
	for _, c := range w.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewWriter returns a writer that applies the configured layers before
// writing to dst. Close must be called to flush; it does not close dst.
func NewWriter(dst io.Writer, opts Options) (io.WriteCloser, error) {
	w := &layeredWriter{Writer: dst}

	if opts.Encrypted() {
		recipients, err := ParseRecipients(opts.Recipients)
		if err != nil {
			return nil, err
		}
		if len(recipients) == 0 {
			return nil, errors.New("no valid age recipients")
		}
		enc, err := age.Encrypt(w.Writer, recipients...)
		if err != nil {
			return nil, fmt.Errorf("age encrypt: %w", err)
		}
		w.Writer = enc
		w.closers = append([]io.Closer{enc}, w.closers...)
	}

	if opts.Compress {
		zw, err := zstd.NewWriter(w.Writer)
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		w.Writer = zw
		w.closers = append([]io.Closer{zw}, w.closers...)
	}

	return w, nil
}

// Open reverses NewWriter. secretKeys are age identities (AGE-SECRET-KEY-1...)
// and are required when the stream is encrypted.
func Open(src io.Reader, compressed bool, secretKeys ...string) (io.ReadCloser, error) {
	r := src

	if len(secretKeys) > 0 {
		var identities []age.Identity
		for _, key := range secretKeys {
			id, err := age.ParseX25519Identity(strings.TrimSpace(key))
			if err != nil {
				return nil, fmt.Errorf("parse age identity: %w", err)
			}
			identities = append(identities, id)
		}
		dec, err := age.Decrypt(r, identities...)
		if err != nil {
			return nil, fmt.Errorf("age decrypt: %w", err)
		}
		r = dec
	}

	if compressed {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return zr.IOReadCloser(), nil
	}
	return io.NopCloser(r), nil
}
