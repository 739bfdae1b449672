package render

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	gos3 "provisionr/pkg/s3"
)

// Extension is appended to template names to form file and object names.
const Extension = ".ks.tmpl"

// DefaultName is the template used when callers do not pick one.
const DefaultName = "default"

// Source is a repository of named template bodies.
type Source interface {
	Get(ctx context.Context, name string) (string, error)
	Put(ctx context.Context, name, body string) error
	List(ctx context.Context) ([]string, error)
}

// ValidateName rejects names that are empty or could address anything outside
// the template root.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidTemplateName)
	case strings.ContainsAny(name, `/\`), strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q", ErrInvalidTemplateName, name)
	}
	return nil
}

// DirSource stores templates as <name>.ks.tmpl files in a directory.
type DirSource struct {
	Dir string
}

// NewDirSource returns a DirSource rooted at dir. The directory is created on
// first Put.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

func (s *DirSource) Get(_ context.Context, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, name+Extension))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return "", err
	}
	return string(data), nil
}

func (s *DirSource) Put(_ context.Context, name, body string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create template dir: %w", err)
	}
	target := filepath.Join(s.Dir, name+Extension)
	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func (s *DirSource) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), Extension))
	}
	sort.Strings(names)
	return names, nil
}

// ObjectStore is the subset of the S3 client used by S3Source.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutBytes(ctx context.Context, bucket, key string, data []byte) error
	ListKeys(ctx context.Context, bucket, prefix string) ([]string, error)
}

// S3Source stores templates as objects <prefix><name>.ks.tmpl in a bucket.
type S3Source struct {
	Store  ObjectStore
	Bucket string
	Prefix string
}

func (s *S3Source) key(name string) string {
	return path.Join(s.Prefix, name+Extension)
}

func (s *S3Source) Get(ctx context.Context, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	data, err := s.Store.GetObject(ctx, s.Bucket, s.key(name))
	if err != nil {
		if errors.Is(err, gos3.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return "", err
	}
	return string(data), nil
}

func (s *S3Source) Put(ctx context.Context, name, body string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return s.Store.PutBytes(ctx, s.Bucket, s.key(name), []byte(body))
}

func (s *S3Source) List(ctx context.Context) ([]string, error) {
	prefix := s.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	keys, err := s.Store.ListKeys(ctx, s.Bucket, prefix)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, key := range keys {
		rest := strings.TrimPrefix(key, prefix)
		if strings.Contains(rest, "/") || !strings.HasSuffix(rest, Extension) {
			continue
		}
		names = append(names, strings.TrimSuffix(rest, Extension))
	}
	sort.Strings(names)
	return names, nil
}
