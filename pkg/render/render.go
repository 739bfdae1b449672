package render

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Engine resolves templates from a Source, falling back to the templates
// embedded in the package, and executes them against a namespace.
type Engine struct {
	source   Source
	builtins map[string]string
	strict   bool
}

// Option customises an Engine.
type Option func(*Engine)

// WithStrict makes references to missing keys an execution error instead of
// rendering "<no value>".
func WithStrict(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// New initialises an Engine over src. A nil src serves only the embedded
// templates.
func New(src Source, opts ...Option) (*Engine, error) {
	builtins, err := loadBuiltins()
	if err != nil {
		return nil, err
	}
	e := &Engine{source: src, builtins: builtins}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func loadBuiltins() (map[string]string, error) {
	entries, err := fs.Glob(templatesFS, "templates/*"+Extension)
	if err != nil {
		return nil, fmt.Errorf("list embedded templates: %w", err)
	}
	out := make(map[string]string, len(entries))
	for _, p := range entries {
		data, err := templatesFS.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read embedded template %s: %w", p, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, "templates/"), Extension)
		out[name] = string(data)
	}
	return out, nil
}

// Lookup returns the body of the named template.
func (e *Engine) Lookup(ctx context.Context, name string) (string, error) {
	if e == nil {
		return "", errors.New("nil engine")
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if e.source != nil {
		body, err := e.source.Get(ctx, name)
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, ErrTemplateNotFound) {
			return "", err
		}
	}
	if body, ok := e.builtins[name]; ok {
		return body, nil
	}
	return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

// Render executes the named template with the provided data and returns the rendered string.
func (e *Engine) Render(ctx context.Context, name string, data map[string]any) (string, error) {
	body, err := e.Lookup(ctx, name)
	if err != nil {
		return "", err
	}
	return e.Execute(name, body, data)
}

// Execute parses body and runs it against data.
func (e *Engine) Execute(name, body string, data map[string]any) (string, error) {
	if e == nil {
		return "", errors.New("nil engine")
	}
	t := template.New(name).Funcs(funcs())
	if e.strict {
		t = t.Option("missingkey=error")
	}
	t, err := t.Parse(body)
	if err != nil {
		return "", &Error{Name: name, Err: err}
	}

	buf := bytes.NewBuffer(nil)
	if err := t.Execute(buf, data); err != nil {
		return "", &Error{Name: name, Err: err}
	}
	return buf.String(), nil
}

// Save stores body under name in the backing source after checking it parses.
func (e *Engine) Save(ctx context.Context, name, body string) error {
	if e == nil || e.source == nil {
		return errors.New("no writable template source configured")
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, err := template.New(name).Funcs(funcs()).Parse(body); err != nil {
		return &Error{Name: name, Err: err}
	}
	return e.source.Put(ctx, name, body)
}

// Names lists every template available, including embedded fallbacks.
func (e *Engine) Names(ctx context.Context) ([]string, error) {
	if e == nil {
		return nil, errors.New("nil engine")
	}
	set := make(map[string]struct{}, len(e.builtins))
	for name := range e.builtins {
		set[name] = struct{}{}
	}
	if e.source != nil {
		names, err := e.source.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			set[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"default": func(def, v any) any {
			if isEmpty(v) {
				return def
			}
			return v
		},
		"required": func(msg string, v any) (any, error) {
			if isEmpty(v) {
				return nil, errors.New(msg)
			}
			return v, nil
		},
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}
