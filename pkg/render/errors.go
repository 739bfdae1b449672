package render

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplateNotFound is returned when no template exists under the requested name.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrInvalidTemplateName is returned for empty names or names that could escape the template root.
	ErrInvalidTemplateName = errors.New("invalid template name")
)

// Error reports a template that failed to parse or execute.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render template %q: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
