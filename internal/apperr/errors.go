// Package apperr holds the error kinds a build can fail with.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("descriptor failed schema validation")
	ErrMissingContent  = errors.New("markdown source not found")
	ErrDuplicateURL    = errors.New("duplicate post url")
	ErrReservedURL     = errors.New("reserved post url")
	ErrTemplateMarker  = errors.New("post template marker")
	ErrPathEscapesRoot = errors.New("path escapes root")
)

// Violation is one schema violation found in a document.
type Violation struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

func (v Violation) String() string {
	if v.Location == "" {
		return v.Message
	}
	return v.Location + ": " + v.Message
}

// ValidationError reports every violation found in a single descriptor file.
type ValidationError struct {
	File       string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.String())
	}
	return fmt.Sprintf("invalid file %s: %s", e.File, strings.Join(msgs, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// MissingContentError is returned when a post's markdown source does not exist.
type MissingContentError struct {
	URL  string
	Path string
}

func (e *MissingContentError) Error() string {
	return fmt.Sprintf("post %q: markdown source %s not found", e.URL, e.Path)
}

func (e *MissingContentError) Is(target error) bool { return target == ErrMissingContent }

// DuplicateURLError is returned when two posts share a url.
type DuplicateURLError struct {
	URL    string
	First  string
	Second string
}

func (e *DuplicateURLError) Error() string {
	return fmt.Sprintf("post url %q declared in %s and %s", e.URL, e.First, e.Second)
}

func (e *DuplicateURLError) Is(target error) bool { return target == ErrDuplicateURL }

// ReservedURLError is returned when a post url maps onto a page the build
// writes itself, such as the index.
type ReservedURLError struct {
	URL  string
	File string
}

func (e *ReservedURLError) Error() string {
	return fmt.Sprintf("post url %q in %s is reserved", e.URL, e.File)
}

func (e *ReservedURLError) Is(target error) bool { return target == ErrReservedURL }
