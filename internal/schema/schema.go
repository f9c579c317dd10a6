// Package schema compiles JSON Schema documents and validates parsed
// descriptors against them.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/starford/dainiki/internal/apperr"
)

// Schema is a compiled JSON Schema.
type Schema struct {
	path     string
	compiled *jsonschema.Schema
	printer  *message.Printer
}

// Result is the outcome of validating one document.
type Result struct {
	Valid  bool
	Errors []apperr.Violation
}

// Compile reads and compiles the schema at path.
func Compile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return CompileBytes(path, data)
}

// CompileBytes compiles a schema document held in memory. name identifies
// the schema in error messages and as its resource location.
func CompileBytes(name string, data []byte) (*Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", name, err)
	}

	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, fmt.Errorf("schema: resolve %s: %w", name, err)
	}
	loc := "file://" + filepath.ToSlash(abs)

	c := jsonschema.NewCompiler()
	if err := c.AddResource(loc, doc); err != nil {
		return nil, fmt.Errorf("schema: add %s: %w", name, err)
	}
	compiled, err := c.Compile(loc)
	if err != nil {
		return nil, fmt.Errorf("schema: compile %s: %w", name, err)
	}

	return &Schema{
		path:     name,
		compiled: compiled,
		printer:  message.NewPrinter(language.English),
	}, nil
}

// Path returns the location the schema was compiled from.
func (s *Schema) Path() string { return s.path }

// Validate checks doc against the schema. doc is any value produced by a
// YAML or JSON decoder; it is normalized to JSON values first. The returned
// error is non-nil only when doc cannot be validated at all.
func (s *Schema) Validate(doc any) (Result, error) {
	inst, err := normalize(doc)
	if err != nil {
		return Result{}, fmt.Errorf("schema: %s: %w", s.path, err)
	}

	err = s.compiled.Validate(inst)
	if err == nil {
		return Result{Valid: true}, nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return Result{}, fmt.Errorf("schema: %s: %w", s.path, err)
	}

	var out []apperr.Violation
	collect(ve, s.printer, &out)
	return Result{Valid: false, Errors: out}, nil
}

// Validate checks doc against s.
func Validate(doc any, s *Schema) (Result, error) {
	return s.Validate(doc)
}

// collect flattens the error tree into its leaf violations.
func collect(ve *jsonschema.ValidationError, p *message.Printer, out *[]apperr.Violation) {
	if len(ve.Causes) == 0 {
		*out = append(*out, apperr.Violation{
			Location: "/" + strings.Join(ve.InstanceLocation, "/"),
			Message:  ve.ErrorKind.LocalizedString(p),
		})
		return
	}
	for _, c := range ve.Causes {
		collect(c, p, out)
	}
}

// normalize round-trips v through encoding/json so that numbers, maps and
// timestamps decoded from YAML become the value kinds the validator expects.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("convert document to json: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}
