package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_IsAndAs(t *testing.T) {
	err := fmt.Errorf("load posts: %w", &ValidationError{
		File: "blog/a.yaml",
		Violations: []Violation{
			{Location: "/posts/0", Message: "missing property 'url'"},
			{Message: "bad"},
		},
	})

	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrMissingContent)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "blog/a.yaml", ve.File)
	assert.Contains(t, err.Error(), "/posts/0: missing property 'url'; bad")
}

func TestMissingContentError_NamesPost(t *testing.T) {
	err := &MissingContentError{URL: "hello-world", Path: "posts/hello.md"}
	assert.ErrorIs(t, err, ErrMissingContent)
	assert.Contains(t, err.Error(), `"hello-world"`)
	assert.Contains(t, err.Error(), "posts/hello.md")
}

func TestDuplicateURLError(t *testing.T) {
	err := &DuplicateURLError{URL: "x", First: "a.yaml", Second: "b.yml"}
	assert.ErrorIs(t, err, ErrDuplicateURL)
	assert.Contains(t, err.Error(), "a.yaml and b.yml")
}

func TestReservedURLError(t *testing.T) {
	err := &ReservedURLError{URL: "index", File: "a.yaml"}
	assert.ErrorIs(t, err, ErrReservedURL)
	assert.NotErrorIs(t, err, ErrDuplicateURL)
	assert.Contains(t, err.Error(), "a.yaml")
}
