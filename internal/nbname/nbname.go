// Package nbname validates candidate notebook names.
package nbname

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nbsave/internal/apperr"
)

// Extension is the suffix every stored notebook carries.
const Extension = ".ipynb"

// forbidden lists characters that would turn a name into a path.
const forbidden = `/\:`

var errForbiddenChar = validation.NewError("validation_nbname_forbidden",
	"must not contain any of the characters :/\\")

var noPathChars = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, forbidden) {
		return errForbiddenChar
	}
	return nil
})

// Validate reports whether name is usable as a notebook name: it must
// have at least one character and no path separators or colons.
func Validate(name string) error {
	if err := validation.Validate(name, validation.Required, noPathChars); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidName, err)
	}
	return nil
}

// Valid is the boolean form of Validate.
func Valid(name string) bool {
	return Validate(name) == nil
}

// IsInvalid reports whether err came from Validate.
func IsInvalid(err error) bool {
	return errors.Is(err, apperr.ErrInvalidName)
}

// Normalize appends Extension when name lacks it.
func Normalize(name string) string {
	if strings.HasSuffix(name, Extension) {
		return name
	}
	return name + Extension
}

// Display strips Extension from a file name.
func Display(name string) string {
	return strings.TrimSuffix(name, Extension)
}
