package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidName    = errors.New("invalid notebook name")
	ErrInvalidContent = errors.New("invalid notebook content")
	ErrReadOnly       = errors.New("notebook is read-only")
)
