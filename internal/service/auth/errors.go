package auth

import (
	"errors"
	"fmt"

	"github.com/haw0k/mern-links/internal/validate"
)

// Client-facing failure kinds. Handlers translate these to stable response
// messages; anything else is an internal error and must not leak detail.
var (
	ErrDuplicateAccount   = errors.New("auth: account already exists")
	ErrAccountNotFound    = errors.New("auth: account not found")
	ErrCredentialMismatch = errors.New("auth: invalid password")
)

// ValidationError carries the full list of per-field failures for one
// request payload.
type ValidationError struct {
	Fields []validate.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("auth: validation failed on %d field(s)", len(e.Fields))
}
