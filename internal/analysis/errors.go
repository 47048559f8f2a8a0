package analysis

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by every InputError
var ErrInvalidInput = errors.New("invalid email")

// InputError reports a RawEmail that cannot produce a valid record
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid email: %s %s", e.Field, e.Reason)
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}
