package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidDomain is matched by InvalidDomainError via errors.Is.
var ErrInvalidDomain = errors.New("invalid domain")

// InvalidDomainError reports a margin or resulting rectangle that cannot
// form a far-field domain.
type InvalidDomainError struct {
	Field  string // margin name, "chord" or "rect"
	Value  float64
	Reason string
}

func (e *InvalidDomainError) Error() string {
	return fmt.Sprintf("invalid domain: %s = %.6g: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidDomainError) Is(target error) bool { return target == ErrInvalidDomain }
