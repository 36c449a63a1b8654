// Package enums holds the closed string value sets stored in text columns
// and exchanged over the API.
package enums

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownValue is wrapped by every Parse function.
var ErrUnknownValue = errors.New("unknown enum value")

type valueSet[T ~string] struct {
	kind   string
	values []T
}

func newValueSet[T ~string](kind string, values ...T) valueSet[T] {
	return valueSet[T]{kind: kind, values: values}
}

func (s valueSet[T]) has(v T) bool {
	return slices.Contains(s.values, v)
}

// parse ignores surrounding whitespace but is otherwise exact.
func (s valueSet[T]) parse(raw string) (T, error) {
	v := T(strings.TrimSpace(raw))
	if s.has(v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("%w: %s %q", ErrUnknownValue, s.kind, raw)
}
