package listview

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownField = errors.New("unknown filter field")
	ErrInvalidValue = errors.New("invalid filter value")
	ErrValidation   = errors.New("payload failed validation")
	ErrNoStore      = errors.New("view has no remote store")
)

// ValidationError is returned before any remote call when a payload is
// missing required data.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: invalid payload (%s)", e.Op, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
