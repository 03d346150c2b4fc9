package listview

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type Kind int

const (
	// KindText matches a case-insensitive substring.
	KindText Kind = iota + 1
	// KindExact matches an enumerated value exactly.
	KindExact
	// KindRange keeps records whose instant falls between two calendar days.
	KindRange
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindExact:
		return "exact"
	case KindRange:
		return "range"
	default:
		return "unknown"
	}
}

// Field is one filterable attribute of T. Text and exact fields read through
// Text, range fields through Time; the second result reports presence.
type Field[T any] struct {
	Name    string
	Kind    Kind
	Text    func(T) (string, bool)
	Time    func(T) (time.Time, bool)
	Allowed []string
}

func TextField[T any](name string, get func(T) (string, bool)) Field[T] {
	return Field[T]{Name: name, Kind: KindText, Text: get}
}

func ExactField[T any](name string, get func(T) (string, bool), allowed ...string) Field[T] {
	return Field[T]{Name: name, Kind: KindExact, Text: get, Allowed: allowed}
}

func RangeField[T any](name string, get func(T) (time.Time, bool)) Field[T] {
	return Field[T]{Name: name, Kind: KindRange, Time: get}
}

// Value is what the user typed for one field. Text and exact fields use
// Text; range fields use From and To as YYYY-MM-DD days, either may be empty.
type Value struct {
	Text string `json:"text,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

func Text(s string) Value { return Value{Text: s} }

func Between(from, to string) Value { return Value{From: from, To: to} }

func (v Value) IsZero() bool { return v.Text == "" && v.From == "" && v.To == "" }

// criterion is a validated Value ready to be matched.
type criterion struct {
	value  Value
	needle string
	lower  time.Time
	upper  time.Time
	hasLo  bool
	hasHi  bool
}

func (f Field[T]) compile(v Value, loc *time.Location) (criterion, error) {
	c := criterion{value: v}

	switch f.Kind {
	case KindText:
		if v.From != "" || v.To != "" {
			return c, fmt.Errorf("%w: %s takes a text value", ErrInvalidValue, f.Name)
		}
		c.needle = strings.ToLower(v.Text)

	case KindExact:
		if v.From != "" || v.To != "" {
			return c, fmt.Errorf("%w: %s takes a single value", ErrInvalidValue, f.Name)
		}
		if v.Text != "" && len(f.Allowed) > 0 && !slices.Contains(f.Allowed, v.Text) {
			return c, fmt.Errorf("%w: %s must be one of %s", ErrInvalidValue, f.Name, strings.Join(f.Allowed, ", "))
		}

	case KindRange:
		if v.Text != "" {
			return c, fmt.Errorf("%w: %s takes a date range", ErrInvalidValue, f.Name)
		}
		if v.From != "" {
			day, ok := parseDay(v.From, loc)
			if !ok {
				return c, fmt.Errorf("%w: %s lower bound %q is not a date", ErrInvalidValue, f.Name, v.From)
			}
			c.lower, c.hasLo = day, true
		}
		if v.To != "" {
			day, ok := parseDay(v.To, loc)
			if !ok {
				return c, fmt.Errorf("%w: %s upper bound %q is not a date", ErrInvalidValue, f.Name, v.To)
			}
			c.upper = time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
			c.hasHi = true
		}

	default:
		return c, fmt.Errorf("%w: %s has no kind", ErrInvalidValue, f.Name)
	}
	return c, nil
}

func (f Field[T]) match(rec T, c criterion) bool {
	switch f.Kind {
	case KindText:
		if c.needle == "" {
			return true
		}
		got, ok := f.Text(rec)
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(got), c.needle)

	case KindExact:
		if c.value.Text == "" {
			return true
		}
		got, ok := f.Text(rec)
		return ok && got == c.value.Text

	case KindRange:
		if !c.hasLo && !c.hasHi {
			return true
		}
		t, ok := f.Time(rec)
		if !ok {
			return false
		}
		if c.hasLo && t.Before(c.lower) {
			return false
		}
		if c.hasHi && t.After(c.upper) {
			return false
		}
		return true
	}
	return false
}

// parseDay accepts YYYY-MM-DD or a full RFC 3339 timestamp and returns the
// start of that calendar day in loc.
func parseDay(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, true
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
}
