package listview

import (
	"time"

	"go.uber.org/zap"
)

// LoadErrorPolicy decides what a failed Load does to the cached Collection.
type LoadErrorPolicy int

const (
	// ClearOnError empties the Collection when a load fails.
	ClearOnError LoadErrorPolicy = iota
	// KeepOnError leaves the last good Collection in place.
	KeepOnError
)

const DefaultPageSize = 10

type options struct {
	pageSize   int
	onError    LoadErrorPolicy
	staleGuard bool
	loc        *time.Location
	validate   func(payload any) map[string]string
	log        *zap.SugaredLogger
}

type Option func(*options)

func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

func WithLoadErrorPolicy(p LoadErrorPolicy) Option {
	return func(o *options) { o.onError = p }
}

// WithStaleLoadGuard makes Load drop a response when a newer Load was issued
// after it. Without the guard the last response to arrive wins.
func WithStaleLoadGuard(on bool) Option {
	return func(o *options) { o.staleGuard = on }
}

// WithLocation sets the zone used for start and end of day in range filters.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithValidator checks write payloads before they are sent. A non-empty map
// aborts the write with a *ValidationError.
func WithValidator(fn func(payload any) map[string]string) Option {
	return func(o *options) { o.validate = fn }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func defaults() options {
	return options{
		pageSize: DefaultPageSize,
		onError:  ClearOnError,
		loc:      time.Local,
		log:      zap.NewNop().Sugar(),
	}
}
