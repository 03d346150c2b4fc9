package listview

import (
	"context"
	"fmt"
)

// Mutate runs one remote write. When fn succeeds the view reloads the whole
// collection; when it fails nothing is reloaded and the cache is untouched.
// A failed reload after a successful write is not returned: it is recorded
// in Err like any other load failure. The reload ignores ctx cancellation
// because the write has already landed.
func (v *View[T]) Mutate(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		v.opts.log.Warnw("write failed", "view", v.name, "op", op, "err", err)
		return fmt.Errorf("%s %s: %w", op, v.name, err)
	}
	if err := v.Load(context.WithoutCancel(ctx)); err != nil {
		v.opts.log.Warnw("reload after write failed", "view", v.name, "op", op, "err", err)
	}
	return nil
}

// Check runs the configured validator over payload. It is exported so
// entity actions outside Create and Update share the same rules.
func (v *View[T]) Check(op string, payload any) error {
	if v.opts.validate == nil {
		return nil
	}
	if fields := v.opts.validate(payload); len(fields) > 0 {
		return &ValidationError{Op: op + " " + v.name, Fields: fields}
	}
	return nil
}

func (v *View[T]) Create(ctx context.Context, payload any) error {
	if v.store == nil {
		return ErrNoStore
	}
	if err := v.Check("create", payload); err != nil {
		return err
	}
	return v.Mutate(ctx, "create", func(ctx context.Context) error {
		return v.store.Create(ctx, payload)
	})
}

func (v *View[T]) Update(ctx context.Context, id int64, payload any) error {
	if v.store == nil {
		return ErrNoStore
	}
	if id <= 0 {
		return &ValidationError{Op: "update " + v.name, Fields: map[string]string{"id": "must be positive"}}
	}
	if err := v.Check("update", payload); err != nil {
		return err
	}
	return v.Mutate(ctx, "update", func(ctx context.Context) error {
		return v.store.Update(ctx, id, payload)
	})
}

func (v *View[T]) Remove(ctx context.Context, id int64) error {
	if v.store == nil {
		return ErrNoStore
	}
	if id <= 0 {
		return &ValidationError{Op: "remove " + v.name, Fields: map[string]string{"id": "must be positive"}}
	}
	return v.Mutate(ctx, "remove", func(ctx context.Context) error {
		return v.store.Delete(ctx, id)
	})
}
