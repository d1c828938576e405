package goble

import (
	"context"
	"strings"

	"github.com/srg/blebat/internal/device"
	"github.com/srg/blebat/internal/groutine"
)

// callWithContext runs a blocking go-ble GATT call on a named goroutine and
// abandons it when ctx ends. go-ble's client API takes no context.
func callWithContext[T any](ctx context.Context, name string, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	done := make(chan result, 1)
	groutine.Go(ctx, name, func(context.Context) {
		v, err := fn()
		done <- result{value: v, err: err}
	})

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// NormalizeError maps go-ble specific failures to device sentinels before
// falling back to device.NormalizeError.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "can't init hci"),
		strings.Contains(msg, "no such device"):
		return &wrapped{sentinel: &device.NotFoundError{Resource: "adapter", Name: "hci"}, err: err}
	case strings.Contains(msg, "operation not permitted"):
		return &wrapped{sentinel: device.ErrUnsupported, err: err}
	}
	return device.NormalizeError(err)
}

// wrapped keeps the original message while matching sentinel in errors.Is.
type wrapped struct {
	sentinel error
	err      error
}

func (w *wrapped) Error() string   { return w.err.Error() }
func (w *wrapped) Unwrap() []error { return []error{w.sentinel, w.err} }
