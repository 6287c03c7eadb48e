// Package ro provides the slice of reactive-stream helpers that
// internal/runtime's Prefetch/PrefetchAll fan-out actually needs, built
// on top of github.com/samber/ro.
package ro

import (
	"context"

	"github.com/samber/ro"
)

// StreamFromSlice creates an Observable from a slice. Items are
// emitted in order, then the Observable completes.
func StreamFromSlice[T any](items []T) ro.Observable[T] {
	return ro.FromSlice(items)
}

// MapStream transforms items from a source Observable using a mapper function.
func MapStream[T, R any](source ro.Observable[T], mapper func(T) R) ro.Observable[R] {
	return ro.Pipe1(source, ro.Map(mapper))
}

// CollectWithContext collects all items from a stream with context support.
// The context can be used for cancellation.
func CollectWithContext[T any](ctx context.Context, source ro.Observable[T]) ([]T, context.Context, error) {
	return ro.CollectWithContext(ctx, source)
}
