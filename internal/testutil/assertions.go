package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/component"
)

// AssertResolvable checks that T resolves from ctx and returns it.
func AssertResolvable[T any](t *testing.T, ctx context.Context, inj *component.Injector) T {
	t.Helper()
	c, err := component.Resolve[T](ctx, inj)
	require.NoError(t, err, "failed to resolve component of type %T", *new(T))
	require.NotNil(t, c, "resolved component is nil")
	return c
}

// AssertNotFound checks that resolving T fails with ErrComponentNotFound.
func AssertNotFound[T any](t *testing.T, ctx context.Context, inj *component.Injector) {
	t.Helper()
	_, err := component.Resolve[T](ctx, inj)
	require.Error(t, err)
	assert.True(t, errors.Is(err, component.ErrComponentNotFound), "expected component not found error, got: %v", err)

	var resErr component.ResolutionError
	assert.True(t, errors.As(err, &resErr), "expected ResolutionError, got %T", err)
}

// AssertResolvesTo checks that T resolves to exactly want.
func AssertResolvesTo[T any](t *testing.T, ctx context.Context, inj *component.Injector, want any) {
	t.Helper()
	got := AssertResolvable[T](t, ctx, inj)
	assert.Same(t, want, any(got), "resolved a different instance for %T", *new(T))
}

// AssertSameInstance checks that two values are the same pointer.
func AssertSameInstance(t *testing.T, expected, actual any) {
	t.Helper()
	assert.Same(t, expected, actual, "expected same instance")
}

// AssertDifferentInstances checks that two values are different pointers.
func AssertDifferentInstances(t *testing.T, a, b any) {
	t.Helper()
	assert.NotSame(t, a, b, "expected different instances")
}
