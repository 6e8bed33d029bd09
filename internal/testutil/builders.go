package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/junioryono/component"
)

// InjectorBuilder provides a fluent interface for building test injectors.
type InjectorBuilder struct {
	t          *testing.T
	opts       []component.Option
	interfaces []func(*component.Injector) error
	components []any
	factories  []factoryRegistration
}

type factoryRegistration struct {
	fn   any
	opts []component.RegisterOption
}

// NewInjectorBuilder creates a new InjectorBuilder.
func NewInjectorBuilder(t *testing.T) *InjectorBuilder {
	return &InjectorBuilder{t: t}
}

// WithOptions adds injector options.
func (b *InjectorBuilder) WithOptions(opts ...component.Option) *InjectorBuilder {
	b.opts = append(b.opts, opts...)
	return b
}

// WithGizmoInterfaces declares Greeter and Gizmo, in that order.
func (b *InjectorBuilder) WithGizmoInterfaces() *InjectorBuilder {
	b.interfaces = append(b.interfaces, component.Declare[Greeter], component.Declare[Gizmo])
	return b
}

// WithComponent registers an instance in the root scope.
func (b *InjectorBuilder) WithComponent(c any) *InjectorBuilder {
	b.components = append(b.components, c)
	return b
}

// WithFactory registers a factory in the root scope.
func (b *InjectorBuilder) WithFactory(fn any, opts ...component.RegisterOption) *InjectorBuilder {
	b.factories = append(b.factories, factoryRegistration{fn: fn, opts: opts})
	return b
}

// Build creates the injector and closes it when the test ends.
func (b *InjectorBuilder) Build() *component.Injector {
	b.t.Helper()

	inj, err := component.New(b.opts...)
	require.NoError(b.t, err)

	for _, declare := range b.interfaces {
		require.NoError(b.t, declare(inj))
	}

	ctx := context.Background()
	for _, c := range b.components {
		require.NoError(b.t, inj.Register(ctx, c))
	}

	for _, f := range b.factories {
		require.NoError(b.t, inj.RegisterFactory(ctx, f.fn, f.opts...))
	}

	b.t.Cleanup(func() {
		_ = inj.Close()
	})

	return inj
}

// NewGizmoInjector returns an injector with the gizmo interfaces declared.
func NewGizmoInjector(t *testing.T) *component.Injector {
	t.Helper()
	return NewInjectorBuilder(t).WithGizmoInterfaces().Build()
}
