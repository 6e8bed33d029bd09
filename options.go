package component

import (
	"log/slog"
	"reflect"

	"go.opentelemetry.io/otel/trace"
)

// Option configures an Injector.
type Option interface {
	apply(*injectorOptions)
}

// injectorOptions holds injector configuration.
type injectorOptions struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	interfaces     []reflect.Type
	components     []any
	factories      []any
}

// optionFunc adapts a function to Option.
type optionFunc func(*injectorOptions)

func (f optionFunc) apply(opts *injectorOptions) {
	f(opts)
}

// WithLogger sets the logger used for debug and warning records.
// By default the injector logs nothing.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(opts *injectorOptions) {
		opts.logger = logger
	})
}

// WithTracerProvider sets the provider of the tracer used to record
// factory invocations. Defaults to the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return optionFunc(func(opts *injectorOptions) {
		opts.tracerProvider = tp
	})
}

// WithInterfaces declares interfaces up front, see Injector.Declare.
func WithInterfaces(types ...reflect.Type) Option {
	return optionFunc(func(opts *injectorOptions) {
		opts.interfaces = append(opts.interfaces, types...)
	})
}

// WithComponents seeds the root scope with instances.
func WithComponents(components ...any) Option {
	return optionFunc(func(opts *injectorOptions) {
		opts.components = append(opts.components, components...)
	})
}

// WithFactories seeds the root scope with factories.
func WithFactories(factories ...any) Option {
	return optionFunc(func(opts *injectorOptions) {
		opts.factories = append(opts.factories, factories...)
	})
}

// RegisterOption configures a single registration.
type RegisterOption interface {
	apply(*registerOptions)
}

// registerOptions holds registration configuration.
type registerOptions struct {
	withoutAncestors bool
	onlyNew          bool
	persistent       bool
	returnType       reflect.Type
	as               []reflect.Type
}

// registerOptionFunc adapts a function to RegisterOption.
type registerOptionFunc func(*registerOptions)

func (f registerOptionFunc) apply(opts *registerOptions) {
	f(opts)
}

func newRegisterOptions(opts []RegisterOption) *registerOptions {
	o := &registerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}

	return o
}

// WithoutAncestors binds only the component's own type.
func WithoutAncestors() RegisterOption {
	return registerOptionFunc(func(opts *registerOptions) {
		opts.withoutAncestors = true
	})
}

// OnlyNewAncestors skips declared interfaces that are already bound
// anywhere in the visible scope stack.
func OnlyNewAncestors() RegisterOption {
	return registerOptionFunc(func(opts *registerOptions) {
		opts.onlyNew = true
	})
}

// Persistent caches a factory's result in the scope the factory is
// registered in instead of the innermost scope at resolution time.
func Persistent() RegisterOption {
	return registerOptionFunc(func(opts *registerOptions) {
		opts.persistent = true
	})
}

// WithReturnType sets the type key of a factory explicitly. The factory's
// result type must be assignable to t.
func WithReturnType(t reflect.Type) RegisterOption {
	return registerOptionFunc(func(opts *registerOptions) {
		opts.returnType = t
	})
}

// As binds the component under additional types. Each type must be the
// component's own type or an interface it implements.
func As(types ...reflect.Type) RegisterOption {
	return registerOptionFunc(func(opts *registerOptions) {
		opts.as = append(opts.as, types...)
	})
}
