package component

import (
	"context"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/junioryono/component/internal/registry"
)

// Resolve returns the component bound to t in the innermost scope of ctx
// that binds it. Factories are called on first use and their result is
// cached: in the factory's own scope for persistent factories, otherwise
// in the innermost scope at the time of the call.
func (inj *Injector) Resolve(ctx context.Context, t reflect.Type) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if t == nil {
		return nil, ResolutionError{Cause: ErrNilType}
	}

	return inj.resolve(ctx, t)
}

// Resolve returns the component bound to T.
//
// Example:
//
//	gizmo, err := component.Resolve[Gizmo](ctx, injector)
func Resolve[T any](ctx context.Context, inj *Injector) (T, error) {
	var zero T
	t := reflect.TypeOf((*T)(nil)).Elem()

	v, err := inj.Resolve(ctx, t)
	if err != nil {
		return zero, err
	}

	result, ok := v.(T)
	if !ok {
		return zero, ResolutionError{ComponentType: t, Cause: ErrTypeMismatch}
	}

	return result, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](ctx context.Context, inj *Injector) T {
	v, err := Resolve[T](ctx, inj)
	if err != nil {
		panic(err)
	}

	return v
}

func (inj *Injector) resolve(ctx context.Context, t reflect.Type) (any, error) {
	top := inj.stack(ctx)

	for f := top; f != nil; f = f.next {
		if f.layer.Exited() {
			return nil, ResolutionError{ComponentType: t, Cause: ErrScopeClosed}
		}

		b, ok := f.layer.Lookup(t)
		if !ok {
			continue
		}

		if !b.IsFactory() {
			return b.Instance, nil
		}

		return inj.materialize(ctx, top, f, t, b.Factory)
	}

	return nil, ResolutionError{
		ComponentType: t,
		Cause:         ErrComponentNotFound,
		Available:     top.types(),
	}
}

// materialize returns the cached result of fac, calling it if no result
// is cached yet. owner is the frame whose layer holds the binding.
func (inj *Injector) materialize(ctx context.Context, top, owner *frame, t reflect.Type, fac *registry.Factory) (any, error) {
	ctx, cycle := inj.enterPath(ctx, t, fac)
	if cycle != nil {
		return nil, CircularDependencyError{Chain: cycle}
	}

	var (
		slot   *registry.Slot
		target *registry.Layer
	)

	if fac.Persistent {
		slot, target = fac.Slot(), fac.Owner
		if s := inj.scopeFor(fac.Owner); s != nil {
			ctx = inj.withStack(ctx, s.home)
		}
	} else {
		for f := top; f != nil; f = f.next {
			if s, ok := f.layer.Result(fac); ok {
				slot, target = s, f.layer
				break
			}

			if f == owner {
				break
			}
		}

		if slot == nil {
			var ok bool
			if slot, ok = top.layer.ResultSlot(fac); !ok {
				return nil, ResolutionError{ComponentType: t, Cause: ErrScopeClosed}
			}
			target = top.layer
		}
	}

	v, created, err := slot.Get(func() (any, error) {
		return inj.invoke(ctx, fac, target)
	})
	if err != nil {
		return nil, err
	}

	if created && !target.Own(v) {
		if errs := dispose(ctx, []any{v}); len(errs) > 0 {
			inj.logger.Warn("failed to dispose component of closed scope", "type", formatType(fac.Type), "error", errs[0])
		}
		return nil, ResolutionError{ComponentType: t, Cause: ErrScopeClosed}
	}

	return v, nil
}

// invoke calls the factory inside a span and validates its result.
func (inj *Injector) invoke(ctx context.Context, fac *registry.Factory, target *registry.Layer) (any, error) {
	ctx, span := inj.tracer.Start(ctx, "component.factory",
		trace.WithAttributes(
			attribute.String("component.type", formatType(fac.Type)),
			attribute.Bool("component.persistent", fac.Persistent),
			attribute.String("component.scope", target.ID()),
		),
	)
	defer span.End()

	inj.logger.Debug("calling factory", "type", formatType(fac.Type), "persistent", fac.Persistent, "scope", target.ID())

	v, err := fac.Call(ctx)
	if err == nil && v == nil {
		err = ErrNilComponent
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, FactoryError{ComponentType: fac.Type, Cause: err}
	}

	return v, nil
}
