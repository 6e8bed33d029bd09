package component

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/junioryono/component/internal/reflection"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Inject wraps fn so that nil arguments of nillable parameter types are
// filled with components when the wrapper is called. The wrapper has the
// same signature as fn. Arguments supplied by the caller are never
// replaced.
//
// The scope stack is taken from fn's context.Context parameter, if it has
// one, and is the root scope otherwise. Parameter types are analyzed once;
// resolution happens on every call, so a missing component is reported
// at call time. When resolution fails, the wrapper returns the error in
// fn's trailing error result, or panics if fn has none.
//
// Interface parameters are declared with the injector, which only affects
// components registered afterwards. A component registered before Inject
// is not bound to such an interface unless it was declared earlier; a
// debug record names each component in the root scope this applies to.
//
// Example:
//
//	consume, err := component.Inject(injector, func(ctx context.Context, prefix string, g Gizmo) {
//	    fmt.Println(prefix, g.Greeting())
//	})
//
//	consume(ctx, "OG", nil)
func Inject[F any](inj *Injector, fn F) (F, error) {
	wrapped, err := inj.Inject(fn)
	if err != nil {
		var zero F
		return zero, err
	}

	return wrapped.(F), nil
}

// MustInject is like Inject but panics on error.
func MustInject[F any](inj *Injector, fn F) F {
	wrapped, err := Inject(inj, fn)
	if err != nil {
		panic(err)
	}

	return wrapped
}

// Inject is the untyped form of the Inject function. The returned value
// has the same dynamic type as fn.
func (inj *Injector) Inject(fn any) (any, error) {
	info, err := inj.analyzer.AnalyzeFunc(fn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFunction, err)
	}

	for _, p := range info.Parameters {
		if p.Injectable && p.Type.Kind() == reflect.Interface {
			inj.declare(p.Type)
		}
	}

	target := reflect.ValueOf(fn)
	wrapper := reflect.MakeFunc(info.Type, func(args []reflect.Value) []reflect.Value {
		ctx := context.Background()
		if info.ContextIndex >= 0 {
			if c, ok := args[info.ContextIndex].Interface().(context.Context); ok && c != nil {
				ctx = c
			}
		}

		if err := inj.fill(ctx, info, args); err != nil {
			return failure(info, err)
		}

		if info.Type.IsVariadic() {
			return target.CallSlice(args)
		}

		return target.Call(args)
	})

	return wrapper.Interface(), nil
}

// fill replaces the nil arguments of injectable parameters in place.
func (inj *Injector) fill(ctx context.Context, info *reflection.FuncInfo, args []reflect.Value) error {
	for _, p := range info.Parameters {
		switch {
		case p.Object != nil:
			obj, err := inj.fillObject(ctx, p.Object, args[p.Index])
			if err != nil {
				return err
			}
			args[p.Index] = obj

		case p.Injectable && args[p.Index].IsNil():
			v, err := inj.resolveValue(ctx, p.Type)
			if err != nil {
				return err
			}
			args[p.Index] = v
		}
	}

	return nil
}

// fillObject returns a copy of an In parameter object with its nil
// fields resolved. The caller's struct is never modified.
func (inj *Injector) fillObject(ctx context.Context, obj *reflection.ParamObject, arg reflect.Value) (reflect.Value, error) {
	ptr := reflect.New(obj.Type)
	switch {
	case !obj.Pointer:
		ptr.Elem().Set(arg)
	case !arg.IsNil():
		ptr.Elem().Set(arg.Elem())
	}

	value := ptr.Elem()
	for _, field := range obj.Fields {
		fv := value.Field(field.Index)
		if !fv.IsNil() {
			continue
		}

		v, err := inj.resolveValue(ctx, field.Type)
		if err != nil {
			if field.Optional && errors.Is(err, ErrComponentNotFound) {
				continue
			}
			return reflect.Value{}, fmt.Errorf("field %s.%s: %w", obj.Type.Name(), field.Name, err)
		}

		fv.Set(v)
	}

	if obj.Pointer {
		return ptr, nil
	}

	return value, nil
}

// resolveValue resolves t and converts the component to a value of type t.
func (inj *Injector) resolveValue(ctx context.Context, t reflect.Type) (reflect.Value, error) {
	component, err := inj.resolve(ctx, t)
	if err != nil {
		return reflect.Value{}, err
	}

	v := reflect.ValueOf(component)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, ResolutionError{ComponentType: t, Cause: ErrTypeMismatch}
	}

	out := reflect.New(t).Elem()
	out.Set(v)

	return out, nil
}

// failure builds the results of a wrapper whose injection failed.
func failure(info *reflection.FuncInfo, err error) []reflect.Value {
	if !info.ReturnsError {
		panic(err)
	}

	n := info.Type.NumOut()
	results := make([]reflect.Value, n)
	for i := 0; i < n-1; i++ {
		results[i] = reflect.Zero(info.Type.Out(i))
	}

	errVal := reflect.New(errorType).Elem()
	errVal.Set(reflect.ValueOf(err))
	results[n-1] = errVal

	return results
}
