package component

import (
	"context"
	"reflect"

	"go.uber.org/dig"
)

// Export provides every type visible from ctx to a dig container. The
// provided constructors resolve lazily through the injector with ctx,
// so dig sees the bindings of the scope stack ctx carries, and factory
// results stay cached by the injector.
//
// Example:
//
//	c := dig.New()
//	if err := injector.Export(ctx, c); err != nil {
//	    return err
//	}
//
//	err := c.Invoke(func(g Gizmo) { fmt.Println(g.Greeting()) })
func (inj *Injector) Export(ctx context.Context, c *dig.Container) error {
	if c == nil {
		return ErrNilContainer
	}

	if ctx == nil {
		ctx = context.Background()
	}

	top := inj.stack(ctx)
	if top.closed() {
		return ErrScopeClosed
	}

	for _, t := range top.types() {
		if err := c.Provide(inj.constructor(ctx, t)); err != nil {
			return ExportError{ComponentType: t, Cause: err}
		}
	}

	return nil
}

// constructor builds a func() (T, error) resolving t from ctx.
func (inj *Injector) constructor(ctx context.Context, t reflect.Type) any {
	fnType := reflect.FuncOf(nil, []reflect.Type{t, errorType}, false)

	fn := reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		errVal := reflect.New(errorType).Elem()

		v, err := inj.resolveValue(ctx, t)
		if err != nil {
			errVal.Set(reflect.ValueOf(err))
			return []reflect.Value{reflect.Zero(t), errVal}
		}

		return []reflect.Value{v, errVal}
	})

	return fn.Interface()
}
