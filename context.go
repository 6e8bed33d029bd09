package component

import (
	"context"
	"reflect"

	"github.com/junioryono/component/internal/registry"
)

// frame is one entry of a scope stack. Stacks are immutable linked lists
// carried in a context.Context, so a derived context pushes a frame
// without affecting the context it was derived from. Re-entering a scope
// switches a context back to the frame the scope was opened with.
type frame struct {
	layer *registry.Layer
	next  *frame
}

// stackKey keys the innermost frame of an injector's stack in a context.
type stackKey struct {
	injector *Injector
}

// pathKey keys the chain of factories currently running.
type pathKey struct {
	injector *Injector
}

type resolvePath struct {
	t       reflect.Type
	factory *registry.Factory
	next    *resolvePath
}

// stack returns the innermost frame visible from ctx, the root frame if
// ctx carries no stack for this injector.
func (inj *Injector) stack(ctx context.Context) *frame {
	if ctx != nil {
		if f, ok := ctx.Value(stackKey{inj}).(*frame); ok && f != nil {
			return f
		}
	}

	return inj.root.home
}

func (inj *Injector) withStack(ctx context.Context, f *frame) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, stackKey{inj}, f)
}

// closed reports whether any layer of the stack has exited.
func (f *frame) closed() bool {
	for cur := f; cur != nil; cur = cur.next {
		if cur.layer.Exited() {
			return true
		}
	}

	return false
}

// binds reports whether any layer of the stack binds t.
func (f *frame) binds(t reflect.Type) bool {
	for cur := f; cur != nil; cur = cur.next {
		if cur.layer.Has(t) {
			return true
		}
	}

	return false
}

// types returns every key visible from the stack, innermost first.
func (f *frame) types() []reflect.Type {
	seen := make(map[reflect.Type]struct{})
	var types []reflect.Type

	for cur := f; cur != nil; cur = cur.next {
		for _, t := range cur.layer.Types() {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			types = append(types, t)
		}
	}

	return types
}

// enterPath records fac as running on behalf of t and reports the chain
// of requested types if fac is already running further up ctx.
func (inj *Injector) enterPath(ctx context.Context, t reflect.Type, fac *registry.Factory) (context.Context, []reflect.Type) {
	head, _ := ctx.Value(pathKey{inj}).(*resolvePath)

	for cur := head; cur != nil; cur = cur.next {
		if cur.factory != fac {
			continue
		}

		var chain []reflect.Type
		for p := head; p != nil; p = p.next {
			chain = append([]reflect.Type{p.t}, chain...)
			if p == cur {
				break
			}
		}

		return ctx, append(chain, t)
	}

	return context.WithValue(ctx, pathKey{inj}, &resolvePath{t: t, factory: fac, next: head}), nil
}
