package component

import (
	"context"
	"reflect"

	"github.com/junioryono/component/internal/registry"
)

// Scope is a handle to one layer of registrations stacked above the
// scope that was innermost when it was opened. Registrations made through
// a context carrying the scope land in its layer and disappear when the
// scope closes.
//
// Example:
//
//	ctx, scope := injector.Scope(ctx)
//	defer scope.Close()
//
//	_ = injector.Register(ctx, &AlternativeGizmo{})
//	gizmo, err := component.Resolve[Gizmo](ctx, injector)
//
// A handle can be re-entered later with Enter or Run, which restores the
// stack it was opened on. Layers opened in between are hidden during the
// re-entry, not closed.
type Scope struct {
	injector *Injector
	layer    *registry.Layer
	parent   *Scope

	// home is the stack the scope was opened on, with the scope on top.
	home *frame
}

// Scope opens a new scope above the innermost scope of ctx and returns a
// context carrying it. The caller must Close the scope. If a scope of the
// stack has already closed, the new scope is returned closed.
func (inj *Injector) Scope(ctx context.Context) (context.Context, *Scope) {
	if ctx == nil {
		ctx = context.Background()
	}

	top := inj.stack(ctx)
	layer := registry.NewLayer(top.layer)

	s := &Scope{
		injector: inj,
		layer:    layer,
		parent:   inj.scopeFor(top.layer),
	}
	s.home = &frame{layer: layer, next: top}

	// A scope opened on a closed stack starts closed.
	if layer.Exited() || top.closed() {
		layer.Exit()
		return inj.withStack(ctx, s.home), s
	}

	inj.scopes.Store(layer, s)

	// The parent may have closed after the layer was linked to it but
	// before the scope was stored, so nothing else will close it.
	if top.closed() {
		_ = s.Close()
		return inj.withStack(ctx, s.home), s
	}

	inj.logger.Debug("scope opened", "scope", layer.ID(), "parent", top.layer.ID())

	return inj.withStack(ctx, s.home), s
}

// WithScope runs fn in a new scope and closes the scope when fn returns
// or panics. A close error is returned only if fn succeeded.
func (inj *Injector) WithScope(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	scopeCtx, s := inj.Scope(ctx)
	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(scopeCtx)
}

// Current returns the innermost scope visible from ctx, or nil if that
// scope has been closed.
func (inj *Injector) Current(ctx context.Context) *Scope {
	return inj.scopeFor(inj.stack(ctx).layer)
}

// Root returns the root scope, which lives as long as the injector.
func (inj *Injector) Root() *Scope {
	return inj.root
}

func (inj *Injector) scopeFor(layer *registry.Layer) *Scope {
	if s, ok := inj.scopes.Load(layer); ok {
		return s.(*Scope)
	}

	return nil
}

// ID returns the unique ID of this scope.
func (s *Scope) ID() string {
	return s.layer.ID()
}

// Parent returns the scope this one was opened above, nil for the root
// scope or when the parent has been closed.
func (s *Scope) Parent() *Scope {
	if s.parent == nil || s.parent.Closed() {
		return nil
	}

	return s.parent
}

// IsRoot returns true for the injector's root scope.
func (s *Scope) IsRoot() bool {
	return s == s.injector.root
}

// Closed reports whether the scope has been closed.
func (s *Scope) Closed() bool {
	return s.layer.Exited()
}

// Types returns the type keys registered directly in this scope.
func (s *Scope) Types() []reflect.Type {
	return s.layer.Types()
}

// Enter re-enters the scope: the returned context sees exactly the stack
// the scope was opened on, with the scope innermost. Scopes opened above
// it stay hidden until the returned context is dropped; ctx itself is
// unchanged.
func (s *Scope) Enter(ctx context.Context) (context.Context, error) {
	if s.layer.Exited() {
		return ctx, ReentryError{ScopeID: s.layer.ID()}
	}

	s.injector.logger.Debug("scope re-entered", "scope", s.layer.ID(), "from", s.injector.stack(ctx).layer.ID())

	return s.injector.withStack(ctx, s.home), nil
}

// Run calls fn with a context that re-enters the scope.
func (s *Scope) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	scopeCtx, err := s.Enter(ctx)
	if err != nil {
		return err
	}

	return fn(scopeCtx)
}

// Close closes the scopes opened above this one, newest first, then
// drops the scope's registrations and disposes the components its
// factories produced. Closing the root scope closes the injector.
// Close is safe to call multiple times.
func (s *Scope) Close() error {
	errs := s.closeChildren(nil)

	owned, ok := s.layer.Exit()
	if !ok {
		return nil
	}

	// Scopes opened concurrently with the loop above.
	errs = s.closeChildren(errs)

	s.injector.scopes.Delete(s.layer)
	s.injector.logger.Debug("scope closed", "scope", s.layer.ID(), "disposing", len(owned))

	errs = append(errs, dispose(context.Background(), owned)...)
	if len(errs) > 0 {
		s.injector.logger.Warn("scope closed with disposal errors", "scope", s.layer.ID(), "errors", len(errs))
		return DisposalError{ScopeID: s.layer.ID(), Errors: errs}
	}

	return nil
}

// closeChildren closes the open scopes above s, newest first, and appends
// their errors to errs.
func (s *Scope) closeChildren(errs []error) []error {
	children := s.layer.Children()
	for i := len(children) - 1; i >= 0; i-- {
		if child := s.injector.scopeFor(children[i]); child != nil {
			if err := child.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errs
}
