// Package component provides a small, scope-aware component injector.
//
// Components are registered under their type, either as instances or as
// factories, and injected into functions whose parameters name those
// types. Scopes stack override layers on top of each other: an inner
// scope can add or shadow registrations, and closing it restores what was
// visible before.
//
// # Basic Usage
//
//	injector := component.MustNew()
//	_ = component.Declare[Gizmo](injector)
//
//	_ = injector.Register(ctx, &OriginalGizmo{})
//
//	consume := component.MustInject(injector, func(ctx context.Context, prefix string, g Gizmo) {
//	    fmt.Println(prefix, g.Greeting())
//	})
//
//	consume(ctx, "OG", nil) // g is resolved: OriginalGizmo
//
// # Type Keys and Ancestors
//
// A component is always bound under its concrete type. It is also bound
// under every declared interface it implements, which plays the role of
// its ancestor types. Interfaces are declared with Declare, WithInterfaces
// or implicitly by injecting a function that takes them. Registration
// options control this:
//
//   - WithoutAncestors: bind the concrete type only
//   - OnlyNewAncestors: skip interfaces already bound in any visible scope
//   - As: bind additional interfaces explicitly
//
// The empty interface is never used as a key.
//
// # Factories
//
// Factories are called lazily, at most once per caching scope:
//
//	_ = injector.RegisterFactory(ctx, func(ctx context.Context) (*DB, error) {
//	    return Open(ctx, dsn)
//	}, component.Persistent())
//
// A persistent factory caches its result in the scope it is registered in,
// so every scope above it shares one instance. A transient factory (the
// default) caches its result in the innermost scope active when it is
// first resolved, and the result is disposed when that scope closes.
// A factory that returns an error caches nothing and is called again on
// the next resolution.
//
// # Scopes
//
// The scope stack travels in a context.Context. Opening a scope derives a
// new context; goroutines handed that context see the same stack and
// diverge independently from then on.
//
//	err := injector.WithScope(ctx, func(ctx context.Context) error {
//	    _ = injector.Register(ctx, &AlternativeGizmo{})
//	    consume(ctx, "AG", nil) // AlternativeGizmo
//	    return nil
//	})
//
//	consume(ctx, "OG", nil) // OriginalGizmo again
//
// A Scope handle can be re-entered with Enter or Run, which restores the
// bindings visible when the scope was opened. Scopes opened in between are
// hidden, not closed, and become visible again once the re-entry ends.
// Re-entering a closed scope fails with a ReentryError.
//
// # Error Handling
//
// All errors can be matched with errors.Is against the sentinel values
// (ErrComponentNotFound, ErrScopeClosed, ErrReturnTypeUnknown, ...) and
// inspected with errors.As as typed errors (ResolutionError,
// ConfigurationError, ReentryError, FactoryError, ...).
//
// # Observability
//
// Use WithLogger to receive debug records through log/slog and
// WithTracerProvider to record a span for every factory invocation.
package component
