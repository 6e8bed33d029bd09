// Package middleware gives every HTTP request its own component scope.
//
// The scope is pushed onto the scope stack of the request context, so a
// handler and everything it calls resolves request components from
// r.Context(). Components produced by factories for the request are
// disposed when the handler returns.
//
//	r := chi.NewRouter()
//	r.Use(middleware.ScopeMiddleware(injector))
//	r.Get("/gizmo", middleware.Handle(injector, (*GizmoController).Describe))
package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/junioryono/component"
)

// SetupFunc prepares a request scope before the handler runs, typically
// by registering request components through r.Context().
type SetupFunc func(scope *component.Scope, r *http.Request) error

type scopeConfig struct {
	logger       *slog.Logger
	onError      func(http.ResponseWriter, *http.Request, error)
	onCloseError func(error)
	setup        []SetupFunc
}

// Option configures ScopeMiddleware.
type Option func(*scopeConfig)

// WithErrorHandler replaces the response written when the request scope
// cannot be prepared.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *scopeConfig) { c.onError = h }
}

// WithCloseErrorHandler replaces the logging of scope close failures.
func WithCloseErrorHandler(h func(error)) Option {
	return func(c *scopeConfig) { c.onCloseError = h }
}

// WithSetup appends fn to the functions run in each new request scope.
// They run in the order they were given; the first error aborts the
// request.
func WithSetup(fn SetupFunc) Option {
	return func(c *scopeConfig) { c.setup = append(c.setup, fn) }
}

// WithLogger sets the logger of the default handlers. It defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *scopeConfig) { c.logger = logger }
}

func defaultConfig() *scopeConfig {
	c := &scopeConfig{logger: slog.Default()}
	c.onError = func(w http.ResponseWriter, r *http.Request, err error) {
		c.logger.Error("failed to prepare request scope", "error", err, "path", r.URL.Path)
		writeStatus(w, StatusCode(err))
	}
	c.onCloseError = func(err error) {
		c.logger.Error("failed to close request scope", "error", err)
	}
	return c
}

// ScopeMiddleware opens a scope above the innermost scope of each request
// context, registers the *http.Request in it without ancestors and runs
// the setup functions. The scope is closed when the handler returns, also
// when it panics.
func ScopeMiddleware(inj *component.Injector, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, scope := inj.Scope(r.Context())
			defer func() {
				if err := scope.Close(); err != nil {
					cfg.onCloseError(err)
				}
			}()

			r = r.WithContext(ctx)

			if err := prepare(inj, scope, r, cfg.setup); err != nil {
				cfg.onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func prepare(inj *component.Injector, scope *component.Scope, r *http.Request, setup []SetupFunc) error {
	if err := inj.Register(r.Context(), r, component.WithoutAncestors()); err != nil {
		return err
	}

	for _, fn := range setup {
		if err := fn(scope, r); err != nil {
			return err
		}
	}

	return nil
}

type handleConfig struct {
	logger        *slog.Logger
	recoverPanics bool
	onPanic       func(http.ResponseWriter, *http.Request, any)
	onResolve     func(http.ResponseWriter, *http.Request, error)
}

// HandleOption configures Handle.
type HandleOption func(*handleConfig)

// WithPanicRecovery turns recovery of handler panics on or off. It is off
// by default, leaving panics to an outer recoverer.
func WithPanicRecovery(enabled bool) HandleOption {
	return func(c *handleConfig) { c.recoverPanics = enabled }
}

// WithPanicHandler sets the response to a recovered panic.
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandleOption {
	return func(c *handleConfig) { c.onPanic = h }
}

// WithResolutionErrorHandler sets the response to a controller that
// cannot be resolved.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandleOption {
	return func(c *handleConfig) { c.onResolve = h }
}

// WithHandleLogger sets the logger of the default panic and resolution
// error handlers. It defaults to slog.Default().
func WithHandleLogger(logger *slog.Logger) HandleOption {
	return func(c *handleConfig) { c.logger = logger }
}

func defaultHandlerConfig() *handleConfig {
	c := &handleConfig{logger: slog.Default()}
	c.onPanic = func(w http.ResponseWriter, r *http.Request, v any) {
		c.logger.Error("handler panicked", "panic", v, "path", r.URL.Path)
		writeStatus(w, http.StatusInternalServerError)
	}
	c.onResolve = func(w http.ResponseWriter, r *http.Request, err error) {
		c.logger.Error("failed to resolve controller", "error", err, "path", r.URL.Path)
		writeStatus(w, StatusCode(err))
	}
	return c
}

// Handle adapts a controller method to an http.HandlerFunc. The
// controller T is resolved from the request context on every request, so
// a transient controller factory builds one controller per request scope.
//
//	type GizmoController struct{ Gizmo Gizmo }
//
//	r.Get("/gizmo", middleware.Handle(injector, (*GizmoController).Describe))
func Handle[T any](inj *component.Injector, method func(T, http.ResponseWriter, *http.Request), opts ...HandleOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.recoverPanics {
			defer func() {
				if v := recover(); v != nil {
					cfg.onPanic(w, r, v)
				}
			}()
		}

		controller, err := component.Resolve[T](r.Context(), inj)
		if err != nil {
			cfg.onResolve(w, r, err)
			return
		}

		method(controller, w, r)
	}
}

// StatusCode maps an injector error to an HTTP status: 503 once the
// injector is shutting down, 500 otherwise.
func StatusCode(err error) int {
	if errors.Is(err, component.ErrScopeClosed) {
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

func writeStatus(w http.ResponseWriter, code int) {
	http.Error(w, http.StatusText(code), code)
}
