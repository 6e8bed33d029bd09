package component

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/junioryono/component/internal/reflection"
	"github.com/junioryono/component/internal/registry"
)

const tracerName = "github.com/junioryono/component"

// Injector maps types to components and injects them into functions.
// It is safe for concurrent use. Registrations go to the innermost scope
// of the context they are made with, the root scope for a context that
// carries no scope of this injector.
type Injector struct {
	id       string
	root     *Scope
	analyzer *reflection.Analyzer
	logger   *slog.Logger
	tracer   trace.Tracer

	// Declared interfaces in declaration order.
	ifacesMu sync.RWMutex
	ifaces   []reflect.Type

	// Open scopes keyed by their layer.
	scopes sync.Map // map[*registry.Layer]*Scope
}

// New creates an injector with an empty root scope, then applies the
// seeding options.
func New(opts ...Option) (*Injector, error) {
	o := &injectorOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}

	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}

	inj := &Injector{
		id:       uuid.NewString(),
		analyzer: reflection.New(),
		logger:   o.logger,
		tracer:   o.tracerProvider.Tracer(tracerName),
	}

	layer := registry.NewLayer(nil)
	inj.root = &Scope{injector: inj, layer: layer}
	inj.root.home = &frame{layer: layer}
	inj.scopes.Store(layer, inj.root)

	if err := inj.Declare(o.interfaces...); err != nil {
		return nil, err
	}

	ctx := context.Background()
	for _, c := range o.components {
		if err := inj.Register(ctx, c); err != nil {
			return nil, err
		}
	}

	for _, f := range o.factories {
		if err := inj.RegisterFactory(ctx, f); err != nil {
			return nil, err
		}
	}

	return inj, nil
}

// MustNew is like New but panics on error.
func MustNew(opts ...Option) *Injector {
	inj, err := New(opts...)
	if err != nil {
		panic(err)
	}

	return inj
}

// ID returns the unique identifier of the injector.
func (inj *Injector) ID() string {
	return inj.id
}

// Close closes every scope, including the root scope. The injector
// cannot be used afterwards.
func (inj *Injector) Close() error {
	return inj.root.Close()
}

// Declare adds interfaces to the injector's ancestor set. Registering a
// component also binds it under every declared interface it implements,
// unless WithoutAncestors is given. Interfaces appearing as parameters of
// injected functions are declared automatically.
func (inj *Injector) Declare(types ...reflect.Type) error {
	for _, t := range types {
		if t == nil {
			return ConfigurationError{Cause: ErrNilType}
		}

		if t.Kind() != reflect.Interface || reflection.IsEmptyInterface(t) {
			return ConfigurationError{ComponentType: t, Cause: ErrNotInterface}
		}

		inj.declare(t)
	}

	return nil
}

// Declare adds the interface T to the injector's ancestor set.
func Declare[T any](inj *Injector) error {
	return inj.Declare(reflect.TypeOf((*T)(nil)).Elem())
}

func (inj *Injector) declare(t reflect.Type) {
	inj.ifacesMu.Lock()
	added := !slices.Contains(inj.ifaces, t)
	if added {
		inj.ifaces = append(inj.ifaces, t)
	}
	inj.ifacesMu.Unlock()

	if added {
		inj.reportLateDeclaration(t)
	}
}

// reportLateDeclaration logs root scope components that implement iface
// but were registered before it was declared, and so are not bound to it.
func (inj *Injector) reportLateDeclaration(iface reflect.Type) {
	top := inj.root.home
	if top.closed() || top.binds(iface) {
		return
	}

	for _, t := range top.types() {
		if t.Kind() != reflect.Interface && t.Implements(iface) {
			inj.logger.Debug("interface declared after a component implementing it was registered",
				"interface", formatType(iface),
				"component", formatType(t),
				"scope", top.layer.ID(),
			)
		}
	}
}

func (inj *Injector) interfaces() []reflect.Type {
	inj.ifacesMu.RLock()
	defer inj.ifacesMu.RUnlock()

	return slices.Clone(inj.ifaces)
}

// Register binds the component's concrete type, and the declared
// interfaces it implements, to the component in the innermost scope of
// ctx. An existing binding for the same type in that scope is replaced;
// bindings in outer scopes are shadowed.
//
// Ancestor keys are computed once, here. An interface declared later,
// including one declared by a later Inject, is not bound to this
// component; declare interfaces before registering, or use As.
func (inj *Injector) Register(ctx context.Context, component any, opts ...RegisterOption) error {
	if component == nil {
		return ConfigurationError{Cause: ErrNilComponent}
	}

	val := reflect.ValueOf(component)
	t := val.Type()
	if reflection.Nillable(t) && val.IsNil() {
		return ConfigurationError{ComponentType: t, Cause: ErrNilComponent}
	}

	o := newRegisterOptions(opts)
	if o.persistent || o.returnType != nil {
		return ConfigurationError{ComponentType: t, Cause: ErrInvalidOption}
	}

	top := inj.stack(ctx)
	keys, err := inj.keysFor(top, t, o)
	if err != nil {
		return err
	}

	if err := inj.bind(top.layer, keys, &registry.Binding{Instance: component}); err != nil {
		return err
	}

	inj.logger.Debug("component registered", "type", formatType(t), "keys", len(keys), "scope", top.layer.ID())

	return nil
}

// RegisterFactory binds the factory's return type, and the declared
// interfaces it implements, to the factory in the innermost scope of ctx.
// The factory is called lazily, at most once per caching scope.
//
// Accepted shapes are func() T, func() (T, error), func(context.Context) T
// and func(context.Context) (T, error). A factory returning any must be
// registered WithReturnType.
func (inj *Injector) RegisterFactory(ctx context.Context, factory any, opts ...RegisterOption) error {
	info, err := inj.analyzer.AnalyzeFactory(factory)
	if err != nil {
		return ConfigurationError{Factory: reflect.TypeOf(factory), Cause: fmt.Errorf("%w: %w", ErrInvalidFactory, err)}
	}

	o := newRegisterOptions(opts)

	t := info.Result
	if o.returnType != nil {
		if !info.Result.AssignableTo(o.returnType) {
			return ConfigurationError{ComponentType: o.returnType, Factory: info.Type, Cause: ErrNotAssignable}
		}
		t = o.returnType
	}

	if reflection.IsEmptyInterface(t) {
		return ConfigurationError{Factory: info.Type, Cause: ErrReturnTypeUnknown}
	}

	top := inj.stack(ctx)
	keys, err := inj.keysFor(top, t, o)
	if err != nil {
		return err
	}

	f := &registry.Factory{
		Fn:           reflect.ValueOf(factory),
		Type:         t,
		TakesContext: info.TakesContext,
		ReturnsError: info.ReturnsError,
		Persistent:   o.persistent,
		Owner:        top.layer,
		Keys:         keys,
	}

	if err := inj.bind(top.layer, keys, &registry.Binding{Factory: f}); err != nil {
		return err
	}

	inj.logger.Debug("factory registered",
		"type", formatType(t),
		"keys", len(keys),
		"persistent", o.persistent,
		"scope", top.layer.ID(),
	)

	return nil
}

// Unregister removes the binding for t from the innermost scope of ctx.
// Outer scopes are never modified. If the innermost scope does not bind
// t, Unregister returns a NotFoundError.
func (inj *Injector) Unregister(ctx context.Context, t reflect.Type) error {
	if t == nil {
		return ErrNilType
	}

	top := inj.stack(ctx)
	if top.layer.Exited() {
		return ErrScopeClosed
	}

	if !top.layer.Unbind(t) {
		return NotFoundError{ComponentType: t, ScopeID: top.layer.ID()}
	}

	inj.logger.Debug("component unregistered", "type", formatType(t), "scope", top.layer.ID())

	return nil
}

// Unregister removes the binding for T from the innermost scope of ctx.
func Unregister[T any](ctx context.Context, inj *Injector) error {
	return inj.Unregister(ctx, reflect.TypeOf((*T)(nil)).Elem())
}

// Has reports whether a binding for t is visible from ctx.
func (inj *Injector) Has(ctx context.Context, t reflect.Type) bool {
	if t == nil {
		return false
	}

	top := inj.stack(ctx)
	return !top.closed() && top.binds(t)
}

// keysFor returns the type keys a component of type t is bound under.
func (inj *Injector) keysFor(top *frame, t reflect.Type, o *registerOptions) ([]reflect.Type, error) {
	keys := []reflect.Type{t}

	for _, as := range o.as {
		if as == nil {
			return nil, ConfigurationError{ComponentType: t, Cause: ErrNilType}
		}

		if as != t {
			if as.Kind() != reflect.Interface || reflection.IsEmptyInterface(as) {
				return nil, ConfigurationError{ComponentType: as, Cause: ErrNotInterface}
			}

			if !t.Implements(as) {
				return nil, ConfigurationError{ComponentType: as, Cause: ErrNotAssignable}
			}
		}

		if !slices.Contains(keys, as) {
			keys = append(keys, as)
		}
	}

	if o.withoutAncestors {
		return keys, nil
	}

	for _, iface := range inj.interfaces() {
		if slices.Contains(keys, iface) || !t.Implements(iface) {
			continue
		}

		if o.onlyNew && top.binds(iface) {
			continue
		}

		keys = append(keys, iface)
	}

	return keys, nil
}

func (inj *Injector) bind(layer *registry.Layer, keys []reflect.Type, b *registry.Binding) error {
	for _, k := range keys {
		if !layer.Bind(k, b) {
			return ErrScopeClosed
		}
	}

	return nil
}
