package registry

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Layer is one scope's set of bindings. Layers are linked to the layer
// that was innermost when they were created and are never mutated by
// operations on other layers.
type Layer struct {
	id     string
	parent *Layer

	mu       sync.RWMutex
	bindings map[reflect.Type]*Binding

	// results holds transient factory results cached in this layer,
	// keyed by the factory that produced them.
	results map[*Factory]*Slot

	// owned holds factory results in creation order for disposal.
	owned []any

	children []*Layer
	exited   atomic.Bool
}

// NewLayer creates a layer stacked above parent. A nil parent creates a
// root layer. A layer created above an exited parent starts exited.
func NewLayer(parent *Layer) *Layer {
	l := &Layer{
		id:       uuid.NewString(),
		parent:   parent,
		bindings: make(map[reflect.Type]*Binding),
		results:  make(map[*Factory]*Slot),
	}

	if parent != nil {
		parent.mu.Lock()
		if parent.exited.Load() {
			l.exited.Store(true)
		} else {
			parent.children = append(parent.children, l)
		}
		parent.mu.Unlock()
	}

	return l
}

// ID returns the unique identifier of the layer.
func (l *Layer) ID() string {
	return l.id
}

// Parent returns the layer this one was created above.
func (l *Layer) Parent() *Layer {
	return l.parent
}

// Exited reports whether the layer has been exited.
func (l *Layer) Exited() bool {
	return l.exited.Load()
}

// Bind associates t with b, replacing any binding for t in this layer.
// It returns false if the layer has exited.
func (l *Layer) Bind(t reflect.Type, b *Binding) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.exited.Load() {
		return false
	}

	l.bindings[t] = b
	return true
}

// Unbind removes the binding for t from this layer only.
func (l *Layer) Unbind(t reflect.Type) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.bindings[t]; !ok {
		return false
	}

	delete(l.bindings, t)
	return true
}

// Lookup returns the binding for t held by this layer.
func (l *Layer) Lookup(t reflect.Type) (*Binding, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.bindings[t]
	return b, ok
}

// Has reports whether this layer binds t.
func (l *Layer) Has(t reflect.Type) bool {
	_, ok := l.Lookup(t)
	return ok
}

// Types returns the keys bound in this layer sorted by name.
func (l *Layer) Types() []reflect.Type {
	l.mu.RLock()
	types := make([]reflect.Type, 0, len(l.bindings))
	for t := range l.bindings {
		types = append(types, t)
	}
	l.mu.RUnlock()

	sort.Slice(types, func(i, j int) bool {
		return types[i].String() < types[j].String()
	})

	return types
}

// Result returns the slot caching f's result in this layer, if any.
func (l *Layer) Result(f *Factory) (*Slot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.results[f]
	return s, ok
}

// ResultSlot returns the slot for f in this layer, creating it if needed.
// It returns false if the layer has exited.
func (l *Layer) ResultSlot(f *Factory) (*Slot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.exited.Load() {
		return nil, false
	}

	s, ok := l.results[f]
	if !ok {
		s = &Slot{}
		l.results[f] = s
	}

	return s, true
}

// Own records a factory result for disposal when the layer exits.
// It returns false if the layer has already exited.
func (l *Layer) Own(v any) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.exited.Load() {
		return false
	}

	l.owned = append(l.owned, v)
	return true
}

// Children returns the layers created above this one that have not exited.
func (l *Layer) Children() []*Layer {
	l.mu.RLock()
	defer l.mu.RUnlock()

	children := make([]*Layer, 0, len(l.children))
	for _, c := range l.children {
		if !c.Exited() {
			children = append(children, c)
		}
	}

	return children
}

// Exit marks the layer as exited and drops its bindings and cached results.
// It returns the owned factory results, newest first. The second return
// value is false if the layer had already exited. Children created before
// the exit stay listed until they exit themselves.
func (l *Layer) Exit() ([]any, bool) {
	l.mu.Lock()
	if !l.exited.CompareAndSwap(false, true) {
		l.mu.Unlock()
		return nil, false
	}

	owned := l.owned
	l.owned = nil
	l.bindings = make(map[reflect.Type]*Binding)
	l.results = make(map[*Factory]*Slot)
	l.mu.Unlock()

	if l.parent != nil {
		l.parent.removeChild(l)
	}

	for i, j := 0, len(owned)-1; i < j; i, j = i+1, j-1 {
		owned[i], owned[j] = owned[j], owned[i]
	}

	return owned, true
}

func (l *Layer) removeChild(child *Layer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, c := range l.children {
		if c == child {
			l.children = append(l.children[:i], l.children[i+1:]...)
			return
		}
	}
}

// Binding is the value associated with a type key: an instance or a factory.
type Binding struct {
	Instance any
	Factory  *Factory
}

// IsFactory returns true if the binding produces its value through a factory.
func (b *Binding) IsFactory() bool {
	return b.Factory != nil
}

// Factory describes a registered factory function.
type Factory struct {
	// Fn is the reflected factory function.
	Fn reflect.Value

	// Type is the key the factory was registered for.
	Type reflect.Type

	// TakesContext is true if Fn accepts a context.Context.
	TakesContext bool

	// ReturnsError is true if Fn returns (T, error).
	ReturnsError bool

	// Persistent factories cache their result in Owner instead of the
	// innermost layer at call time.
	Persistent bool

	// Owner is the layer the factory was registered in.
	Owner *Layer

	// Keys are all the type keys the factory is bound under.
	Keys []reflect.Type

	slot Slot
}

// Slot returns the factory's own result slot, used by persistent factories.
func (f *Factory) Slot() *Slot {
	return &f.slot
}

// Call invokes the factory. The error is the one returned by the factory itself.
func (f *Factory) Call(ctx context.Context) (any, error) {
	var args []reflect.Value
	if f.TakesContext {
		if ctx == nil {
			ctx = context.Background()
		}
		args = []reflect.Value{reflect.ValueOf(&ctx).Elem()}
	}

	results := f.Fn.Call(args)

	if f.ReturnsError {
		if errVal := results[1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
	}

	v := results[0]
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil, nil
		}
	}

	return v.Interface(), nil
}

// Slot caches one factory result. The mutex is held while the factory
// runs so concurrent first resolutions invoke it once; a failed
// invocation leaves the slot empty.
type Slot struct {
	mu    sync.Mutex
	done  bool
	value any
}

// Get returns the cached value, computing it with create if the slot is empty.
// The boolean result is true if this call computed the value.
func (s *Slot) Get(create func() (any, error)) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return s.value, false, nil
	}

	v, err := create()
	if err != nil {
		return nil, false, err
	}

	s.value = v
	s.done = true
	return v, true, nil
}

// Done reports whether the slot holds a value.
func (s *Slot) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.done
}
