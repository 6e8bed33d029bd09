package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest            = errors.New("test error")
	ErrFactory         = errors.New("factory error")
	ErrDisposal        = errors.New("disposal error")
	ErrAlreadyDisposed = errors.New("already disposed")
)

// Greeter is the base interface of the gizmo hierarchy.
type Greeter interface {
	Greeting() string
}

// Gizmo extends Greeter, so Gizmo < Greeter form an ancestor chain.
type Gizmo interface {
	Greeter
	Model() string
}

// OriginalGizmo is the genuine article.
type OriginalGizmo struct {
	ID string
}

func NewOriginalGizmo() *OriginalGizmo {
	return &OriginalGizmo{ID: uuid.NewString()}
}

func (g *OriginalGizmo) Greeting() string { return "Hello, world!" }
func (g *OriginalGizmo) Model() string    { return "original" }

// AlternativeGizmo is a cheaper knock-off.
type AlternativeGizmo struct {
	ID string
}

func NewAlternativeGizmo() *AlternativeGizmo {
	return &AlternativeGizmo{ID: uuid.NewString()}
}

func (g *AlternativeGizmo) Greeting() string { return "Hello everyone!" }
func (g *AlternativeGizmo) Model() string    { return "alternative" }

// PlainGreeter implements Greeter but not Gizmo.
type PlainGreeter struct {
	Text string
}

func (g *PlainGreeter) Greeting() string { return g.Text }

// TestService is a basic component without interfaces.
type TestService struct {
	ID        string
	CreatedAt time.Time
}

func NewTestService() *TestService {
	return &TestService{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
}

// TestDisposable records whether it has been closed.
type TestDisposable struct {
	ID           string
	disposeError error
	disposed     bool
	order        *DisposalLog
	mu           sync.Mutex
}

func NewTestDisposable() *TestDisposable {
	return &TestDisposable{ID: uuid.NewString()}
}

func NewTestDisposableWithError(err error) *TestDisposable {
	return &TestDisposable{ID: uuid.NewString(), disposeError: err}
}

// NewLoggedDisposable returns a disposable that appends its ID to log when closed.
func NewLoggedDisposable(log *DisposalLog) *TestDisposable {
	return &TestDisposable{ID: uuid.NewString(), order: log}
}

func (d *TestDisposable) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return ErrAlreadyDisposed
	}

	d.disposed = true
	if d.order != nil {
		d.order.Append(d.ID)
	}

	return d.disposeError
}

func (d *TestDisposable) IsDisposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disposed
}

// ContextDisposable implements Close(ctx).
type ContextDisposable struct {
	closed atomic.Bool
}

func (d *ContextDisposable) Close(ctx context.Context) error {
	d.closed.Store(true)
	return ctx.Err()
}

func (d *ContextDisposable) IsDisposed() bool {
	return d.closed.Load()
}

// DisposalLog records disposal order.
type DisposalLog struct {
	mu  sync.Mutex
	ids []string
}

func (l *DisposalLog) Append(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, id)
}

func (l *DisposalLog) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ids...)
}

// CountingFactory wraps a constructor and counts its invocations.
type CountingFactory[T any] struct {
	calls atomic.Int32
	build func() T
}

func NewCountingFactory[T any](build func() T) *CountingFactory[T] {
	return &CountingFactory[T]{build: build}
}

// Func returns the factory function to register.
func (f *CountingFactory[T]) Func() func() T {
	return func() T {
		f.calls.Add(1)
		return f.build()
	}
}

// Calls returns the number of invocations so far.
func (f *CountingFactory[T]) Calls() int {
	return int(f.calls.Load())
}
