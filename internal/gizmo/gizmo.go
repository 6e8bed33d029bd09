// Package gizmo holds the demo components used by the gizmo command.
package gizmo

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Gizmo describes how gizmos are supposed to work.
type Gizmo interface {
	Greeting() string
}

// Type is the reflected Gizmo interface, for declaring it on an injector.
var Type = reflect.TypeOf((*Gizmo)(nil)).Elem()

// OriginalGizmo is the genuine article.
type OriginalGizmo struct {
	ID string
}

// NewOriginal returns an original gizmo with a fresh ID.
func NewOriginal() *OriginalGizmo {
	return &OriginalGizmo{ID: uuid.NewString()}
}

// Greeting is one of our trademarks.
func (g *OriginalGizmo) Greeting() string { return "Hello, world!" }

// String names the gizmo by the first eight characters of its ID.
func (g *OriginalGizmo) String() string { return "OriginalGizmo(" + g.ID[:8] + ")" }

// AlternativeGizmo is a cheaper knock-off.
type AlternativeGizmo struct {
	ID string
}

// NewAlternative returns an alternative gizmo with a fresh ID.
func NewAlternative() *AlternativeGizmo {
	return &AlternativeGizmo{ID: uuid.NewString()}
}

// Greeting imitates the original, almost.
func (g *AlternativeGizmo) Greeting() string { return "Hello everyone!" }

// String names the gizmo by the first eight characters of its ID.
func (g *AlternativeGizmo) String() string { return "AlternativeGizmo(" + g.ID[:8] + ")" }

// AlternativeFactory returns a factory that announces each gizmo it builds on w.
func AlternativeFactory(w io.Writer) func() *AlternativeGizmo {
	return func() *AlternativeGizmo {
		fmt.Fprintln(w, "Creating alternative gizmo")
		return NewAlternative()
	}
}

// ConsumeFunc prints a gizmo's greeting. A nil gizmo is filled in by the
// injector wrapping it.
type ConsumeFunc func(ctx context.Context, prefix string, g Gizmo)

// Consumer returns a ConsumeFunc writing to w.
func Consumer(w io.Writer) ConsumeFunc {
	return func(ctx context.Context, prefix string, g Gizmo) {
		fmt.Fprintf(w, "%s %v says: %s\n", prefix, g, g.Greeting())
	}
}

// Loop calls consume n times, pausing for interval between calls, until
// ctx is done.
func Loop(ctx context.Context, consume ConsumeFunc, prefix string, n int, interval time.Duration) error {
	for i := range n {
		consume(ctx, prefix, nil)

		if i == n-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	return nil
}
