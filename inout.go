package component

import (
	"github.com/junioryono/component/internal/reflection"
)

// In marks a parameter object. When an injected function takes a struct
// (or a pointer to a struct) embedding In, every nil exported field of a
// nillable type is resolved on each call.
//
// Supported tags:
//   - `optional:"true"` - leave the field nil if no component is registered
//   - `inject:"-"` - never fill the field
//
// Example:
//
//	type HandlerParams struct {
//	    component.In
//
//	    Gizmo  Gizmo
//	    Logger *slog.Logger `optional:"true"`
//	}
//
//	handle := component.MustInject(injector, func(ctx context.Context, p HandlerParams) error {
//	    return p.Gizmo.Run(ctx)
//	})
//
//	err := handle(ctx, HandlerParams{})
//
// The In struct must be embedded anonymously:
//
//	type HandlerParams struct {
//	    component.In  // ✓ Correct - anonymous embedding
//	    // ...
//	}
//
//	type HandlerParams struct {
//	    In component.In  // ✗ Wrong - named field
//	    // ...
//	}
type In = reflection.In
