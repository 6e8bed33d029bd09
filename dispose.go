package component

import (
	"context"
	"fmt"
)

// Disposable is implemented by components that release resources.
// Components produced by factories are closed when the scope caching
// them closes. Registered instances belong to the caller and are never
// closed by the injector.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// DisposableWithContext is the context-aware form of Disposable.
type DisposableWithContext interface {
	Close(ctx context.Context) error
}

// dispose closes the given components in order and collects the errors.
func dispose(ctx context.Context, components []any) []error {
	var errs []error

	for _, c := range components {
		var err error
		switch d := c.(type) {
		case Disposable:
			err = d.Close()
		case DisposableWithContext:
			err = d.Close(ctx)
		default:
			continue
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", c, err))
		}
	}

	return errs
}
