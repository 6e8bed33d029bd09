package component

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are wrapped in typed errors when returned.
// Match them with errors.Is.

var (
	// Resolution errors.
	ErrComponentNotFound  = errors.New("component not found")
	ErrNilType            = errors.New("component type cannot be nil")
	ErrCircularDependency = errors.New("circular dependency detected")
	ErrTypeMismatch       = errors.New("component is not assignable to the requested type")

	// Registration errors.
	ErrNilComponent      = errors.New("component cannot be nil")
	ErrInvalidFactory    = errors.New("invalid factory")
	ErrReturnTypeUnknown = errors.New("factory return type cannot be determined")
	ErrNotInterface      = errors.New("type is not a non-empty interface")
	ErrNotAssignable     = errors.New("component does not implement the requested type")
	ErrInvalidOption     = errors.New("option is not valid for this registration")
	ErrInvalidFunction   = errors.New("invalid function")
	ErrNilContainer      = errors.New("container cannot be nil")

	// Scope errors.
	ErrScopeClosed = errors.New("scope has been closed")
)

var (
	_ error = ConfigurationError{}
	_ error = ResolutionError{}
	_ error = NotFoundError{}
	_ error = ReentryError{}
	_ error = FactoryError{}
	_ error = CircularDependencyError{}
	_ error = DisposalError{}
	_ error = ExportError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// ConfigurationError indicates a registration that cannot be honored,
// such as a factory whose return type cannot be determined.
type ConfigurationError struct {
	ComponentType reflect.Type // nil when unknown
	Factory       reflect.Type // nil for instance registrations
	Cause         error
}

func (e ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")

	if e.Factory != nil {
		b.WriteString(fmt.Sprintf(" in factory %s", formatType(e.Factory)))
	}

	if e.ComponentType != nil {
		b.WriteString(fmt.Sprintf(" for %s", formatType(e.ComponentType)))
	}

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if errors.Is(e.Cause, ErrReturnTypeUnknown) {
		b.WriteString("\n\nGive the factory a concrete result type or pass component.WithReturnType.")
	}

	return b.String()
}

func (e ConfigurationError) Unwrap() error {
	return e.Cause
}

// ResolutionError wraps errors that occur while resolving a component.
type ResolutionError struct {
	ComponentType reflect.Type
	Cause         error
	Available     []reflect.Type // visible types, used for suggestions
}

func (e ResolutionError) Error() string {
	var b strings.Builder

	if errors.Is(e.Cause, ErrComponentNotFound) {
		b.WriteString(fmt.Sprintf("component not found: %s", formatType(e.ComponentType)))
	} else {
		b.WriteString(fmt.Sprintf("failed to resolve %s", formatType(e.ComponentType)))
		if e.Cause != nil {
			b.WriteString(fmt.Sprintf(": %v", e.Cause))
		}
	}

	if len(e.Available) > 0 {
		similar := findSimilarTypes(e.ComponentType, e.Available)
		if len(similar) > 0 {
			b.WriteString("\n\nDid you mean one of these?\n")
			for _, t := range similar {
				b.WriteString(fmt.Sprintf("  • %s\n", formatType(t)))
			}
		}
	}

	return b.String()
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// NotFoundError is returned by Unregister when the innermost scope does
// not bind the requested type.
type NotFoundError struct {
	ComponentType reflect.Type
	ScopeID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("component %s is not registered in scope %s", formatType(e.ComponentType), e.ScopeID)
}

func (e NotFoundError) Unwrap() error {
	return ErrComponentNotFound
}

// ReentryError indicates an attempt to re-enter a scope that has been closed.
type ReentryError struct {
	ScopeID string
}

func (e ReentryError) Error() string {
	return fmt.Sprintf("cannot re-enter scope %s: %v", e.ScopeID, ErrScopeClosed)
}

func (e ReentryError) Unwrap() error {
	return ErrScopeClosed
}

// FactoryError wraps an error returned by a factory. The factory's
// result slot stays empty so the next resolution calls it again.
type FactoryError struct {
	ComponentType reflect.Type
	Cause         error
}

func (e FactoryError) Error() string {
	return fmt.Sprintf("factory for %s failed: %v", formatType(e.ComponentType), e.Cause)
}

func (e FactoryError) Unwrap() error {
	return e.Cause
}

// CircularDependencyError indicates a factory that, directly or
// indirectly, resolves its own component.
type CircularDependencyError struct {
	Chain []reflect.Type
}

func (e CircularDependencyError) Error() string {
	names := make([]string, len(e.Chain))
	for i, t := range e.Chain {
		names[i] = formatType(t)
	}

	return fmt.Sprintf("circular dependency detected: %s", strings.Join(names, " -> "))
}

func (e CircularDependencyError) Unwrap() error {
	return ErrCircularDependency
}

// DisposalError collects the errors returned while disposing the
// components owned by a scope.
type DisposalError struct {
	ScopeID string
	Errors  []error
}

func (e DisposalError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("failed to dispose %d component(s) of scope %s", len(e.Errors), e.ScopeID))
	for _, err := range e.Errors {
		b.WriteString(fmt.Sprintf("\n  • %v", err))
	}

	return b.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// ExportError indicates a type that could not be provided to a dig container.
type ExportError struct {
	ComponentType reflect.Type
	Cause         error
}

func (e ExportError) Error() string {
	return fmt.Sprintf("failed to export %s: %v", formatType(e.ComponentType), e.Cause)
}

func (e ExportError) Unwrap() error {
	return e.Cause
}

// findSimilarTypes finds types with similar names using a simple substring match.
func findSimilarTypes(target reflect.Type, available []reflect.Type) []reflect.Type {
	if target == nil || len(available) == 0 {
		return nil
	}

	targetName := target.String()
	targetShortName := target.Name()
	if targetShortName == "" {
		targetShortName = targetName
	}

	var similar []reflect.Type
	for _, t := range available {
		if t == nil || t == target {
			continue
		}

		typeName := t.String()
		typeShortName := t.Name()
		if typeShortName == "" {
			typeShortName = typeName
		}

		if targetShortName == typeShortName ||
			strings.Contains(strings.ToLower(typeName), strings.ToLower(targetShortName)) ||
			strings.Contains(strings.ToLower(targetName), strings.ToLower(typeShortName)) {
			similar = append(similar, t)
		}

		if len(similar) >= 5 {
			break
		}
	}

	return similar
}

// formatType returns a readable name for t.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		return "*" + formatType(t.Elem())
	case reflect.Slice:
		return "[]" + formatType(t.Elem())
	case reflect.Map:
		return fmt.Sprintf("map[%s]%s", formatType(t.Key()), formatType(t.Elem()))
	case reflect.Func:
		return formatFunc(t)
	}

	return t.String()
}

func formatFunc(t reflect.Type) string {
	params := make([]string, 0, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		params = append(params, formatType(t.In(i)))
	}

	returns := make([]string, 0, t.NumOut())
	for i := 0; i < t.NumOut(); i++ {
		returns = append(returns, formatType(t.Out(i)))
	}

	s := "func(" + strings.Join(params, ", ") + ")"
	switch len(returns) {
	case 0:
		return s
	case 1:
		return s + " " + returns[0]
	default:
		return s + " (" + strings.Join(returns, ", ") + ")"
	}
}
