package component

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	errGizmo        interface{ Greeting() string }
	errGizmoImpl    struct{}
	errUnrelated    struct{}
	errGizmoFactory func() *errGizmoImpl
)

func (errGizmoImpl) Greeting() string { return "hi" }

var (
	errGizmoType     = reflect.TypeOf((*errGizmo)(nil)).Elem()
	errGizmoImplType = reflect.TypeOf(&errGizmoImpl{})
	errUnrelatedType = reflect.TypeOf(errUnrelated{})
)

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("cause")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"configuration", ConfigurationError{Cause: ErrInvalidFactory}, ErrInvalidFactory},
		{"resolution", ResolutionError{ComponentType: errGizmoType, Cause: ErrComponentNotFound}, ErrComponentNotFound},
		{"not found", NotFoundError{ComponentType: errGizmoType, ScopeID: "s"}, ErrComponentNotFound},
		{"reentry", ReentryError{ScopeID: "s"}, ErrScopeClosed},
		{"factory", FactoryError{ComponentType: errGizmoType, Cause: cause}, cause},
		{"circular", CircularDependencyError{Chain: []reflect.Type{errGizmoType}}, ErrCircularDependency},
		{"disposal", DisposalError{ScopeID: "s", Errors: []error{errors.New("a"), cause}}, cause},
		{"export", ExportError{ComponentType: errGizmoType, Cause: cause}, cause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.want)
			assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tt.err), tt.want)
		})
	}
}

func TestErrors_Messages(t *testing.T) {
	t.Run("configuration error names the factory and type", func(t *testing.T) {
		err := ConfigurationError{
			ComponentType: errGizmoImplType,
			Factory:       reflect.TypeOf(errGizmoFactory(nil)),
			Cause:         ErrNotAssignable,
		}
		assert.Contains(t, err.Error(), "in factory func() *component.errGizmoImpl")
		assert.Contains(t, err.Error(), "for *component.errGizmoImpl")
		assert.Contains(t, err.Error(), ErrNotAssignable.Error())
	})

	t.Run("unknown return types suggest WithReturnType", func(t *testing.T) {
		err := ConfigurationError{Cause: ErrReturnTypeUnknown}
		assert.Contains(t, err.Error(), "component.WithReturnType")
	})

	t.Run("not found errors suggest similar types", func(t *testing.T) {
		err := ResolutionError{
			ComponentType: errGizmoType,
			Cause:         ErrComponentNotFound,
			Available:     []reflect.Type{errGizmoImplType, errUnrelatedType},
		}

		msg := err.Error()
		assert.Contains(t, msg, "component not found: component.errGizmo")
		assert.Contains(t, msg, "Did you mean one of these?")
		assert.Contains(t, msg, "*component.errGizmoImpl")
		assert.NotContains(t, msg, "errUnrelated")
	})

	t.Run("other resolution errors carry the cause", func(t *testing.T) {
		err := ResolutionError{ComponentType: errGizmoType, Cause: ErrScopeClosed}
		assert.Equal(t, "failed to resolve component.errGizmo: scope has been closed", err.Error())
	})

	t.Run("circular dependency errors show the chain", func(t *testing.T) {
		err := CircularDependencyError{Chain: []reflect.Type{errGizmoType, errGizmoImplType, errGizmoType}}
		assert.Equal(t,
			"circular dependency detected: component.errGizmo -> *component.errGizmoImpl -> component.errGizmo",
			err.Error())
	})

	t.Run("disposal errors list every failure", func(t *testing.T) {
		err := DisposalError{ScopeID: "abc", Errors: []error{errors.New("first"), errors.New("second")}}
		assert.Contains(t, err.Error(), "failed to dispose 2 component(s) of scope abc")
		assert.Contains(t, err.Error(), "• first")
		assert.Contains(t, err.Error(), "• second")
	})

	t.Run("other typed errors", func(t *testing.T) {
		assert.Equal(t, "component *component.errGizmoImpl is not registered in scope s",
			NotFoundError{ComponentType: errGizmoImplType, ScopeID: "s"}.Error())
		assert.Equal(t, "cannot re-enter scope s: scope has been closed", ReentryError{ScopeID: "s"}.Error())
		assert.Equal(t, "factory for component.errGizmo failed: boom",
			FactoryError{ComponentType: errGizmoType, Cause: errors.New("boom")}.Error())
	})
}

func TestFindSimilarTypes(t *testing.T) {
	assert.Nil(t, findSimilarTypes(nil, []reflect.Type{errGizmoType}))
	assert.Nil(t, findSimilarTypes(errGizmoType, nil))

	similar := findSimilarTypes(errGizmoType, []reflect.Type{errGizmoType, nil, errGizmoImplType, errUnrelatedType})
	assert.Equal(t, []reflect.Type{errGizmoImplType}, similar, "the target itself is skipped")

	many := make([]reflect.Type, 0, 8)
	for range 8 {
		many = append(many, errGizmoImplType)
	}
	require.Len(t, findSimilarTypes(errGizmoType, many), 5)
}

func TestFormatType(t *testing.T) {
	tests := []struct {
		typ  reflect.Type
		want string
	}{
		{nil, "<nil>"},
		{errGizmoType, "component.errGizmo"},
		{errGizmoImplType, "*component.errGizmoImpl"},
		{reflect.TypeOf([]*errGizmoImpl{}), "[]*component.errGizmoImpl"},
		{reflect.TypeOf(map[string]errGizmo{}), "map[string]component.errGizmo"},
		{reflect.TypeOf(func() {}), "func()"},
		{reflect.TypeOf(func(errGizmo) error { return nil }), "func(component.errGizmo) error"},
		{reflect.TypeOf(func(int, string) (*errGizmoImpl, error) { return nil, nil }), "func(int, string) (*component.errGizmoImpl, error)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatType(tt.typ))
	}
}
