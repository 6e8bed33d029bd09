package reflection_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/component/internal/reflection"
)

// Test types
type Database struct {
	ConnectionString string
}

type Logger interface {
	Log(msg string)
}

type ConsoleLogger struct{}

func (c *ConsoleLogger) Log(msg string) {}

type UserService struct {
	DB     *Database
	Logger Logger
}

// In parameter object
type ServiceParams struct {
	reflection.In

	Database *Database
	Logger   Logger    `optional:"true"`
	Skipped  *Database `inject:"-"`
	Handlers []func()
	Name     string
	Anything any
	private  *Database
}

func NewDatabase() *Database {
	return &Database{}
}

func NewDatabaseWithContext(ctx context.Context) (*Database, error) {
	return &Database{}, ctx.Err()
}

func TestAnalyzer_Func(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.AnalyzeFunc(func(ctx context.Context, prefix string, db *Database, logger Logger, v any) error {
		return nil
	})
	require.NoError(t, err, "Failed to analyze function")

	assert.Equal(t, 0, info.ContextIndex, "Expected context at index 0")
	assert.True(t, info.ReturnsError, "Expected ReturnsError to be true")

	// The context parameter is not listed
	require.Len(t, info.Parameters, 4, "Expected 4 parameters")

	assert.Equal(t, 1, info.Parameters[0].Index)
	assert.False(t, info.Parameters[0].Injectable, "string is not injectable")

	assert.Equal(t, reflect.TypeOf(&Database{}), info.Parameters[1].Type)
	assert.True(t, info.Parameters[1].Injectable, "pointer is injectable")

	assert.Equal(t, reflect.TypeOf((*Logger)(nil)).Elem(), info.Parameters[2].Type)
	assert.True(t, info.Parameters[2].Injectable, "interface is injectable")

	assert.False(t, info.Parameters[3].Injectable, "empty interface is not injectable")
}

func TestAnalyzer_FuncWithoutContext(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.AnalyzeFunc(func(db *Database) {})
	require.NoError(t, err)

	assert.Equal(t, -1, info.ContextIndex)
	assert.False(t, info.ReturnsError)
}

func TestAnalyzer_Variadic(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.AnalyzeFunc(func(db *Database, loggers ...Logger) {})
	require.NoError(t, err)

	require.Len(t, info.Parameters, 2)
	assert.True(t, info.Parameters[0].Injectable)
	assert.True(t, info.Parameters[1].Variadic)
	assert.False(t, info.Parameters[1].Injectable, "variadic parameters are never injected")
}

func TestAnalyzer_ParamObject(t *testing.T) {
	analyzer := reflection.New()

	for _, fn := range []any{
		func(p ServiceParams) {},
		func(p *ServiceParams) {},
	} {
		info, err := analyzer.AnalyzeFunc(fn)
		require.NoError(t, err, "Failed to analyze function with param object")

		require.Len(t, info.Parameters, 1)
		obj := info.Parameters[0].Object
		require.NotNil(t, obj, "Expected a param object")
		assert.False(t, info.Parameters[0].Injectable)

		assert.Equal(t, reflect.TypeOf(ServiceParams{}), obj.Type)
		assert.Equal(t, reflect.TypeOf(fn).In(0).Kind() == reflect.Pointer, obj.Pointer)

		names := make([]string, 0, len(obj.Fields))
		for _, f := range obj.Fields {
			names = append(names, f.Name)
		}
		assert.Equal(t, []string{"Database", "Logger", "Handlers"}, names)

		assert.False(t, obj.Fields[0].Optional, "Database should not be optional")
		assert.True(t, obj.Fields[1].Optional, "Logger should be optional")
	}
}

func TestAnalyzer_FuncErrors(t *testing.T) {
	analyzer := reflection.New()

	tests := []struct {
		name string
		fn   any
		want error
	}{
		{"nil", nil, reflection.ErrNilFunc},
		{"typed nil", (func())(nil), reflection.ErrNilFunc},
		{"not a function", 42, reflection.ErrNotFunc},
		{"two contexts", func(context.Context, context.Context) {}, reflection.ErrMultipleContexts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analyzer.AnalyzeFunc(tt.fn)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAnalyzer_Factory(t *testing.T) {
	analyzer := reflection.New()

	t.Run("plain", func(t *testing.T) {
		info, err := analyzer.AnalyzeFactory(NewDatabase)
		require.NoError(t, err)

		assert.Equal(t, reflect.TypeOf(&Database{}), info.Result)
		assert.False(t, info.TakesContext)
		assert.False(t, info.ReturnsError)
	})

	t.Run("with context and error", func(t *testing.T) {
		info, err := analyzer.AnalyzeFactory(NewDatabaseWithContext)
		require.NoError(t, err)

		assert.Equal(t, reflect.TypeOf(&Database{}), info.Result)
		assert.True(t, info.TakesContext)
		assert.True(t, info.ReturnsError)
	})

	t.Run("interface result", func(t *testing.T) {
		info, err := analyzer.AnalyzeFactory(func() Logger { return &ConsoleLogger{} })
		require.NoError(t, err)

		assert.Equal(t, reflect.TypeOf((*Logger)(nil)).Elem(), info.Result)
	})
}

func TestAnalyzer_FactoryErrors(t *testing.T) {
	analyzer := reflection.New()

	tests := []struct {
		name string
		fn   any
		want error
	}{
		{"nil", nil, reflection.ErrNilFunc},
		{"not a function", "factory", reflection.ErrNotFunc},
		{"parameters", func(*Database) *UserService { return nil }, reflection.ErrFactoryParams},
		{"variadic context", func(...context.Context) *UserService { return nil }, reflection.ErrFactoryParams},
		{"no result", func() {}, reflection.ErrFactoryNoReturn},
		{"second result not error", func() (*UserService, bool) { return nil, false }, reflection.ErrFactoryReturns},
		{"too many results", func() (*UserService, *Database, error) { return nil, nil, nil }, reflection.ErrFactoryReturns},
		{"error result", func() error { return nil }, reflection.ErrFactoryReturns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analyzer.AnalyzeFactory(tt.fn)
			assert.True(t, errors.Is(err, tt.want), "expected %v, got %v", tt.want, err)
		})
	}
}

func TestAnalyzer_Caching(t *testing.T) {
	analyzer := reflection.New()

	first, err := analyzer.AnalyzeFunc(func(db *Database) {})
	require.NoError(t, err)

	second, err := analyzer.AnalyzeFunc(func(other *Database) {})
	require.NoError(t, err)

	assert.Same(t, first, second, "functions of the same type share an analysis")

	_, err = analyzer.AnalyzeFactory(NewDatabase)
	require.NoError(t, err)
	assert.Equal(t, 2, analyzer.CacheSize())
}

func TestAnalyzer_Concurrent(t *testing.T) {
	analyzer := reflection.New()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := analyzer.AnalyzeFunc(func(ctx context.Context, p ServiceParams) error { return nil })
			assert.NoError(t, err)
			_, err = analyzer.AnalyzeFactory(NewDatabaseWithContext)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, analyzer.CacheSize())
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		tag  reflect.StructTag
		want reflection.TagInfo
	}{
		{``, reflection.TagInfo{}},
		{`optional:"true"`, reflection.TagInfo{Optional: true}},
		{`optional:"false"`, reflection.TagInfo{}},
		{`inject:"-"`, reflection.TagInfo{Ignore: true}},
		{`inject:"yes" optional:"true"`, reflection.TagInfo{Optional: true}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, reflection.ParseTags(tt.tag), "tag %q", tt.tag)
	}
}

func TestNillable(t *testing.T) {
	assert.True(t, reflection.Nillable(reflect.TypeOf(&Database{})))
	assert.True(t, reflection.Nillable(reflect.TypeOf((*Logger)(nil)).Elem()))
	assert.True(t, reflection.Nillable(reflect.TypeOf([]int{})))
	assert.True(t, reflection.Nillable(reflect.TypeOf(map[string]int{})))
	assert.True(t, reflection.Nillable(reflect.TypeOf(func() {})))
	assert.False(t, reflection.Nillable(reflect.TypeOf(Database{})))
	assert.False(t, reflection.Nillable(reflect.TypeOf(0)))

	assert.True(t, reflection.IsEmptyInterface(reflect.TypeOf((*any)(nil)).Elem()))
	assert.False(t, reflection.IsEmptyInterface(reflect.TypeOf((*Logger)(nil)).Elem()))
	assert.False(t, reflection.IsEmptyInterface(reflect.TypeOf(&Database{})))
}
