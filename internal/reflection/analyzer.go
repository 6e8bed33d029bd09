package reflection

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// In marks a struct as a parameter object when embedded anonymously.
type In struct{}

var (
	inType  = reflect.TypeOf((*In)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// Analysis errors.
var (
	ErrNilFunc          = errors.New("function cannot be nil")
	ErrNotFunc          = errors.New("value is not a function")
	ErrFactoryParams    = errors.New("factory must take no parameters or a single context.Context")
	ErrFactoryNoReturn  = errors.New("factory must return a value")
	ErrFactoryReturns   = errors.New("factory must return T or (T, error)")
	ErrMultipleContexts = errors.New("function can take at most one context.Context")
)

// Analyzer performs reflection-based analysis of injected functions and
// factories. Results are cached per function type.
type Analyzer struct {
	mu        sync.RWMutex
	funcs     map[reflect.Type]*FuncInfo
	factories map[reflect.Type]*FactoryInfo
}

// FuncInfo describes the signature of a function wrapped for injection.
type FuncInfo struct {
	Type       reflect.Type
	Parameters []ParameterInfo

	// ContextIndex is the index of the context.Context parameter, or -1.
	ContextIndex int

	// ReturnsError is true if the last result is error.
	ReturnsError bool
}

// ParameterInfo describes one parameter of an injected function.
type ParameterInfo struct {
	Type  reflect.Type
	Index int

	// Injectable parameters are nillable and may be filled when the caller passes nil.
	Injectable bool

	// Variadic parameters are never injected.
	Variadic bool

	// Object is set when the parameter is an In struct or a pointer to one.
	Object *ParamObject
}

// ParamObject describes a struct embedding In.
type ParamObject struct {
	Type    reflect.Type // struct type
	Pointer bool
	Fields  []FieldInfo
}

// FieldInfo describes an injectable field of a parameter object.
type FieldInfo struct {
	Index    int
	Name     string
	Type     reflect.Type
	Optional bool
}

// FactoryInfo describes a factory function.
type FactoryInfo struct {
	Type         reflect.Type
	Result       reflect.Type
	TakesContext bool
	ReturnsError bool
}

// TagInfo contains parsed struct tag information.
type TagInfo struct {
	Optional bool
	Ignore   bool
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		funcs:     make(map[reflect.Type]*FuncInfo),
		factories: make(map[reflect.Type]*FactoryInfo),
	}
}

// AnalyzeFunc analyzes a function for call-time injection.
func (a *Analyzer) AnalyzeFunc(fn any) (*FuncInfo, error) {
	typ, err := funcType(fn)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	if cached, ok := a.funcs[typ]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	info := &FuncInfo{
		Type:         typ,
		Parameters:   make([]ParameterInfo, 0, typ.NumIn()),
		ContextIndex: -1,
	}

	for i := 0; i < typ.NumIn(); i++ {
		paramType := typ.In(i)

		if paramType == ctxType {
			if info.ContextIndex >= 0 {
				return nil, ErrMultipleContexts
			}
			info.ContextIndex = i
			continue
		}

		param := ParameterInfo{
			Type:     paramType,
			Index:    i,
			Variadic: typ.IsVariadic() && i == typ.NumIn()-1,
		}

		switch {
		case param.Variadic:
		case hasEmbeddedType(paramType, inType):
			param.Object = a.analyzeParamObject(paramType)
		default:
			param.Injectable = Nillable(paramType) && !IsEmptyInterface(paramType)
		}

		info.Parameters = append(info.Parameters, param)
	}

	if n := typ.NumOut(); n > 0 && typ.Out(n-1) == errType {
		info.ReturnsError = true
	}

	a.mu.Lock()
	a.funcs[typ] = info
	a.mu.Unlock()

	return info, nil
}

// analyzeParamObject analyzes an In struct's fields.
func (a *Analyzer) analyzeParamObject(t reflect.Type) *ParamObject {
	obj := &ParamObject{Type: t}
	if t.Kind() == reflect.Pointer {
		obj.Pointer = true
		obj.Type = t.Elem()
	}

	for i := 0; i < obj.Type.NumField(); i++ {
		field := obj.Type.Field(i)

		if !field.IsExported() {
			continue
		}

		if field.Anonymous && field.Type == inType {
			continue
		}

		tagInfo := ParseTags(field.Tag)
		if tagInfo.Ignore {
			continue
		}

		if !Nillable(field.Type) || IsEmptyInterface(field.Type) {
			continue
		}

		obj.Fields = append(obj.Fields, FieldInfo{
			Index:    i,
			Name:     field.Name,
			Type:     field.Type,
			Optional: tagInfo.Optional,
		})
	}

	return obj
}

// AnalyzeFactory analyzes a factory function. Accepted shapes are
// func() T, func() (T, error), func(context.Context) T and
// func(context.Context) (T, error).
func (a *Analyzer) AnalyzeFactory(fn any) (*FactoryInfo, error) {
	typ, err := funcType(fn)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	if cached, ok := a.factories[typ]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	info := &FactoryInfo{Type: typ}

	switch {
	case typ.NumIn() == 0:
	case typ.NumIn() == 1 && typ.In(0) == ctxType && !typ.IsVariadic():
		info.TakesContext = true
	default:
		return nil, ErrFactoryParams
	}

	switch typ.NumOut() {
	case 0:
		return nil, ErrFactoryNoReturn
	case 1:
	case 2:
		if typ.Out(1) != errType {
			return nil, ErrFactoryReturns
		}
		info.ReturnsError = true
	default:
		return nil, ErrFactoryReturns
	}

	info.Result = typ.Out(0)
	if info.Result == errType {
		return nil, ErrFactoryReturns
	}

	a.mu.Lock()
	a.factories[typ] = info
	a.mu.Unlock()

	return info, nil
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.funcs) + len(a.factories)
}

// ParseTags parses struct field tags for injection annotations.
func ParseTags(tag reflect.StructTag) TagInfo {
	info := TagInfo{}

	if val, ok := tag.Lookup("optional"); ok {
		info.Optional = val == "true"
	}

	if val, ok := tag.Lookup("inject"); ok && val == "-" {
		info.Ignore = true
	}

	return info
}

// Nillable reports whether values of t can be nil.
func Nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// IsEmptyInterface reports whether t is an interface without methods.
func IsEmptyInterface(t reflect.Type) bool {
	return t.Kind() == reflect.Interface && t.NumMethod() == 0
}

func funcType(fn any) (reflect.Type, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}

	val := reflect.ValueOf(fn)
	if val.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T", ErrNotFunc, fn)
	}

	if val.IsNil() {
		return nil, ErrNilFunc
	}

	return val.Type(), nil
}

// hasEmbeddedType checks if a struct (or pointer to struct) embeds the given type.
func hasEmbeddedType(t, embedded reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return false
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && field.Type == embedded {
			return true
		}
	}

	return false
}
