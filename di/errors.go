package di

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// 哨兵错误，可用 errors.Is 判断具体错误的种类。
var (
	ErrAmbiguousOverride    = errors.New("di: ambiguous method override")
	ErrNonOverridableMethod = errors.New("di: method is not overridable")
	ErrMethodNotFound       = errors.New("di: overridden method not found")
	ErrInvalidOverride      = errors.New("di: invalid method override")
	ErrConstructorNotFound  = errors.New("di: constructor not found")
	ErrInvalidTarget        = errors.New("di: invalid target type")
	ErrTypeMismatch         = errors.New("di: type mismatch")
	ErrNoSuchComponent      = errors.New("di: no such component")
	ErrNotBuilt             = errors.New("di: container not built")
	ErrNilResolver          = errors.New("di: resolver is required for method overrides")
)

// AmbiguousOverrideError 表示多个覆盖同时匹配一个方法。
type AmbiguousOverrideError struct {
	Type      reflect.Type
	Method    string
	Overrides []MethodOverride
}

func (e *AmbiguousOverrideError) Error() string {
	parts := make([]string, len(e.Overrides))
	for i, mo := range e.Overrides {
		parts[i] = mo.String()
	}
	return fmt.Sprintf("di: %v 的方法 %s 存在歧义覆盖: [%s]", e.Type, e.Method, strings.Join(parts, "; "))
}

func (e *AmbiguousOverrideError) Is(target error) bool { return target == ErrAmbiguousOverride }

// NonOverridableMethodError 表示覆盖引用了不可覆盖的方法。
type NonOverridableMethodError struct {
	Type     reflect.Type
	Method   string
	Override MethodOverride
}

func (e *NonOverridableMethodError) Error() string {
	return fmt.Sprintf("di: %v 的方法 %s 不可覆盖 (%s)", e.Type, e.Method, e.Override)
}

func (e *NonOverridableMethodError) Is(target error) bool { return target == ErrNonOverridableMethod }

// MethodNotFoundError 表示覆盖找不到对应的方法。
type MethodNotFoundError struct {
	Type     reflect.Type
	Override MethodOverride
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("di: %v 上没有与 %s 匹配的方法", e.Type, e.Override)
}

func (e *MethodNotFoundError) Is(target error) bool { return target == ErrMethodNotFound }

// InvalidOverrideError 表示方法的返回值形式无法承载覆盖的结果。
type InvalidOverrideError struct {
	Type     reflect.Type
	Method   Method
	Override MethodOverride
	Reason   string
}

func (e *InvalidOverrideError) Error() string {
	return fmt.Sprintf("di: %v 的方法 %s 不能应用 %s: %s", e.Type, e.Method.Signature(), e.Override, e.Reason)
}

func (e *InvalidOverrideError) Is(target error) bool { return target == ErrInvalidOverride }

// ConstructorNotFoundError 表示没有与选择器匹配的构造函数。
type ConstructorNotFoundError struct {
	Type       reflect.Type
	ParamTypes []reflect.Type
	Args       []any
}

func (e *ConstructorNotFoundError) Error() string {
	if e.ParamTypes != nil {
		return fmt.Sprintf("di: %v 没有签名为 %s 的构造函数", e.Type, signature("func", e.ParamTypes))
	}
	types := make([]string, len(e.Args))
	for i, a := range e.Args {
		types[i] = fmt.Sprintf("%T", a)
	}
	return fmt.Sprintf("di: %v 没有可接受参数 (%s) 的构造函数", e.Type, strings.Join(types, ", "))
}

func (e *ConstructorNotFoundError) Is(target error) bool { return target == ErrConstructorNotFound }

// InvalidTargetError 表示目标类型不是结构体。
type InvalidTargetError struct {
	Type reflect.Type
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("di: %v 不是结构体类型", e.Type)
}

func (e *InvalidTargetError) Is(target error) bool { return target == ErrInvalidTarget }

// TypeMismatchError 表示解析出的组件不能赋值给期望的类型。
type TypeMismatchError struct {
	Name     string
	Expected reflect.Type
	Actual   any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("di: 组件 %q 的类型 %T 不能作为 %v 使用", e.Name, e.Actual, e.Expected)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// NoSuchComponentError 表示容器中没有该名称的组件。
type NoSuchComponentError struct {
	Name string
}

func (e *NoSuchComponentError) Error() string {
	return fmt.Sprintf("di: 未找到组件 %q", e.Name)
}

func (e *NoSuchComponentError) Is(target error) bool { return target == ErrNoSuchComponent }
