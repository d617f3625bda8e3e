package di

import (
	"fmt"
	"reflect"
)

// ScopeType 定义了组件实例的生命周期。
type ScopeType int

const (
	// ScopeSingleton 每个容器只创建一个实例，所有请求共享。
	ScopeSingleton ScopeType = iota
	// ScopeTransient 每次请求创建一个新实例，容器不缓存。
	ScopeTransient
)

// String 返回作用域名称。
func (s ScopeType) String() string {
	switch s {
	case ScopeSingleton:
		return "singleton"
	case ScopeTransient:
		return "transient"
	default:
		return fmt.Sprintf("ScopeType(%d)", int(s))
	}
}

// ConstructorSelector 显式选择构造函数并提供实参。
//
// ParamTypes 为 nil 时按 Args 的动态类型匹配候选构造函数；
// 非 nil（包括空切片）时要求参数类型完全一致。
type ConstructorSelector struct {
	ParamTypes []reflect.Type
	Args       []any
}

func (s *ConstructorSelector) isDefault() bool {
	return s == nil || (len(s.ParamTypes) == 0 && len(s.Args) == 0)
}

// Definition 描述一个组件：目标类型、作用域、构造函数和方法覆盖。
// 定义由注册方拥有，实例化引擎只读取它。
type Definition struct {
	Name  string
	Type  reflect.Type // 目标结构体类型，实例总是 *Type
	Scope ScopeType

	// Constructors 是候选构造函数，形如 func(...) *T / T / (*T, error) / (T, error)。
	Constructors []any
	// Constructor 为 nil 时选择无参构造函数，没有则使用零值 new(T)。
	Constructor *ConstructorSelector

	Overrides MethodOverrides

	// Value 是预先创建好的实例，设置后不再经过实例化引擎。
	Value any
}

// NewDefinition 创建组件定义并应用选项。
// typ 可以是结构体类型或指向结构体的指针类型。
func NewDefinition(name string, typ reflect.Type, opts ...Option) *Definition {
	def := &Definition{
		Name:  name,
		Type:  structType(typ),
		Scope: ScopeSingleton,
	}
	for _, opt := range opts {
		opt(def)
	}
	return def
}

// HasOverrides 报告定义是否声明了方法覆盖。
func (d *Definition) HasOverrides() bool {
	return !d.Overrides.IsEmpty()
}

// Validate 检查定义本身是否完整，不涉及方法覆盖的解析。
func (d *Definition) Validate() error {
	if d.Type == nil {
		return fmt.Errorf("di: 组件 %q 缺少目标类型", d.Name)
	}
	if d.Value != nil {
		if d.HasOverrides() {
			return fmt.Errorf("di: 组件 %q 是预创建实例，不能声明方法覆盖", d.Name)
		}
		return nil
	}
	if structType(d.Type).Kind() != reflect.Struct {
		return &InvalidTargetError{Type: d.Type}
	}
	if d.Scope != ScopeSingleton && d.Scope != ScopeTransient {
		return fmt.Errorf("di: 组件 %q 的作用域 %v 未知", d.Name, d.Scope)
	}
	for i, fn := range d.Constructors {
		if _, err := newConstructor(structType(d.Type), fn); err != nil {
			return fmt.Errorf("di: 组件 %q 的构造函数 %d: %w", d.Name, i, err)
		}
	}
	return nil
}

// Equal 报告两个定义是否结构相等。
// 构造函数按函数指针比较，方法覆盖按集合比较。
func (d *Definition) Equal(other *Definition) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil {
		return false
	}
	if d.Name != other.Name || d.Type != other.Type || d.Scope != other.Scope {
		return false
	}
	if len(d.Constructors) != len(other.Constructors) {
		return false
	}
	for i := range d.Constructors {
		if funcPointer(d.Constructors[i]) != funcPointer(other.Constructors[i]) {
			return false
		}
	}
	if !reflect.DeepEqual(d.Constructor, other.Constructor) {
		return false
	}
	if !reflect.DeepEqual(d.Value, other.Value) {
		return false
	}
	return d.Overrides.Key() == other.Overrides.Key()
}

// structType 解包指向结构体的指针类型。
func structType(typ reflect.Type) reflect.Type {
	if typ != nil && typ.Kind() == reflect.Pointer && typ.Elem().Kind() == reflect.Struct {
		return typ.Elem()
	}
	return typ
}

func funcPointer(fn any) uintptr {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return 0
	}
	return v.Pointer()
}
