package di

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// MethodOverride 是一个方法覆盖声明：LookupOverride 或 ReplaceOverride。
type MethodOverride interface {
	// Method 返回被覆盖的方法名。
	Method() string
	// Params 返回显式参数类型；nil 表示只按名称匹配。
	Params() []reflect.Type
	// Matches 报告覆盖是否作用于方法 m。
	Matches(m Method) bool
	String() string

	key() string
}

// LookupOverride 将方法重定向为从容器按名称查找组件。
// 方法体被忽略，每次调用都重新解析 Target。
type LookupOverride struct {
	MethodName string
	ParamTypes []reflect.Type
	Target     string
	// Producer 为 true 时解析生产者本身而不是它的产物。
	Producer bool
}

func (o *LookupOverride) Method() string         { return o.MethodName }
func (o *LookupOverride) Params() []reflect.Type { return o.ParamTypes }

func (o *LookupOverride) Matches(m Method) bool {
	return matches(o.MethodName, o.ParamTypes, m)
}

func (o *LookupOverride) String() string {
	target := o.Target
	if o.Producer {
		target += " (producer)"
	}
	return fmt.Sprintf("LookupOverride for method '%s'; target '%s'", selectorString(o.MethodName, o.ParamTypes), target)
}

func (o *LookupOverride) key() string {
	k := "lookup:" + selectorKey(o.MethodName, o.ParamTypes) + "->" + o.Target
	if o.Producer {
		k += "&"
	}
	return k
}

// ReplaceOverride 将方法调用委托给容器中的 MethodReplacer。
type ReplaceOverride struct {
	MethodName string
	ParamTypes []reflect.Type
	Replacer   string
}

func (o *ReplaceOverride) Method() string         { return o.MethodName }
func (o *ReplaceOverride) Params() []reflect.Type { return o.ParamTypes }

func (o *ReplaceOverride) Matches(m Method) bool {
	return matches(o.MethodName, o.ParamTypes, m)
}

func (o *ReplaceOverride) String() string {
	return fmt.Sprintf("ReplaceOverride for method '%s'; replacer '%s'", selectorString(o.MethodName, o.ParamTypes), o.Replacer)
}

func (o *ReplaceOverride) key() string {
	return "replace:" + selectorKey(o.MethodName, o.ParamTypes) + "->" + o.Replacer
}

func matches(name string, params []reflect.Type, m Method) bool {
	if name != m.Name {
		return false
	}
	return params == nil || sameTypes(params, m.In)
}

func selectorString(name string, params []reflect.Type) string {
	if params == nil {
		return name
	}
	return signature(name, params)
}

// selectorKey 生成进程内唯一的选择器键。
// 类型用名称加 rtype 地址表示，不同包中同名的类型不会冲突。
func selectorKey(name string, params []reflect.Type) string {
	if params == nil {
		return name
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = typeID(p)
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

func typeID(t reflect.Type) string {
	return fmt.Sprintf("%s@%p", t, t)
}

// MethodOverrides 是一个定义上的方法覆盖集合。
// 每个 (名称, 参数类型) 选择器最多一个覆盖；集合相等与添加顺序无关。
type MethodOverrides struct {
	overrides []MethodOverride
}

// Add 添加覆盖。选择器相同的旧覆盖被替换，保留原来的位置。
func (o *MethodOverrides) Add(mo MethodOverride) {
	sel := selectorKey(mo.Method(), mo.Params())
	for i, existing := range o.overrides {
		if selectorKey(existing.Method(), existing.Params()) == sel {
			o.overrides[i] = mo
			return
		}
	}
	o.overrides = append(o.overrides, mo)
}

// Len 返回覆盖数量。
func (o MethodOverrides) Len() int {
	return len(o.overrides)
}

// IsEmpty 报告集合是否为空。
func (o MethodOverrides) IsEmpty() bool {
	return len(o.overrides) == 0
}

// All 返回覆盖的副本，按添加顺序。
func (o MethodOverrides) All() []MethodOverride {
	out := make([]MethodOverride, len(o.overrides))
	copy(out, o.overrides)
	return out
}

// Key 返回集合的结构值，用作缓存键的一部分。
func (o MethodOverrides) Key() string {
	keys := make([]string, len(o.overrides))
	for i, mo := range o.overrides {
		keys[i] = mo.key()
	}
	sort.Strings(keys)
	return strings.Join(keys, ";")
}

// Resolve 查找作用于方法 m 的覆盖。overloads 是目标类型上同名方法的数量。
//
// 带显式参数类型的覆盖优先于只按名称的覆盖。多个候选同时匹配，
// 或只按名称的覆盖落在重载方法上时返回 *AmbiguousOverrideError。
// 没有覆盖时返回 nil，即直通。
func (o MethodOverrides) Resolve(typ reflect.Type, m Method, overloads int) (MethodOverride, error) {
	var exact, byName []MethodOverride
	for _, mo := range o.overrides {
		if mo.Method() != m.Name {
			continue
		}
		if mo.Params() == nil {
			byName = append(byName, mo)
			continue
		}
		if sameTypes(mo.Params(), m.In) {
			exact = append(exact, mo)
		}
	}

	switch {
	case len(exact) > 1:
		return nil, &AmbiguousOverrideError{Type: typ, Method: m.Signature(), Overrides: exact}
	case len(exact) == 1:
		return exact[0], nil
	case len(byName) == 0:
		return nil, nil
	case len(byName) > 1 || overloads > 1:
		return nil, &AmbiguousOverrideError{Type: typ, Method: m.Signature(), Overrides: byName}
	}
	return byName[0], nil
}
