package di

import (
	"fmt"
	"go/token"
	"reflect"
	"strings"
)

// methodTag 是声明方法名的结构体标签。
// `method:"Name"` 为函数字段指定方法名，多个字段同名即为重载；
// `method:"-"` 将字段标记为不可覆盖。
const methodTag = "method"

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Method 标识目标类型上的一个可覆盖方法。
//
// 可覆盖方法是导出的函数类型字段：组件通过字段调用自己的方法，
// 因此内部自调用同样经过覆盖。
type Method struct {
	Name     string
	Field    string
	Index    int
	In       []reflect.Type
	Out      []reflect.Type
	Variadic bool
	Type     reflect.Type
}

// Signature 返回稳定的方法签名，例如 "Hello(string,int)"。
func (m Method) Signature() string {
	return signature(m.Name, m.In)
}

func (m Method) String() string {
	if m.Field != "" && m.Field != m.Name {
		return fmt.Sprintf("%s [%s]", m.Signature(), m.Field)
	}
	return m.Signature()
}

func signature(name string, params []reflect.Type) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	return b.String()
}

// methodSet 是对目标类型方法的一次检查结果。
type methodSet struct {
	typ         reflect.Type
	overridable []Method
	byName      map[string][]int
	fixed       map[string]bool
}

// inspectMethods 枚举结构体的方法：导出的函数字段可覆盖，
// 其余（普通 Go 方法、未导出或标记为 "-" 的函数字段）不可覆盖。
func inspectMethods(typ reflect.Type) *methodSet {
	ms := &methodSet{
		typ:    typ,
		byName: make(map[string][]int),
		fixed:  make(map[string]bool),
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.Type.Kind() != reflect.Func {
			continue
		}

		name := field.Name
		tag, hasTag := field.Tag.Lookup(methodTag)
		tag = strings.TrimSpace(tag)
		if hasTag && tag == "-" {
			ms.fixed[name] = true
			continue
		}
		if hasTag && tag != "" {
			name = tag
		}
		if !field.IsExported() {
			ms.fixed[name] = true
			continue
		}

		fnType := field.Type
		m := Method{
			Name:     name,
			Field:    field.Name,
			Index:    i,
			In:       make([]reflect.Type, fnType.NumIn()),
			Out:      make([]reflect.Type, fnType.NumOut()),
			Variadic: fnType.IsVariadic(),
			Type:     fnType,
		}
		for j := range m.In {
			m.In[j] = fnType.In(j)
		}
		for j := range m.Out {
			m.Out[j] = fnType.Out(j)
		}

		ms.byName[name] = append(ms.byName[name], len(ms.overridable))
		ms.overridable = append(ms.overridable, m)
	}

	ptr := reflect.PointerTo(typ)
	for i := 0; i < ptr.NumMethod(); i++ {
		ms.fixed[ptr.Method(i).Name] = true
	}

	return ms
}

// isFixed 报告 name 是否是不可覆盖的方法。
// 反射只列出导出的方法，未导出的名称一律视为不可覆盖。
func (ms *methodSet) isFixed(name string) bool {
	return ms.fixed[name] || !token.IsExported(name)
}

// overloads 返回同名可覆盖方法的数量。
func (ms *methodSet) overloads(name string) int {
	return len(ms.byName[name])
}

// find 按名称和可选参数类型查找可覆盖方法。
func (ms *methodSet) find(name string, params []reflect.Type) []Method {
	var found []Method
	for _, idx := range ms.byName[name] {
		m := ms.overridable[idx]
		if params == nil || sameTypes(params, m.In) {
			found = append(found, m)
		}
	}
	return found
}

func sameTypes(a, b []reflect.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
