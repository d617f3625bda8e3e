package di

import (
	"fmt"
	"reflect"

	"github.com/gocrud/inject/logging"
)

// DispatchKind 是一个方法的调用方式。
type DispatchKind int

const (
	// Passthrough 保持原有行为。
	Passthrough DispatchKind = iota
	// LookupRedirect 调用时从容器查找组件并返回。
	LookupRedirect
	// ReplaceRedirect 调用时委托给 MethodReplacer。
	ReplaceRedirect
)

func (k DispatchKind) String() string {
	switch k {
	case Passthrough:
		return "passthrough"
	case LookupRedirect:
		return "lookup"
	case ReplaceRedirect:
		return "replace"
	default:
		return fmt.Sprintf("DispatchKind(%d)", int(k))
	}
}

// DispatchEntry 是分派表中的一项。
type DispatchEntry struct {
	Method   Method
	Kind     DispatchKind
	Override MethodOverride // Passthrough 时为 nil
}

// DispatchTable 是目标类型上每个可覆盖方法到其调用方式的映射。
// 构建后不再修改，可被并发读取。
type DispatchTable struct {
	typ     reflect.Type
	entries []DispatchEntry
	index   map[string]int
}

// Type 返回目标结构体类型。
func (t *DispatchTable) Type() reflect.Type { return t.typ }

// Len 返回表项数量。
func (t *DispatchTable) Len() int { return len(t.entries) }

// Entries 按字段顺序返回所有表项的副本。
func (t *DispatchTable) Entries() []DispatchEntry {
	out := make([]DispatchEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Lookup 按签名（如 "Hello(string)"）查找表项。
func (t *DispatchTable) Lookup(sig string) (DispatchEntry, bool) {
	i, ok := t.index[sig]
	if !ok {
		return DispatchEntry{}, false
	}
	return t.entries[i], true
}

// Redirected 返回所有非直通的表项。
func (t *DispatchTable) Redirected() []DispatchEntry {
	var out []DispatchEntry
	for _, e := range t.entries {
		if e.Kind != Passthrough {
			out = append(out, e)
		}
	}
	return out
}

// BuildDispatchTable 为目标类型和覆盖集合构建分派表。
// 结果只取决于输入：结构相同的输入得到逐项相等的表。
// 所有配置错误都在这里发现，而不是推迟到调用时。
func BuildDispatchTable(typ reflect.Type, overrides MethodOverrides) (*DispatchTable, error) {
	typ = structType(typ)
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, &InvalidTargetError{Type: typ}
	}

	ms := inspectMethods(typ)

	// 每个覆盖都必须落在某个可覆盖方法上
	for _, mo := range overrides.All() {
		if ms.overloads(mo.Method()) == 0 {
			if ms.isFixed(mo.Method()) {
				return nil, &NonOverridableMethodError{Type: typ, Method: mo.Method(), Override: mo}
			}
			return nil, &MethodNotFoundError{Type: typ, Override: mo}
		}
		if len(ms.find(mo.Method(), mo.Params())) == 0 {
			return nil, &MethodNotFoundError{Type: typ, Override: mo}
		}
	}

	table := &DispatchTable{
		typ:     typ,
		entries: make([]DispatchEntry, 0, len(ms.overridable)),
		index:   make(map[string]int, len(ms.overridable)),
	}

	for _, m := range ms.overridable {
		mo, err := overrides.Resolve(typ, m, ms.overloads(m.Name))
		if err != nil {
			return nil, err
		}

		entry := DispatchEntry{Method: m, Kind: Passthrough, Override: mo}
		switch o := mo.(type) {
		case nil:
		case *LookupOverride:
			entry.Kind = LookupRedirect
			shape, reason := newResultShape(m)
			if reason == "" && shape.value < 0 {
				reason = "查找方法必须返回一个值"
			}
			if reason != "" {
				return nil, &InvalidOverrideError{Type: typ, Method: m, Override: o, Reason: reason}
			}
		case *ReplaceOverride:
			entry.Kind = ReplaceRedirect
			if _, reason := newResultShape(m); reason != "" {
				return nil, &InvalidOverrideError{Type: typ, Method: m, Override: o, Reason: reason}
			}
		default:
			return nil, fmt.Errorf("di: 不支持的覆盖类型 %T", mo)
		}

		table.index[m.Signature()] = len(table.entries)
		table.entries = append(table.entries, entry)
	}

	return table, nil
}

// DispatchResolver 在 BuildDispatchTable 之上缓存分派表，
// 每种 (类型, 覆盖集合) 只构建一次。
type DispatchResolver struct {
	logger logging.Logger
	tables artifactCache[*DispatchTable]
}

// NewDispatchResolver 创建分派解析器。logger 为 nil 时不记录日志。
func NewDispatchResolver(logger logging.Logger) *DispatchResolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DispatchResolver{logger: logger}
}

// Resolve 返回缓存的分派表，首次请求时构建。
func (r *DispatchResolver) Resolve(typ reflect.Type, overrides MethodOverrides) (*DispatchTable, error) {
	typ = structType(typ)
	return r.tables.get(newCacheKey(typ, overrides), func() (*DispatchTable, error) {
		table, err := BuildDispatchTable(typ, overrides)
		if err != nil {
			return nil, err
		}
		for _, e := range table.entries {
			override := "<none>"
			if e.Override != nil {
				override = e.Override.String()
			}
			r.logger.Trace(fmt.Sprintf("override for '%s' is [%s]", e.Method.Signature(), override),
				logging.F("type", typ), logging.F("dispatch", e.Kind))
		}
		return table, nil
	})
}

// Len 返回已缓存的分派表数量。
func (r *DispatchResolver) Len() int {
	return r.tables.len()
}
