package di

import (
	"fmt"
	"reflect"

	"github.com/gocrud/inject/logging"
)

// SynthesizedType 是目标类型针对一种覆盖配置的特化：
// 冻结的分派表加上每个被重定向方法的拦截器。
// 它在首次使用时生成并长期缓存，生成后不可变。
type SynthesizedType struct {
	target reflect.Type
	table  *DispatchTable
	slots  []slot
}

// slot 是实例上需要安装拦截器的一个函数字段。
type slot struct {
	index       int
	fnType      reflect.Type
	interceptor interceptor
}

// Target 返回目标结构体类型。
func (s *SynthesizedType) Target() reflect.Type { return s.target }

// Table 返回绑定的分派表。
func (s *SynthesizedType) Table() *DispatchTable { return s.table }

func (s *SynthesizedType) String() string {
	return fmt.Sprintf("%v$$inject(%d redirected)", s.target, len(s.slots))
}

// bind 把拦截器和解析器装入实例 inst（*T）。直通的字段保持构造函数设置的值。
func (s *SynthesizedType) bind(inst reflect.Value, r Resolver) {
	receiver := inst.Interface()
	elem := inst.Elem()
	for _, sl := range s.slots {
		ic := sl.interceptor
		elem.Field(sl.index).Set(reflect.MakeFunc(sl.fnType, func(args []reflect.Value) []reflect.Value {
			return ic.intercept(r, receiver, args)
		}))
	}
}

// Synthesizer 生成并缓存 SynthesizedType。
// 缓存按 (类型身份, 覆盖集合结构值) 区分，不同定义只要覆盖结构相同就共享同一个特化。
type Synthesizer struct {
	dispatch *DispatchResolver
	logger   logging.Logger
	types    artifactCache[*SynthesizedType]
}

// NewSynthesizer 创建生成器。
func NewSynthesizer(dispatch *DispatchResolver, logger logging.Logger) *Synthesizer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if dispatch == nil {
		dispatch = NewDispatchResolver(logger)
	}
	return &Synthesizer{dispatch: dispatch, logger: logger}
}

// Obtain 返回 (typ, overrides) 对应的特化类型，并发首次请求也只生成一次。
func (s *Synthesizer) Obtain(typ reflect.Type, overrides MethodOverrides) (*SynthesizedType, error) {
	typ = structType(typ)
	return s.types.get(newCacheKey(typ, overrides), func() (*SynthesizedType, error) {
		return s.synthesize(typ, overrides)
	})
}

func (s *Synthesizer) synthesize(typ reflect.Type, overrides MethodOverrides) (*SynthesizedType, error) {
	table, err := s.dispatch.Resolve(typ, overrides)
	if err != nil {
		return nil, err
	}

	st := &SynthesizedType{target: typ, table: table}
	for _, e := range table.entries {
		var ic interceptor
		shape, _ := newResultShape(e.Method)
		switch e.Kind {
		case Passthrough:
			continue
		case LookupRedirect:
			ic = &lookupInterceptor{method: e.Method, override: e.Override.(*LookupOverride), results: shape}
		case ReplaceRedirect:
			ic = &replaceInterceptor{method: e.Method, override: e.Override.(*ReplaceOverride), results: shape}
		}
		st.slots = append(st.slots, slot{index: e.Method.Index, fnType: e.Method.Type, interceptor: ic})
	}

	s.logger.Debug("synthesized type", logging.F("type", typ), logging.F("redirected", len(st.slots)))
	return st, nil
}

// Instantiate 用选定的构造函数创建实例，并绑定分派表和解析器。
func (s *Synthesizer) Instantiate(st *SynthesizedType, r Resolver, ctors []any, sel *ConstructorSelector) (any, error) {
	if r == nil && len(st.slots) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrNilResolver, st.target)
	}
	inst, err := construct(st.target, ctors, sel)
	if err != nil {
		return nil, err
	}
	st.bind(inst, r)
	return inst.Interface(), nil
}

// Len 返回已生成的特化类型数量。
func (s *Synthesizer) Len() int {
	return s.types.len()
}
