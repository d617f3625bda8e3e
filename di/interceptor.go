package di

import (
	"reflect"
)

// MethodReplacer 重新实现一个被覆盖的方法。
// receiver 是被调用的实例，m 是方法身份，args 是实际参数
// （可变参数以切片形式位于最后）。
type MethodReplacer interface {
	Reimplement(receiver any, m Method, args []any) (any, error)
}

// ReplacerFunc 是函数形式的 MethodReplacer。
type ReplacerFunc func(receiver any, m Method, args []any) (any, error)

// Reimplement 调用 f。
func (f ReplacerFunc) Reimplement(receiver any, m Method, args []any) (any, error) {
	return f(receiver, m, args)
}

// interceptor 是一个被重定向方法的调用行为。
type interceptor interface {
	intercept(r Resolver, receiver any, args []reflect.Value) []reflect.Value
}

// lookupInterceptor 忽略方法体，在调用时从容器查找目标组件并返回。
type lookupInterceptor struct {
	method   Method
	override *LookupOverride
	results  resultShape
}

func (i *lookupInterceptor) intercept(r Resolver, _ any, _ []reflect.Value) []reflect.Value {
	var (
		target any
		err    error
	)
	if i.override.Producer {
		target, err = r.ResolveProducer(i.override.Target)
	} else {
		target, err = r.ResolveProduct(i.override.Target)
	}
	if err != nil {
		return i.results.fail(err)
	}
	return i.results.succeed(i.override.Target, target)
}

// replaceInterceptor 每次调用都重新解析 replacer 并把整个调用交给它。
// replacer 不做缓存：即使它是单例，解析也只是一次缓存命中。
type replaceInterceptor struct {
	method   Method
	override *ReplaceOverride
	results  resultShape
}

func (i *replaceInterceptor) intercept(r Resolver, receiver any, args []reflect.Value) []reflect.Value {
	component, err := r.ResolveProduct(i.override.Replacer)
	if err != nil {
		return i.results.fail(err)
	}
	replacer, ok := component.(MethodReplacer)
	if !ok {
		return i.results.fail(&TypeMismatchError{
			Name:     i.override.Replacer,
			Expected: reflect.TypeOf((*MethodReplacer)(nil)).Elem(),
			Actual:   component,
		})
	}

	callArgs := make([]any, len(args))
	for j, a := range args {
		callArgs[j] = a.Interface()
	}

	result, err := replacer.Reimplement(receiver, i.method, callArgs)
	if err != nil {
		return i.results.fail(err)
	}
	return i.results.succeed(i.override.Replacer, result)
}

// resultShape 描述方法返回值的布局：至多一个值，加上可选的末尾 error。
type resultShape struct {
	out   []reflect.Type
	value int
	err   int
}

// newResultShape 检查方法返回值能否承载覆盖结果，不能时返回原因。
func newResultShape(m Method) (resultShape, string) {
	s := resultShape{out: m.Out, value: -1, err: -1}
	for i, t := range m.Out {
		if t == errorType {
			if i != len(m.Out)-1 {
				return s, "error 必须是最后一个返回值"
			}
			s.err = i
			continue
		}
		if s.value >= 0 {
			return s, "最多只能有一个非 error 返回值"
		}
		s.value = i
	}
	return s, ""
}

// fail 把错误原样交给调用方：方法声明了 error 返回值时放在该位置，
// 否则以原始错误值 panic。
func (s resultShape) fail(err error) []reflect.Value {
	if s.err < 0 {
		panic(err)
	}
	vals := s.zeros()
	vals[s.err] = reflect.ValueOf(&err).Elem()
	return vals
}

func (s resultShape) succeed(name string, v any) []reflect.Value {
	vals := s.zeros()
	if s.value >= 0 {
		rv, ok := assignable(v, s.out[s.value])
		if !ok {
			return s.fail(&TypeMismatchError{Name: name, Expected: s.out[s.value], Actual: v})
		}
		vals[s.value] = rv
	}
	return vals
}

func (s resultShape) zeros() []reflect.Value {
	vals := make([]reflect.Value, len(s.out))
	for i, t := range s.out {
		vals[i] = reflect.Zero(t)
	}
	return vals
}

// assignable 把 v 转为类型 t 的值；nil 对应零值。
func assignable(v any, t reflect.Type) (reflect.Value, bool) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), true
		default:
			return reflect.Value{}, false
		}
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, false
	}
	out := reflect.New(t).Elem()
	out.Set(rv)
	return out, true
}
