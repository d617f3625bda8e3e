package di

import (
	"fmt"
	"reflect"
)

// constructor 是一个经过检查的构造函数。
type constructor struct {
	fn     reflect.Value
	in     []reflect.Type
	ptr    bool // 返回 *T 而不是 T
	hasErr bool
}

// newConstructor 检查 fn 是否是 target 的构造函数：
// func(...) *T、func(...) T，可带末尾 error。
func newConstructor(target reflect.Type, fn any) (*constructor, error) {
	fnVal := reflect.ValueOf(fn)
	if fnVal.Kind() != reflect.Func {
		return nil, fmt.Errorf("期望函数，得到 %T", fn)
	}
	fnType := fnVal.Type()
	if fnType.IsVariadic() {
		return nil, fmt.Errorf("构造函数 %v 不能是可变参数函数", fnType)
	}

	c := &constructor{fn: fnVal, in: make([]reflect.Type, fnType.NumIn())}
	for i := range c.in {
		c.in[i] = fnType.In(i)
	}

	switch fnType.NumOut() {
	case 1:
	case 2:
		if fnType.Out(1) != errorType {
			return nil, fmt.Errorf("构造函数 %v 的第二个返回值必须是 error", fnType)
		}
		c.hasErr = true
	default:
		return nil, fmt.Errorf("构造函数 %v 必须返回实例和可选的 error", fnType)
	}

	switch out := fnType.Out(0); {
	case out == reflect.PointerTo(target):
		c.ptr = true
	case out == target:
	default:
		return nil, fmt.Errorf("构造函数 %v 的返回值不是 %v 或 *%v", fnType, target, target)
	}
	return c, nil
}

// call 调用构造函数并返回 *T。
func (c *constructor) call(args []reflect.Value) (reflect.Value, error) {
	results := c.fn.Call(args)

	if c.hasErr && !results[1].IsNil() {
		return reflect.Value{}, results[1].Interface().(error)
	}

	inst := results[0]
	if c.ptr {
		if inst.IsNil() {
			return reflect.Value{}, fmt.Errorf("di: 构造函数返回了 nil 实例")
		}
		return inst, nil
	}

	ptr := reflect.New(inst.Type())
	ptr.Elem().Set(inst)
	return ptr, nil
}

// construct 按选择器创建 target 的实例并返回 *T。
//
// 选择规则：
//   - 无选择器或空选择器：无参构造函数，没有则 new(T)；
//   - ParamTypes 非 nil：参数类型完全一致的构造函数；
//   - 仅 Args：按声明顺序第一个能接受这些实参的构造函数。
func construct(target reflect.Type, ctors []any, sel *ConstructorSelector) (reflect.Value, error) {
	candidates := make([]*constructor, 0, len(ctors))
	for _, fn := range ctors {
		c, err := newConstructor(target, fn)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("di: %v: %w", target, err)
		}
		candidates = append(candidates, c)
	}

	if sel.isDefault() {
		for _, c := range candidates {
			if len(c.in) == 0 {
				return c.call(nil)
			}
		}
		return reflect.New(target), nil
	}

	notFound := &ConstructorNotFoundError{Type: target, ParamTypes: sel.ParamTypes, Args: sel.Args}

	if sel.ParamTypes != nil {
		if len(sel.Args) != len(sel.ParamTypes) {
			return reflect.Value{}, notFound
		}
		for _, c := range candidates {
			if !sameTypes(c.in, sel.ParamTypes) {
				continue
			}
			args, ok := convertArgs(c.in, sel.Args)
			if !ok {
				return reflect.Value{}, notFound
			}
			return c.call(args)
		}
		return reflect.Value{}, notFound
	}

	for _, c := range candidates {
		if len(c.in) != len(sel.Args) {
			continue
		}
		if args, ok := convertArgs(c.in, sel.Args); ok {
			return c.call(args)
		}
	}
	return reflect.Value{}, notFound
}

func convertArgs(types []reflect.Type, args []any) ([]reflect.Value, bool) {
	vals := make([]reflect.Value, len(args))
	for i, a := range args {
		v, ok := assignable(a, types[i])
		if !ok {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}
