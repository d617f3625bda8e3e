package di

import "reflect"

// Option 配置组件定义。
type Option func(*Definition)

// WithScope 设置组件的作用域。
func WithScope(scope ScopeType) Option {
	return func(d *Definition) {
		d.Scope = scope
	}
}

// WithSingleton 将作用域设置为 Singleton（默认）。
func WithSingleton() Option {
	return WithScope(ScopeSingleton)
}

// WithTransient 将作用域设置为 Transient。
func WithTransient() Option {
	return WithScope(ScopeTransient)
}

// WithValue 将已创建的实例注册为单例，按原样使用。
func WithValue(v any) Option {
	return func(d *Definition) {
		d.Value = v
		d.Scope = ScopeSingleton
		if d.Type == nil && v != nil {
			d.Type = structType(reflect.TypeOf(v))
		}
	}
}

// WithConstructor 添加候选构造函数。
func WithConstructor(fns ...any) Option {
	return func(d *Definition) {
		d.Constructors = append(d.Constructors, fns...)
	}
}

// WithArgs 按实参类型选择构造函数。
func WithArgs(args ...any) Option {
	return func(d *Definition) {
		d.Constructor = &ConstructorSelector{Args: args}
	}
}

// WithConstructorArgs 按显式签名选择构造函数。
func WithConstructorArgs(params []reflect.Type, args ...any) Option {
	return func(d *Definition) {
		if params == nil {
			params = []reflect.Type{}
		}
		d.Constructor = &ConstructorSelector{ParamTypes: params, Args: args}
	}
}

// WithOverride 添加任意方法覆盖。
func WithOverride(mo MethodOverride) Option {
	return func(d *Definition) {
		d.Overrides.Add(mo)
	}
}

// WithLookup 将方法 method 重定向为查找组件 target，只按方法名匹配。
func WithLookup(method, target string) Option {
	return WithOverride(&LookupOverride{MethodName: method, Target: target})
}

// WithLookupSignature 同 WithLookup，但只匹配参数类型为 params 的重载。
func WithLookupSignature(method string, params []reflect.Type, target string) Option {
	return WithOverride(&LookupOverride{MethodName: method, ParamTypes: exactParams(params), Target: target})
}

// WithProducerLookup 将方法重定向为查找 target 的生产者本身。
func WithProducerLookup(method, target string) Option {
	return WithOverride(&LookupOverride{MethodName: method, Target: target, Producer: true})
}

// WithReplace 将方法 method 委托给名为 replacer 的 MethodReplacer，只按方法名匹配。
func WithReplace(method, replacer string) Option {
	return WithOverride(&ReplaceOverride{MethodName: method, Replacer: replacer})
}

// WithReplaceSignature 同 WithReplace，但只匹配参数类型为 params 的重载。
func WithReplaceSignature(method string, params []reflect.Type, replacer string) Option {
	return WithOverride(&ReplaceOverride{MethodName: method, ParamTypes: exactParams(params), Replacer: replacer})
}

// exactParams 保证显式签名不是 nil，空切片表示无参数。
func exactParams(params []reflect.Type) []reflect.Type {
	if params == nil {
		return []reflect.Type{}
	}
	return params
}
