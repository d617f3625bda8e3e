package di

import (
	"fmt"
	"reflect"
)

// Register 以名称 name 注册类型 T 的组件，T 为结构体或指向结构体的指针。
// 注册失败时 panic。
func Register[T any](c Container, name string, opts ...Option) {
	def := NewDefinition(name, TypeOf[T](), opts...)
	if err := c.Add(def); err != nil {
		panic(fmt.Sprintf("di: failed to register %q: %v", name, err))
	}
}

// Resolve 按名称解析组件并断言为 T。组件是 Factory 时得到它的产物。
func Resolve[T any](r Resolver, name string) (T, error) {
	val, err := r.ResolveProduct(name)
	return as[T](name, val, err)
}

// ResolveProducer 按名称解析组件本身并断言为 T。
func ResolveProducer[T any](r Resolver, name string) (T, error) {
	val, err := r.ResolveProducer(name)
	return as[T](name, val, err)
}

// MustResolve 同 Resolve，失败时 panic。
func MustResolve[T any](r Resolver, name string) T {
	v, err := Resolve[T](r, name)
	if err != nil {
		panic(err)
	}
	return v
}

func as[T any](name string, val any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if val == nil {
		return zero, nil
	}
	if v, ok := val.(T); ok {
		return v, nil
	}
	return zero, &TypeMismatchError{Name: name, Expected: TypeOf[T](), Actual: val}
}

// TypeOf 获取类型 T 的 reflect.Type。
//
// 示例：
//
//	greeterType := di.TypeOf[Greeter]()
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
