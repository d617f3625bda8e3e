package di

import "reflect"

// Resolver 是被重定向的方法在调用时回调的容器能力。
// 它被显式注入到每个特化实例中，而不是全局查找。
type Resolver interface {
	// ResolveProduct 按名称解析组件；组件实现 Factory 时返回它的产物。
	ResolveProduct(name string) (any, error)
	// ResolveProducer 按名称解析组件本身，不对 Factory 解引用。
	ResolveProducer(name string) (any, error)
}

// Factory 是生产其他对象的组件。
// 通过 ResolveProduct 请求它时得到 Produce 的结果，通过 ResolveProducer 得到它自己。
type Factory interface {
	Produce() (any, error)
	// ProducedType 返回产物类型，未知时返回 nil。
	ProducedType() reflect.Type
	// IsShared 为 true 时容器只调用一次 Produce 并缓存产物。
	IsShared() bool
}

// ResolverFunc 把一个按名称查找的函数适配为 Resolver，不区分产物和生产者。
// 主要用于测试桩。
type ResolverFunc func(name string) (any, error)

func (f ResolverFunc) ResolveProduct(name string) (any, error)  { return f(name) }
func (f ResolverFunc) ResolveProducer(name string) (any, error) { return f(name) }
