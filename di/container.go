package di

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/gocrud/inject/logging"
)

// Container 是按名称管理组件的依赖注入容器，同时是被重定向方法使用的 Resolver。
type Container interface {
	Resolver

	// Add 注册组件定义。
	Add(def *Definition) error

	// Build 校验定义、预先生成特化类型，并按需初始化单例。
	Build() error

	// Has 报告是否注册了该名称的组件。
	Has(name string) bool

	// Definition 返回该名称的组件定义。
	Definition(name string) (*Definition, bool)

	// Definitions 按名称排序返回所有组件定义。
	Definitions() []*Definition

	// Stats 返回容器和实例化引擎的统计信息。
	Stats() Stats
}

// Stats 是容器的统计信息。
type Stats struct {
	Definitions      int `json:"definitions"`
	DispatchTables   int `json:"dispatchTables"`
	SynthesizedTypes int `json:"synthesizedTypes"`
}

// entry 保存一个组件定义及其单例状态。
type entry struct {
	def *Definition

	once sync.Once
	inst any
	err  error

	productOnce sync.Once
	product     any
	productErr  error
}

// container 是具体的实现。
type container struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	built    atomic.Bool
	options  Options
	strategy *Strategy
	logger   logging.Logger

	eager    sync.Once
	buildErr error
}

// ContainerOption 配置容器。
type ContainerOption func(*container)

// WithOptions 设置容器选项。
func WithOptions(opts Options) ContainerOption {
	return func(c *container) {
		c.options = opts
	}
}

// WithLogger 设置容器的日志记录器，同时用于实例化引擎。
func WithLogger(logger logging.Logger) ContainerOption {
	return func(c *container) {
		c.logger = logger
	}
}

// WithStrategy 使用指定的实例化策略，多个容器可以共享同一个生成缓存。
func WithStrategy(s *Strategy) ContainerOption {
	return func(c *container) {
		c.strategy = s
	}
}

// NewContainer 创建一个新的空容器。
func NewContainer(opts ...ContainerOption) Container {
	c := &container{
		entries: make(map[string]*entry),
		options: DefaultOptions(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNopLogger()
	}
	if c.strategy == nil {
		c.strategy = NewStrategy(UseLogger(c.logger))
	}
	return c
}

// Add 向容器添加组件定义。
func (c *container) Add(def *Definition) error {
	if c.built.Load() {
		return fmt.Errorf("di: build 后无法注册组件 %q", def.Name)
	}
	if def.Name == "" {
		return fmt.Errorf("di: 组件名称不能为空 (%v)", def.Type)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Build 可能在等待锁期间完成
	if c.built.Load() {
		return fmt.Errorf("di: build 后无法注册组件 %q", def.Name)
	}
	if _, exists := c.entries[def.Name]; exists {
		return fmt.Errorf("di: 组件 %q 已注册", def.Name)
	}
	c.entries[def.Name] = &entry{def: def}
	return nil
}

// Build 校验所有定义并预先生成特化类型，配置错误在这里暴露。
// 单例初始化失败后，之后的每次 Build 都返回同一个错误。
func (c *container) Build() error {
	names, err := c.seal()
	if err != nil {
		return err
	}

	// 在锁外初始化单例，构造函数可能回调容器
	c.eager.Do(func() {
		c.buildErr = c.initSingletons(names)
		c.logger.Debug("container built", logging.F("components", len(names)))
	})
	return c.buildErr
}

// seal 校验并冻结定义，返回按名称排序的组件列表。
func (c *container) seal() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := c.sortedNames()
	if c.built.Load() {
		return names, nil
	}

	for _, name := range names {
		if err := c.entries[name].def.Validate(); err != nil {
			return nil, err
		}
	}
	if err := c.prepare(names); err != nil {
		return nil, err
	}

	// 标记为已构建。此后 Add() 将失败，定义不再变化。
	c.built.Store(true)
	return names, nil
}

func (c *container) initSingletons(names []string) error {
	if !c.options.EagerSingletons {
		return nil
	}
	for _, name := range names {
		if c.entries[name].def.Scope != ScopeSingleton {
			continue
		}
		if _, err := c.ResolveProducer(name); err != nil {
			return fmt.Errorf("di: 构建单例 %q 失败: %w", name, err)
		}
	}
	return nil
}

// prepare 为所有带覆盖的定义生成特化类型。
func (c *container) prepare(names []string) error {
	if !c.options.ParallelPrepare {
		for _, name := range names {
			if err := c.strategy.Prepare(c.entries[name].def); err != nil {
				return fmt.Errorf("di: 组件 %q: %w", name, err)
			}
		}
		return nil
	}

	var g errgroup.Group
	for _, name := range names {
		def := c.entries[name].def
		g.Go(func() error {
			if err := c.strategy.Prepare(def); err != nil {
				return fmt.Errorf("di: 组件 %q: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// ResolveProducer 返回组件本身。
func (c *container) ResolveProducer(name string) (any, error) {
	e, err := c.lookup(name)
	if err != nil {
		return nil, err
	}

	// 单例：在条目上使用 sync.Once
	if e.def.Scope == ScopeSingleton {
		e.once.Do(func() {
			e.inst, e.err = c.create(e.def)
		})
		return e.inst, e.err
	}
	return c.create(e.def)
}

// ResolveProduct 返回组件；组件是 Factory 时返回它的产物。
func (c *container) ResolveProduct(name string) (any, error) {
	component, err := c.ResolveProducer(name)
	if err != nil {
		return nil, err
	}

	factory, ok := component.(Factory)
	if !ok {
		return component, nil
	}

	e, _ := c.lookup(name)
	if factory.IsShared() && e.def.Scope == ScopeSingleton {
		e.productOnce.Do(func() {
			e.product, e.productErr = c.produce(name, factory)
		})
		return e.product, e.productErr
	}
	return c.produce(name, factory)
}

func (c *container) produce(name string, factory Factory) (any, error) {
	product, err := factory.Produce()
	if err != nil {
		return nil, err
	}
	if typ := factory.ProducedType(); typ != nil && product != nil && !reflect.TypeOf(product).AssignableTo(typ) {
		return nil, &TypeMismatchError{Name: name, Expected: typ, Actual: product}
	}
	return product, nil
}

func (c *container) create(def *Definition) (any, error) {
	if def.Value != nil {
		return def.Value, nil
	}
	c.logger.Debug("creating component", logging.F("name", def.Name), logging.F("scope", def.Scope))
	return c.strategy.Instantiate(def, c, nil)
}

func (c *container) lookup(name string) (*entry, error) {
	if !c.built.Load() {
		return nil, ErrNotBuilt
	}
	// 构建后条目不可变，可以无锁读取
	e, ok := c.entries[name]
	if !ok {
		return nil, &NoSuchComponentError{Name: name}
	}
	return e, nil
}

// Has 报告是否注册了该名称的组件。
func (c *container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[name]
	return ok
}

// Definition 返回该名称的组件定义。
func (c *container) Definition(name string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	return e.def, true
}

// Definitions 按名称排序返回所有组件定义。
func (c *container) Definitions() []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := c.sortedNames()
	defs := make([]*Definition, len(names))
	for i, name := range names {
		defs[i] = c.entries[name].def
	}
	return defs
}

// Stats 返回容器和实例化引擎的统计信息。
func (c *container) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Definitions:      n,
		DispatchTables:   c.strategy.DispatchResolver().Len(),
		SynthesizedTypes: c.strategy.Synthesizer().Len(),
	}
}

// sortedNames 调用方必须持有锁。
func (c *container) sortedNames() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
