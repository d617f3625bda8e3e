package di

import (
	"fmt"

	"github.com/gocrud/inject/logging"
)

// Strategy 是实例化引擎的入口：没有方法覆盖时直接构造，
// 否则取得（或生成）特化类型再构造。作用域由容器负责，Strategy 每次调用只产生一个实例。
type Strategy struct {
	dispatch *DispatchResolver
	synth    *Synthesizer
	logger   logging.Logger
}

// StrategyOption 配置 Strategy。
type StrategyOption func(*Strategy)

// UseLogger 设置引擎使用的日志记录器。
func UseLogger(logger logging.Logger) StrategyOption {
	return func(s *Strategy) {
		s.logger = logger
	}
}

// NewStrategy 创建实例化策略。
func NewStrategy(opts ...StrategyOption) *Strategy {
	s := &Strategy{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	s.dispatch = NewDispatchResolver(s.logger.WithCategory("di.dispatch"))
	s.synth = NewSynthesizer(s.dispatch, s.logger.WithCategory("di.synth"))
	return s
}

// Instantiate 创建 def 描述的实例。sel 为 nil 时使用 def.Constructor。
// r 是被重定向的方法在调用时使用的解析器，def 带覆盖时不能为 nil。
func (s *Strategy) Instantiate(def *Definition, r Resolver, sel *ConstructorSelector) (any, error) {
	if r == nil && def.HasOverrides() {
		return nil, fmt.Errorf("%w: %q", ErrNilResolver, def.Name)
	}
	if sel == nil {
		sel = def.Constructor
	}

	if !def.HasOverrides() {
		inst, err := construct(structType(def.Type), def.Constructors, sel)
		if err != nil {
			return nil, err
		}
		return inst.Interface(), nil
	}

	st, err := s.synth.Obtain(def.Type, def.Overrides)
	if err != nil {
		return nil, err
	}
	return s.synth.Instantiate(st, r, def.Constructors, sel)
}

// Prepare 提前构建 def 的分派表和特化类型，让配置错误在实例化之前暴露。
func (s *Strategy) Prepare(def *Definition) error {
	if !def.HasOverrides() {
		return nil
	}
	_, err := s.synth.Obtain(def.Type, def.Overrides)
	return err
}

// Synthesizer 返回引擎使用的生成器。
func (s *Strategy) Synthesizer() *Synthesizer { return s.synth }

// DispatchResolver 返回引擎使用的分派解析器。
func (s *Strategy) DispatchResolver() *DispatchResolver { return s.dispatch }
