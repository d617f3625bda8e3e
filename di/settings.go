package di

import (
	"fmt"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/logging"
)

// SettingsSection 是容器选项在配置中的节名。
const SettingsSection = "container"

// Options 是容器选项。
type Options struct {
	// EagerSingletons 为 true 时 Build 会初始化所有单例。
	EagerSingletons bool `json:"eagerSingletons"`
	// ParallelPrepare 为 true 时 Build 并行生成特化类型。
	ParallelPrepare bool `json:"parallelPrepare"`
	// LogLevel 是 NewContainerFromConfig 创建的日志记录器的最低级别。
	LogLevel string `json:"logLevel"`
	// LogFormat 为 "json" 时输出 JSON 日志，否则输出文本。
	LogFormat string `json:"logFormat"`
}

// DefaultOptions 返回默认选项。
func DefaultOptions() Options {
	return Options{
		EagerSingletons: true,
		ParallelPrepare: true,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// LoadOptions 从配置的 container 节读取选项，缺失的键保留默认值。
func LoadOptions(cfg config.Configuration) (Options, error) {
	opts, err := config.LoadOrDefault(cfg, SettingsSection, DefaultOptions())
	if err != nil {
		return opts, fmt.Errorf("di: 读取容器配置失败: %w", err)
	}
	return opts, nil
}

// NewContainerFromConfig 按配置创建容器及其控制台日志记录器。
func NewContainerFromConfig(cfg config.Configuration) (Container, error) {
	opts, err := LoadOptions(cfg)
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("di: %w", err)
	}

	console := logging.ConsoleLoggerOptions{IncludeTimestamp: true, ColorOutput: true}
	if opts.LogFormat == "json" {
		console.Formatter = logging.NewJsonFormatter()
	}

	factory := logging.NewLoggingBuilder().
		SetMinimumLevel(level).
		AddConsole(console).
		Build()

	return NewContainer(WithOptions(opts), WithLogger(factory.CreateLogger("di"))), nil
}
