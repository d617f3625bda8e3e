package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrKeyNotFound 表示配置中不存在请求的键。
var ErrKeyNotFound = errors.New("config: key not found")

// Configuration 配置接口（类似于 .NET Core IConfiguration）
// 键支持 "a:b:c" 或 "a.b.c" 两种路径写法。
type Configuration interface {
	// Get 获取配置值，不存在时返回空字符串
	Get(key string) string
	// GetWithDefault 获取配置值，如果不存在则返回默认值
	GetWithDefault(key, defaultValue string) string
	// GetInt 获取整数配置值
	GetInt(key string) (int, error)
	// GetBool 获取布尔配置值
	GetBool(key string) (bool, error)
	// GetSection 获取配置节
	GetSection(key string) Configuration
	// Bind 绑定配置到结构体，key 为空时绑定全部
	Bind(key string, target any) error
	// GetAll 获取所有配置的副本
	GetAll() map[string]any
}

// ConfigurationSource 配置源接口
type ConfigurationSource interface {
	Load() (map[string]any, error)
	Name() string
}

// ConfigurationBuilder 配置构建器，后添加的源覆盖先添加的
type ConfigurationBuilder struct {
	sources []ConfigurationSource
	mu      sync.RWMutex
}

// NewConfigurationBuilder 创建配置构建器
func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{
		sources: make([]ConfigurationSource, 0),
	}
}

// Add 添加配置源
func (b *ConfigurationBuilder) Add(source ConfigurationSource) *ConfigurationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
	return b
}

// AddJsonFile 添加 JSON 文件配置源
func (b *ConfigurationBuilder) AddJsonFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&JsonFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddYamlFile 添加 YAML 文件配置源
func (b *ConfigurationBuilder) AddYamlFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&YamlFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddEnvironmentVariables 添加环境变量配置源
func (b *ConfigurationBuilder) AddEnvironmentVariables(prefix string) *ConfigurationBuilder {
	return b.Add(&EnvironmentVariableSource{Prefix: prefix})
}

// AddInMemory 添加内存配置源
func (b *ConfigurationBuilder) AddInMemory(data map[string]any) *ConfigurationBuilder {
	return b.Add(&InMemorySource{Data: data})
}

// AddEtcd 添加 etcd 配置源
func (b *ConfigurationBuilder) AddEtcd(opts EtcdOptions) *ConfigurationBuilder {
	return b.Add(NewEtcdSource(opts))
}

// Build 按顺序加载所有配置源并构建配置
func (b *ConfigurationBuilder) Build() (*ReloadableConfiguration, error) {
	b.mu.RLock()
	sources := append([]ConfigurationSource(nil), b.sources...)
	b.mu.RUnlock()

	c := &ReloadableConfiguration{sources: sources}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// ReloadableConfiguration 是可重新加载的配置。
// 数据整体原子替换，读取无锁。
type ReloadableConfiguration struct {
	sources []ConfigurationSource
	data    atomic.Pointer[map[string]any]
}

// Reload 重新加载所有配置源，失败时保留原有数据
func (c *ReloadableConfiguration) Reload() error {
	data := make(map[string]any)
	for _, source := range c.sources {
		loaded, err := source.Load()
		if err != nil {
			return fmt.Errorf("config: failed to load source %s: %w", source.Name(), err)
		}
		mergeMaps(data, loaded)
	}
	c.data.Store(&data)
	return nil
}

func (c *ReloadableConfiguration) view() *section {
	return &section{data: *c.data.Load()}
}

func (c *ReloadableConfiguration) Get(key string) string { return c.view().Get(key) }
func (c *ReloadableConfiguration) GetWithDefault(key, defaultValue string) string {
	return c.view().GetWithDefault(key, defaultValue)
}
func (c *ReloadableConfiguration) GetInt(key string) (int, error)   { return c.view().GetInt(key) }
func (c *ReloadableConfiguration) GetBool(key string) (bool, error) { return c.view().GetBool(key) }
func (c *ReloadableConfiguration) GetSection(key string) Configuration {
	return c.view().GetSection(key)
}
func (c *ReloadableConfiguration) Bind(key string, target any) error {
	return c.view().Bind(key, target)
}
func (c *ReloadableConfiguration) GetAll() map[string]any { return c.view().GetAll() }

// section 是某一时刻配置数据的只读视图
type section struct {
	data map[string]any
}

func (s *section) Get(key string) string {
	value := s.getByPath(key)
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (s *section) GetWithDefault(key, defaultValue string) string {
	if value := s.Get(key); value != "" {
		return value
	}
	return defaultValue
}

func (s *section) GetInt(key string) (int, error) {
	value := s.getByPath(key)
	switch v := value.(type) {
	case nil:
		return 0, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("config: cannot convert %v to int", value)
	}
}

func (s *section) GetBool(key string) (bool, error) {
	value := s.getByPath(key)
	switch v := value.(type) {
	case nil:
		return false, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("config: cannot convert %v to bool", value)
	}
}

func (s *section) GetSection(key string) Configuration {
	if m, ok := s.getByPath(key).(map[string]any); ok {
		return &section{data: m}
	}
	return &section{data: make(map[string]any)}
}

// Bind 使用 JSON 序列化/反序列化进行绑定
func (s *section) Bind(key string, target any) error {
	data := s.getByPath(key)
	if data == nil {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("config: failed to marshal %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("config: failed to bind %s: %w", key, err)
	}
	return nil
}

func (s *section) GetAll() map[string]any {
	result := make(map[string]any)
	mergeMaps(result, s.data)
	return result
}

func (s *section) getByPath(path string) any {
	if path == "" {
		return s.data
	}

	current := any(s.data)
	for _, part := range pathSegments(path) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

var segmentCache sync.Map // path -> []string

// pathSegments 解析并缓存路径片段
func pathSegments(path string) []string {
	if v, ok := segmentCache.Load(path); ok {
		return v.([]string)
	}
	parts := strings.Split(strings.ReplaceAll(path, ":", "."), ".")
	segmentCache.Store(path, parts)
	return parts
}

// mergeMaps 深度合并 src 到 dst
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if srcMap, ok := v.(map[string]any); ok {
			dstMap, ok := dst[k].(map[string]any)
			if !ok {
				dstMap = make(map[string]any)
				dst[k] = dstMap
			}
			mergeMaps(dstMap, srcMap)
			continue
		}
		dst[k] = v
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
