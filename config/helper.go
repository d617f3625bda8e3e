package config

// Load 绑定指定节的配置到 T，section 为空时绑定全部配置。
func Load[T any](cfg Configuration, section string) (T, error) {
	var t T
	err := cfg.Bind(section, &t)
	return t, err
}

// LoadOrDefault 同 Load，节不存在时返回 def。
func LoadOrDefault[T any](cfg Configuration, section string, def T) (T, error) {
	if err := cfg.Bind(section, &def); err != nil && !isNotFound(err) {
		return def, err
	}
	return def, nil
}
