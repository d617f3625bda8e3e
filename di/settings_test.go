package di_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/di"
)

func TestLoadOptions(t *testing.T) {
	t.Run("defaults when section missing", func(t *testing.T) {
		cfg, err := config.NewConfigurationBuilder().AddInMemory(map[string]any{}).Build()
		require.NoError(t, err)

		opts, err := di.LoadOptions(cfg)
		require.NoError(t, err)
		assert.Equal(t, di.DefaultOptions(), opts)
	})

	t.Run("partial section keeps defaults", func(t *testing.T) {
		cfg, err := config.NewConfigurationBuilder().
			AddInMemory(map[string]any{
				"container": map[string]any{
					"eagerSingletons": false,
					"logLevel":        "debug",
				},
			}).
			Build()
		require.NoError(t, err)

		opts, err := di.LoadOptions(cfg)
		require.NoError(t, err)
		assert.False(t, opts.EagerSingletons)
		assert.True(t, opts.ParallelPrepare)
		assert.Equal(t, "debug", opts.LogLevel)
	})

	t.Run("malformed section", func(t *testing.T) {
		cfg, err := config.NewConfigurationBuilder().
			AddInMemory(map[string]any{"container": map[string]any{"eagerSingletons": "sometimes"}}).
			Build()
		require.NoError(t, err)

		_, err = di.LoadOptions(cfg)
		assert.Error(t, err)
	})
}

func TestNewContainerFromConfig(t *testing.T) {
	cfg, err := config.NewConfigurationBuilder().
		AddInMemory(map[string]any{
			"container": map[string]any{
				"eagerSingletons": false,
				"logLevel":        "error",
				"logFormat":       "json",
			},
		}).
		Build()
	require.NoError(t, err)

	c, err := di.NewContainerFromConfig(cfg)
	require.NoError(t, err)

	di.Register[Tiger](c, "tiger", di.WithConstructor(NewTiger))
	require.NoError(t, c.Build())
	assert.NotNil(t, di.MustResolve[*Tiger](c, "tiger"))

	bad, err := config.NewConfigurationBuilder().
		AddInMemory(map[string]any{"container": map[string]any{"logLevel": "loud"}}).
		Build()
	require.NoError(t, err)
	_, err = di.NewContainerFromConfig(bad)
	assert.Error(t, err)
}
