package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/jmmc/pkg/cli"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.True(t, cfg.IsFeatureEnabled(FeatConstFold))
	assert.True(t, cfg.IsFeatureEnabled(FeatConstProp))
	assert.True(t, cfg.IsFeatureEnabled(FeatImportCheck))
	assert.False(t, cfg.IsFeatureEnabled(FeatGlobalParamLookup))
	assert.True(t, cfg.IsWarningEnabled(WarnShadow))
	assert.False(t, cfg.IsWarningEnabled(WarnExtra))
	assert.False(t, cfg.Optimize)
	assert.Equal(t, DefaultLimit, cfg.StackLimit)
	assert.Equal(t, DefaultLimit, cfg.LocalsLimit)
	assert.Len(t, cfg.FeatureMap, int(FeatCount))
	assert.Len(t, cfg.WarningMap, int(WarnCount))
}

func TestProcessDirectiveFlags(t *testing.T) {
	testCases := []struct {
		name  string
		flags string
		check func(t *testing.T, cfg *Config)
	}{
		{"optimize", "-O", func(t *testing.T, cfg *Config) { assert.True(t, cfg.Optimize) }},
		{"disable warning", "-Wno-shadow", func(t *testing.T, cfg *Config) { assert.False(t, cfg.IsWarningEnabled(WarnShadow)) }},
		{"enable feature", "-Fglobal-param-lookup", func(t *testing.T, cfg *Config) {
			assert.True(t, cfg.IsFeatureEnabled(FeatGlobalParamLookup))
		}},
		{"disable feature", "-Fno-const-prop", func(t *testing.T, cfg *Config) { assert.False(t, cfg.IsFeatureEnabled(FeatConstProp)) }},
		{"all first regardless of order", "-Wshadow -Wno-all", func(t *testing.T, cfg *Config) {
			assert.True(t, cfg.IsWarningEnabled(WarnShadow))
			assert.False(t, cfg.IsWarningEnabled(WarnOverflow))
		}},
		{"wall", "-Wall", func(t *testing.T, cfg *Config) { assert.True(t, cfg.IsWarningEnabled(WarnExtra)) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.ProcessDirectiveFlags(tc.flags)
			tc.check(t, cfg)
		})
	}
}

func TestLimits(t *testing.T) {
	cfg := NewConfig()
	cfg.SetRegisters(-1)
	assert.Equal(t, DefaultLimit, cfg.LocalsLimit)
	cfg.SetRegisters(0)
	assert.Equal(t, 0, cfg.LocalsLimit)
	cfg.SetRegisters(12)
	assert.Equal(t, 12, cfg.LocalsLimit)

	require.NoError(t, cfg.SetStackLimit(0))
	assert.Equal(t, 0, cfg.StackLimit)
	require.NoError(t, cfg.SetStackLimit(20))
	assert.Equal(t, 20, cfg.StackLimit)
	assert.Error(t, cfg.SetStackLimit(-3))
	assert.Equal(t, 20, cfg.StackLimit)
}

func TestFlagGroups(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("jmmc")
	warnings, features := cfg.SetupFlagGroups(fs)
	require.Len(t, warnings, int(WarnCount))
	require.Len(t, features, int(FeatCount))

	require.NoError(t, fs.Parse([]string{"-Wno-shadow", "-Fglobal-param-lookup", "in.jmm"}))
	cfg.ApplyFlagGroups(warnings, features)

	assert.False(t, cfg.IsWarningEnabled(WarnShadow))
	assert.True(t, cfg.IsWarningEnabled(WarnOverflow))
	assert.True(t, cfg.IsFeatureEnabled(FeatGlobalParamLookup))
	assert.Equal(t, []string{"in.jmm"}, fs.Args())
}

func TestFlagGroupsKeepWall(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("jmmc")
	warnings, features := cfg.SetupFlagGroups(fs)
	require.NoError(t, fs.Parse(nil))

	cfg.ProcessDirectiveFlags("-Wall")
	cfg.ApplyFlagGroups(warnings, features)
	assert.True(t, cfg.IsWarningEnabled(WarnExtra))
}
