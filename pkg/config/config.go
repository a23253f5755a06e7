package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xplshn/jmmc/pkg/cli"
)

type Feature int

const (
	FeatConstFold Feature = iota
	FeatConstProp
	FeatGlobalParamLookup
	FeatImportCheck
	FeatCount
)

type Warning int

const (
	WarnShadow Warning = iota
	WarnRedeclared
	WarnOverflow
	WarnUnreachableCode
	WarnExtra
	WarnCount
)

// DefaultLimit is the stack and locals budget emitted when nothing else is requested.
const DefaultLimit = 99

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	// Optimize gates the constant folding/propagation fixpoint.
	Optimize bool
	// Debug dumps intermediate artifacts while compiling.
	Debug bool
	// StackLimit and LocalsLimit are the .limit values; 0 means compute a tight bound.
	StackLimit  int
	LocalsLimit int

	warnDefaults []bool
	featDefaults []bool
}

func NewConfig() *Config {
	cfg := &Config{
		Features:    make(map[Feature]Info),
		Warnings:    make(map[Warning]Info),
		FeatureMap:  make(map[string]Feature),
		WarningMap:  make(map[string]Warning),
		StackLimit:  DefaultLimit,
		LocalsLimit: DefaultLimit,
	}

	features := map[Feature]Info{
		FeatConstFold:         {"const-fold", true, "Fold constant arithmetic and comparisons when optimizing."},
		FeatConstProp:         {"const-prop", true, "Propagate literal assignments into later reads when optimizing."},
		FeatGlobalParamLookup: {"global-param-lookup", false, "Let field lookups also match parameters of any method."},
		FeatImportCheck:       {"import-check", true, "Require declared class types to be imported, extended or the current class."},
	}

	warnings := map[Warning]Info{
		WarnShadow:          {"shadow", true, "Warn when a local variable shadows a field."},
		WarnRedeclared:      {"redeclared", true, "Warn when a declaration replaces an earlier one with the same name."},
		WarnOverflow:        {"overflow", true, "Warn when an integer literal or folded constant does not fit in 32 bits."},
		WarnUnreachableCode: {"unreachable-code", true, "Warn about statements following a return."},
		WarnExtra:           {"extra", false, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// SetRegisters maps the -r option onto the locals budget: negative keeps the default,
// zero asks for a computed bound, anything else is used as is.
func (c *Config) SetRegisters(n int) {
	if n < 0 {
		n = DefaultLimit
	}
	c.LocalsLimit = n
}

// SetStackLimit mirrors SetRegisters for the operand stack budget.
func (c *Config) SetStackLimit(n int) error {
	if n < 0 {
		return fmt.Errorf("invalid stack limit %d: must be zero or positive", n)
	}
	if n > 0 && n < 2 {
		fmt.Fprintf(os.Stderr, "jmmc: warning: stack limit %d is unlikely to fit any comparison\n", n)
	}
	c.StackLimit = n
	return nil
}

func (c *Config) applyFlag(flag string) {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	case trimmed == "O":
		c.Optimize = true
		return
	default:
		name = trimmed
		isWarning = true
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return
	}

	if isWarning {
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
		} else if c.IsWarningEnabled(WarnExtra) {
			fmt.Fprintf(os.Stderr, "jmmc: warning: unknown warning '%s'\n", name)
		}
	} else {
		if f, ok := c.FeatureMap[name]; ok {
			c.SetFeature(f, enable)
		} else if c.IsWarningEnabled(WarnExtra) {
			fmt.Fprintf(os.Stderr, "jmmc: warning: unknown feature '%s'\n", name)
		}
	}
}

// ProcessFlags applies -Wall/-Wno-all before any specific flag so the latter win.
func (c *Config) ProcessFlags(visitFlag func(fn func(name string))) {
	visitFlag(func(name string) {
		if name == "Wall" || name == "Wno-all" {
			c.applyFlag("-" + name)
		}
	})
	visitFlag(func(name string) {
		if name != "Wall" && name != "Wno-all" {
			c.applyFlag("-" + name)
		}
	})
}

// ProcessDirectiveFlags applies a whitespace-separated flag string such as the
// one carried by a `// [jmmc]:` directive line in a test source.
func (c *Config) ProcessDirectiveFlags(flagStr string) {
	names := strings.Fields(flagStr)
	c.ProcessFlags(func(fn func(name string)) {
		for _, n := range names {
			fn(strings.TrimPrefix(n, "-"))
		}
	})
}

// SetupFlagGroups registers the -W and -F families on fs. The returned entries are
// indexed by Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningFlags := make([]cli.FlagGroupEntry, WarnCount)
	c.warnDefaults = make([]bool, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		c.warnDefaults[i] = info.Enabled
		enabled, disabled := info.Enabled, false
		warningFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}
	featureFlags := make([]cli.FlagGroupEntry, FeatCount)
	c.featDefaults = make([]bool, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		c.featDefaults[i] = info.Enabled
		enabled, disabled := info.Enabled, false
		featureFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning flag", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature flag", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies the flags the user actually toggled back into the tables,
// so -Wall and friends applied earlier are only overridden by explicit entries.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if entry.Enabled != nil && i < len(c.warnDefaults) && *entry.Enabled != c.warnDefaults[i] {
			c.SetWarning(Warning(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if entry.Enabled != nil && i < len(c.featDefaults) && *entry.Enabled != c.featDefaults[i] {
			c.SetFeature(Feature(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
