package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagSetParse(t *testing.T) {
	var (
		out      string
		optimize bool
		regs     int
		wall     bool
	)
	fs := NewFlagSet("jmmc")
	fs.String(&out, "output", "o", "", "output file", "file")
	fs.Bool(&optimize, "optimize", "O", false, "optimize")
	fs.Int(&regs, "registers", "r", -1, "locals budget", "n")
	fs.Bool(&wall, "Wall", "", false, "all warnings")

	err := fs.Parse([]string{"-O", "-o", "Foo.j", "--registers=4", "-Wall", "-ogen.j", "in.jmm"})
	require.NoError(t, err)

	assert.Equal(t, "gen.j", out)
	assert.True(t, optimize)
	assert.Equal(t, 4, regs)
	assert.True(t, wall)
	assert.Equal(t, []string{"in.jmm"}, fs.Args())

	var visited []string
	fs.Visit(func(name string) { visited = append(visited, name) })
	assert.Equal(t, []string{"optimize", "output", "registers", "Wall", "output"}, visited)
}

func TestFlagSetErrors(t *testing.T) {
	var n int
	fs := NewFlagSet("x")
	fs.Int(&n, "num", "n", 0, "a number", "n")

	testCases := []struct {
		name string
		args []string
	}{
		{"unknown long", []string{"--nope"}},
		{"unknown short", []string{"-z"}},
		{"missing value", []string{"--num"}},
		{"bad int", []string{"--num=abc"}},
		{"bad glued int", []string{"-nabc"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, fs.Parse(tc.args))
		})
	}
}

func TestGroupFlags(t *testing.T) {
	on, off := true, false
	entries := []FlagGroupEntry{{Name: "shadow", Prefix: "W", Usage: "shadowing", Enabled: &on, Disabled: &off}}
	fs := NewFlagSet("x")
	fs.AddFlagGroup("Warning Flags", "", "warning", "Available Warnings:", entries)

	require.NoError(t, fs.Parse([]string{"-Wno-shadow"}))
	assert.True(t, *entries[0].Disabled)
}

func TestHelpListsGroups(t *testing.T) {
	on, off := true, false
	app := NewApp("jmmc")
	app.FlagSet.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:",
		[]FlagGroupEntry{{Name: "shadow", Prefix: "W", Usage: "shadowing", Enabled: &on, Disabled: &off}})
	var out bytes.Buffer
	app.Stdout = &out

	require.NoError(t, app.Run([]string{"-h"}))
	help := out.String()
	assert.Contains(t, help, "Warning Flags")
	assert.Contains(t, help, "-W<warning>")
	assert.Contains(t, help, "-Wno-<warning>")
	assert.Contains(t, help, "Available Warnings:")
	assert.Regexp(t, `shadow\s+shadowing\s+\|x\|`, help)
	assert.NotContains(t, help, "--Wshadow")
}

func TestAppHelpAndAction(t *testing.T) {
	app := NewApp("jmmc")
	app.Synopsis = "[options] <input.jmm>"
	app.Authors = []string{"xplshn"}
	var out bytes.Buffer
	app.Stdout = &out

	require.NoError(t, app.Run([]string{"--help"}))
	assert.Contains(t, out.String(), "Synopsis")
	assert.Contains(t, out.String(), "jmmc <options> <input.jmm>")

	var got []string
	app2 := NewApp("jmmc")
	app2.Action = func(args []string) error { got = args; return nil }
	require.NoError(t, app2.Run([]string{"a.jmm"}))
	assert.Equal(t, []string{"a.jmm"}, got)
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"one two", "three"}, wrapText("one two three", 8))
	assert.Equal(t, []string{}, wrapText("   ", 8))
	assert.Equal(t, []string{"abc"}, wrapText("abc", 0))
}
