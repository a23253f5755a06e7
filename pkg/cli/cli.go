// Package cli is the small flag and help-page layer behind the jmmc driver.
package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }

// boolValue treats a bare flag as true.
type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }

type intValue struct{ p *int }

func (v *intValue) Set(s string) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *intValue) String() string { return strconv.Itoa(*v.p) }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

func (f *Flag) isBool() bool {
	_, ok := f.Value.(*boolValue)
	return ok
}

// FlagGroup is a family of -<Prefix><name> / -<Prefix>no-<name> toggles such as -W and -F.
type FlagGroup struct {
	Name                 string
	Description          string
	Flags                []FlagGroupEntry
	GroupType            string
	AvailableFlagsHeader string
}

type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

func (e FlagGroupEntry) on() string  { return e.Prefix + e.Name }
func (e FlagGroupEntry) off() string { return e.Prefix + "no-" + e.Name }

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	groupFlags map[string]bool
	args       []string
	flagGroups []FlagGroup
	visited    []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
		groupFlags: make(map[string]bool),
	}
}

// Args returns the positional arguments left after Parse.
func (f *FlagSet) Args() []string { return f.args }

// Visit calls fn with the name of every flag set during Parse, in command-line order.
func (f *FlagSet) Visit(fn func(name string)) {
	for _, name := range f.visited {
		fn(name)
	}
}

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) Int(p *int, name, shorthand string, value int, usage, expectedType string) {
	*p = value
	f.Var(&intValue{p}, name, shorthand, usage, strconv.Itoa(value), expectedType)
}

// AddFlagGroup registers both toggles of every entry and keeps the group for the help page.
func (f *FlagSet) AddFlagGroup(name, description, groupType, availableFlagsHeader string, entries []FlagGroupEntry) {
	for i := range entries {
		e := &entries[i]
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.on(), "", *e.Enabled, e.Usage)
			f.groupFlags[e.on()] = true
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.off(), "", *e.Disabled, "Disable '"+e.Name+"'")
			f.groupFlags[e.off()] = true
		}
	}
	f.flagGroups = append(f.flagGroups, FlagGroup{
		Name:                 name,
		Description:          description,
		Flags:                entries,
		GroupType:            groupType,
		AvailableFlagsHeader: availableFlagsHeader,
	})
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand == "" {
		return
	}
	if _, ok := f.shorthands[shorthand]; ok {
		panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
	}
	f.shorthands[shorthand] = flag
}

// Parse accepts --long[=v], -long[=v] (for group flags such as -Wall), and -s[v] forms.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	f.visited = nil
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		switch {
		case len(arg) < 2 || arg[0] != '-':
			f.args = append(f.args, arg)
			continue
		case arg == "--":
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		}

		body, dashes := arg[1:], "-"
		if strings.HasPrefix(arg, "--") {
			body, dashes = arg[2:], "--"
		}
		name, inline, hasInline := strings.Cut(body, "=")
		flag := f.flags[name]
		if flag == nil && dashes == "-" {
			// -ofile, -O: a shorthand with the value glued on
			name, inline = body[:1], body[1:]
			hasInline = inline != ""
			if flag = f.shorthands[name]; flag == nil {
				return fmt.Errorf("unknown shorthand flag: -%s", name)
			}
		}
		if flag == nil {
			return fmt.Errorf("unknown flag: %s%s", dashes, name)
		}
		f.visited = append(f.visited, flag.Name)

		switch {
		case hasInline && !(flag.isBool() && dashes == "-" && name == flag.Shorthand):
			if err := flag.Value.Set(inline); err != nil {
				return err
			}
		case flag.isBool():
			if err := flag.Value.Set(""); err != nil {
				return err
			}
		case i+1 >= len(arguments):
			return fmt.Errorf("flag needs an argument: %s%s", dashes, name)
		default:
			i++
			if err := flag.Value.Set(arguments[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	Since       int
	FlagSet     *FlagSet
	Action      func(args []string) error
	Stdout      io.Writer
	Stderr      io.Writer
}

func NewApp(name string) *App {
	return &App{
		Name:    name,
		FlagSet: NewFlagSet(name),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(a.Stderr, err)
		a.writeUsage(a.Stderr)
		return err
	}
	if help {
		a.writeHelp(a.Stdout)
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

const indentUnit = "    "

// helpLayout holds the column widths shared by every line of a help page.
type helpLayout struct {
	width int
	left  int
	usage int
}

func (a *App) layout() helpLayout {
	l := helpLayout{width: terminalWidth()}
	for _, flag := range a.optionFlags() {
		l.left = max(l.left, len(flagColumn(flag)))
		l.usage = max(l.usage, len(flag.Usage))
	}
	for _, g := range a.FlagSet.flagGroups {
		if len(g.Flags) > 0 {
			l.left = max(l.left, len(groupToggle(g, true)))
		}
		for _, e := range g.Flags {
			l.left = max(l.left, len(e.Name))
			l.usage = max(l.usage, len(e.Usage))
		}
	}
	return l
}

// entry writes one "left usage right" row, wrapping the usage under itself.
func (l helpLayout) entry(sb *strings.Builder, left, usage, right string) {
	indent := indentUnit + indentUnit
	room := max(10, l.width-len(indent)-l.left-3-len(right))
	lines := wrapText(usage, room)
	first := ""
	if len(lines) > 0 {
		first, lines = lines[0], lines[1:]
	}
	if right != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indent, l.left, left, min(l.usage, room), first, right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", indent, l.left, left, first)
	}
	pad := strings.Repeat(" ", l.left+1)
	for _, line := range lines {
		fmt.Fprintf(sb, "%s%s%s\n", indent, pad, line)
	}
}

func (l helpLayout) options(sb *strings.Builder, flags []*Flag) {
	if len(flags) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%sOptions\n", indentUnit)
	for _, flag := range flags {
		def := ""
		if !flag.isBool() && flag.DefValue != "" {
			def = "|" + flag.DefValue + "|"
		}
		l.entry(sb, flagColumn(flag), flag.Usage, def)
	}
}

func (l helpLayout) group(sb *strings.Builder, g FlagGroup) {
	if len(g.Flags) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s%s\n", indentUnit, g.Name)
	if g.Description != "" {
		fmt.Fprintf(sb, "%s%s\n", indentUnit+indentUnit, g.Description)
	}
	kind := groupType(g)
	l.entry(sb, groupToggle(g, false), "Enable a specific "+kind, "")
	l.entry(sb, groupToggle(g, true), "Disable a specific "+kind, "")
	if g.AvailableFlagsHeader != "" {
		fmt.Fprintf(sb, "%s%s\n", indentUnit, g.AvailableFlagsHeader)
	}

	entries := append([]FlagGroupEntry(nil), g.Flags...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for _, e := range entries {
		state := "|-|"
		if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) {
			state = "|x|"
		}
		l.entry(sb, e.Name, e.Usage, state)
	}
}

func (a *App) writeUsage(w io.Writer) {
	var sb strings.Builder
	synopsis := a.Synopsis
	if synopsis == "" {
		synopsis = "[options] <input> ..."
	}
	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, synopsis)
	a.layout().options(&sb, a.optionFlags())
	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	fmt.Fprint(w, sb.String())
}

func (a *App) writeHelp(w io.Writer) {
	var sb strings.Builder
	l := a.layout()

	years := strconv.Itoa(time.Now().Year())
	if a.Since != 0 && a.Since < time.Now().Year() {
		years = fmt.Sprintf("%d-%s", a.Since, years)
	}
	fmt.Fprintf(&sb, "\n%sCopyright (c) %s: %s and contributors\n", indentUnit, years, strings.Join(a.Authors, ", "))
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indentUnit, a.Repository)
	}
	if a.Synopsis != "" {
		synopsis := strings.NewReplacer("[", "<", "]", ">").Replace(a.Synopsis)
		fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s %s\n", indentUnit, indentUnit+indentUnit, a.Name, synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n", indentUnit)
		for _, line := range wrapText(a.Description, l.width-2*len(indentUnit)) {
			fmt.Fprintf(&sb, "%s%s\n", indentUnit+indentUnit, line)
		}
	}

	l.options(&sb, a.optionFlags())
	groups := append([]FlagGroup(nil), a.FlagSet.flagGroups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, g := range groups {
		l.group(&sb, g)
	}
	fmt.Fprint(w, sb.String())
}

// optionFlags returns the plain option flags sorted by name, leaving out -W/-F group members.
func (a *App) optionFlags() []*Flag {
	var out []*Flag
	for name, flag := range a.FlagSet.flags {
		if !a.FlagSet.groupFlags[name] {
			out = append(out, flag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func groupType(g FlagGroup) string {
	if g.GroupType == "" {
		return "flag"
	}
	return g.GroupType
}

func groupToggle(g FlagGroup, negated bool) string {
	if negated {
		return fmt.Sprintf("-%sno-<%s>", g.Flags[0].Prefix, groupType(g))
	}
	return fmt.Sprintf("-%s<%s>", g.Flags[0].Prefix, groupType(g))
}

// flagColumn renders "-o <file>, --output <file>" or "--stack-limit=n".
func flagColumn(flag *Flag) string {
	arg := ""
	if !flag.isBool() && flag.ExpectedType != "" {
		arg = " <" + flag.ExpectedType + ">"
	}
	if flag.Shorthand != "" {
		return "-" + flag.Shorthand + arg + ", --" + flag.Name + arg
	}
	if arg != "" {
		return "--" + flag.Name + "=" + flag.ExpectedType
	}
	return "--" + flag.Name
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}

	var lines []string
	var line strings.Builder
	for _, word := range words {
		if line.Len() > 0 && line.Len()+len(word)+1 > maxWidth {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
