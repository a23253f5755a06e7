// Package symtab holds the per-class symbol table consumed by every later pass.
package symtab

import (
	"fmt"
	"strings"

	"github.com/xplshn/jmmc/pkg/ast"
	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/report"
)

type Symbol struct {
	Name string
	Type ast.Type
}

func (s Symbol) String() string { return s.Type.String() + " " + s.Name }

// Field is a class-scope variable. Initialized only ever moves from false to true.
type Field struct {
	Symbol
	IsStatic    bool
	Initialized bool
}

// Param carries its 1-based declaration index, which is also its OLLIR $N prefix.
type Param struct {
	Symbol
	Index int
}

type Local struct {
	Symbol
	Initialized bool
}

type Method struct {
	Name       string
	ReturnType ast.Type
	Params     []*Param
	Locals     []*Local
	IsStatic   bool
}

// AddLocal registers a local, replacing an earlier one with the same name in place.
func (m *Method) AddLocal(sym Symbol) *Local {
	if l, ok := m.Local(sym.Name); ok {
		*l = Local{Symbol: sym}
		return l
	}
	l := &Local{Symbol: sym}
	m.Locals = append(m.Locals, l)
	return l
}

func (m *Method) Local(name string) (*Local, bool) {
	for _, l := range m.Locals {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}

func (m *Method) Param(name string) (*Param, bool) {
	for _, p := range m.Params {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// InitializeLocal reports whether name is a local of m; parameters need no marking.
func (m *Method) InitializeLocal(name string) bool {
	l, ok := m.Local(name)
	if ok {
		l.Initialized = true
	}
	return ok
}

// ParamTypes returns the declared parameter types in order.
func (m *Method) ParamTypes() []ast.Type {
	out := make([]ast.Type, len(m.Params))
	for i, p := range m.Params {
		out[i] = p.Type
	}
	return out
}

// Symbols lists every name declared in the method, parameters first.
func (m *Method) Symbols() []string {
	out := make([]string, 0, len(m.Params)+len(m.Locals))
	for _, p := range m.Params {
		out = append(out, p.Name)
	}
	for _, l := range m.Locals {
		out = append(out, l.Name)
	}
	return out
}

type Table struct {
	ClassName string
	Super     string
	Imports   []string
	Fields    []*Field
	Methods   []*Method

	cfg      *config.Config
	classSet bool
}

func New(cfg *config.Config) *Table {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Table{cfg: cfg}
}

func (t *Table) AddImport(name string) { t.Imports = append(t.Imports, name) }

func (t *Table) SetClass(name, super string) {
	if t.classSet {
		report.Internal(report.Semantic, "class name set twice (%s, then %s)", t.ClassName, name)
	}
	t.ClassName, t.Super, t.classSet = name, super, true
}

// HasSuper reports whether the class extends something other than the implicit root.
func (t *Table) HasSuper() bool { return t.Super != "" && t.Super != "Object" }

func (t *Table) AddField(sym Symbol, isStatic bool) *Field {
	for _, f := range t.Fields {
		if f.Name == sym.Name {
			*f = Field{Symbol: sym, IsStatic: isStatic}
			return f
		}
	}
	f := &Field{Symbol: sym, IsStatic: isStatic}
	t.Fields = append(t.Fields, f)
	return f
}

func (t *Table) AddMethod(name string, returnType ast.Type, params []Symbol, isStatic bool) *Method {
	m := &Method{Name: name, ReturnType: returnType, IsStatic: isStatic}
	for i, p := range params {
		m.Params = append(m.Params, &Param{Symbol: p, Index: i + 1})
	}
	for i, old := range t.Methods {
		if old.Name == name {
			t.Methods[i] = m
			return m
		}
	}
	t.Methods = append(t.Methods, m)
	return m
}

// Field looks name up among the fields. With global-param-lookup enabled a miss
// falls back to the parameters of every method, yielding an initialized view.
func (t *Table) Field(name string) (*Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	if t.cfg.IsFeatureEnabled(config.FeatGlobalParamLookup) {
		for _, m := range t.Methods {
			if p, ok := m.Param(name); ok {
				return &Field{Symbol: p.Symbol, Initialized: true}, true
			}
		}
	}
	return nil, false
}

func (t *Table) InitializeField(name string) bool {
	for _, f := range t.Fields {
		if f.Name == name {
			f.Initialized = true
			return true
		}
	}
	return false
}

func (t *Table) Method(name string) (*Method, bool) {
	for _, m := range t.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

func (t *Table) Parameters(method string) ([]*Param, bool) {
	m, ok := t.Method(method)
	if !ok {
		return nil, false
	}
	return m.Params, true
}

func (t *Table) ReturnType(method string) (ast.Type, bool) {
	m, ok := t.Method(method)
	if !ok {
		return ast.Type{}, false
	}
	return m.ReturnType, true
}

func (t *Table) LocalVariables(method string) ([]*Local, bool) {
	m, ok := t.Method(method)
	if !ok {
		return nil, false
	}
	return m.Locals, true
}

func (t *Table) IsPrimitiveType(typ ast.Type) bool { return typ.IsPrimitive() }

// IsImported matches a simple class name against the last segment of each import.
func (t *Table) IsImported(simple string) (string, bool) {
	for _, imp := range t.Imports {
		parts := strings.Split(imp, ".")
		if parts[len(parts)-1] == simple {
			return imp, true
		}
	}
	return "", false
}

// String dumps the table in declaration order.
func (t *Table) String() string {
	var sb strings.Builder
	for _, imp := range t.Imports {
		fmt.Fprintf(&sb, "import %s\n", imp)
	}
	if t.Super != "" {
		fmt.Fprintf(&sb, "class %s extends %s\n", t.ClassName, t.Super)
	} else {
		fmt.Fprintf(&sb, "class %s\n", t.ClassName)
	}
	for _, f := range t.Fields {
		fmt.Fprintf(&sb, "  field %s%s\n", f.Symbol, initMark(f.Initialized))
	}
	for _, m := range t.Methods {
		params := make([]string, len(m.Params))
		for i, p := range m.Params {
			params[i] = p.Symbol.String()
		}
		static := ""
		if m.IsStatic {
			static = "static "
		}
		fmt.Fprintf(&sb, "  method %s%s %s(%s)\n", static, m.ReturnType, m.Name, strings.Join(params, ", "))
		for _, l := range m.Locals {
			fmt.Fprintf(&sb, "    local %s%s\n", l.Symbol, initMark(l.Initialized))
		}
	}
	return sb.String()
}

func initMark(init bool) string {
	if init {
		return " (init)"
	}
	return ""
}
