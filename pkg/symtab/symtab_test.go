package symtab

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/jmmc/pkg/ast"
	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/parser"
	"github.com/xplshn/jmmc/pkg/report"
	"github.com/xplshn/jmmc/pkg/util"
)

func build(t *testing.T, src string, cfg *config.Config) (*Table, *report.List, string) {
	t.Helper()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	root, err := parser.ParseSource(src, 0, cfg)
	require.NoError(t, err)

	var warnings bytes.Buffer
	old := util.Output
	util.Output = &warnings
	defer func() { util.Output = old }()

	reports := report.NewList()
	return Build(root, cfg, reports), reports, warnings.String()
}

func TestBuildTable(t *testing.T) {
	table, reports, _ := build(t, `import io;
import a.b.Helper;
class A extends Helper {
    int x;
    int[] arr;
    public int foo(int p, boolean q) {
        int y;
        A other;
        return y;
    }
    public static void main(String[] args) {
        int z;
    }
}`, nil)
	require.Equal(t, 0, reports.Len())

	assert.Equal(t, "A", table.ClassName)
	assert.Equal(t, "Helper", table.Super)
	assert.True(t, table.HasSuper())
	assert.Equal(t, []string{"io", "a.b.Helper"}, table.Imports)
	require.Len(t, table.Fields, 2)
	assert.Equal(t, ast.TypeIntArray, table.Fields[1].Type)

	params, ok := table.Parameters("foo")
	require.True(t, ok)
	require.Len(t, params, 2)
	assert.Equal(t, 1, params[0].Index)
	assert.Equal(t, 2, params[1].Index)
	assert.Equal(t, ast.TypeBool, params[1].Type)

	ret, ok := table.ReturnType("foo")
	require.True(t, ok)
	assert.Equal(t, ast.TypeInt, ret)

	locals, ok := table.LocalVariables("foo")
	require.True(t, ok)
	require.Len(t, locals, 2)
	assert.Equal(t, ast.Type{Name: "A"}, locals[1].Type)
	assert.False(t, locals[0].Initialized)

	main, ok := table.Method("main")
	require.True(t, ok)
	assert.True(t, main.IsStatic)
	assert.Equal(t, []string{"args", "z"}, main.Symbols())

	_, ok = table.Method("bar")
	assert.False(t, ok)
	_, ok = table.ReturnType("bar")
	assert.False(t, ok)
}

func TestIsImported(t *testing.T) {
	table := New(nil)
	table.AddImport("a.b.C")
	table.AddImport("io")

	full, ok := table.IsImported("C")
	assert.True(t, ok)
	assert.Equal(t, "a.b.C", full)
	_, ok = table.IsImported("b")
	assert.False(t, ok)
	full, ok = table.IsImported("io")
	assert.True(t, ok)
	assert.Equal(t, "io", full)
}

func TestDeclarationDiagnostics(t *testing.T) {
	table, reports, warnings := build(t, `class A {
    int x;
    int x;
    public int foo(int p, int p) {
        int p;
        int x;
        int y;
        boolean y;
        return 0;
    }
}`, nil)

	msgs := make([]string, 0, reports.Len())
	for _, r := range reports.Reports() {
		msgs = append(msgs, r.Message)
	}
	assert.Equal(t, []string{
		"Parameter 'p' already declared in method 'foo'",
		"Variable 'p' already declared in current scope",
	}, msgs)

	assert.Contains(t, warnings, "Field 'x' redeclared")
	assert.Contains(t, warnings, "[-Wredeclared]")
	assert.Contains(t, warnings, "Variable 'x' shadows a field of class 'A'")
	assert.Contains(t, warnings, "[-Wshadow]")

	require.Len(t, table.Fields, 1)
	m, _ := table.Method("foo")
	require.Len(t, m.Params, 1)
	y, ok := m.Local("y")
	require.True(t, ok)
	assert.Equal(t, ast.TypeBool, y.Type, "last declaration wins")
}

func TestWarningsCanBeDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.ProcessDirectiveFlags("-Wno-all")
	_, _, warnings := build(t, "class A { int x; int x; }", cfg)
	assert.Empty(t, warnings)
}

func TestInitializationIsMonotonic(t *testing.T) {
	table := New(nil)
	table.SetClass("A", "")
	table.AddField(Symbol{Name: "f", Type: ast.TypeInt}, false)
	m := table.AddMethod("m", ast.TypeVoid, nil, false)
	m.AddLocal(Symbol{Name: "l", Type: ast.TypeInt})

	for i := 0; i < 3; i++ {
		assert.True(t, table.InitializeField("f"))
		assert.True(t, m.InitializeLocal("l"))
		f, _ := table.Field("f")
		l, _ := m.Local("l")
		assert.True(t, f.Initialized)
		assert.True(t, l.Initialized)
	}
	assert.False(t, table.InitializeField("missing"))
	assert.False(t, m.InitializeLocal("missing"))
}

func TestGlobalParamLookup(t *testing.T) {
	src := `class A {
    public int foo(int p) { return p; }
}`
	table, _, _ := build(t, src, nil)
	_, ok := table.Field("p")
	assert.False(t, ok)

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatGlobalParamLookup, true)
	table, _, _ = build(t, src, cfg)
	f, ok := table.Field("p")
	require.True(t, ok)
	assert.True(t, f.Initialized)
	assert.Equal(t, ast.TypeInt, f.Type)
}

func TestSetClassTwicePanics(t *testing.T) {
	table := New(nil)
	table.SetClass("A", "")
	assert.PanicsWithError(t, "semantic: class name set twice (A, then B)", func() {
		table.SetClass("B", "")
	})
}

func TestString(t *testing.T) {
	table, _, _ := build(t, `import io;
class A {
    int x;
    public static void main(String[] args) { int i; }
}`, nil)
	want := "import io\n" +
		"class A\n" +
		"  field int x\n" +
		"  method static void main(String[] args)\n" +
		"    local int i\n"
	assert.Equal(t, want, table.String())
}
