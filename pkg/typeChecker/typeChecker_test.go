package typeChecker

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/parser"
	"github.com/xplshn/jmmc/pkg/report"
	"github.com/xplshn/jmmc/pkg/symtab"
	"github.com/xplshn/jmmc/pkg/util"
)

func check(t *testing.T, src string) (*symtab.Table, []report.Report) {
	t.Helper()
	cfg := config.NewConfig()
	root, err := parser.ParseSource(src, 0, cfg)
	require.NoError(t, err)

	old := util.Output
	util.Output = io.Discard
	defer func() { util.Output = old }()

	reports := report.NewList()
	table := symtab.Build(root, cfg, reports)
	NewTypeChecker(table, cfg, reports).Check(root)
	return table, reports.Reports()
}

func messages(reports []report.Report) []string {
	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.Message
	}
	return out
}

// method wraps body in an instance method of class A returning int.
func method(body string) string {
	return "import io;\nclass A {\n    int field;\n    public int f(int p, boolean q, int[] arr) {\n" + body + "\n        return 0;\n    }\n}"
}

func TestMismatchedAssignment(t *testing.T) {
	_, reports := check(t, method("        int a;\n        a = true;"))
	require.Len(t, reports, 1)
	assert.Equal(t, "Mismatched types on Assignment: 'int' and 'boolean'", reports[0].Message)
	assert.Equal(t, report.Semantic, reports[0].Stage)
	assert.Equal(t, 6, reports[0].Line)
	assert.Equal(t, 9, reports[0].Col)
}

func TestArrayStoreInitializes(t *testing.T) {
	table, reports := check(t, method("        int[] a;\n        a = new int[2];\n        a[0] = 5;\n        a[1] = 6;\n        int b = a[0];"))
	assert.Empty(t, reports)

	m, _ := table.Method("f")
	a, ok := m.Local("a")
	require.True(t, ok)
	assert.True(t, a.Initialized)
	b, _ := m.Local("b")
	assert.True(t, b.Initialized)
}

func TestArrayStoreWithoutAllocation(t *testing.T) {
	table, reports := check(t, method("        int[] a;\n        a[0] = 5;\n        a[0] = 7;"))
	assert.Empty(t, reports)
	m, _ := table.Method("f")
	a, _ := m.Local("a")
	assert.True(t, a.Initialized, "every store marks the array")
}

func TestIncorrectCallParameters(t *testing.T) {
	_, reports := check(t, `class A {
    public int foo(int x, int y) { return x; }
    public int bar() { return this.foo(1, true); }
}`)
	assert.Equal(t, []string{"Incorrect parameters in method call: foo() in class A"}, messages(reports))
}

func TestConditionNotBoolean(t *testing.T) {
	_, reports := check(t, method("        while (1) {}"))
	require.Len(t, reports, 1)
	assert.Equal(t, "Conditional expression not boolean", reports[0].Message)
	assert.Equal(t, 5, reports[0].Line)
	assert.Equal(t, 16, reports[0].Col)
}

func TestUndeclaredMethod(t *testing.T) {
	_, reports := check(t, "class A {\n    public int f() { this.bar(); return 0; }\n}")
	assert.Equal(t, []string{"Method not found: bar"}, messages(reports))

	_, reports = check(t, "import Base;\nclass A extends Base {\n    public int f() { this.bar(); bar(); return 0; }\n}")
	assert.Empty(t, reports)
}

func TestDiagnostics(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want []string
	}{
		{"undeclared variable", "        field = missing;", []string{"Variable 'missing' not declared"}},
		{"no cascade after error", "        int a;\n        a = missing + 1;", []string{"Variable 'missing' not declared"}},
		{"uninitialized left", "        int a;\n        int b;\n        b = a + 1;", []string{"Left Member not initialized: a"}},
		{"uninitialized right", "        int a;\n        int b;\n        b = 1 < a;", []string{"Right Member not initialized: a"}},
		{"binary mismatch", "        int a;\n        a = 1 + q;", []string{"Mismatched types on Binary Operator: 'int + boolean'"}},
		{"array in arithmetic", "        int a;\n        a = arr + 1;", []string{"Array Variables cannot be used directly with an Binary Operator: 'arr' + '1'"}},
		{"relational mismatch", "        boolean b;\n        b = q && 1;", []string{"Mismatched types on Relational Operator: 'boolean' and 'int'"}},
		{"equality mismatch", "        boolean b;\n        b = p == q;", []string{"Mismatched types on Relational Operator: 'int' and 'boolean'"}},
		{"unary", "        boolean b;\n        b = !p;", []string{"Unary expression not boolean"}},
		{"index type", "        int a;\n        a = arr[q];", []string{"Array index must be of type int"}},
		{"not an array", "        int a;\n        a = p[0];", []string{"Variable is not an array: p"}},
		{"store into non array", "        p[0] = 1;", []string{"Variable is not an array: p"}},
		{"store index type", "        arr[true] = 1;", []string{"Array index must be of type int"}},
		{"array init size", "        arr = new int[q];", []string{"Array init size is not an Integer"}},
		{"length of int", "        int n;\n        n = p.length;", []string{"Variable is not an array: p"}},
		{"assignment target", "        nothing = 1;", []string{"Variable for assignment not declared: nothing"}},
		{"return type", "        return q;", []string{"Mismatched types on return statement: 'int' and 'boolean'"}},
		{"method on primitive", "        p.foo();", []string{"Method not found: foo"}},
		{"unimported class", "        Missing m;", []string{"Class Not Imported: Missing"}},
		{"if condition", "        if (p) {} else {}", []string{"Conditional expression not boolean"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, reports := check(t, method(tc.body))
			assert.Equal(t, tc.want, messages(reports))
		})
	}
}

func TestAcceptedPrograms(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"length is int", "        int n;\n        n = arr.length;\n        n = n + arr.length;"},
		{"static import call", "        io.println(p);"},
		{"deferred result initializes", "        int x;\n        x = io.read();\n        x = x + 1;"},
		{"deferred argument", "        int x;\n        x = this.f(io.read(), q, arr);"},
		{"current class object", "        A other;\n        other = new A();\n        p = other.f(1, true, arr);"},
		{"imported object", "        io o;\n        o = new io();\n        o.whatever(1);"},
		{"field write then read", "        field = 1;\n        p = field + 1;"},
		{"field read before write", "        p = field + 1;"},
		{"logic", "        boolean b;\n        b = q && !(p < 3) || true == q;"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, reports := check(t, method(tc.body))
			assert.Empty(t, reports)
		})
	}
}

func TestThisInMain(t *testing.T) {
	_, reports := check(t, `class A {
    public int f() { return 1; }
    public static void main(String[] args) {
        int x;
        x = this.f();
        x = args.length;
    }
}`)
	assert.Equal(t, []string{"Cannot use this in main method"}, messages(reports))
}

func TestStaticFieldAccess(t *testing.T) {
	_, reports := check(t, `class A {
    int count;
    int[] data;
    public static void main(String[] args) {
        int x;
        count = 1;
        data[0] = 2;
        x = count;
    }
}`)
	assert.Equal(t, []string{
		"Cannot use this in main method",
		"Cannot use this in main method",
		"Cannot use this in main method",
	}, messages(reports))
	for _, r := range reports {
		assert.Equal(t, report.Semantic, r.Stage)
	}

	_, reports = check(t, `class A {
    int count;
    public int get() { return count; }
    public static void main(String[] args) {
        int count;
        count = 1;
        count = count + 1;
    }
}`)
	assert.Empty(t, reports, "a local shadowing the field is fine in main")
}

// objectMethod wraps body in a method taking an imported object, an int array and an int.
func objectMethod(body string) string {
	return `import io;
import Foo;
class A {
    public int h(int v) { return v; }
    public int k(Foo v) { return 0; }
    public int f(Foo g, int[] arr) {
        int x;
        boolean b;
` + body + `
        return 0;
    }
}`
}

func TestImportedObjectOperands(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want []string
	}{
		{"arithmetic", "        x = g + 1;", []string{"Mismatched types on Binary Operator: 'Foo + int'"}},
		{"class name in arithmetic", "        x = io + 1;", []string{"Mismatched types on Binary Operator: 'io + int'"}},
		{"comparison", "        b = g < 3;", []string{"Mismatched types on Relational Operator: 'Foo' and 'int'"}},
		{"logical", "        b = g && true;", []string{"Mismatched types on Relational Operator: 'Foo' and 'boolean'"}},
		{"condition", "        if (g) {} else {}", []string{"Conditional expression not boolean"}},
		{"while condition", "        while (g) {}", []string{"Conditional expression not boolean"}},
		{"negation", "        b = !g;", []string{"Unary expression not boolean"}},
		{"index", "        x = arr[g];", []string{"Array index must be of type int"}},
		{"indexed object", "        x = g[0];", []string{"Variable is not an array: g"}},
		{"length of object", "        x = g.length;", []string{"Variable is not an array: g"}},
		{"stored into array", "        arr[0] = g;", []string{"Mismatched types on Array Assignment: 'int' and 'Foo'"}},
		{"object for int parameter", "        x = this.h(g);", []string{"Incorrect parameters in method call: h() in class A"}},
		{"class name as argument", "        x = this.k(io);", []string{"Incorrect parameters in method call: k() in class A"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, reports := check(t, objectMethod(tc.body))
			assert.Equal(t, tc.want, messages(reports))
		})
	}

	t.Run("deferred results stay lenient", func(t *testing.T) {
		_, reports := check(t, objectMethod(`        x = g.size() + 1;
        b = g.ready();
        if (g.ready()) {} else {}
        x = g.items()[0];
        x = g.items().length;
        x = this.h(g.size());
        x = this.k(g);
        x = this.k(new Foo());`))
		assert.Empty(t, reports)
	})
}

func TestSuperclassAssignment(t *testing.T) {
	_, reports := check(t, `import Base;
class A extends Base {
    public Base up() {
        Base b;
        A a;
        a = new A();
        b = a;
        a = b;
        return b;
    }
}`)
	assert.Empty(t, reports)
}

func TestImportCheckCanBeDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatImportCheck, false)
	root, err := parser.ParseSource(method("        Missing m;"), 0, cfg)
	require.NoError(t, err)
	reports := report.NewList()
	table := symtab.Build(root, cfg, reports)
	NewTypeChecker(table, cfg, reports).Check(root)
	assert.Equal(t, 0, reports.Len())
}

func TestInitializationMonotonic(t *testing.T) {
	table, _ := check(t, method("        int a;\n        a = 1;\n        a = true;\n        a = missing;"))
	m, _ := table.Method("f")
	a, _ := m.Local("a")
	assert.True(t, a.Initialized, "failed assignments never clear the flag")
}

func TestFieldInitializer(t *testing.T) {
	table, reports := check(t, "class A {\n    int x = 3;\n    boolean y = 4;\n}")
	assert.Equal(t, []string{"Mismatched types on Assignment: 'boolean' and 'int'"}, messages(reports))
	x, _ := table.Field("x")
	assert.True(t, x.Initialized)
	y, _ := table.Field("y")
	assert.False(t, y.Initialized)
}

func TestTypeLattice(t *testing.T) {
	assert.True(t, LengthType.Equal(IntType))
	assert.True(t, UnresolvedType("B", Imported).Equal(ClassType("B")))
	assert.False(t, UnresolvedType("B", Imported).Equal(ClassType("C")))
	assert.False(t, DeferredType("m").Equal(IntType))
	assert.Equal(t, "access", DeferredType("m").String())
	assert.Equal(t, "int", LengthType.String())
	assert.True(t, ClassRefType("io").IsExternal())
	assert.False(t, ClassType("A").IsExternal())
}
