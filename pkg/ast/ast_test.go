package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/jmmc/pkg/token"
)

func tok(t token.Type) token.Token { return token.Token{Type: t, Line: 1, Column: 1} }

func num(v int32) *Node { return NewIntLit(tok(token.Number), v) }

func ident(name string) *Node { return NewIdent(tok(token.Ident), name) }

func bin(op token.Type, l, r *Node) *Node { return NewBinaryOp(tok(op), op, l, r) }

func TestFormatExprParentheses(t *testing.T) {
	testCases := []struct {
		name string
		expr *Node
		want string
	}{
		{"flat", bin(token.Plus, num(1), bin(token.Star, num(2), num(3))), "1 + 2 * 3"},
		{"grouped left", bin(token.Star, bin(token.Plus, num(1), num(2)), num(3)), "(1 + 2) * 3"},
		{"right assoc needs parens", bin(token.Minus, num(1), bin(token.Minus, num(2), num(3))), "1 - (2 - 3)"},
		{"left assoc", bin(token.Minus, bin(token.Minus, num(1), num(2)), num(3)), "1 - 2 - 3"},
		{"not over binary", NewUnaryOp(tok(token.Not), token.Not, bin(token.Lt, ident("a"), ident("b"))), "!(a < b)"},
		{"length of access", NewLength(tok(token.Ident), NewArrayAccess(tok(token.LBracket), ident("a"), num(0))), "a[0].length"},
		{"call on new", NewCall(tok(token.Ident), NewNewObject(tok(token.New), "A"), "foo", []*Node{num(1), ident("x")}), "new A().foo(1, x)"},
		{"implicit this call", NewCall(tok(token.Ident), nil, "bar", nil), "bar()"},
		{"new array", NewNewIntArray(tok(token.New), bin(token.Plus, ident("n"), num(1))), "new int[n + 1]"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatExpr(tc.expr))
		})
	}
}

func TestFormatProgram(t *testing.T) {
	body := []*Node{
		NewVarDecl(tok(token.Int), "a", TypeInt, nil),
		NewAssign(tok(token.Ident), "a", num(2)),
		NewWhile(tok(token.While), bin(token.Lt, ident("a"), num(10)),
			NewBlock(tok(token.LBrace), []*Node{NewAssign(tok(token.Ident), "a", bin(token.Plus, ident("a"), num(1)))})),
		NewReturn(tok(token.Return), ident("a")),
	}
	method := NewMethodDecl(tok(token.Ident), "foo", TypeInt, []*Node{NewParam(tok(token.Ident), "x", TypeBool)}, body, true, false)
	class := NewClassDecl(tok(token.Ident), "A", "B", nil, []*Node{method})
	prog := NewProgram(tok(token.Import), []*Node{NewImport(tok(token.Import), []string{"io", "B"})}, class)

	want := "import io.B;\n" +
		"class A extends B {\n" +
		"    public int foo(boolean x) {\n" +
		"        int a;\n" +
		"        a = 2;\n" +
		"        while (a < 10)\n" +
		"        {\n" +
		"            a = a + 1;\n" +
		"        }\n" +
		"        return a;\n" +
		"    }\n" +
		"}\n"
	assert.Equal(t, want, Format(prog))
}

func TestParentsAndWalk(t *testing.T) {
	left := num(1)
	right := ident("x")
	expr := bin(token.Plus, left, right)
	stmt := NewExprStmt(tok(token.Ident), expr)

	assert.Same(t, expr, left.Parent)
	assert.Same(t, stmt, expr.Parent)
	require.Len(t, Children(expr), 2)

	var seen []NodeType
	Walk(stmt, func(n *Node) bool {
		seen = append(seen, n.Type)
		return n.Type != BinaryOp
	})
	assert.Equal(t, []NodeType{ExprStmt, BinaryOp}, seen)
}

func TestNormalizeImport(t *testing.T) {
	assert.Equal(t, "a.b.C", NormalizeImport("[a, b, C]"))
	assert.Equal(t, "io", NormalizeImport("io"))
	assert.Equal(t, "a.b.C", NewImport(tok(token.Import), []string{"a", "b", "C"}).Data.(ImportNode).Name())
}

func TestTypeHelpers(t *testing.T) {
	assert.Equal(t, "int[]", TypeIntArray.String())
	assert.Equal(t, "String[]", TypeStringArray.String())
	assert.True(t, TypeInt.IsPrimitive())
	assert.True(t, TypeBool.IsPrimitive())
	assert.False(t, TypeIntArray.IsPrimitive())
	assert.True(t, Type{Name: "Foo"}.IsClass())
	assert.False(t, TypeIntArray.IsClass())
	assert.True(t, MethodDeclNode{Name: "main", IsStatic: true}.IsMain())
	assert.False(t, MethodDeclNode{Name: "main"}.IsMain())
}

func TestOperatorClasses(t *testing.T) {
	assert.True(t, IsArithmetic(token.Slash))
	assert.True(t, IsLogical(token.OrOr))
	assert.True(t, IsComparison(token.Gte))
	assert.True(t, IsRelational(token.EqEq))
	assert.False(t, IsArithmetic(token.Lt))
	assert.Equal(t, -1, Precedence(token.Eq))
}
