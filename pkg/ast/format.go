package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/jmmc/pkg/token"
)

// Precedence returns the binding strength of a binary operator, higher binds tighter.
func Precedence(op token.Type) int {
	switch op {
	case token.Star, token.Slash:
		return 6
	case token.Plus, token.Minus:
		return 5
	case token.Lt, token.Gt, token.Lte, token.Gte:
		return 4
	case token.EqEq, token.Neq:
		return 3
	case token.AndAnd:
		return 2
	case token.OrOr:
		return 1
	}
	return -1
}

// Format renders n back as Java-- source. It is used for debug dumps and tests.
func Format(n *Node) string {
	var sb strings.Builder
	f := &formatter{out: &sb}
	f.node(n)
	return sb.String()
}

type formatter struct {
	out   *strings.Builder
	depth int
}

func (f *formatter) line(format string, args ...interface{}) {
	f.out.WriteString(strings.Repeat("    ", f.depth))
	fmt.Fprintf(f.out, format, args...)
	f.out.WriteByte('\n')
}

func (f *formatter) node(n *Node) {
	if n == nil {
		return
	}
	switch d := n.Data.(type) {
	case ProgramNode:
		for _, imp := range d.Imports {
			f.line("import %s;", imp.Data.(ImportNode).Name())
		}
		f.node(d.Class)
	case ClassDeclNode:
		header := "class " + d.Name
		if d.Super != "" {
			header += " extends " + d.Super
		}
		f.line("%s {", header)
		f.depth++
		for _, fd := range d.Fields {
			f.node(fd)
		}
		for _, m := range d.Methods {
			f.node(m)
		}
		f.depth--
		f.line("}")
	case MethodDeclNode:
		var params []string
		for _, p := range d.Params {
			pd := p.Data.(ParamNode)
			params = append(params, pd.Type.String()+" "+pd.Name)
		}
		mods := ""
		if d.IsPublic {
			mods = "public "
		}
		if d.IsStatic {
			mods += "static "
		}
		f.line("%s%s %s(%s) {", mods, d.ReturnType, d.Name, strings.Join(params, ", "))
		f.depth++
		for _, s := range d.Body {
			f.node(s)
		}
		f.depth--
		f.line("}")
	case VarDeclNode:
		if d.Init != nil {
			f.line("%s %s = %s;", d.Type, d.Name, FormatExpr(d.Init))
		} else {
			f.line("%s %s;", d.Type, d.Name)
		}
	case BlockNode:
		f.line("{")
		f.depth++
		for _, s := range d.Stmts {
			f.node(s)
		}
		f.depth--
		f.line("}")
	case IfNode:
		f.line("if (%s)", FormatExpr(d.Cond))
		f.nested(d.ThenBody)
		if d.ElseBody != nil {
			f.line("else")
			f.nested(d.ElseBody)
		}
	case WhileNode:
		f.line("while (%s)", FormatExpr(d.Cond))
		f.nested(d.Body)
	case ExprStmtNode:
		f.line("%s;", FormatExpr(d.Expr))
	case AssignNode:
		f.line("%s = %s;", d.Name, FormatExpr(d.Rhs))
	case ArrayAssignNode:
		f.line("%s[%s] = %s;", d.Name, FormatExpr(d.Index), FormatExpr(d.Rhs))
	case ReturnNode:
		if d.Expr != nil {
			f.line("return %s;", FormatExpr(d.Expr))
		} else {
			f.line("return;")
		}
	default:
		f.line("%s", FormatExpr(n))
	}
}

func (f *formatter) nested(n *Node) {
	if n != nil && n.Type == Block {
		f.node(n)
		return
	}
	f.depth++
	f.node(n)
	f.depth--
}

// FormatExpr renders a single expression, adding parentheses only where the tree
// shape differs from the default precedence.
func FormatExpr(n *Node) string {
	if n == nil {
		return ""
	}
	switch d := n.Data.(type) {
	case IntLitNode:
		return strconv.FormatInt(int64(d.Value), 10)
	case BoolLitNode:
		return strconv.FormatBool(d.Value)
	case IdentNode:
		return d.Name
	case ThisNode:
		return "this"
	case BinaryOpNode:
		prec := Precedence(d.Op)
		left, right := FormatExpr(d.Left), FormatExpr(d.Right)
		if d.Left.Type == BinaryOp && Precedence(d.Left.Data.(BinaryOpNode).Op) < prec {
			left = "(" + left + ")"
		}
		if d.Right.Type == BinaryOp && Precedence(d.Right.Data.(BinaryOpNode).Op) <= prec {
			right = "(" + right + ")"
		}
		return left + " " + d.Op.String() + " " + right
	case UnaryOpNode:
		inner := FormatExpr(d.Expr)
		if d.Expr.Type == BinaryOp {
			inner = "(" + inner + ")"
		}
		return d.Op.String() + inner
	case ArrayAccessNode:
		return postfixOperand(d.Array) + "[" + FormatExpr(d.Index) + "]"
	case LengthNode:
		return postfixOperand(d.Expr) + ".length"
	case CallNode:
		args := make([]string, len(d.Args))
		for i, a := range d.Args {
			args[i] = FormatExpr(a)
		}
		call := d.Method + "(" + strings.Join(args, ", ") + ")"
		if d.Receiver == nil {
			return call
		}
		return postfixOperand(d.Receiver) + "." + call
	case NewIntArrayNode:
		return "new int[" + FormatExpr(d.Size) + "]"
	case NewObjectNode:
		return "new " + d.Class + "()"
	}
	return "<" + n.Type.String() + ">"
}

func postfixOperand(n *Node) string {
	s := FormatExpr(n)
	if n.Type == BinaryOp || n.Type == UnaryOp {
		return "(" + s + ")"
	}
	return s
}
