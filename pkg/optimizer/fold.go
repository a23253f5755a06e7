// Package optimizer rewrites the checked tree with constant folding and propagation.
package optimizer

import (
	"math"

	"github.com/xplshn/jmmc/pkg/ast"
	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/token"
	"github.com/xplshn/jmmc/pkg/util"
)

type folder struct {
	cfg     *config.Config
	changed bool
}

// Fold collapses operators over literal operands, bottom up. It returns the
// replacement for node and whether anything changed.
func Fold(node *ast.Node, cfg *config.Config) (*ast.Node, bool) {
	f := &folder{cfg: cfg}
	out := f.fold(node)
	return out, f.changed
}

func (f *folder) all(nodes []*ast.Node) {
	for i, n := range nodes {
		nodes[i] = f.fold(n)
	}
}

func (f *folder) fold(node *ast.Node) *ast.Node {
	if node == nil {
		return nil
	}

	// Children first
	switch d := node.Data.(type) {
	case ast.ProgramNode:
		d.Class = f.fold(d.Class)
		node.Data = d
	case ast.ClassDeclNode:
		f.all(d.Fields)
		f.all(d.Methods)
	case ast.MethodDeclNode:
		f.all(d.Body)
	case ast.VarDeclNode:
		d.Init = f.fold(d.Init)
		node.Data = d
	case ast.BlockNode:
		f.all(d.Stmts)
	case ast.IfNode:
		d.Cond = f.fold(d.Cond)
		d.ThenBody = f.fold(d.ThenBody)
		d.ElseBody = f.fold(d.ElseBody)
		node.Data = d
	case ast.WhileNode:
		d.Cond = f.fold(d.Cond)
		d.Body = f.fold(d.Body)
		node.Data = d
	case ast.ExprStmtNode:
		d.Expr = f.fold(d.Expr)
		node.Data = d
	case ast.AssignNode:
		d.Rhs = f.fold(d.Rhs)
		node.Data = d
	case ast.ArrayAssignNode:
		d.Index = f.fold(d.Index)
		d.Rhs = f.fold(d.Rhs)
		node.Data = d
	case ast.ReturnNode:
		d.Expr = f.fold(d.Expr)
		node.Data = d
	case ast.BinaryOpNode:
		d.Left = f.fold(d.Left)
		d.Right = f.fold(d.Right)
		node.Data = d
	case ast.UnaryOpNode:
		d.Expr = f.fold(d.Expr)
		node.Data = d
	case ast.ArrayAccessNode:
		d.Array = f.fold(d.Array)
		d.Index = f.fold(d.Index)
		node.Data = d
	case ast.LengthNode:
		d.Expr = f.fold(d.Expr)
		node.Data = d
	case ast.CallNode:
		d.Receiver = f.fold(d.Receiver)
		f.all(d.Args)
		node.Data = d
	case ast.NewIntArrayNode:
		d.Size = f.fold(d.Size)
		node.Data = d
	}

	// Then the node itself
	var out *ast.Node
	switch d := node.Data.(type) {
	case ast.BinaryOpNode:
		out = f.foldBinary(node, d)
	case ast.UnaryOpNode:
		if lit, ok := d.Expr.Data.(ast.BoolLitNode); ok && d.Op == token.Not {
			out = ast.NewBoolLit(node.Tok, !lit.Value)
		}
	}
	if out == nil {
		return node
	}
	out.Parent = node.Parent
	f.changed = true
	return out
}

func (f *folder) foldBinary(node *ast.Node, d ast.BinaryOpNode) *ast.Node {
	if l, ok := d.Left.Data.(ast.IntLitNode); ok {
		if r, ok := d.Right.Data.(ast.IntLitNode); ok {
			return f.foldInts(node, d.Op, l.Value, r.Value)
		}
	}
	if l, ok := d.Left.Data.(ast.BoolLitNode); ok {
		if r, ok := d.Right.Data.(ast.BoolLitNode); ok {
			var res bool
			switch d.Op {
			case token.AndAnd:
				res = l.Value && r.Value
			case token.OrOr:
				res = l.Value || r.Value
			case token.EqEq:
				res = l.Value == r.Value
			case token.Neq:
				res = l.Value != r.Value
			default:
				return nil
			}
			return ast.NewBoolLit(node.Tok, res)
		}
	}
	return nil
}

func (f *folder) foldInts(node *ast.Node, op token.Type, l, r int32) *ast.Node {
	a, b := int64(l), int64(r)
	var res int64
	switch op {
	case token.Plus:
		res = a + b
	case token.Minus:
		res = a - b
	case token.Star:
		res = a * b
	case token.Slash:
		if b == 0 {
			// Left for the JVM to throw at run time.
			return nil
		}
		res = a / b
	case token.Lt:
		return ast.NewBoolLit(node.Tok, l < r)
	case token.Gt:
		return ast.NewBoolLit(node.Tok, l > r)
	case token.Lte:
		return ast.NewBoolLit(node.Tok, l <= r)
	case token.Gte:
		return ast.NewBoolLit(node.Tok, l >= r)
	case token.EqEq:
		return ast.NewBoolLit(node.Tok, l == r)
	case token.Neq:
		return ast.NewBoolLit(node.Tok, l != r)
	default:
		return nil
	}
	if res > math.MaxInt32 || res < math.MinInt32 {
		util.Warn(f.cfg, config.WarnOverflow, node.Tok, "Constant expression %d %s %d overflows int, wrapping to %d", l, op, r, int32(res))
	}
	return ast.NewIntLit(node.Tok, int32(res))
}
