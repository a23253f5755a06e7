package optimizer

import (
	"github.com/xplshn/jmmc/pkg/ast"
	"github.com/xplshn/jmmc/pkg/report"
	"github.com/xplshn/jmmc/pkg/symtab"
)

// constant is a literal value known to be held by a variable.
type constant struct {
	isBool bool
	i      int32
	b      bool
}

type env map[string]constant

func (e env) copy() env {
	out := make(env, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// meet keeps only the names on which both states agree.
func meet(a, b env) env {
	out := make(env)
	for k, v := range a {
		if w, ok := b[k]; ok && w == v {
			out[k] = v
		}
	}
	return out
}

type propagator struct {
	tracked  map[string]bool
	consts   env
	removing bool
	changed  bool
}

// Propagate replaces reads of locals and parameters holding a known literal with
// that literal. Fields are never tracked since calls may change them.
func Propagate(method *ast.Node, m *symtab.Method) bool {
	decl, ok := method.Data.(ast.MethodDeclNode)
	if !ok {
		report.Internal(report.Optimization, "propagation expects a MethodDecl, got %s", method.Type)
	}
	p := &propagator{tracked: make(map[string]bool), consts: make(env)}
	for _, name := range m.Symbols() {
		p.tracked[name] = true
	}
	p.stmts(decl.Body)
	return p.changed
}

func literalOf(n *ast.Node) (constant, bool) {
	switch d := n.Data.(type) {
	case ast.IntLitNode:
		return constant{i: d.Value}, true
	case ast.BoolLitNode:
		return constant{isBool: true, b: d.Value}, true
	}
	return constant{}, false
}

func (p *propagator) assign(name string, rhs *ast.Node) {
	if !p.tracked[name] {
		return
	}
	if c, ok := literalOf(rhs); ok && !p.removing {
		p.consts[name] = c
		return
	}
	delete(p.consts, name)
}

func (p *propagator) stmts(nodes []*ast.Node) {
	for _, n := range nodes {
		p.stmt(n)
	}
}

func (p *propagator) stmt(node *ast.Node) {
	switch d := node.Data.(type) {
	case ast.VarDeclNode:
		if d.Init != nil {
			d.Init = p.expr(d.Init)
			node.Data = d
			p.assign(d.Name, d.Init)
		}
	case ast.AssignNode:
		d.Rhs = p.expr(d.Rhs)
		node.Data = d
		p.assign(d.Name, d.Rhs)
	case ast.ArrayAssignNode:
		d.Index = p.expr(d.Index)
		d.Rhs = p.expr(d.Rhs)
		node.Data = d
	case ast.ExprStmtNode:
		d.Expr = p.expr(d.Expr)
		node.Data = d
	case ast.ReturnNode:
		d.Expr = p.expr(d.Expr)
		node.Data = d
	case ast.BlockNode:
		p.stmts(d.Stmts)
	case ast.IfNode:
		d.Cond = p.expr(d.Cond)
		node.Data = d
		if p.removing {
			p.stmt(d.ThenBody)
			if d.ElseBody != nil {
				p.stmt(d.ElseBody)
			}
			return
		}
		before := p.consts
		p.consts = before.copy()
		p.stmt(d.ThenBody)
		thenState := p.consts
		p.consts = before.copy()
		if d.ElseBody != nil {
			p.stmt(d.ElseBody)
		}
		p.consts = meet(thenState, p.consts)
	case ast.WhileNode:
		p.loop(node, d)
	default:
		report.Internal(report.Optimization, "unexpected %s in statement position", node.Type)
	}
}

func (p *propagator) loop(node *ast.Node, d ast.WhileNode) {
	snapshot := p.consts.copy()

	// Forget everything the body may assign, at any depth.
	wasRemoving := p.removing
	p.removing = true
	p.stmt(d.Body)
	p.removing = wasRemoving
	if p.removing {
		return
	}

	d.Cond = p.expr(d.Cond)
	node.Data = d
	p.stmt(d.Body)
	p.consts = meet(p.consts, snapshot)
}

func (p *propagator) exprs(nodes []*ast.Node) {
	for i, n := range nodes {
		nodes[i] = p.expr(n)
	}
}

func (p *propagator) expr(node *ast.Node) *ast.Node {
	if node == nil {
		return nil
	}
	switch d := node.Data.(type) {
	case ast.IdentNode:
		c, ok := p.consts[d.Name]
		if p.removing || !ok {
			return node
		}
		var lit *ast.Node
		if c.isBool {
			lit = ast.NewBoolLit(node.Tok, c.b)
		} else {
			lit = ast.NewIntLit(node.Tok, c.i)
		}
		lit.Parent = node.Parent
		p.changed = true
		return lit
	case ast.BinaryOpNode:
		d.Left = p.expr(d.Left)
		d.Right = p.expr(d.Right)
		node.Data = d
	case ast.UnaryOpNode:
		d.Expr = p.expr(d.Expr)
		node.Data = d
	case ast.ArrayAccessNode:
		d.Array = p.expr(d.Array)
		d.Index = p.expr(d.Index)
		node.Data = d
	case ast.LengthNode:
		d.Expr = p.expr(d.Expr)
		node.Data = d
	case ast.CallNode:
		d.Receiver = p.expr(d.Receiver)
		p.exprs(d.Args)
		node.Data = d
	case ast.NewIntArrayNode:
		d.Size = p.expr(d.Size)
		node.Data = d
	}
	return node
}
