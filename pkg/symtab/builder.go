package symtab

import (
	"github.com/xplshn/jmmc/pkg/ast"
	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/report"
	"github.com/xplshn/jmmc/pkg/util"
)

type builder struct {
	table   *Table
	cfg     *config.Config
	reports *report.List
}

// methodCtx is the method whose body is being visited.
type methodCtx struct {
	method *Method
}

// Build fills a Table from a parsed program in a single top-down pass. Declaration
// errors are appended to reports; redeclarations and shadowing only warn.
func Build(root *ast.Node, cfg *config.Config, reports *report.List) *Table {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	b := &builder{table: New(cfg), cfg: cfg, reports: reports}
	prog, ok := root.Data.(ast.ProgramNode)
	if !ok {
		report.Internal(report.Semantic, "symbol table root is %s, not Program", root.Type)
	}
	for _, imp := range prog.Imports {
		b.table.AddImport(imp.Data.(ast.ImportNode).Name())
	}
	b.class(prog.Class)
	return b.table
}

func (b *builder) class(node *ast.Node) {
	class, ok := node.Data.(ast.ClassDeclNode)
	if !ok {
		report.Internal(report.Semantic, "expected ClassDecl, got %s", node.Type)
	}
	b.table.SetClass(class.Name, class.Super)
	for _, f := range class.Fields {
		decl := f.Data.(ast.VarDeclNode)
		if _, exists := b.table.Field(decl.Name); exists {
			util.Warn(b.cfg, config.WarnRedeclared, f.Tok, "Field '%s' redeclared, the later declaration wins", decl.Name)
		}
		b.table.AddField(Symbol{Name: decl.Name, Type: decl.Type}, false)
	}
	for _, m := range class.Methods {
		b.method(m)
	}
}

func (b *builder) method(node *ast.Node) {
	decl := node.Data.(ast.MethodDeclNode)
	if _, exists := b.table.Method(decl.Name); exists {
		util.Warn(b.cfg, config.WarnRedeclared, node.Tok, "Method '%s' redeclared, the later declaration wins", decl.Name)
	}

	var params []Symbol
	seen := make(map[string]bool)
	for _, p := range decl.Params {
		pd := p.Data.(ast.ParamNode)
		if seen[pd.Name] {
			b.reports.Addf(report.Semantic, p.Line(), p.Col(), "Parameter '%s' already declared in method '%s'", pd.Name, decl.Name)
			continue
		}
		seen[pd.Name] = true
		params = append(params, Symbol{Name: pd.Name, Type: pd.Type})
	}

	ctx := &methodCtx{method: b.table.AddMethod(decl.Name, decl.ReturnType, params, decl.IsStatic)}
	for _, stmt := range decl.Body {
		ast.Walk(stmt, func(n *ast.Node) bool {
			if n.Type == ast.VarDecl {
				b.local(ctx, n)
			}
			return true
		})
	}
}

func (b *builder) local(ctx *methodCtx, node *ast.Node) {
	decl := node.Data.(ast.VarDeclNode)
	if _, isParam := ctx.method.Param(decl.Name); isParam {
		b.reports.Addf(report.Semantic, node.Line(), node.Col(), "Variable '%s' already declared in current scope", decl.Name)
		return
	}
	if _, exists := ctx.method.Local(decl.Name); exists {
		util.Warn(b.cfg, config.WarnRedeclared, node.Tok, "Variable '%s' redeclared in method '%s'", decl.Name, ctx.method.Name)
	} else if _, isField := b.table.Field(decl.Name); isField {
		util.Warn(b.cfg, config.WarnShadow, node.Tok, "Variable '%s' shadows a field of class '%s'", decl.Name, b.table.ClassName)
	}
	ctx.method.AddLocal(Symbol{Name: decl.Name, Type: decl.Type})
}
