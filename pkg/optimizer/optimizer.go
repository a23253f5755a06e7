package optimizer

import (
	"github.com/xplshn/jmmc/pkg/ast"
	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/report"
	"github.com/xplshn/jmmc/pkg/symtab"
	"github.com/xplshn/jmmc/pkg/util"
)

// Optimize alternates folding and propagation until neither changes the tree.
// It returns the number of rounds that made progress.
func Optimize(root *ast.Node, table *symtab.Table, cfg *config.Config) int {
	prog, ok := root.Data.(ast.ProgramNode)
	if !ok {
		report.Internal(report.Optimization, "optimizer root is %s, not Program", root.Type)
	}
	class := prog.Class.Data.(ast.ClassDeclNode)

	rounds := 0
	for {
		changed := false
		if cfg.IsFeatureEnabled(config.FeatConstFold) {
			_, folded := Fold(root, cfg)
			changed = changed || folded
		}
		if cfg.IsFeatureEnabled(config.FeatConstProp) {
			for _, m := range class.Methods {
				method, ok := table.Method(m.Data.(ast.MethodDeclNode).Name)
				if !ok {
					report.Internal(report.Optimization, "method %s missing from the symbol table", m.Data.(ast.MethodDeclNode).Name)
				}
				if Propagate(m, method) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
		rounds++
	}
	if cfg.Debug {
		util.Info("optimizer settled after %d round(s)", rounds)
	}
	return rounds
}
