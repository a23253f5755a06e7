// Package compiler wires the Java-- stages together for one compilation unit.
package compiler

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/xplshn/jmmc/pkg/ast"
	"github.com/xplshn/jmmc/pkg/codegen"
	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/ir"
	"github.com/xplshn/jmmc/pkg/optimizer"
	"github.com/xplshn/jmmc/pkg/parser"
	"github.com/xplshn/jmmc/pkg/report"
	"github.com/xplshn/jmmc/pkg/symtab"
	"github.com/xplshn/jmmc/pkg/typeChecker"
	"github.com/xplshn/jmmc/pkg/util"
)

// Result holds every artifact of a compilation. Reports is non-empty when the
// unit was rejected, in which case the later artifacts are left empty.
type Result struct {
	Table       *symtab.Table
	Reports     []report.Report
	IR          *ir.Class
	OLLIR       string
	Jasmin      string
	Fingerprint uint64
}

// Compile parses src and runs it through the whole pipeline. User mistakes come
// back as reports; the error is reserved for broken contracts between passes.
func Compile(src string, fileIndex int, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	root, err := parser.ParseSource(src, fileIndex, cfg)
	if err != nil {
		var r *report.Report
		if errors.As(err, &r) {
			return &Result{Reports: []report.Report{*r}}, nil
		}
		return nil, fmt.Errorf("parse: %w", err)
	}
	return CompileTree(root, cfg)
}

// CompileTree runs analysis, the optional optimizer and both backends over a parsed tree.
func CompileTree(root *ast.Node, cfg *config.Config) (res *Result, err error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	defer recoverInternal(&res, &err)

	res = &Result{}
	reports := report.NewList()
	debugf(cfg, "building symbol table")
	res.Table = symtab.Build(root, cfg, reports)
	if cfg.Debug {
		util.Info("symbol table:\n%s", res.Table)
	}

	debugf(cfg, "type checking")
	typeChecker.NewTypeChecker(res.Table, cfg, reports).Check(root)
	reports.Dedupe()
	res.Reports = reports.Reports()
	if reports.HasErrors() {
		debugf(cfg, "stopping after analysis with %d report(s)", len(res.Reports))
		return res, nil
	}

	if cfg.Optimize {
		debugf(cfg, "optimizing")
		optimizer.Optimize(root, res.Table, cfg)
		if cfg.Debug {
			util.Info("optimized source:\n%s", ast.Format(root))
		}
	}

	debugf(cfg, "creating intermediate representation")
	cls, err := codegen.NewContext(res.Table, cfg).GenerateIR(root)
	if err != nil {
		return nil, fmt.Errorf("ir generation: %w", err)
	}
	return emit(res, cls, cfg)
}

// CompileOLLIR assembles OLLIR text directly, skipping the front end.
func CompileOLLIR(src string, cfg *config.Config) (res *Result, err error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	defer recoverInternal(&res, &err)

	cls, err := ir.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("ollir input: %w", err)
	}
	return emit(&Result{}, cls, cfg)
}

func emit(res *Result, cls *ir.Class, cfg *config.Config) (*Result, error) {
	res.IR = cls
	res.OLLIR = cls.String()
	if cfg.Debug {
		util.Info("ollir:\n%s", res.OLLIR)
	}

	debugf(cfg, "generating jasmin")
	buf, err := codegen.NewJasminBackend().Generate(cls, cfg)
	if err != nil {
		var r *report.Report
		if errors.As(err, &r) {
			res.Reports = append(res.Reports, *r)
			return res, nil
		}
		return nil, fmt.Errorf("jasmin: %w", err)
	}
	res.Jasmin = buf.String()
	res.Fingerprint = xxhash.Sum64String(res.Jasmin)
	return res, nil
}

func recoverInternal(res **Result, err *error) {
	r := recover()
	if r == nil {
		return
	}
	ierr, ok := r.(*report.InternalError)
	if !ok {
		panic(r)
	}
	*res, *err = nil, fmt.Errorf("internal error: %w", ierr)
}

func debugf(cfg *config.Config, format string, args ...interface{}) {
	if cfg.Debug {
		util.Info(format, args...)
	}
}
