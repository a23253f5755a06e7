package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xplshn/jmmc/pkg/cli"
	"github.com/xplshn/jmmc/pkg/compiler"
	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/token"
	"github.com/xplshn/jmmc/pkg/util"
)

func main() {
	app := cli.NewApp("jmmc")
	app.Synopsis = "[options] <input.jmm|input.ollir>"
	app.Description = "A compiler for Java--, lowering a single class through OLLIR down to Jasmin assembly."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/jmmc>"
	app.Since = 2025

	var (
		outFile    string
		emit       string
		optimize   bool
		debug      bool
		registers  int
		stackLimit int
		wall       bool
		wnoAll     bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file> instead of stdout.", "file")
	fs.String(&emit, "emit", "", "jasmin", "Stop after the given artifact (ollir, jasmin).", "artifact")
	fs.Bool(&optimize, "optimize", "O", false, "Run constant folding and propagation.")
	fs.Bool(&debug, "debug", "d", false, "Dump intermediate artifacts while compiling.")
	fs.Int(&registers, "registers", "r", -1, "Set .limit locals (-1 keeps 99, 0 computes it).", "n")
	fs.Int(&stackLimit, "stack-limit", "", config.DefaultLimit, "Set .limit stack (0 computes it).", "n")
	fs.Bool(&wall, "Wall", "", false, "Enable every warning.")
	fs.Bool(&wnoAll, "Wno-all", "", false, "Disable every warning.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		// -Wall/-Wno-all first, then the specific -W and -F entries override them
		cfg.ProcessFlags(func(fn func(name string)) {
			fs.Visit(func(name string) {
				if name == "Wall" || name == "Wno-all" {
					fn(name)
				}
			})
		})
		cfg.ApplyFlagGroups(warningFlags, featureFlags)

		cfg.Optimize = cfg.Optimize || optimize
		cfg.Debug = debug
		cfg.SetRegisters(registers)
		if err := cfg.SetStackLimit(stackLimit); err != nil {
			util.Error(token.Token{FileIndex: -1}, "%v", err)
		}
		if emit != "ollir" && emit != "jasmin" {
			util.Error(token.Token{FileIndex: -1}, "unknown artifact '%s', expected ollir or jasmin", emit)
		}
		if len(inputFiles) != 1 {
			util.Error(token.Token{FileIndex: -1}, "expected exactly one input file, got %d", len(inputFiles))
		}

		path := inputFiles[0]
		content, err := os.ReadFile(path)
		if err != nil {
			util.Error(token.Token{FileIndex: -1}, "could not read file '%s': %v", path, err)
		}
		util.SetSourceFiles([]util.SourceFileRecord{{Name: path, Content: []rune(string(content))}})

		var res *compiler.Result
		if strings.EqualFold(filepath.Ext(path), ".ollir") {
			res, err = compiler.CompileOLLIR(string(content), cfg)
		} else {
			res, err = compiler.Compile(string(content), 0, cfg)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "jmmc: %v\n", err)
			return err
		}
		for _, r := range res.Reports {
			util.PrintReport(0, r)
		}
		if len(res.Reports) > 0 {
			return fmt.Errorf("%d report(s)", len(res.Reports))
		}

		artifact := res.Jasmin
		if emit == "ollir" {
			artifact = res.OLLIR
		}
		if outFile == "" {
			fmt.Print(artifact)
			return nil
		}
		if err := os.WriteFile(outFile, []byte(artifact), 0o644); err != nil {
			util.Error(token.Token{FileIndex: -1}, "could not write '%s': %v", outFile, err)
		}
		if cfg.Debug {
			util.Info("wrote %s (fingerprint %016x)", outFile, res.Fingerprint)
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
