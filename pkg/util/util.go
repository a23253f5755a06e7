package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/report"
	"github.com/xplshn/jmmc/pkg/token"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var (
	sourceFiles []SourceFileRecord
	// Output receives every diagnostic printed by this package.
	Output io.Writer = os.Stderr
)

// SetSourceFiles stores the source code of all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) {
	sourceFiles = files
}

func fileName(fileIndex int) string {
	if fileIndex < 0 || fileIndex >= len(sourceFiles) {
		return "unknown"
	}
	return sourceFiles[fileIndex].Name
}

// sourceLine returns the text of the 1-based line in the given file
func sourceLine(fileIndex, line int) (string, bool) {
	if fileIndex < 0 || fileIndex >= len(sourceFiles) || line <= 0 {
		return "", false
	}
	content := sourceFiles[fileIndex].Content
	lineStart := 0
	for i, r := range content {
		if line <= 1 {
			break
		}
		if r == '\n' {
			line--
			lineStart = i + 1
		}
	}
	if line > 1 {
		return "", false
	}
	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}
	return string(content[lineStart:lineEnd]), true
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(w io.Writer, fileIndex, line, col, length int) {
	text, ok := sourceLine(fileIndex, line)
	if !ok || col <= 0 {
		return
	}
	fmt.Fprintf(w, "  %s\n", text)
	fmt.Fprintf(w, "  %s\033[32m^", strings.Repeat(" ", col-1))
	if length > 1 {
		fmt.Fprint(w, strings.Repeat("~", length-1))
	}
	fmt.Fprintln(w, "\033[0m")
}

// PrintReport prints a report the same way Error does, without exiting
func PrintReport(fileIndex int, r report.Report) {
	color := "\033[31m"
	if r.Severity == report.Warning {
		color = "\033[33m"
	}
	fmt.Fprintf(Output, "%s:%d:%d: %s%s:\033[0m [%s] %s\n", fileName(fileIndex), r.Line, r.Col, color, r.Severity, r.Stage, r.Message)
	printErrorLine(Output, fileIndex, r.Line, r.Col, 1)
}

// Error prints a formatted error message and exits the program
func Error(tok token.Token, format string, args ...interface{}) {
	fmt.Fprintf(Output, "%s:%d:%d: \033[31merror:\033[0m ", fileName(tok.FileIndex), tok.Line, tok.Column)
	fmt.Fprintf(Output, format, args...)
	fmt.Fprintln(Output)
	printErrorLine(Output, tok.FileIndex, tok.Line, tok.Column, tok.Len)
	os.Exit(1)
}

// Warn prints a formatted warning message if the corresponding warning is enabled
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if cfg == nil || !cfg.IsWarningEnabled(wt) {
		return
	}
	fmt.Fprintf(Output, "%s:%d:%d: \033[33mwarning:\033[0m ", fileName(tok.FileIndex), tok.Line, tok.Column)
	fmt.Fprintf(Output, format, args...)
	fmt.Fprintf(Output, " [-W%s]\n", cfg.Warnings[wt].Name)
	printErrorLine(Output, tok.FileIndex, tok.Line, tok.Column, tok.Len)
}

// Info prints a progress line, prefixed like the rest of the driver output
func Info(format string, args ...interface{}) {
	fmt.Fprintf(Output, "jmmc: info: "+format+"\n", args...)
}
