// Package report defines the diagnostics produced while compiling a Java-- unit
package report

import "fmt"

type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

type Stage int

const (
	Syntax Stage = iota
	Semantic
	Optimization
	Generation
)

var stageNames = [...]string{
	Syntax:       "syntax",
	Semantic:     "semantic",
	Optimization: "optimization",
	Generation:   "generation",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// Report is a single user-facing diagnostic. Line and Col are 1-based, 0 when unknown.
type Report struct {
	Severity Severity `json:"severity"`
	Stage    Stage    `json:"stage"`
	Line     int      `json:"line"`
	Col      int      `json:"col"`
	Message  string   `json:"message"`
}

func New(stage Stage, line, col int, format string, args ...interface{}) Report {
	return Report{Severity: Error, Stage: stage, Line: line, Col: col, Message: fmt.Sprintf(format, args...)}
}

func (r Report) String() string {
	return fmt.Sprintf("%d:%d: %s: [%s] %s", r.Line, r.Col, r.Severity, r.Stage, r.Message)
}

// Error lets a Report travel as a Go error out of stages that fail as a whole.
func (r *Report) Error() string { return r.String() }

// List is the ordered, append-only sequence of reports shared by the analysis passes.
type List struct {
	reports []Report
}

func NewList() *List { return &List{} }

func (l *List) Add(r Report) { l.reports = append(l.reports, r) }

func (l *List) Addf(stage Stage, line, col int, format string, args ...interface{}) {
	l.Add(New(stage, line, col, format, args...))
}

func (l *List) Len() int { return len(l.reports) }

func (l *List) HasErrors() bool {
	for _, r := range l.reports {
		if r.Severity == Error {
			return true
		}
	}
	return false
}

// Reports returns a copy of the reports in insertion order.
func (l *List) Reports() []Report {
	out := make([]Report, len(l.reports))
	copy(out, l.reports)
	return out
}

// Dedupe drops reports whose rendered text was already seen, keeping the first occurrence.
func (l *List) Dedupe() {
	seen := make(map[string]struct{}, len(l.reports))
	kept := l.reports[:0]
	for _, r := range l.reports {
		key := r.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, r)
	}
	l.reports = kept
}

// InternalError signals a broken contract between passes, never a user mistake.
type InternalError struct {
	Stage Stage
	Msg   string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Msg)
}

// Internal panics with an *InternalError; the pipeline recovers it.
func Internal(stage Stage, format string, args ...interface{}) {
	panic(&InternalError{Stage: stage, Msg: fmt.Sprintf(format, args...)})
}
