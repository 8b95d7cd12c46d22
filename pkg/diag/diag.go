// Package diag defines the single diagnostic type every stage of the
// pipeline raises on fatal error.
package diag

import "fmt"

// Stage names one of the five fatal error taxonomies from the spec.
type Stage int

const (
	Lex Stage = iota
	Parse
	Type
	Generation
	Runtime
)

func (s Stage) String() string {
	switch s {
	case Lex:
		return "LEX_ERROR"
	case Parse:
		return "PARSE_ERROR"
	case Type:
		return "TYPE_ERROR"
	case Generation:
		return "GENERATION_ERROR"
	case Runtime:
		return "RUNTIME_ERROR"
	default:
		return "ERROR"
	}
}

// Location is a position in a source file, or a synthetic one for
// diagnostics raised after source locations are no longer available
// (code generation, runtime).
type Location struct {
	Row      int
	Col      int
	FileName string
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.FileName, l.Row, l.Col)
}

// Diagnostic is the single error type returned by every pipeline stage.
type Diagnostic struct {
	Stage    Stage
	Location Location
	Message  string
}

func New(stage Stage, loc Location, format string, args ...any) *Diagnostic {
	return &Diagnostic{Stage: stage, Location: loc, Message: fmt.Sprintf(format, args...)}
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Stage, d.Message)
}
