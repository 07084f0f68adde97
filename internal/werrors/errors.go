// Package werrors implements the error taxonomy of spec §7: a small, fixed
// set of error Kinds with diagnostic context, instead of ad hoc error
// strings or panics. Only Critical is ever allowed to propagate into a
// fatal shutdown; every other Kind is meant to be reported and the
// pipeline to continue (spec §7, "Propagation policy").
package werrors

import "fmt"

// Kind classifies an error per spec §7.
type Kind string

const (
	// Configuration errors are fatal before startup: invalid options,
	// unparseable signals/durations, conflicting flags.
	Configuration Kind = "configuration"
	// Watcher errors come from the filesystem backend; non-fatal unless
	// promoted to Critical when the backend collapses entirely.
	Watcher Kind = "watcher"
	// Source errors come from the signal or keyboard sources.
	Source Kind = "source"
	// Filter errors come from user program filter evaluation.
	Filter Kind = "filter"
	// Process errors come from spawn failures (missing executable,
	// permission denied).
	Process Kind = "process"
	// Critical errors are broken orchestration invariants; they trigger
	// shutdown with a non-zero exit.
	Critical Kind = "critical"
)

// SourcePointer locates a byte offset within a line of source text, used
// to render the caret-style diagnostic for Configuration errors (e.g. a bad
// duration inside an argfile line).
type SourcePointer struct {
	File   string
	Line   int
	Column int
	Text   string // the offending line, for rendering the caret under it
}

// Error is the taxonomy-tagged error type. It wraps an underlying cause and
// carries a Kind plus optional diagnostic context and remediation hint.
type Error struct {
	Kind        Kind
	Message     string
	Cause       error
	Pointer     *SourcePointer
	Remediation string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given Kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given Kind around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithPointer attaches a SourcePointer and returns the same *Error for
// chaining.
func (e *Error) WithPointer(p SourcePointer) *Error {
	e.Pointer = &p
	return e
}

// WithRemediation attaches a remediation hint and returns the same *Error.
func (e *Error) WithRemediation(hint string) *Error {
	e.Remediation = hint
	return e
}

// Render produces a multi-line, caret-style diagnostic for Configuration
// errors with an attached SourcePointer, matching spec §7's "reported with
// diagnostic context and caret-style source pointer".
func (e *Error) Render() string {
	if e.Pointer == nil {
		s := e.Error()
		if e.Remediation != "" {
			s += "\n  help: " + e.Remediation
		}
		return s
	}
	p := e.Pointer
	caret := ""
	for i := 0; i < p.Column; i++ {
		caret += " "
	}
	caret += "^"
	loc := p.File
	if loc == "" {
		loc = "<config>"
	}
	out := fmt.Sprintf("%s\n  --> %s:%d:%d\n  %s\n  %s", e.Error(), loc, p.Line, p.Column+1, p.Text, caret)
	if e.Remediation != "" {
		out += "\n  help: " + e.Remediation
	}
	return out
}

// IsCritical reports whether err is, or wraps, a Critical Error.
func IsCritical(err error) bool {
	var e *Error
	for err != nil {
		if asErr, ok := err.(*Error); ok {
			e = asErr
			if e.Kind == Critical {
				return true
			}
			err = e.Cause
			continue
		}
		break
	}
	return false
}
