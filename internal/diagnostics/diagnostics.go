package diagnostics

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies a class of failure. Codes starting with T come from the
// transformation core, D from AST decoding and C from configuration.
type Code string

const (
	UnsupportedNodeKind       Code = "T001"
	TemplateRenderFailure     Code = "T002"
	IllegalOperator           Code = "T003"
	MalformedExceptionBinding Code = "T004"
	MisplacedStatement        Code = "T005"
	DuplicateFunction         Code = "T006"

	MalformedAST    Code = "D001"
	UnknownNodeType Code = "D002"

	InvalidConfig Code = "C001"
)

var codeNames = map[Code]string{
	UnsupportedNodeKind:       "UnsupportedNodeKind",
	TemplateRenderFailure:     "TemplateRenderFailure",
	IllegalOperator:           "IllegalOperator",
	MalformedExceptionBinding: "MalformedExceptionBinding",
	MisplacedStatement:        "MisplacedStatement",
	DuplicateFunction:         "DuplicateFunction",
	MalformedAST:              "MalformedAST",
	UnknownNodeType:           "UnknownNodeType",
	InvalidConfig:             "InvalidConfig",
}

// Name returns the symbolic name of the code.
func (c Code) Name() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return string(c)
}

// Span locates a diagnostic in a source file. Lines and columns are 1-based;
// a zero Line means the position is unknown.
type Span struct {
	File      string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

func (s Span) String() string {
	if s.Line == 0 {
		if s.File == "" {
			return "<unknown>"
		}
		return s.File
	}
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// Error is a fatal diagnostic. Every failure of the transformation core is
// reported as an *Error so drivers can show the offending source text next
// to the generated fragment.
type Error struct {
	Code       Code
	Span       Span
	Message    string
	SourceText string
	// Fragment holds the generated text involved, typically a resolved
	// template that failed to parse.
	Fragment string
	// Hint is an optional suggestion, e.g. the closest known node type.
	Hint string
	Err  error
}

func NewError(code Code, span Span, format string, args ...any) *Error {
	return &Error{Code: code, Span: span, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around a cause.
func Wrap(code Code, span Span, err error, format string, args ...any) *Error {
	e := NewError(code, span, format, args...)
	e.Err = err
	return e
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s at %s: %s", e.Code, e.Code.Name(), e.Span, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	if e.Hint != "" {
		fmt.Fprintf(&sb, " (%s)", e.Hint)
	}
	if e.SourceText != "" {
		fmt.Fprintf(&sb, "\n  source: %s", oneLine(e.SourceText))
	}
	if e.Fragment != "" {
		fmt.Fprintf(&sb, "\n  generated:\n%s", indent(e.Fragment, "    "))
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code so callers can test with a bare value:
// errors.Is(err, &diagnostics.Error{Code: diagnostics.IllegalOperator}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

func (e *Error) WithSource(text string) *Error {
	e.SourceText = text
	return e
}

func (e *Error) WithFragment(text string) *Error {
	e.Fragment = text
	return e
}

func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// Attach fills in the location and source text of err when it is an *Error
// that does not carry them yet. Inner handlers report where a template broke;
// outer handlers know which source node was being transformed.
func Attach(err error, span Span, sourceText string) error {
	var de *Error
	if !errors.As(err, &de) {
		return err
	}
	if de.Span.Line == 0 {
		file := de.Span.File
		de.Span = span
		if de.Span.File == "" {
			de.Span.File = file
		}
	}
	if de.SourceText == "" {
		de.SourceText = sourceText
	}
	return err
}

// HasCode reports whether err is, or wraps, an *Error with the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var de *Error
	if !errors.As(err, &de) {
		return "", false
	}
	return de.Code, true
}

func oneLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
