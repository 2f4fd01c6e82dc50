// Package compileerr defines the typed error vocabulary shared across the
// huffc compilation pipeline, from parsing through assembly.
package compileerr

import "fmt"

// Kind identifies a class of compilation failure, matching spec.md §7.
type Kind string

const (
	KindLexError                Kind = "LexError"
	KindParseError               Kind = "ParseError"
	KindDuplicateDefinition      Kind = "DuplicateDefinition"
	KindTableMacroCollision      Kind = "TableMacroCollision"
	KindMissingMain              Kind = "MissingMain"
	KindUndefinedMacro           Kind = "UndefinedMacro"
	KindUndefinedConstant        Kind = "UndefinedConstant"
	KindUndefinedTable           Kind = "UndefinedTable"
	KindUndefinedFunctionOrError Kind = "UndefinedFunctionOrError"
	KindUndefinedEvent           Kind = "UndefinedEvent"
	KindCircularMacro            Kind = "CircularMacro"
	KindCircularInclude          Kind = "CircularInclude"
	KindArityMismatch            Kind = "ArityMismatch"
	KindArgumentKind             Kind = "ArgumentKind"
	KindDuplicateLabel           Kind = "DuplicateLabel"
	KindUnknownIdentifier        Kind = "UnknownIdentifier"
	KindPushWidth                Kind = "PushWidth"
	KindInvertedDelta            Kind = "InvertedDelta"
	KindCodeTooLarge             Kind = "CodeTooLarge"
	KindContextError             Kind = "ContextError"
	KindUnknownOverride          Kind = "UnknownOverride"
	KindMalformedOverride        Kind = "MalformedOverride"
)

// Error is a fatal compilation failure tagged with its Kind so callers can
// distinguish failure classes with errors.As without string matching.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error carrying an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}
