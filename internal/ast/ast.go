// Package ast defines the macro-level AST and the lower-level assembly-step
// IR that macro expansion produces, per spec.md §3.
package ast

import (
	"github.com/huffc-go/huffc/internal/contextid"
	"github.com/huffc-go/huffc/internal/opcode"
)

// Identifier is a non-empty name that is not the name of any opcode; the
// opcode-name check is enforced where identifiers are minted (the parser),
// not by this type itself.
type Identifier = string

// MacroElement is one element of a macro body: a literal opcode, a label
// declaration, an identifier use, a parameter substitution site, a constant
// reference, or a nested invocation.
type MacroElement interface {
	isMacroElement()
}

// Op is a literal opcode appearing directly in a macro body (from a
// mnemonic or a hex/pushN literal already compiled to a minimum-width push).
type Op struct{ Op opcode.Op }

// LabelDef declares a jump destination within the enclosing macro body.
type LabelDef struct{ Ident Identifier }

// GeneralRef is a bare identifier use: resolved to an opcode, a label in
// scope, or (as an invocation argument) passed through unresolved.
type GeneralRef struct{ Ident Identifier }

// MacroParam is a `<name>` substitution site referencing a formal parameter
// of the enclosing macro.
type MacroParam struct{ Ident Identifier }

// ConstRef is a `[NAME]` reference to a constant.
type ConstRef struct{ Ident Identifier }

// Invocation is a call to another macro or a built-in.
type Invocation struct {
	Ident Identifier
	Args  []MacroElement // each is Op, GeneralRef, or MacroParam
}

func (Op) isMacroElement()         {}
func (LabelDef) isMacroElement()   {}
func (GeneralRef) isMacroElement() {}
func (MacroParam) isMacroElement() {}
func (ConstRef) isMacroElement()   {}
func (Invocation) isMacroElement() {}

// Macro is a named, parameterised sequence of macro elements.
type Macro struct {
	Ident  Identifier
	Params []Identifier
	Body   []MacroElement
}

// MacroArg is the representable run-time value of a macro invocation
// argument after upstream resolution: either a literal opcode or a
// reference to a mark (a resolved label).
type MacroArg interface {
	isMacroArg()
}

// ArgOp wraps a resolved opcode passed as a macro argument.
type ArgOp struct{ Op opcode.Op }

// ArgMarkRef wraps a resolved label reference passed as a macro argument.
type ArgMarkRef struct{ Mark contextid.MarkID }

func (ArgOp) isMacroArg()      {}
func (ArgMarkRef) isMacroArg() {}

// Asm is one assembly step produced by macro expansion.
type Asm interface {
	isAsm()
}

// AsmOp emits 1 + len(immediate) bytes.
type AsmOp struct{ Op opcode.Op }

// AsmMark emits zero bytes and records the current offset under MarkID at
// assembly time.
type AsmMark struct{ Mark contextid.MarkID }

// AsmMarkRef reserves a PUSH of the mark's absolute offset.
type AsmMarkRef struct{ Mark contextid.MarkID }

// AsmMarkDeltaRef reserves a PUSH of (offset(End) - offset(Start)); Start
// must precede End in layout order.
type AsmMarkDeltaRef struct {
	Start contextid.MarkID
	End   contextid.MarkID
}

// AsmRaw is a literal byte blob (code-table contents, embedded runtime).
type AsmRaw struct{ Bytes []byte }

func (AsmOp) isAsm()            {}
func (AsmMark) isAsm()          {}
func (AsmMarkRef) isAsm()       {}
func (AsmMarkDeltaRef) isAsm()  {}
func (AsmRaw) isAsm()           {}

// MarkRef builds an AsmMarkRef for the given MarkID; a small convenience
// used throughout the built-in handlers.
func MarkRef(id contextid.MarkID) AsmMarkRef { return AsmMarkRef{Mark: id} }

// SizeMarkRef builds the MarkDeltaRef between an object's Start and End
// marks, the standard "__tablesize"/"__RUNTIME_SIZE" shape.
func SizeMarkRef(obj contextid.ObjectID) AsmMarkDeltaRef {
	return AsmMarkDeltaRef{Start: contextid.StartOf(obj), End: contextid.EndOf(obj)}
}
