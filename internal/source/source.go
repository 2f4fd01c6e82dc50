// Package source defines the typed top-level definitions produced by
// parsing one Huff source file, and the merged Definitions a whole
// compilation unit resolves into after include resolution.
package source

import (
	"github.com/huffc-go/huffc/internal/abi"
	"github.com/huffc-go/huffc/internal/ast"
)

// ConstantDef is a `#define constant NAME = ...` declaration. Value is nil
// when the declaration is `FREE_STORAGE_POINTER()`, in which case the
// constant resolver auto-allocates its value.
type ConstantDef struct {
	Ident string
	Value []byte
}

// TableDef is a `#define table NAME { 0x... }` declaration.
type TableDef struct {
	Ident string
	Data  []byte
}

// FunctionDef is a `#define function NAME(...) view|nonpayable|payable|pure
// returns (...)` declaration.
type FunctionDef struct {
	Ident      string
	Inputs     []abi.Type
	Outputs    []abi.Type
	Mutability string
}

// EventDef is a `#define event NAME(...)` declaration; Args carry the
// Indexed flag parsed from the `indexed` keyword.
type EventDef struct {
	Ident string
	Args  []abi.Type
}

// ErrorDef is a `#define error NAME(...)` declaration.
type ErrorDef struct {
	Ident  string
	Inputs []abi.Type
}

// JumpTableDef is a `#define jumptable[__packed] NAME { a b c }`
// declaration. Huffc parses these for identifier-uniqueness bookkeeping, as
// spec.md's grammar requires, but (matching the original implementation)
// nothing currently consumes their entries — see SPEC_FULL.md §5.
type JumpTableDef struct {
	Ident   string
	Packed  bool
	Entries []string
}

// IncludeDef is a `#include "path"` declaration.
type IncludeDef struct {
	Path string
}

// File is everything one source file's definitions resolve into, before
// include flattening. Order within each slice is declaration order.
type File struct {
	Includes  []IncludeDef
	Macros    []ast.Macro
	Constants []ConstantDef
	Tables    []TableDef
	Functions []FunctionDef
	Events    []EventDef
	Errors    []ErrorDef
	JumpTables []JumpTableDef
}

// Definitions is the flattened, include-resolved stream of definitions for
// one compilation unit (spec.md §6's "flat ordered stream of top-level
// definition nodes").
type Definitions struct {
	Macros     []ast.Macro
	Constants  []ConstantDef
	Tables     []TableDef
	Functions  []FunctionDef
	Events     []EventDef
	Errors     []ErrorDef
	JumpTables []JumpTableDef
}

// Append merges f's definitions onto d in declaration order (includes are
// not part of Definitions: they are consumed by the include resolver before
// this stage).
func (d *Definitions) Append(f File) {
	d.Macros = append(d.Macros, f.Macros...)
	d.Constants = append(d.Constants, f.Constants...)
	d.Tables = append(d.Tables, f.Tables...)
	d.Functions = append(d.Functions, f.Functions...)
	d.Events = append(d.Events, f.Events...)
	d.Errors = append(d.Errors, f.Errors...)
	d.JumpTables = append(d.JumpTables, f.JumpTables...)
}
