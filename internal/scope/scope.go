// Package scope builds the immutable GlobalScope from a compilation unit's
// flattened definitions, resolves constants (spec.md §4.4), and wraps the
// per-compilation mutable state (referenced tables, constructor context)
// the macro expander and driver thread through expansion.
package scope

import (
	"strings"

	"github.com/holiman/uint256"

	"github.com/huffc-go/huffc/internal/ast"
	"github.com/huffc-go/huffc/internal/compileerr"
	"github.com/huffc-go/huffc/internal/contextid"
	"github.com/huffc-go/huffc/internal/opcode"
	"github.com/huffc-go/huffc/internal/source"
)

// CodeTable is a named blob of raw bytes, allocated an ObjectId at
// build-time; only tables actually referenced by __tablestart/__tablesize
// are emitted.
type CodeTable struct {
	Data  []byte
	ObjID contextid.ObjectID
}

// GlobalScope holds the immutable, per-category identifier maps built once
// from the flattened definition stream.
type GlobalScope struct {
	Macros     map[string]ast.Macro
	Constants  map[string]opcode.Op
	Tables     map[string]CodeTable
	Functions  map[string]source.FunctionDef
	Events     map[string]source.EventDef
	Errors     map[string]source.ErrorDef
	JumpTables map[string]source.JumpTableDef
}

// Override is a parsed `--constant NAME=0xHEX` CLI argument.
type Override struct {
	Name string
	Data []byte
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// ParseOverride parses one `--constant` flag value per spec.md §6:
// "NAME=0xHEX", hex 1..64 digits, NAME uppercased. Uses uint256 to decode
// the hex payload into its minimal big-endian byte representation, the same
// representation a literal-valued constant declaration would produce.
func ParseOverride(raw string) (Override, error) {
	eq := strings.IndexByte(raw, '=')
	if eq < 0 {
		return Override{}, compileerr.New(compileerr.KindMalformedOverride, "override %q: expected NAME=0xHEX", raw)
	}
	name := strings.ToUpper(raw[:eq])
	val := raw[eq+1:]
	val = strings.TrimPrefix(val, "0x")
	val = strings.TrimPrefix(val, "0X")
	if len(val) == 0 || len(val) > 64 {
		return Override{}, compileerr.New(compileerr.KindMalformedOverride, "override %q: hex payload must be 1..64 digits", raw)
	}
	for i := 0; i < len(val); i++ {
		if !isHexDigit(val[i]) {
			return Override{}, compileerr.New(compileerr.KindMalformedOverride, "override %q: non-hex digit %q", raw, val[i])
		}
	}
	u, err := uint256.FromHex("0x" + val)
	if err != nil {
		return Override{}, compileerr.Wrap(compileerr.KindMalformedOverride, err, "override %q: malformed hex", raw)
	}
	data := u.Bytes()
	if len(data) == 0 {
		data = []byte{0x00}
	}
	return Override{Name: name, Data: data}, nil
}

// ResolveConstants implements spec.md §4.4: walk declarations in order,
// auto-allocating FREE_STORAGE_POINTER() entries sequentially from zero,
// then apply CLI overrides, which must each name an existing constant.
func ResolveConstants(defs []source.ConstantDef, overrides []Override) (map[string]opcode.Op, error) {
	out := make(map[string]opcode.Op, len(defs))
	var nextPointer uint64
	for _, c := range defs {
		if _, dup := out[c.Ident]; dup {
			return nil, compileerr.New(compileerr.KindDuplicateDefinition, "duplicate constant %q", c.Ident)
		}
		if c.Value == nil {
			width := opcode.NeededBytes(nextPointer)
			data := make([]byte, width)
			v := nextPointer
			for i := width - 1; i >= 0; i-- {
				data[i] = byte(v)
				v >>= 8
			}
			op, err := opcode.NewPush(data, 0)
			if err != nil {
				return nil, err
			}
			out[c.Ident] = op
			nextPointer++
			continue
		}
		op, err := opcode.NewPush(c.Value, 0)
		if err != nil {
			return nil, err
		}
		out[c.Ident] = op
	}
	for _, ov := range overrides {
		if _, exists := out[ov.Name]; !exists {
			return nil, compileerr.New(compileerr.KindUnknownOverride, "override names unknown constant %q", ov.Name)
		}
		op, err := opcode.NewPush(ov.Data, 0)
		if err != nil {
			return nil, err
		}
		out[ov.Name] = op
	}
	return out, nil
}

// Build constructs the immutable GlobalScope from a flattened compilation
// unit, enforcing per-category identifier uniqueness and the table/macro
// non-collision rule (spec.md §3). tableCtx allocates each code table's
// ObjectId; it must not be the same tracker used for macro expansion
// contexts, only a sibling allocating from the same root ctx_id prefix, so
// table marks can never collide with label marks.
func Build(defs source.Definitions, overrides []Override, tableCtx *contextid.Tracker) (*GlobalScope, error) {
	g := &GlobalScope{
		Macros:     make(map[string]ast.Macro, len(defs.Macros)),
		Tables:     make(map[string]CodeTable, len(defs.Tables)),
		Functions:  make(map[string]source.FunctionDef, len(defs.Functions)),
		Events:     make(map[string]source.EventDef, len(defs.Events)),
		Errors:     make(map[string]source.ErrorDef, len(defs.Errors)),
		JumpTables: make(map[string]source.JumpTableDef, len(defs.JumpTables)),
	}

	for _, m := range defs.Macros {
		if _, dup := g.Macros[m.Ident]; dup {
			return nil, compileerr.New(compileerr.KindDuplicateDefinition, "duplicate macro %q", m.Ident)
		}
		g.Macros[m.Ident] = m
	}
	for _, t := range defs.Tables {
		if _, dup := g.Tables[t.Ident]; dup {
			return nil, compileerr.New(compileerr.KindDuplicateDefinition, "duplicate table %q", t.Ident)
		}
		if _, collide := g.Macros[t.Ident]; collide {
			return nil, compileerr.New(compileerr.KindTableMacroCollision, "%q names both a table and a macro", t.Ident)
		}
		g.Tables[t.Ident] = CodeTable{Data: t.Data, ObjID: tableCtx.NextObjectID()}
	}
	for _, f := range defs.Functions {
		if _, dup := g.Functions[f.Ident]; dup {
			return nil, compileerr.New(compileerr.KindDuplicateDefinition, "duplicate function %q", f.Ident)
		}
		g.Functions[f.Ident] = f
	}
	for _, e := range defs.Events {
		if _, dup := g.Events[e.Ident]; dup {
			return nil, compileerr.New(compileerr.KindDuplicateDefinition, "duplicate event %q", e.Ident)
		}
		g.Events[e.Ident] = e
	}
	for _, e := range defs.Errors {
		if _, dup := g.Errors[e.Ident]; dup {
			return nil, compileerr.New(compileerr.KindDuplicateDefinition, "duplicate error %q", e.Ident)
		}
		g.Errors[e.Ident] = e
	}
	for _, j := range defs.JumpTables {
		if _, dup := g.JumpTables[j.Ident]; dup {
			return nil, compileerr.New(compileerr.KindDuplicateDefinition, "duplicate jumptable %q", j.Ident)
		}
		g.JumpTables[j.Ident] = j
	}

	constants, err := ResolveConstants(defs.Constants, overrides)
	if err != nil {
		return nil, err
	}
	g.Constants = constants
	return g, nil
}

// ConstructorData marks a Scope as built for constructor expansion,
// enabling __RUNTIME_START/__RUNTIME_SIZE/__RETURN_RUNTIME.
type ConstructorData struct {
	RuntimeObjID contextid.ObjectID
}

// Scope is the per-compilation wrapper threaded through macro expansion:
// the immutable GlobalScope plus the one mutable field in the whole
// pipeline, ReferencedTables (spec.md §5).
type Scope struct {
	Global           *GlobalScope
	ReferencedTables map[string]bool
	ForConstructor   *ConstructorData
}

// New builds a root Scope over g with no tables referenced yet and no
// constructor context.
func New(g *GlobalScope) *Scope {
	return &Scope{Global: g, ReferencedTables: map[string]bool{}}
}

// WithConstructor returns a Scope that shares this one's GlobalScope and
// ReferencedTables set but carries constructor context, for expanding
// CONSTRUCTOR.
func (s *Scope) WithConstructor(cd *ConstructorData) *Scope {
	return &Scope{Global: s.Global, ReferencedTables: s.ReferencedTables, ForConstructor: cd}
}

// ReferencedTableIdents returns the names of tables marked referenced, in
// the order they appear in defs.Tables (declaration order), matching
// spec.md §5's "tables are appended in declaration order, not reference
// order."
func ReferencedTableIdents(s *Scope, declOrder []string) []string {
	var out []string
	for _, name := range declOrder {
		if s.ReferencedTables[name] {
			out = append(out, name)
		}
	}
	return out
}
