// Package abi implements the canonical-signature encoder and the standard
// Ethereum ABI JSON rendering described in spec.md §4.3 and §6.
package abi

import (
	"strconv"
	"strings"

	"github.com/huffc-go/huffc/internal/compileerr"
)

// Type is one node of a parsed function/event/error parameter type tree.
// Base is empty for tuples, otherwise one of "uint256"-style names,
// "bytesN", "string", "address", etc. ArrayDims records, outermost first,
// each "[]" (value -1, dynamic) or "[K]" (value K, K != 0) suffix in source
// order.
type Type struct {
	Name       string // parameter name, "" if unnamed
	Base       string // primitive type name; empty when Components is set
	Components []Type // tuple component types, in source order
	ArrayDims  []int
	Indexed    bool // only meaningful for event arguments
}

func (t Type) isTuple() bool { return t.Components != nil }

func arraySuffix(dims []int) string {
	var b strings.Builder
	for _, d := range dims {
		if d < 0 {
			b.WriteString("[]")
		} else {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(d))
			b.WriteByte(']')
		}
	}
	return b.String()
}

// canonical renders t the way a canonical signature requires: tuples always
// expand their components inline, recursively.
func canonical(t Type) string {
	if t.isTuple() {
		parts := make([]string, len(t.Components))
		for i, c := range t.Components {
			parts[i] = canonical(c)
		}
		return "(" + strings.Join(parts, ",") + ")" + arraySuffix(t.ArrayDims)
	}
	return t.Base + arraySuffix(t.ArrayDims)
}

// CanonicalSignature renders "name(type1,type2,...)" with full recursive
// tuple-component expansion, the preimage hashed for function selectors,
// error selectors, and event topics.
func CanonicalSignature(name string, params []Type) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = canonical(p)
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// NormalizeBase canonicalizes a parsed primitive type name and validates
// width suffixes, matching spec.md §4.3's "uint alone means uint256" /
// "uintN requires N in {8,...,256}" / "bytesN requires N in {1..32}" rules.
func NormalizeBase(base string, width int, hasWidth bool) (string, error) {
	switch base {
	case "uint", "int":
		if !hasWidth {
			return base + "256", nil
		}
		if width%8 != 0 || width < 8 || width > 256 {
			return "", compileerr.New(compileerr.KindParseError, "invalid %sN size %d", base, width)
		}
		return base + strconv.Itoa(width), nil
	case "bytes":
		if !hasWidth {
			return "bytes", nil
		}
		if width < 1 || width > 32 {
			return "", compileerr.New(compileerr.KindParseError, "invalid bytesN size %d", width)
		}
		return "bytes" + strconv.Itoa(width), nil
	default:
		return base, nil
	}
}

// Entry is one standard Ethereum ABI JSON entry. Fields are tagged so
// omitted ones (e.g. StateMutability on an event) do not render.
type Entry struct {
	Type            string  `json:"type"`
	Name            string  `json:"name"`
	Inputs          []Param `json:"inputs,omitempty"`
	Outputs         []Param `json:"outputs,omitempty"`
	StateMutability string  `json:"stateMutability,omitempty"`
	Anonymous       *bool   `json:"anonymous,omitempty"`
}

// Param is one ABI JSON input/output/event-argument descriptor.
type Param struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Components []Param `json:"components,omitempty"`
	Indexed    *bool   `json:"indexed,omitempty"`
}

// abiTypeName renders the ABI JSON "type" field for t: "tuple" (plus array
// suffix) for tuples, the plain base name otherwise — tuples do not expand
// their components inline in ABI JSON, unlike canonical signatures.
func abiTypeName(t Type) string {
	if t.isTuple() {
		return "tuple" + arraySuffix(t.ArrayDims)
	}
	return t.Base + arraySuffix(t.ArrayDims)
}

// ToParam converts a parsed Type into its ABI JSON Param representation,
// recursing into tuple components.
func ToParam(t Type) Param {
	p := Param{Name: t.Name, Type: abiTypeName(t)}
	if t.isTuple() {
		p.Components = make([]Param, len(t.Components))
		for i, c := range t.Components {
			p.Components[i] = ToParam(c)
		}
	}
	return p
}

func toEventParam(t Type) Param {
	p := ToParam(t)
	indexed := t.Indexed
	p.Indexed = &indexed
	return p
}

// Function renders a function ABI entry.
func Function(name string, inputs, outputs []Type, mutability string) Entry {
	return Entry{
		Type:            "function",
		Name:            name,
		Inputs:          toParams(inputs),
		Outputs:         toParams(outputs),
		StateMutability: mutability,
	}
}

// Event renders an event ABI entry; anonymous is always false per spec.md §6.
func Event(name string, args []Type) Entry {
	anon := false
	params := make([]Param, len(args))
	for i, a := range args {
		params[i] = toEventParam(a)
	}
	return Entry{
		Type:      "event",
		Name:      name,
		Inputs:    params,
		Anonymous: &anon,
	}
}

func toParams(types []Type) []Param {
	out := make([]Param, len(types))
	for i, t := range types {
		out[i] = ToParam(t)
	}
	return out
}

// Abi is the full ABI JSON array: functions then events, in declaration
// order, matching parse_to_abi's concatenation.
type Abi []Entry
