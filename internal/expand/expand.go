// Package expand implements macro expansion: recursive inlining with
// hygienic label scoping, argument substitution, cycle detection, and
// built-in dispatch (spec.md §4.2).
package expand

import (
	"github.com/huffc-go/huffc/internal/ast"
	"github.com/huffc-go/huffc/internal/compileerr"
	"github.com/huffc-go/huffc/internal/contextid"
	"github.com/huffc-go/huffc/internal/opcode"
	"github.com/huffc-go/huffc/internal/scope"
)

// Labels maps an identifier visible in the current expansion to the MarkId
// it resolves to.
type Labels map[string]contextid.MarkID

func cloneLabels(l Labels) Labels {
	out := make(Labels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// globalVisible filters a label map down to the entries a child invocation
// may see: only identifiers with the "global_" prefix cross a macro
// boundary (spec.md §4.2); everything else is local to its defining macro.
func globalVisible(l Labels) Labels {
	out := make(Labels)
	for k, v := range l {
		if hasGlobalPrefix(k) {
			out[k] = v
		}
	}
	return out
}

func hasGlobalPrefix(ident string) bool {
	const prefix = "global_"
	return len(ident) >= len(prefix) && ident[:len(prefix)] == prefix
}

// Expand inlines macroName's body into a flat sequence of Asm steps,
// substituting args for the macro's formal parameters and threading
// inherited through label references that cross into nested invocations.
func Expand(macroName string, sc *scope.Scope, args []ast.MacroArg, inherited Labels, ctx *contextid.Tracker, trace []string) ([]ast.Asm, error) {
	macro, ok := sc.Global.Macros[macroName]
	if !ok {
		return nil, compileerr.New(compileerr.KindUndefinedMacro, "undefined macro %q", macroName)
	}
	if len(args) != len(macro.Params) {
		return nil, compileerr.New(compileerr.KindArityMismatch,
			"macro %q takes %d argument(s), got %d", macroName, len(macro.Params), len(args))
	}
	for _, t := range trace {
		if t == macroName {
			return nil, compileerr.New(compileerr.KindCircularMacro, "macro %q recurses (trace: %v)", macroName, trace)
		}
	}
	newTrace := append(append([]string(nil), trace...), macroName)

	params := make(map[string]ast.MacroArg, len(macro.Params))
	for i, p := range macro.Params {
		params[p] = args[i]
	}

	local := cloneLabels(inherited)
	for _, el := range macro.Body {
		ld, ok := el.(ast.LabelDef)
		if !ok {
			continue
		}
		mid := contextid.MarkID{Object: ctx.NextObjectID(), Purpose: contextid.Label}
		if existing, bound := local[ld.Ident]; bound && !existing.DifferentContext(mid) {
			return nil, compileerr.New(compileerr.KindDuplicateLabel, "duplicate label %q", ld.Ident)
		}
		local[ld.Ident] = mid
	}

	var out []ast.Asm
	for _, el := range macro.Body {
		switch v := el.(type) {
		case ast.Op:
			out = append(out, ast.AsmOp{Op: v.Op})

		case ast.LabelDef:
			mid := local[v.Ident]
			out = append(out, ast.AsmMark{Mark: mid}, ast.AsmOp{Op: opcode.Op{Code: opcode.JUMPDEST}})

		case ast.GeneralRef:
			if op, ok := opcode.Lookup(v.Ident); ok {
				out = append(out, ast.AsmOp{Op: op})
				continue
			}
			if mid, ok := local[v.Ident]; ok {
				out = append(out, ast.MarkRef(mid))
				continue
			}
			return nil, compileerr.New(compileerr.KindUnknownIdentifier, "unknown identifier %q", v.Ident)

		case ast.MacroParam:
			arg, ok := params[v.Ident]
			if !ok {
				return nil, compileerr.New(compileerr.KindUnknownIdentifier, "unbound macro parameter %q", v.Ident)
			}
			out = append(out, argToAsm(arg))

		case ast.ConstRef:
			op, ok := sc.Global.Constants[v.Ident]
			if !ok {
				return nil, compileerr.New(compileerr.KindUndefinedConstant, "undefined constant %q", v.Ident)
			}
			out = append(out, ast.AsmOp{Op: op})

		case ast.Invocation:
			steps, err := expandInvocation(v, sc, local, params, ctx, newTrace)
			if err != nil {
				return nil, err
			}
			out = append(out, steps...)
		}
	}
	return out, nil
}

func argToAsm(a ast.MacroArg) ast.Asm {
	switch v := a.(type) {
	case ast.ArgOp:
		return ast.AsmOp{Op: v.Op}
	case ast.ArgMarkRef:
		return ast.MarkRef(v.Mark)
	}
	panic("unreachable: exhaustive MacroArg switch")
}

// resolveValueArg resolves one invocation call-argument element (Op,
// GeneralRef, or MacroParam per spec.md §3) to its run-time MacroArg value,
// used for ordinary (non-builtin) invocations.
func resolveValueArg(el ast.MacroElement, local Labels, params map[string]ast.MacroArg) (ast.MacroArg, error) {
	switch v := el.(type) {
	case ast.Op:
		return ast.ArgOp{Op: v.Op}, nil
	case ast.GeneralRef:
		if op, ok := opcode.Lookup(v.Ident); ok {
			return ast.ArgOp{Op: op}, nil
		}
		if mid, ok := local[v.Ident]; ok {
			return ast.ArgMarkRef{Mark: mid}, nil
		}
		return nil, compileerr.New(compileerr.KindUnknownIdentifier, "unknown identifier %q", v.Ident)
	case ast.MacroParam:
		arg, ok := params[v.Ident]
		if !ok {
			return nil, compileerr.New(compileerr.KindUnknownIdentifier, "unbound macro parameter %q", v.Ident)
		}
		return arg, nil
	default:
		return nil, compileerr.New(compileerr.KindArgumentKind, "invalid invocation argument")
	}
}

func expandInvocation(inv ast.Invocation, sc *scope.Scope, local Labels, params map[string]ast.MacroArg, ctx *contextid.Tracker, trace []string) ([]ast.Asm, error) {
	if handler, ok := builtins[inv.Ident]; ok {
		return handler(sc, inv.Args, params)
	}

	args := make([]ast.MacroArg, len(inv.Args))
	for i, a := range inv.Args {
		v, err := resolveValueArg(a, local, params)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return Expand(inv.Ident, sc, args, globalVisible(local), ctx.NextSubContext(), trace)
}
