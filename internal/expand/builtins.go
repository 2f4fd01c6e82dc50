package expand

import (
	"github.com/huffc-go/huffc/internal/abi"
	"github.com/huffc-go/huffc/internal/ast"
	"github.com/huffc-go/huffc/internal/compileerr"
	"github.com/huffc-go/huffc/internal/contextid"
	"github.com/huffc-go/huffc/internal/keccak"
	"github.com/huffc-go/huffc/internal/opcode"
	"github.com/huffc-go/huffc/internal/scope"
)

type builtinFn func(sc *scope.Scope, args []ast.MacroElement, params map[string]ast.MacroArg) ([]ast.Asm, error)

var builtins = map[string]builtinFn{
	"__tablestart":     biTableStart,
	"__tablesize":      biTableSize,
	"__FUNC_SIG":       biFuncSig,
	"__EVENT_HASH":     biEventHash,
	"__RUNTIME_START":  biRuntimeStart,
	"__RUNTIME_SIZE":   biRuntimeSize,
	"__RETURN_RUNTIME": biReturnRuntime,
	"__codesize":       biCodesize,
}

func checkArity(name string, args []ast.MacroElement, want int) error {
	if len(args) != want {
		return compileerr.New(compileerr.KindArityMismatch, "%s takes %d argument(s), got %d", name, want, len(args))
	}
	return nil
}

// identArg extracts the raw identifier text of a GeneralRef argument — the
// only valid argument shape for the name-resolving built-ins, since a table,
// function, or event name is a compile-time name, never a runtime value
// reachable through a macro parameter.
func identArg(name string, el ast.MacroElement) (string, error) {
	ref, ok := el.(ast.GeneralRef)
	if !ok {
		return "", compileerr.New(compileerr.KindArgumentKind, "%s expects a bare identifier argument", name)
	}
	return ref.Ident, nil
}

func biTableStart(sc *scope.Scope, args []ast.MacroElement, _ map[string]ast.MacroArg) ([]ast.Asm, error) {
	if err := checkArity("__tablestart", args, 1); err != nil {
		return nil, err
	}
	name, err := identArg("__tablestart", args[0])
	if err != nil {
		return nil, err
	}
	table, ok := sc.Global.Tables[name]
	if !ok {
		return nil, compileerr.New(compileerr.KindUndefinedTable, "undefined table %q", name)
	}
	sc.ReferencedTables[name] = true
	return []ast.Asm{ast.MarkRef(contextid.StartOf(table.ObjID))}, nil
}

func biTableSize(sc *scope.Scope, args []ast.MacroElement, _ map[string]ast.MacroArg) ([]ast.Asm, error) {
	if err := checkArity("__tablesize", args, 1); err != nil {
		return nil, err
	}
	name, err := identArg("__tablesize", args[0])
	if err != nil {
		return nil, err
	}
	table, ok := sc.Global.Tables[name]
	if !ok {
		return nil, compileerr.New(compileerr.KindUndefinedTable, "undefined table %q", name)
	}
	sc.ReferencedTables[name] = true
	return []ast.Asm{ast.SizeMarkRef(table.ObjID)}, nil
}

func biFuncSig(sc *scope.Scope, args []ast.MacroElement, _ map[string]ast.MacroArg) ([]ast.Asm, error) {
	if err := checkArity("__FUNC_SIG", args, 1); err != nil {
		return nil, err
	}
	name, err := identArg("__FUNC_SIG", args[0])
	if err != nil {
		return nil, err
	}
	var sig string
	if f, ok := sc.Global.Functions[name]; ok {
		sig = abi.CanonicalSignature(name, f.Inputs)
	} else if e, ok := sc.Global.Errors[name]; ok {
		sig = abi.CanonicalSignature(name, e.Inputs)
	} else {
		return nil, compileerr.New(compileerr.KindUndefinedFunctionOrError, "undefined function or error %q", name)
	}
	selector := keccak.Selector([]byte(sig))
	op, err := opcode.NewPush(selector[:], 4)
	if err != nil {
		return nil, err
	}
	return []ast.Asm{ast.AsmOp{Op: op}}, nil
}

func biEventHash(sc *scope.Scope, args []ast.MacroElement, _ map[string]ast.MacroArg) ([]ast.Asm, error) {
	if err := checkArity("__EVENT_HASH", args, 1); err != nil {
		return nil, err
	}
	name, err := identArg("__EVENT_HASH", args[0])
	if err != nil {
		return nil, err
	}
	ev, ok := sc.Global.Events[name]
	if !ok {
		return nil, compileerr.New(compileerr.KindUndefinedEvent, "undefined event %q", name)
	}
	sig := abi.CanonicalSignature(name, ev.Args)
	digest := keccak.Hash256([]byte(sig))
	op, err := opcode.NewPush(digest[:], 32)
	if err != nil {
		return nil, err
	}
	return []ast.Asm{ast.AsmOp{Op: op}}, nil
}

func requireConstructor(name string, sc *scope.Scope) (*scope.ConstructorData, error) {
	if sc.ForConstructor == nil {
		return nil, compileerr.New(compileerr.KindContextError, "%s used outside CONSTRUCTOR", name)
	}
	return sc.ForConstructor, nil
}

func biRuntimeStart(sc *scope.Scope, args []ast.MacroElement, _ map[string]ast.MacroArg) ([]ast.Asm, error) {
	if err := checkArity("__RUNTIME_START", args, 0); err != nil {
		return nil, err
	}
	cd, err := requireConstructor("__RUNTIME_START", sc)
	if err != nil {
		return nil, err
	}
	return []ast.Asm{ast.MarkRef(contextid.StartOf(cd.RuntimeObjID))}, nil
}

func biRuntimeSize(sc *scope.Scope, args []ast.MacroElement, _ map[string]ast.MacroArg) ([]ast.Asm, error) {
	if err := checkArity("__RUNTIME_SIZE", args, 0); err != nil {
		return nil, err
	}
	cd, err := requireConstructor("__RUNTIME_SIZE", sc)
	if err != nil {
		return nil, err
	}
	return []ast.Asm{ast.SizeMarkRef(cd.RuntimeObjID)}, nil
}

// resolveOpArg resolves a built-in argument typed strictly as `Op` (spec.md
// §4.3): a literal opcode, an opcode mnemonic, or a macro parameter bound to
// one — never a label reference.
func resolveOpArg(name string, el ast.MacroElement, params map[string]ast.MacroArg) (opcode.Op, error) {
	switch v := el.(type) {
	case ast.Op:
		return v.Op, nil
	case ast.GeneralRef:
		if op, ok := opcode.Lookup(v.Ident); ok {
			return op, nil
		}
		return opcode.Op{}, compileerr.New(compileerr.KindArgumentKind, "%s expects an Op argument, got label reference %q", name, v.Ident)
	case ast.MacroParam:
		arg, ok := params[v.Ident]
		if !ok {
			return opcode.Op{}, compileerr.New(compileerr.KindUnknownIdentifier, "unbound macro parameter %q", v.Ident)
		}
		argOp, ok := arg.(ast.ArgOp)
		if !ok {
			return opcode.Op{}, compileerr.New(compileerr.KindArgumentKind, "%s expects an Op argument", name)
		}
		return argOp.Op, nil
	default:
		return opcode.Op{}, compileerr.New(compileerr.KindArgumentKind, "%s expects an Op argument", name)
	}
}

func biReturnRuntime(sc *scope.Scope, args []ast.MacroElement, params map[string]ast.MacroArg) ([]ast.Asm, error) {
	if err := checkArity("__RETURN_RUNTIME", args, 1); err != nil {
		return nil, err
	}
	cd, err := requireConstructor("__RETURN_RUNTIME", sc)
	if err != nil {
		return nil, err
	}
	offset, err := resolveOpArg("__RETURN_RUNTIME", args[0], params)
	if err != nil {
		return nil, err
	}
	offsetStep := ast.AsmOp{Op: offset}
	return []ast.Asm{
		ast.SizeMarkRef(cd.RuntimeObjID),
		ast.AsmOp{Op: opcode.Op{Code: opcode.DUP1}},
		ast.MarkRef(contextid.StartOf(cd.RuntimeObjID)),
		offsetStep,
		ast.AsmOp{Op: opcode.Op{Code: opcode.CODECOPY}},
		offsetStep,
		ast.AsmOp{Op: opcode.Op{Code: opcode.RETURN}},
	}, nil
}

func biCodesize(_ *scope.Scope, _ []ast.MacroElement, _ map[string]ast.MacroArg) ([]ast.Asm, error) {
	return nil, compileerr.New(compileerr.KindContextError, "__codesize is not implemented")
}
