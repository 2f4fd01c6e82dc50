// Package driver orchestrates one full compilation: build the global scope,
// expand MAIN and (optionally) CONSTRUCTOR, assemble both objects, and
// render the ABI (spec.md §4.6).
package driver

import (
	"github.com/huffc-go/huffc/internal/abi"
	"github.com/huffc-go/huffc/internal/assemble"
	"github.com/huffc-go/huffc/internal/ast"
	"github.com/huffc-go/huffc/internal/compileerr"
	"github.com/huffc-go/huffc/internal/contextid"
	"github.com/huffc-go/huffc/internal/expand"
	"github.com/huffc-go/huffc/internal/opcode"
	"github.com/huffc-go/huffc/internal/scope"
	"github.com/huffc-go/huffc/internal/source"
)

// Options carries compilation flags external to the source text itself.
type Options struct {
	AvoidPush0 bool
}

// Result is the full output of one compilation.
type Result struct {
	Runtime []byte
	Deploy  []byte
	ABI     abi.Abi
}

const mainMacro = "MAIN"
const constructorMacro = "CONSTRUCTOR"

// Compile runs the nine steps of spec.md §4.6 against an already
// include-flattened definition stream.
func Compile(defs source.Definitions, overrides []scope.Override, opts Options) (*Result, error) {
	root := contextid.NewTracker(nil)

	gs, err := scope.Build(defs, overrides, root)
	if err != nil {
		return nil, err
	}
	if _, ok := gs.Macros[mainMacro]; !ok {
		return nil, compileerr.New(compileerr.KindMissingMain, "no MAIN macro defined")
	}

	tableNames := make([]string, len(defs.Tables))
	for i, t := range defs.Tables {
		tableNames[i] = t.Ident
	}

	mainScope := scope.New(gs)
	mainCtx := root.NextSubContext()
	runtimeSteps, err := expand.Expand(mainMacro, mainScope, nil, expand.Labels{}, mainCtx, nil)
	if err != nil {
		return nil, err
	}
	runtimeSteps = appendReferencedTables(runtimeSteps, gs, mainScope, tableNames)

	runtimeBytes, err := assemble.Assemble(runtimeSteps)
	if err != nil {
		return nil, err
	}

	runtimeObjID := root.NextObjectID()

	var deployBytes []byte
	if _, hasCtor := gs.Macros[constructorMacro]; hasCtor {
		ctorScope := scope.New(gs).WithConstructor(&scope.ConstructorData{RuntimeObjID: runtimeObjID})
		ctorCtx := root.NextSubContext()
		ctorSteps, err := expand.Expand(constructorMacro, ctorScope, nil, expand.Labels{}, ctorCtx, nil)
		if err != nil {
			return nil, err
		}
		ctorSteps = appendReferencedTables(ctorSteps, gs, ctorScope, tableNames)
		ctorSteps = append(ctorSteps,
			ast.AsmMark{Mark: contextid.StartOf(runtimeObjID)},
			ast.AsmRaw{Bytes: runtimeBytes},
			ast.AsmMark{Mark: contextid.EndOf(runtimeObjID)},
		)
		deployBytes, err = assemble.Assemble(ctorSteps)
		if err != nil {
			return nil, err
		}
	} else {
		zero, err := opcode.BytesToPush([]byte{0x00}, opts.AvoidPush0)
		if err != nil {
			return nil, err
		}
		synth := []ast.Asm{
			ast.SizeMarkRef(runtimeObjID),
			ast.AsmOp{Op: opcode.Op{Code: opcode.DUP1}},
			ast.MarkRef(contextid.StartOf(runtimeObjID)),
			ast.AsmOp{Op: zero},
			ast.AsmOp{Op: opcode.Op{Code: opcode.CODECOPY}},
			ast.AsmOp{Op: zero},
			ast.AsmOp{Op: opcode.Op{Code: opcode.RETURN}},
			ast.AsmMark{Mark: contextid.StartOf(runtimeObjID)},
			ast.AsmRaw{Bytes: runtimeBytes},
			ast.AsmMark{Mark: contextid.EndOf(runtimeObjID)},
		}
		deployBytes, err = assemble.Assemble(synth)
		if err != nil {
			return nil, err
		}
	}

	return &Result{Runtime: runtimeBytes, Deploy: deployBytes, ABI: buildABI(defs)}, nil
}

// appendReferencedTables appends [Mark(Start), raw data, Mark(End)] for
// every table sc marked referenced, in declaration order (spec.md §5: order
// of insertion does not affect output, only declaration order does).
func appendReferencedTables(steps []ast.Asm, gs *scope.GlobalScope, sc *scope.Scope, declOrder []string) []ast.Asm {
	for _, name := range scope.ReferencedTableIdents(sc, declOrder) {
		t := gs.Tables[name]
		steps = append(steps,
			ast.AsmMark{Mark: contextid.StartOf(t.ObjID)},
			ast.AsmRaw{Bytes: t.Data},
			ast.AsmMark{Mark: contextid.EndOf(t.ObjID)},
		)
	}
	return steps
}

// buildABI renders function and event definitions, in declaration order, as
// standard Ethereum ABI JSON entries (spec.md §6).
func buildABI(defs source.Definitions) abi.Abi {
	out := make(abi.Abi, 0, len(defs.Functions)+len(defs.Events))
	for _, f := range defs.Functions {
		out = append(out, abi.Function(f.Ident, f.Inputs, f.Outputs, f.Mutability))
	}
	for _, e := range defs.Events {
		out = append(out, abi.Event(e.Ident, e.Args))
	}
	return out
}
