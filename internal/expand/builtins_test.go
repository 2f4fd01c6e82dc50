package expand

import (
	"errors"
	"testing"

	"github.com/huffc-go/huffc/internal/abi"
	"github.com/huffc-go/huffc/internal/ast"
	"github.com/huffc-go/huffc/internal/compileerr"
	"github.com/huffc-go/huffc/internal/contextid"
	"github.com/huffc-go/huffc/internal/keccak"
	"github.com/huffc-go/huffc/internal/opcode"
	"github.com/huffc-go/huffc/internal/scope"
	"github.com/huffc-go/huffc/internal/source"
)

func kindOf(err error) compileerr.Kind {
	var ce *compileerr.Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

func TestBiTableSizeMarksReferencedAndEmitsDeltaRef(t *testing.T) {
	tr := contextid.NewTracker(nil)
	obj := tr.NextObjectID()
	g := &scope.GlobalScope{Tables: map[string]scope.CodeTable{"MY_TABLE": {Data: []byte{0xca, 0xfe}, ObjID: obj}}}
	sc := scope.New(g)

	steps, err := biTableSize(sc, []ast.MacroElement{ast.GeneralRef{Ident: "MY_TABLE"}}, nil)
	if err != nil {
		t.Fatalf("biTableSize: %v", err)
	}
	if !sc.ReferencedTables["MY_TABLE"] {
		t.Error("MY_TABLE should be marked referenced")
	}
	if len(steps) != 1 {
		t.Fatalf("got %d steps, want 1", len(steps))
	}
	want := ast.SizeMarkRef(obj)
	got, ok := steps[0].(ast.AsmMarkDeltaRef)
	if !ok || got.Start.Key() != want.Start.Key() || got.End.Key() != want.End.Key() {
		t.Errorf("steps[0] = %+v, want %+v", steps[0], want)
	}
}

func TestBiTableSizeUndefinedTable(t *testing.T) {
	g := &scope.GlobalScope{Tables: map[string]scope.CodeTable{}}
	sc := scope.New(g)
	_, err := biTableSize(sc, []ast.MacroElement{ast.GeneralRef{Ident: "MISSING"}}, nil)
	if kindOf(err) != compileerr.KindUndefinedTable {
		t.Errorf("got %v, want UndefinedTable", err)
	}
}

func TestBiFuncSigPrefersFunctionOverError(t *testing.T) {
	g := &scope.GlobalScope{
		Functions: map[string]source.FunctionDef{
			"transfer": {Ident: "transfer", Inputs: []abi.Type{{Base: "address"}, {Base: "uint256"}}},
		},
		Errors: map[string]source.ErrorDef{
			"transfer": {Ident: "transfer", Inputs: []abi.Type{{Base: "uint256"}}},
		},
	}
	sc := scope.New(g)
	steps, err := biFuncSig(sc, []ast.MacroElement{ast.GeneralRef{Ident: "transfer"}}, nil)
	if err != nil {
		t.Fatalf("biFuncSig: %v", err)
	}
	op, ok := steps[0].(ast.AsmOp)
	if !ok {
		t.Fatalf("steps[0] = %T, want ast.AsmOp", steps[0])
	}
	want := keccak.Selector([]byte("transfer(address,uint256)"))
	if opcode.Name(op.Op.Code) != "push4" || string(op.Op.Data) != string(want[:]) {
		t.Errorf("got op %+v, want PUSH4 %x", op.Op, want)
	}
}

func TestBiFuncSigFallsBackToError(t *testing.T) {
	// "Unauthorized" names only an error, never a function: __FUNC_SIG must
	// fall back and hash the error's canonical signature instead of failing.
	g := &scope.GlobalScope{
		Functions: map[string]source.FunctionDef{},
		Errors: map[string]source.ErrorDef{
			"Unauthorized": {Ident: "Unauthorized", Inputs: []abi.Type{{Base: "address"}}},
		},
	}
	sc := scope.New(g)
	steps, err := biFuncSig(sc, []ast.MacroElement{ast.GeneralRef{Ident: "Unauthorized"}}, nil)
	if err != nil {
		t.Fatalf("biFuncSig: %v", err)
	}
	op := steps[0].(ast.AsmOp).Op
	want := keccak.Selector([]byte("Unauthorized(address)"))
	if string(op.Data) != string(want[:]) {
		t.Errorf("got selector %x, want %x (Unauthorized(address))", op.Data, want)
	}
}

func TestBiFuncSigUndefined(t *testing.T) {
	g := &scope.GlobalScope{Functions: map[string]source.FunctionDef{}, Errors: map[string]source.ErrorDef{}}
	sc := scope.New(g)
	_, err := biFuncSig(sc, []ast.MacroElement{ast.GeneralRef{Ident: "nope"}}, nil)
	if kindOf(err) != compileerr.KindUndefinedFunctionOrError {
		t.Errorf("got %v, want UndefinedFunctionOrError", err)
	}
}

func TestBiEventHashComputesCanonicalDigest(t *testing.T) {
	g := &scope.GlobalScope{
		Events: map[string]source.EventDef{
			"Transfer": {Ident: "Transfer", Args: []abi.Type{{Base: "address", Indexed: true}, {Base: "address", Indexed: true}, {Base: "uint256"}}},
		},
	}
	sc := scope.New(g)
	steps, err := biEventHash(sc, []ast.MacroElement{ast.GeneralRef{Ident: "Transfer"}}, nil)
	if err != nil {
		t.Fatalf("biEventHash: %v", err)
	}
	op := steps[0].(ast.AsmOp).Op
	want := keccak.Hash256([]byte("Transfer(address,address,uint256)"))
	if len(op.Data) != 32 || string(op.Data) != string(want[:]) {
		t.Errorf("got digest %x, want %x", op.Data, want)
	}
}

func TestBiEventHashUndefined(t *testing.T) {
	g := &scope.GlobalScope{Events: map[string]source.EventDef{}}
	sc := scope.New(g)
	_, err := biEventHash(sc, []ast.MacroElement{ast.GeneralRef{Ident: "Missing"}}, nil)
	if kindOf(err) != compileerr.KindUndefinedEvent {
		t.Errorf("got %v, want UndefinedEvent", err)
	}
}

func TestBiReturnRuntimeSequence(t *testing.T) {
	tr := contextid.NewTracker(nil)
	runtimeObj := tr.NextObjectID()
	sc := scope.New(&scope.GlobalScope{}).WithConstructor(&scope.ConstructorData{RuntimeObjID: runtimeObj})

	offset := opcode.Op{Code: opcode.PUSH0}
	steps, err := biReturnRuntime(sc, []ast.MacroElement{ast.Op{Op: offset}}, nil)
	if err != nil {
		t.Fatalf("biReturnRuntime: %v", err)
	}
	if len(steps) != 7 {
		t.Fatalf("got %d steps, want 7: %+v", len(steps), steps)
	}

	size := ast.SizeMarkRef(runtimeObj)
	gotSize, ok := steps[0].(ast.AsmMarkDeltaRef)
	if !ok || gotSize.Start.Key() != size.Start.Key() || gotSize.End.Key() != size.End.Key() {
		t.Errorf("steps[0] = %+v, want size(runtime)", steps[0])
	}
	if op, ok := steps[1].(ast.AsmOp); !ok || op.Op.Code != opcode.DUP1 {
		t.Errorf("steps[1] = %+v, want DUP1", steps[1])
	}
	start := ast.MarkRef(contextid.StartOf(runtimeObj))
	gotStart, ok := steps[2].(ast.AsmMarkRef)
	if !ok || gotStart.Mark.Key() != start.Mark.Key() {
		t.Errorf("steps[2] = %+v, want start(runtime)", steps[2])
	}
	if op, ok := steps[3].(ast.AsmOp); !ok || op.Op.Code != offset.Code {
		t.Errorf("steps[3] = %+v, want offset", steps[3])
	}
	if op, ok := steps[4].(ast.AsmOp); !ok || op.Op.Code != opcode.CODECOPY {
		t.Errorf("steps[4] = %+v, want CODECOPY", steps[4])
	}
	if op, ok := steps[5].(ast.AsmOp); !ok || op.Op.Code != offset.Code {
		t.Errorf("steps[5] = %+v, want offset", steps[5])
	}
	if op, ok := steps[6].(ast.AsmOp); !ok || op.Op.Code != opcode.RETURN {
		t.Errorf("steps[6] = %+v, want RETURN", steps[6])
	}
}

func TestBiReturnRuntimeRequiresConstructor(t *testing.T) {
	sc := scope.New(&scope.GlobalScope{})
	_, err := biReturnRuntime(sc, []ast.MacroElement{ast.Op{Op: opcode.Op{Code: opcode.PUSH0}}}, nil)
	if kindOf(err) != compileerr.KindContextError {
		t.Errorf("got %v, want ContextError when used outside CONSTRUCTOR", err)
	}
}

func TestBiCodesizeAlwaysErrors(t *testing.T) {
	sc := scope.New(&scope.GlobalScope{})
	_, err := biCodesize(sc, nil, nil)
	if kindOf(err) != compileerr.KindContextError {
		t.Errorf("got %v, want ContextError", err)
	}
}
