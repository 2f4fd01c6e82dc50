package ast

import (
	"testing"

	"github.com/huffc-go/huffc/internal/contextid"
)

func TestMarkRefBuildsAsmMarkRef(t *testing.T) {
	tr := contextid.NewTracker(nil)
	obj := tr.NextObjectID()
	mid := contextid.MarkID{Object: obj, Purpose: contextid.Label}
	ref := MarkRef(mid)
	if ref.Mark.Key() != mid.Key() {
		t.Errorf("MarkRef().Mark = %v, want %v", ref.Mark, mid)
	}
}

func TestSizeMarkRefBracketsStartAndEnd(t *testing.T) {
	tr := contextid.NewTracker(nil)
	obj := tr.NextObjectID()
	ref := SizeMarkRef(obj)
	if ref.Start.Key() != contextid.StartOf(obj).Key() {
		t.Errorf("SizeMarkRef().Start = %v, want StartOf(obj)", ref.Start)
	}
	if ref.End.Key() != contextid.EndOf(obj).Key() {
		t.Errorf("SizeMarkRef().End = %v, want EndOf(obj)", ref.End)
	}
}

// TestMacroElementVariantsImplementInterface is a compile-time-shaped check
// that every documented MacroElement/Asm/MacroArg variant actually satisfies
// its marker interface.
func TestMacroElementVariantsImplementInterface(t *testing.T) {
	var elems = []MacroElement{
		Op{}, LabelDef{}, GeneralRef{}, MacroParam{}, ConstRef{}, Invocation{},
	}
	if len(elems) != 6 {
		t.Fatalf("expected 6 MacroElement variants, got %d", len(elems))
	}

	var args = []MacroArg{ArgOp{}, ArgMarkRef{}}
	if len(args) != 2 {
		t.Fatalf("expected 2 MacroArg variants, got %d", len(args))
	}

	var steps = []Asm{AsmOp{}, AsmMark{}, AsmMarkRef{}, AsmMarkDeltaRef{}, AsmRaw{}}
	if len(steps) != 5 {
		t.Fatalf("expected 5 Asm variants, got %d", len(steps))
	}
}
