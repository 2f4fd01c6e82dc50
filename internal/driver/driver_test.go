package driver

import (
	"bytes"
	"testing"

	"github.com/huffc-go/huffc/internal/parser"
	"github.com/huffc-go/huffc/internal/scope"
	"github.com/huffc-go/huffc/internal/source"
)

func compileSrc(t *testing.T, src string, overrides []scope.Override, avoidPush0 bool) *Result {
	t.Helper()
	res, err := parser.Parse([]byte(src), avoidPush0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var defs source.Definitions
	defs.Append(res.File)
	out, err := Compile(defs, overrides, Options{AvoidPush0: avoidPush0})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return out
}

func TestCompileSimpleMainScenario(t *testing.T) {
	// spec.md §8: PUSH1 0x03, PUSH3 0x017389, ADD, PUSH0, MSTORE, PUSH1
	// 0x20, PUSH0, RETURN — 600362017389015f5260205ff3.
	src := `#define macro MAIN() = takes (0) returns (0) {
		0x03 0x017389 add 0x00 mstore 0x20 0x00 return
	}`
	out := compileSrc(t, src, nil, false)
	want := mustHex(t, "600362017389015f5260205ff3")
	if !bytes.Equal(out.Runtime, want) {
		t.Errorf("Runtime = %x, want %x", out.Runtime, want)
	}
}

func TestCompileConstantReusedTwiceSharesWidth(t *testing.T) {
	// A constant referenced twice in MAIN must assemble to the identical
	// push sequence both times: [X] [X] with X = 0x82 -> 6082 6082.
	src := `#define constant X = 0x82
	#define macro MAIN() = takes (0) returns (0) {
		[X] [X]
	}`
	out := compileSrc(t, src, nil, false)
	want := mustHex(t, "60826082")
	if !bytes.Equal(out.Runtime, want) {
		t.Errorf("Runtime = %x, want %x", out.Runtime, want)
	}
}

func TestCompileConstantOverrideAppliesAcrossReferences(t *testing.T) {
	src := `#define constant SLOT = 0x01
	#define macro MAIN() = takes (0) returns (0) {
		[SLOT]
	}`
	ov, err := scope.ParseOverride("SLOT=0xabcd")
	if err != nil {
		t.Fatalf("ParseOverride: %v", err)
	}
	out := compileSrc(t, src, []scope.Override{ov}, false)
	want := mustHex(t, "61abcd")
	if !bytes.Equal(out.Runtime, want) {
		t.Errorf("Runtime = %x, want %x (PUSH2 0xabcd)", out.Runtime, want)
	}
}

func TestCompileJumpToForwardDeclaredLabelArgument(t *testing.T) {
	// A macro argument bound to a label the callee hasn't seen declared yet:
	// JUMP_TO(end) is expanded before end: is reached in MAIN's own body, and
	// the hygienic pre-pass must have already bound "end" so the argument
	// resolves to an ArgMarkRef rather than an unknown identifier.
	//
	// Layout: PUSH1 <offset>, JUMP, JUMPDEST. offset is the byte position of
	// the JUMPDEST itself: 2 bytes (PUSH1 + operand) + 1 byte (JUMP) = 3.
	src := `#define macro JUMP_TO(d) = takes (0) returns (0) {
		<d> jump
	}
	#define macro MAIN() = takes (0) returns (0) {
		JUMP_TO(end) end:
	}`
	out := compileSrc(t, src, nil, false)
	want := mustHex(t, "6003565b")
	if !bytes.Equal(out.Runtime, want) {
		t.Errorf("Runtime = %x, want %x (PUSH1 0x03, JUMP, JUMPDEST)", out.Runtime, want)
	}
}

func TestCompileSynthesizesConstructorWhenAbsent(t *testing.T) {
	src := `#define macro MAIN() = takes (0) returns (0) {
		0x00 0x00 return
	}`
	out := compileSrc(t, src, nil, false)
	if len(out.Deploy) <= len(out.Runtime) {
		t.Errorf("Deploy (%d bytes) should be longer than Runtime (%d bytes): synthesized constructor plus embedded runtime", len(out.Deploy), len(out.Runtime))
	}
	if !bytes.Contains(out.Deploy, out.Runtime) {
		t.Error("Deploy must embed Runtime verbatim as its trailing sub-object")
	}
}

func TestCompileUsesExplicitConstructor(t *testing.T) {
	src := `#define macro CONSTRUCTOR() = takes (0) returns (0) {
		__RUNTIME_SIZE() __RUNTIME_START() 0x00 codecopy
		__RUNTIME_SIZE() 0x00 return
	}
	#define macro MAIN() = takes (0) returns (0) {
		0x00 0x00 return
	}`
	out := compileSrc(t, src, nil, false)
	if !bytes.Contains(out.Deploy, out.Runtime) {
		t.Error("Deploy must embed Runtime verbatim as its trailing sub-object")
	}
}

func TestCompileMissingMainErrors(t *testing.T) {
	src := `#define macro HELPER() = takes (0) returns (0) { 0x00 }`
	res, err := parser.Parse([]byte(src), false)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var defs source.Definitions
	defs.Append(res.File)
	if _, err := Compile(defs, nil, Options{}); err == nil {
		t.Error("expected MissingMain error when no MAIN macro is defined")
	}
}

func TestCompileTableAppendedOnlyWhenReferenced(t *testing.T) {
	src := `#define table UNUSED { 0xdeadbeef }
	#define table USED { 0xcafe }
	#define macro MAIN() = takes (0) returns (0) {
		__tablestart(USED)
	}`
	out := compileSrc(t, src, nil, false)
	if bytes.Contains(out.Runtime, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Error("unreferenced table UNUSED must not appear in Runtime")
	}
	if !bytes.Contains(out.Runtime, []byte{0xca, 0xfe}) {
		t.Error("referenced table USED must appear in Runtime")
	}
}

func TestCompileFunctionAndEventRenderToABI(t *testing.T) {
	src := `#define function transfer(address to, uint256 amount) nonpayable returns (bool)
	#define event Transfer(address indexed from, address indexed to, uint256 value)
	#define macro MAIN() = takes (0) returns (0) { 0x00 0x00 return }`
	out := compileSrc(t, src, nil, false)
	if len(out.ABI) != 2 {
		t.Fatalf("got %d ABI entries, want 2", len(out.ABI))
	}
	if out.ABI[0].Type != "function" || out.ABI[0].Name != "transfer" {
		t.Errorf("ABI[0] = %+v, want transfer function", out.ABI[0])
	}
	if out.ABI[1].Type != "event" || out.ABI[1].Name != "Transfer" {
		t.Errorf("ABI[1] = %+v, want Transfer event", out.ABI[1])
	}
	if out.ABI[1].Anonymous == nil || *out.ABI[1].Anonymous {
		t.Error("event anonymous must render as false")
	}
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	out := make([]byte, len(s)/2)
	for i := range out {
		out[i] = hexVal(s[i*2])<<4 | hexVal(s[i*2+1])
	}
	return out
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	}
	return 0
}
