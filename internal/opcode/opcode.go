// Package opcode holds the static EVM mnemonic table and the PUSH
// constructor rules shared by the parser, macro expander, and assembler.
package opcode

import "github.com/huffc-go/huffc/internal/compileerr"

// Byte is a single EVM opcode value.
type Byte = byte

// Op is a resolved opcode step: an opcode byte plus its immediate data.
// Only PUSH1..PUSH32 carry immediate bytes; every other opcode (including
// PUSH0) has none.
type Op struct {
	Code byte
	Data []byte
}

// Size returns the number of bytes this opcode contributes when emitted:
// one opcode byte plus however many immediate bytes it carries.
func (o Op) Size() int { return 1 + len(o.Data) }

// Bytes renders the opcode and its immediate data in emission order.
func (o Op) Bytes() []byte {
	out := make([]byte, 0, o.Size())
	out = append(out, o.Code)
	return append(out, o.Data...)
}

const (
	PUSH0 byte = 0x5f
	PUSH1 byte = 0x60
	// PUSH32 is the widest PUSH opcode; PUSH1..PUSH32 occupy 0x60..0x7f.
	PUSH32 byte = 0x7f

	JUMPDEST byte = 0x5b
	JUMP     byte = 0x56
	JUMPI    byte = 0x57
	DUP1     byte = 0x80
	CODECOPY byte = 0x39
	RETURN   byte = 0xf3
)

// names maps EVM mnemonics (lowercase, as they appear in Huff source) to
// their opcode byte. Of the push opcodes only "push0" is included here;
// "push1".."push32" live in pushNames below, and the typed "pushN 0xHEX"
// literal form is handled by the parser, not by lookup here.
var names = map[string]byte{
	"stop": 0x00, "add": 0x01, "mul": 0x02, "sub": 0x03, "div": 0x04,
	"sdiv": 0x05, "mod": 0x06, "smod": 0x07, "addmod": 0x08, "mulmod": 0x09,
	"exp": 0x0a, "signextend": 0x0b,

	"lt": 0x10, "gt": 0x11, "slt": 0x12, "sgt": 0x13, "eq": 0x14,
	"iszero": 0x15, "and": 0x16, "or": 0x17, "xor": 0x18, "not": 0x19,
	"byte": 0x1a, "shl": 0x1b, "shr": 0x1c, "sar": 0x1d,

	"sha3": 0x20, "keccak256": 0x20,

	"address": 0x30, "balance": 0x31, "origin": 0x32, "caller": 0x33,
	"callvalue": 0x34, "calldataload": 0x35, "calldatasize": 0x36,
	"calldatacopy": 0x37, "codesize": 0x38, "codecopy": 0x39,
	"gasprice": 0x3a, "extcodesize": 0x3b, "extcodecopy": 0x3c,
	"returndatasize": 0x3d, "returndatacopy": 0x3e, "extcodehash": 0x3f,

	"blockhash": 0x40, "coinbase": 0x41, "timestamp": 0x42, "number": 0x43,
	"difficulty": 0x44, "prevrandao": 0x44, "gaslimit": 0x45,
	"chainid": 0x46, "selfbalance": 0x47, "basefee": 0x48,
	"blobhash": 0x49, "blobbasefee": 0x4a,

	"pop": 0x50, "mload": 0x51, "mstore": 0x52, "mstore8": 0x53,
	"sload": 0x54, "sstore": 0x55, "jump": 0x56, "jumpi": 0x57, "pc": 0x58,
	"msize": 0x59, "gas": 0x5a, "jumpdest": 0x5b,
	"tload": 0x5c, "tstore": 0x5d, "mcopy": 0x5e,
	"push0": 0x5f,

	"dup1": 0x80, "dup2": 0x81, "dup3": 0x82, "dup4": 0x83, "dup5": 0x84,
	"dup6": 0x85, "dup7": 0x86, "dup8": 0x87, "dup9": 0x88, "dup10": 0x89,
	"dup11": 0x8a, "dup12": 0x8b, "dup13": 0x8c, "dup14": 0x8d,
	"dup15": 0x8e, "dup16": 0x8f,

	"swap1": 0x90, "swap2": 0x91, "swap3": 0x92, "swap4": 0x93,
	"swap5": 0x94, "swap6": 0x95, "swap7": 0x96, "swap8": 0x97,
	"swap9": 0x98, "swap10": 0x99, "swap11": 0x9a, "swap12": 0x9b,
	"swap13": 0x9c, "swap14": 0x9d, "swap15": 0x9e, "swap16": 0x9f,

	"log0": 0xa0, "log1": 0xa1, "log2": 0xa2, "log3": 0xa3, "log4": 0xa4,

	"create": 0xf0, "call": 0xf1, "callcode": 0xf2, "return": 0xf3,
	"delegatecall": 0xf4, "create2": 0xf5, "staticcall": 0xfa,
	"revert": 0xfd, "invalid": 0xfe, "selfdestruct": 0xff,
}

// pushNames holds "push1".."push32" separately: these are valid identifiers
// in Huff source for the opcode table's identifier/opcode namespace check,
// but cannot be used standalone the way e.g. "add" can, since their
// immediate data has to come from somewhere (a hex literal or `pushN`).
var pushNames = func() map[string]byte {
	m := make(map[string]byte, 32)
	for n := 1; n <= 32; n++ {
		m[pushMnemonic(n)] = PUSH1 + byte(n-1)
	}
	return m
}()

func pushMnemonic(width int) string {
	digits := [3]byte{}
	i := len(digits)
	for width > 0 {
		i--
		digits[i] = byte('0' + width%10)
		width /= 10
	}
	return "push" + string(digits[i:])
}

// IsName reports whether s names any opcode (standalone or pushN), i.e.
// whether it is barred from being used as a Huff identifier.
func IsName(s string) bool {
	if _, ok := names[s]; ok {
		return true
	}
	_, ok := pushNames[s]
	return ok
}

// Lookup resolves a standalone opcode mnemonic (not pushN) to its Op. It is
// used for GeneralRef resolution inside macro bodies: a bare identifier that
// names an opcode other than pushN resolves directly to an Op with no
// immediate data.
func Lookup(name string) (Op, bool) {
	code, ok := names[name]
	if !ok {
		return Op{}, false
	}
	return Op{Code: code}, true
}

// Name returns the mnemonic for an opcode byte, including PUSH0..PUSH32,
// for diagnostics; "?" if unrecognized.
func Name(b byte) string {
	for n, c := range names {
		if c == b {
			return n
		}
	}
	if b >= PUSH1 && b <= PUSH32 {
		return pushMnemonic(int(b) - int(PUSH1) + 1)
	}
	if b == PUSH0 {
		return "push0"
	}
	return "?"
}

// minimalWidth returns the number of significant bytes of data, stripping
// leading zero bytes, with a floor of 1 (an all-zero value still needs one
// byte unless it collapses to PUSH0).
func minimalWidth(data []byte) int {
	i := 0
	for i < len(data)-1 && data[i] == 0 {
		i++
	}
	return len(data) - i
}

func trimLeadingZeros(data []byte) []byte {
	i := 0
	for i < len(data)-1 && data[i] == 0 {
		i++
	}
	return data[i:]
}

// NewPush builds a PUSH_N opcode for data of exactly width significant
// bytes. If size is given (explicit pushN literal) data is zero-padded on
// the left to that width; width must fall in 1..32. Passing size == 0 means
// "infer from data", stripping leading zero bytes first.
func NewPush(data []byte, size int) (Op, error) {
	if size == 0 {
		data = trimLeadingZeros(data)
		size = minimalWidth(data)
	} else {
		if len(data) > size {
			return Op{}, compileerr.New(compileerr.KindPushWidth,
				"data is %d bytes, longer than requested push width %d", len(data), size)
		}
		padded := make([]byte, size)
		copy(padded[size-len(data):], data)
		data = padded
	}
	if size < 1 || size > 32 {
		return Op{}, compileerr.New(compileerr.KindPushWidth, "no push of size %d", size)
	}
	return Op{Code: PUSH1 + byte(size-1), Data: data}, nil
}

// BytesToPush is the canonical literal-to-opcode rule: the single zero byte
// lowers to PUSH0 unless avoidPush0 is set, otherwise it lowers to the
// minimum-width PUSH of its significant bytes.
func BytesToPush(data []byte, avoidPush0 bool) (Op, error) {
	if len(data) == 1 && data[0] == 0 && !avoidPush0 {
		return Op{Code: PUSH0}, nil
	}
	return NewPush(data, 0)
}

// NeededBytes returns the minimum number of big-endian bytes needed to
// represent x, with a floor of 1 (matches spec.md §4.5's needed_bytes).
func NeededBytes(x uint64) int {
	n := 0
	for v := x; v > 0; v >>= 8 {
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}
