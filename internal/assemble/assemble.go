// Package assemble lays out a flat Asm stream into final bytecode: validate
// the mark graph, solidify an initial uniform reference width, shorten it to
// a fixed point, then emit bytes (spec.md §4.5).
package assemble

import (
	"github.com/huffc-go/huffc/internal/ast"
	"github.com/huffc-go/huffc/internal/compileerr"
	"github.com/huffc-go/huffc/internal/contextid"
	"github.com/huffc-go/huffc/internal/opcode"
)

// Assemble runs the full validate → solidify → shorten → emit pipeline over
// one Asm stream (one runtime or deploy object).
func Assemble(steps []ast.Asm) ([]byte, error) {
	if err := Validate(steps); err != nil {
		return nil, err
	}
	solid, err := Solidify(steps)
	if err != nil {
		return nil, err
	}
	solid, err = Shorten(solid)
	if err != nil {
		return nil, err
	}
	return Emit(solid), nil
}

// Validate checks the mark graph before any byte-width decisions are made:
// every Mark is unique, every MarkRef names a Mark present in the stream,
// and every MarkDeltaRef's end Mark occurs strictly after its start Mark in
// stream order (the order byte layout will ultimately respect, independent
// of reference width).
//
// spec.md §4.5's prose names a "DuplicateMark" failure distinct from the 22
// kinds spec.md §7 actually enumerates; since the ContextTracker allocation
// scheme (spec.md §4.1) guarantees pairwise-distinct ObjectIds, a collision
// here can only indicate an internal bug, not a reachable user mistake, so
// it and "dangling MarkRef" both surface as ContextError (see DESIGN.md).
func Validate(steps []ast.Asm) error {
	index := make(map[string]int, len(steps))
	for i, s := range steps {
		m, ok := s.(ast.AsmMark)
		if !ok {
			continue
		}
		key := m.Mark.Key()
		if _, dup := index[key]; dup {
			return compileerr.New(compileerr.KindContextError, "duplicate mark %s", m.Mark)
		}
		index[key] = i
	}
	for _, s := range steps {
		switch v := s.(type) {
		case ast.AsmMarkRef:
			if _, ok := index[v.Mark.Key()]; !ok {
				return compileerr.New(compileerr.KindContextError, "reference to undefined mark %s", v.Mark)
			}
		case ast.AsmMarkDeltaRef:
			startIdx, ok1 := index[v.Start.Key()]
			endIdx, ok2 := index[v.End.Key()]
			if !ok1 || !ok2 {
				return compileerr.New(compileerr.KindContextError, "reference to undefined mark in delta %s..%s", v.Start, v.End)
			}
			if endIdx <= startIdx {
				return compileerr.New(compileerr.KindInvertedDelta, "mark delta %s..%s does not strictly increase", v.Start, v.End)
			}
		}
	}
	return nil
}

type refKind int

const (
	refAbs refKind = iota
	refDelta
)

type stepKind int

const (
	stepOp stepKind = iota
	stepMark
	stepRaw
	stepRef
)

// solidStep is one element of the width-annotated layout stream: either an
// opcode, a mark, a raw byte blob, or a sized reference pending final width
// reduction.
type solidStep struct {
	kind  stepKind
	op    opcode.Op
	mark  contextid.MarkID
	raw   []byte
	refK  refKind
	start contextid.MarkID
	end   contextid.MarkID
	width int
}

func refStaticSize(s ast.Asm) (static int, isRef bool) {
	switch s.(type) {
	case ast.AsmMarkRef, ast.AsmMarkDeltaRef:
		return 1, true
	}
	return 0, false
}

func minStaticSize(s ast.Asm) int {
	switch v := s.(type) {
	case ast.AsmOp:
		return v.Op.Size()
	case ast.AsmRaw:
		return len(v.Bytes)
	default:
		static, _ := refStaticSize(s)
		return static
	}
}

// Solidify computes the initial uniform reference width W0 — the minimum
// W >= 1 such that the worst-case total code size at that width fits in
// 2^(8W)-1 — and wraps every MarkRef/MarkDeltaRef into a SizedRef of that
// width. W0 must not exceed 6; spec.md §5 sets the hard ceiling at
// 2^48 - 1 bytes of emitted code.
func Solidify(steps []ast.Asm) ([]solidStep, error) {
	sumStatic := 0
	refCount := 0
	for _, s := range steps {
		sumStatic += minStaticSize(s)
		if _, isRef := refStaticSize(s); isRef {
			refCount++
		}
	}

	w := 1
	for {
		maxCodeSize := uint64(sumStatic) + uint64(refCount)*uint64(w)
		limit := (uint64(1) << uint(8*w)) - 1
		if maxCodeSize <= limit {
			break
		}
		w++
		if w > 6 {
			return nil, compileerr.New(compileerr.KindCodeTooLarge, "required reference width exceeds 6 bytes")
		}
	}

	out := make([]solidStep, 0, len(steps))
	for _, s := range steps {
		switch v := s.(type) {
		case ast.AsmOp:
			out = append(out, solidStep{kind: stepOp, op: v.Op})
		case ast.AsmMark:
			out = append(out, solidStep{kind: stepMark, mark: v.Mark})
		case ast.AsmRaw:
			out = append(out, solidStep{kind: stepRaw, raw: v.Bytes})
		case ast.AsmMarkRef:
			out = append(out, solidStep{kind: stepRef, refK: refAbs, start: v.Mark, width: w})
		case ast.AsmMarkDeltaRef:
			out = append(out, solidStep{kind: stepRef, refK: refDelta, start: v.Start, end: v.End, width: w})
		}
	}
	return out, nil
}

func stepSize(s solidStep) int {
	switch s.kind {
	case stepOp:
		return s.op.Size()
	case stepRaw:
		return len(s.raw)
	case stepRef:
		return 1 + s.width
	default:
		return 0
	}
}

func layoutOffsets(steps []solidStep) map[string]int {
	offsets := make(map[string]int, len(steps))
	pos := 0
	for _, s := range steps {
		if s.kind == stepMark {
			offsets[s.mark.Key()] = pos
			continue
		}
		pos += stepSize(s)
	}
	return offsets
}

// Shorten iterates the solid stream to a fixed point: each pass recomputes
// mark offsets under current widths, then narrows every SizedRef to the
// byte width its target value actually needs. Since narrowing a width can
// only shrink subsequent offsets, the process is monotone and terminates at
// the pointwise-minimal width assignment (spec.md §4.5).
func Shorten(steps []solidStep) ([]solidStep, error) {
	for {
		offsets := layoutOffsets(steps)
		dirty := false
		for i := range steps {
			if steps[i].kind != stepRef {
				continue
			}
			var value uint64
			if steps[i].refK == refAbs {
				value = uint64(offsets[steps[i].start.Key()])
			} else {
				startOff := offsets[steps[i].start.Key()]
				endOff := offsets[steps[i].end.Key()]
				if endOff <= startOff {
					return nil, compileerr.New(compileerr.KindInvertedDelta, "mark delta %s..%s is non-positive", steps[i].start, steps[i].end)
				}
				value = uint64(endOff - startOff)
			}
			needed := opcode.NeededBytes(value)
			if needed > 32 {
				return nil, compileerr.New(compileerr.KindCodeTooLarge, "reference value requires more than 32 bytes")
			}
			if needed != steps[i].width {
				steps[i].width = needed
				dirty = true
			}
		}
		if !dirty {
			return steps, nil
		}
	}
}

// Emit renders the finalized solid stream to bytes.
func Emit(steps []solidStep) []byte {
	offsets := layoutOffsets(steps)
	out := make([]byte, 0)
	for _, s := range steps {
		switch s.kind {
		case stepOp:
			out = append(out, s.op.Bytes()...)
		case stepRaw:
			out = append(out, s.raw...)
		case stepMark:
			// emits nothing
		case stepRef:
			var value uint64
			if s.refK == refAbs {
				value = uint64(offsets[s.start.Key()])
			} else {
				value = uint64(offsets[s.end.Key()] - offsets[s.start.Key()])
			}
			out = append(out, opcode.PUSH1+byte(s.width-1))
			buf := make([]byte, s.width)
			v := value
			for i := s.width - 1; i >= 0; i-- {
				buf[i] = byte(v)
				v >>= 8
			}
			out = append(out, buf...)
		}
	}
	return out
}
