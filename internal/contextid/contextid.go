// Package contextid allocates the hierarchical object and mark identifiers
// that give macro expansion its hygienic label scoping, grounded on the
// ctx_id/sub_id allocation scheme of spec.md §4.1.
package contextid

import "fmt"

// ObjectID uniquely identifies a sub-object (a macro invocation's output, a
// code table, an embedded runtime) within one compilation. CtxID is the path
// of invocation-child indices from the root context; SubID distinguishes
// distinct objects allocated within the same context.
type ObjectID struct {
	CtxID []int
	SubID int
}

// Equal reports structural equality, used as the comparison for MarkID
// equality since ObjectID holds a slice and is not itself comparable with ==.
func (o ObjectID) Equal(other ObjectID) bool {
	if o.SubID != other.SubID || len(o.CtxID) != len(other.CtxID) {
		return false
	}
	for i := range o.CtxID {
		if o.CtxID[i] != other.CtxID[i] {
			return false
		}
	}
	return true
}

// key returns a comparable representation suitable for use as a map key.
func (o ObjectID) key() string {
	return fmt.Sprintf("%v/%d", o.CtxID, o.SubID)
}

func (o ObjectID) String() string {
	return fmt.Sprintf("obj%v#%d", o.CtxID, o.SubID)
}

// Purpose classifies what a MarkID brackets or denotes.
type Purpose int

const (
	Start Purpose = iota
	End
	Label
	Other
)

func (p Purpose) String() string {
	switch p {
	case Start:
		return "Start"
	case End:
		return "End"
	case Label:
		return "Label"
	default:
		return "Other"
	}
}

// MarkID is the assembler-level position anchor: an ObjectID paired with
// what kind of position within that object it denotes.
type MarkID struct {
	Object  ObjectID
	Purpose Purpose
}

// Key returns a value usable as a map key, since MarkID embeds a slice.
func (m MarkID) Key() string {
	return fmt.Sprintf("%s:%s", m.Object.key(), m.Purpose)
}

func (m MarkID) String() string {
	return fmt.Sprintf("%s/%s", m.Object, m.Purpose)
}

// DifferentContext reports whether m and other were allocated under
// different ctx_id paths — used by the label pre-pass to decide whether two
// same-named label bindings are a genuine collision or an expected shadow of
// a parent-context label by one in a freshly allocated child context.
func (m MarkID) DifferentContext(other MarkID) bool {
	return !ctxEqual(m.Object.CtxID, other.Object.CtxID)
}

func ctxEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// StartOf and EndOf build the Start/End MarkIDs used to bracket sub-objects
// (code tables, embedded runtime).
func StartOf(obj ObjectID) MarkID { return MarkID{Object: obj, Purpose: Start} }
func EndOf(obj ObjectID) MarkID   { return MarkID{Object: obj, Purpose: End} }

// Tracker allocates ObjectIDs within one ctx_id prefix and mints child
// trackers with fresh ctx_id suffixes for sub-expansions. The zero value is
// a root tracker with an empty ctx_id, equivalent to NewTracker(nil).
type Tracker struct {
	ctx                 []int
	nextSubID           int
	nextSubContextOffset int
}

// NewTracker creates a root tracker with the given ctx_id prefix (typically
// empty for the compilation root).
func NewTracker(ctx []int) *Tracker {
	c := make([]int, len(ctx))
	copy(c, ctx)
	return &Tracker{ctx: c}
}

// NextObjectID allocates and returns the next ObjectID in this context,
// post-incrementing the internal counter.
func (t *Tracker) NextObjectID() ObjectID {
	id := ObjectID{CtxID: append([]int(nil), t.ctx...), SubID: t.nextSubID}
	t.nextSubID++
	return id
}

// NextSubContext mints a fresh child Tracker whose ctx_id is this tracker's
// ctx_id with one more path element appended, post-incrementing the child
// offset counter so sibling invocations never share a ctx_id.
func (t *Tracker) NextSubContext() *Tracker {
	child := append(append([]int(nil), t.ctx...), t.nextSubContextOffset)
	t.nextSubContextOffset++
	return &Tracker{ctx: child}
}
