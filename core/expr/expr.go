// Package expr defines the expression tree this protocol jointly evaluates:
// an immutable, pure algebraic data type of secret references, public
// scalars, and binary operators (spec.md §3, §4.3).
package expr

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/luciehof/smpc-go/core/field"
)

// SecretID is the opaque, globally-unique identifier of a declared private
// input. It is compared by equality and carries no further structure.
type SecretID []byte

func (id SecretID) String() string {
	return string(id)
}

// OpID stably identifies one Mul node across every party's copy of the
// expression tree, so that all parties index into the Trusted Parameter
// Generator for the same Beaver triple (spec.md §4.3). It is assigned once,
// at construction, using crypto/rand rather than math/rand: unlike the
// teacher's task.MessageID (core/taskutils/taskutils.go), which only needs
// to avoid collisions within one simulated test run, an OpID doubles as a
// cross-session TPG cache key and must not collide across concurrent runs.
type OpID [16]byte

// String renders an OpID as a short, printable token for logs.
func (id OpID) String() string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

func newOpID() OpID {
	var id OpID
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Sprintf("expr: failed to generate op id: %v", err))
	}
	return id
}

// Node is the sum type of expression tree variants. No type outside this
// package may implement Node: the private isNode marker restricts
// implementations to the five variants below, following the teacher's
// tagged-union idiom (core/process/intent.go's Intent/IsIntent,
// core/task/message.go's Message/IsMessage).
type Node interface {
	isNode()
}

// SecretRef is a leaf referencing a declared private input by id. Exactly
// one party's input map must supply a cleartext value for each distinct id
// that appears in the tree (spec.md §3).
type SecretRef struct {
	ID SecretID
}

// NewSecretRef returns a SecretRef leaf for the given secret id.
func NewSecretRef(id SecretID) SecretRef {
	return SecretRef{ID: id}
}

func (SecretRef) isNode() {}

// Scalar is a leaf holding a public field element embedded literally in the
// expression and known to every party.
type Scalar struct {
	Value field.Element
}

// NewScalar returns a Scalar leaf for the given public value.
func NewScalar(value field.Element) Scalar {
	return Scalar{Value: value}
}

func (Scalar) isNode() {}

// Add is a + b.
type Add struct {
	A, B Node
}

// NewAdd returns an Add node over a and b.
func NewAdd(a, b Node) Add {
	return Add{A: a, B: b}
}

func (Add) isNode() {}

// Sub is a - b.
type Sub struct {
	A, B Node
}

// NewSub returns a Sub node over a and b.
func NewSub(a, b Node) Sub {
	return Sub{A: a, B: b}
}

func (Sub) isNode() {}

// Mul is a * b. Every Mul node carries a stable OpID, generated once at
// construction, which all parties use to index into the Trusted Parameter
// Generator for a matching Beaver triple (spec.md §4.3, §4.6).
type Mul struct {
	A, B Node
	OpID OpID
}

// NewMul returns a Mul node over a and b with a freshly generated OpID. Both
// copies of a Mul node that different parties hold must be the *same*
// logical node (i.e. constructed once and shared, not reconstructed per
// party) so that OpID agreement holds; session bootstrap is responsible for
// distributing one shared tree to every party (spec.md §6).
func NewMul(a, b Node) Mul {
	return Mul{A: a, B: b, OpID: newOpID()}
}

func (Mul) isNode() {}

// CollectSecretRefs returns every SecretRef leaf reachable from root, in a
// left-to-right, depth-first order. Duplicate subtrees are treated as
// independent occurrences and so may appear more than once in the result
// (spec.md §3).
func CollectSecretRefs(root Node) []SecretRef {
	var refs []SecretRef
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case SecretRef:
			refs = append(refs, n)
		case Scalar:
		case Add:
			walk(n.A)
			walk(n.B)
		case Sub:
			walk(n.A)
			walk(n.B)
		case Mul:
			walk(n.A)
			walk(n.B)
		default:
			panic(fmt.Sprintf("expr: unexpected node type %T", n))
		}
	}
	walk(root)
	return refs
}

// Equal reports whether a and b are structurally identical: the same shape
// and the same leaf values. Mul nodes additionally compare equal only if
// their OpIDs match, since two syntactically identical multiplications built
// independently are, by construction, different protocol occurrences.
func Equal(a, b Node) bool {
	switch a := a.(type) {
	case SecretRef:
		b, ok := b.(SecretRef)
		return ok && string(a.ID) == string(b.ID)
	case Scalar:
		b, ok := b.(Scalar)
		return ok && a.Value.Eq(b.Value)
	case Add:
		b, ok := b.(Add)
		return ok && Equal(a.A, b.A) && Equal(a.B, b.B)
	case Sub:
		b, ok := b.(Sub)
		return ok && Equal(a.A, b.A) && Equal(a.B, b.B)
	case Mul:
		b, ok := b.(Mul)
		return ok && a.OpID == b.OpID && Equal(a.A, b.A) && Equal(a.B, b.B)
	default:
		panic(fmt.Sprintf("expr: unexpected node type %T", a))
	}
}

// Depth returns the height of the tree rooted at root, used by callers that
// want to size an explicit evaluation stack up front (spec.md §9,
// "Recursion depth").
func Depth(root Node) int {
	switch n := root.(type) {
	case SecretRef, Scalar:
		return 1
	case Add:
		return 1 + max(Depth(n.A), Depth(n.B))
	case Sub:
		return 1 + max(Depth(n.A), Depth(n.B))
	case Mul:
		return 1 + max(Depth(n.A), Depth(n.B))
	default:
		panic(fmt.Sprintf("expr: unexpected node type %T", n))
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
