// Package share implements additive N-out-of-N secret sharing over a
// field.Field (spec.md §4.2). Unlike the teacher's core/vss/shamir package,
// which implements threshold Shamir sharing via polynomial evaluation, this
// scheme requires all N shares to reconstruct: any subset of fewer than N
// shares is statistically independent of the secret, matching the additive
// splitting used by the Python prototype this spec was distilled from
// (original_source/secret_sharing.py).
package share

import (
	"fmt"

	"github.com/luciehof/smpc-go/core/field"
)

// Share is one participant's piece of an additively-shared secret. A Share
// carries no index or owner of its own — as with field.Element, its meaning
// is entirely defined by the position it occupies in the []Share slice it
// was produced in.
type Share struct {
	Value field.Element
}

// Split produces n field elements whose sum mod p equals value, drawing the
// first n-1 uniformly from the field and setting the last to force the sum
// (spec.md §4.2). It panics if n is zero, matching the spec's stated
// failure mode for that case.
func Split(value field.Element, n int) []Share {
	if n == 0 {
		panic("share: cannot split a secret into zero shares")
	}

	f := value.Field()
	shares := make([]Share, n)

	sum := f.Zero()
	for i := 0; i < n-1; i++ {
		r := f.Random()
		shares[i] = Share{Value: r}
		sum = sum.Add(r)
	}
	shares[n-1] = Share{Value: value.Sub(sum)}

	return shares
}

// Join reconstructs the secret from a complete set of shares by summing them
// mod p. Join is a pure function: it does not depend on the order shares
// appear in, matching the commutativity of field addition (spec.md §4.2,
// §8 invariant 1).
func Join(shares []Share) (field.Element, error) {
	if len(shares) == 0 {
		return field.Element{}, fmt.Errorf("share: cannot join an empty list of shares")
	}

	sum := shares[0].Value
	for _, s := range shares[1:] {
		sum = sum.Add(s.Value)
	}
	return sum, nil
}
