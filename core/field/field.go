// Package field implements closed arithmetic over a finite field Fp, where p
// is a fixed prime large enough to bound any expression this protocol is
// expected to evaluate without overflow.
package field

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// DefaultPrime is the NIST P-256 field prime, 2^256 - 2^224 + 2^192 + 2^96 - 1.
// It is well above the 2^128 floor suggested for this protocol and gives
// ample headroom for accumulated products of secret inputs.
var DefaultPrime, _ = new(big.Int).SetString(
	"ffffffff00000001000000000000000000000000ffffffffffffffffffffffff", 16)

// Field is the integers modulo a fixed prime. All arithmetic performed
// through a Field, or through the Elements it constructs, is total: there is
// no overflow because every result is reduced back into [0, p).
type Field struct {
	prime *big.Int
}

// New returns the field of integers modulo prime. It panics if prime is
// probably not prime, since every other invariant in this package assumes a
// prime modulus.
func New(prime *big.Int) Field {
	if !prime.ProbablyPrime(32) {
		panic("field: prime is probably not prime")
	}
	return Field{prime: new(big.Int).Set(prime)}
}

// Default returns the field of integers modulo DefaultPrime.
func Default() Field {
	return New(DefaultPrime)
}

// Prime returns the modulus defining the field.
func (f Field) Prime() *big.Int {
	return new(big.Int).Set(f.prime)
}

// Zero returns the additive identity of the field.
func (f Field) Zero() Element {
	return Element{prime: f.prime, value: big.NewInt(0)}
}

// One returns the multiplicative identity of the field.
func (f Field) One() Element {
	return Element{prime: f.prime, value: big.NewInt(1)}
}

// NewElement returns the canonical representative of v in the field,
// reducing it into [0, p) first so that negative or out-of-range inputs
// (e.g. public scalars written as literals) are accepted directly.
func (f Field) NewElement(v *big.Int) Element {
	value := new(big.Int).Mod(v, f.prime)
	return Element{prime: f.prime, value: value}
}

// NewElementFromInt64 is a convenience wrapper around NewElement for small
// literal values, such as public Scalar nodes in an expression tree.
func (f Field) NewElementFromInt64(v int64) Element {
	return f.NewElement(big.NewInt(v))
}

// Random returns a uniformly random element of the field.
func (f Field) Random() Element {
	v, err := rand.Int(rand.Reader, f.prime)
	if err != nil {
		// crypto/rand.Int only fails if the reader returns an error or the
		// bound is non-positive; neither is possible for a valid prime
		// modulus, so this would indicate a broken entropy source.
		panic(fmt.Sprintf("field: failed to sample random element: %v", err))
	}
	return Element{prime: f.prime, value: v}
}

// ParseDecimal parses the decimal ASCII encoding of a canonical
// representative, as produced by Element.String, and returns the
// corresponding Element.
func (f Field) ParseDecimal(s string) (Element, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Element{}, fmt.Errorf("field: %q is not a valid decimal integer", s)
	}
	if v.Sign() < 0 || v.Cmp(f.prime) >= 0 {
		return Element{}, fmt.Errorf("field: %q is not in [0, p)", s)
	}
	return Element{prime: f.prime, value: v}, nil
}

// Eq returns true if f and g are the same field (same prime modulus).
func (f Field) Eq(g Field) bool {
	return f.prime.Cmp(g.prime) == 0
}

// Element is a single value in a Field. Element carries no identity of its
// own beyond its numeric value mod p — its meaning is defined entirely by
// the secret sharing, expression node, or Beaver triple it is part of.
type Element struct {
	prime, value *big.Int
}

// Field returns the field that this element belongs to.
func (a Element) Field() Field {
	return Field{prime: a.prime}
}

func (a Element) sameField(b Element) bool {
	return a.prime != nil && b.prime != nil && a.prime.Cmp(b.prime) == 0
}

// Add returns a + b mod p.
func (a Element) Add(b Element) Element {
	if !a.sameField(b) {
		panic("field: cannot add elements from different fields")
	}
	v := new(big.Int).Add(a.value, b.value)
	v.Mod(v, a.prime)
	return Element{prime: a.prime, value: v}
}

// Sub returns a - b mod p.
func (a Element) Sub(b Element) Element {
	if !a.sameField(b) {
		panic("field: cannot subtract elements from different fields")
	}
	v := new(big.Int).Sub(a.value, b.value)
	v.Mod(v, a.prime)
	return Element{prime: a.prime, value: v}
}

// Mul returns a * b mod p.
func (a Element) Mul(b Element) Element {
	if !a.sameField(b) {
		panic("field: cannot multiply elements from different fields")
	}
	v := new(big.Int).Mul(a.value, b.value)
	v.Mod(v, a.prime)
	return Element{prime: a.prime, value: v}
}

// Neg returns -a mod p.
func (a Element) Neg() Element {
	v := new(big.Int).Neg(a.value)
	v.Mod(v, a.prime)
	return Element{prime: a.prime, value: v}
}

// Eq returns true if a and b are the same canonical representative in the
// same field.
func (a Element) Eq(b Element) bool {
	return a.sameField(b) && a.value.Cmp(b.value) == 0
}

// IsZero returns true if a is the field's additive identity.
func (a Element) IsZero() bool {
	return a.value.Sign() == 0
}

// String returns the decimal ASCII encoding of the canonical representative
// in [0, p). This is the wire encoding specified by spec.md §6.
func (a Element) String() string {
	return a.value.String()
}

// BigInt returns a copy of the canonical representative as a *big.Int.
func (a Element) BigInt() *big.Int {
	return new(big.Int).Set(a.value)
}
