package primitives

import (
	"github.com/holiman/uint256"
)

// U256 is a 256-bit unsigned integer with wrapping arithmetic, matching the
// semantics EVM words require. It wraps github.com/holiman/uint256.Int, the
// representation the wider go-ethereum ecosystem uses for EVM words, instead
// of reimplementing wrapping big-integer arithmetic from scratch.
type U256 struct {
	inner uint256.Int
}

// ZeroU256 returns the zero value.
func ZeroU256() U256 { return U256{} }

// U256FromUint64 constructs a U256 from a uint64.
func U256FromUint64(v uint64) U256 {
	var u U256
	u.inner.SetUint64(v)
	return u
}

// U256FromBytes constructs a U256 from a big-endian byte slice, left-padding
// with zero when shorter than 32 bytes and taking only the low 32 bytes when
// longer.
func U256FromBytes(b []byte) U256 {
	var u U256
	u.inner.SetBytes(b)
	return u
}

// Bytes32 returns the big-endian 32-byte serialization of u.
func (u U256) Bytes32() [32]byte {
	return u.inner.Bytes32()
}

// Bytes returns the big-endian 32-byte serialization of u as a slice.
func (u U256) Bytes() []byte {
	b := u.inner.Bytes32()
	return b[:]
}

// Uint64 returns the low 64 bits of u.
func (u U256) Uint64() uint64 { return u.inner.Uint64() }

// FitsUint64 reports whether u's value fits in a uint64 without truncation.
func (u U256) FitsUint64() bool { return u.inner.IsUint64() }

// IsZero reports whether u is zero.
func (u U256) IsZero() bool { return u.inner.IsZero() }

// Eq reports whether u equals other.
func (u U256) Eq(other U256) bool { return u.inner.Eq(&other.inner) }

// Add returns u+other mod 2^256.
func (u U256) Add(other U256) U256 {
	var out U256
	out.inner.Add(&u.inner, &other.inner)
	return out
}

// Sub returns u-other mod 2^256.
func (u U256) Sub(other U256) U256 {
	var out U256
	out.inner.Sub(&u.inner, &other.inner)
	return out
}

// Lsh returns u shifted left by n bits.
func (u U256) Lsh(n uint) U256 {
	var out U256
	out.inner.Lsh(&u.inner, n)
	return out
}

// Rsh returns u shifted right by n bits.
func (u U256) Rsh(n uint) U256 {
	var out U256
	out.inner.Rsh(&u.inner, n)
	return out
}

// ToBig returns a copy of u's value as a *uint256.Int.
func (u U256) ToBig() *uint256.Int {
	c := u.inner
	return &c
}

// One returns the U256 value 1.
func One() U256 { return U256FromUint64(1) }
