// Package dice provides the random source used for damage estimation.
// A Source abstraction keeps the engine deterministic under test.
package dice

import (
	"crypto/rand"
	"math/big"
)

// Source produces uniformly distributed integers.
type Source interface {
	// Intn returns a value in [0, n). Precondition: n > 0.
	Intn(n int) int
}

// cryptoSource implements Source using crypto/rand.
//
// Invariant: All values produced are uniformly distributed in [0, n) for any n > 0.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
// Panics with "dice: crypto/rand failure: <err>" if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// fixedSource returns a repeating sequence of predetermined values, for tests.
type fixedSource struct {
	values []int
	next   int
}

// NewFixedSource returns a Source cycling through values.
//
// Precondition: values must be non-empty and each value must be a valid
// result for the Intn calls it will serve (callers are responsible).
func NewFixedSource(values ...int) Source {
	if len(values) == 0 {
		panic("dice: NewFixedSource requires at least one value")
	}
	return &fixedSource{values: values}
}

// Intn returns the next predetermined value modulo n.
func (f *fixedSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	v := f.values[f.next%len(f.values)]
	f.next++
	return v % n
}
