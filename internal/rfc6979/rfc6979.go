// Package rfc6979 derives deterministic ECDSA nonces with the HMAC-DRBG
// construction of RFC 6979 section 3.2.
//
// A Generator is created per signing operation and never shared. Its first
// call to Next returns the first in-range candidate; every later call applies
// the reseed step before producing another candidate. Callers that reject a
// candidate for their own reasons (a zero r or s) simply call Next again.
package rfc6979

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"hash"
	"math/big"
)

// DefaultMaxAttempts bounds the number of candidates a Generator produces for
// an order whose bit length is a multiple of eight. MaxAttemptsFor scales it
// for other orders.
const DefaultMaxAttempts = 64

// ErrExhausted is returned when a Generator has produced its maximum number
// of candidates without one being accepted.
var ErrExhausted = errors.New("rfc6979: nonce generation exhausted")

var (
	markerZero = []byte{0x00}
	markerOne  = []byte{0x01}
)

// Generator holds the HMAC-DRBG working state (K, V) for one nonce derivation.
type Generator struct {
	newHash     func() hash.Hash
	n           *big.Int
	qlen        int
	k           []byte
	v           []byte
	emitted     bool
	attempts    int
	maxAttempts int
}

// New seeds a Generator for private scalar d, digest integer z and group
// order n. h selects the HMAC hash; its output size fixes the length of K and
// V independently of the order size.
func New(h func() hash.Hash, d, z, n *big.Int) *Generator {
	qlen := (n.BitLen() + 7) / 8
	x := int2octets(d, qlen)
	zmod := int2octets(new(big.Int).Mod(z, n), qlen)

	size := h().Size()
	g := &Generator{
		newHash:     h,
		n:           new(big.Int).Set(n),
		qlen:        qlen,
		k:           make([]byte, size),
		v:           fill(size, 0x01),
		maxAttempts: MaxAttemptsFor(n),
	}

	// K = HMAC_K(V || 0x00 || x || z); V = HMAC_K(V)
	g.k = g.mac(g.k, g.v, markerZero, x, zmod)
	g.v = g.mac(g.k, g.v)
	// K = HMAC_K(V || 0x01 || x || z); V = HMAC_K(V)
	g.k = g.mac(g.k, g.v, markerOne, x, zmod)
	g.v = g.mac(g.k, g.v)

	wipe(x)
	wipe(zmod)
	return g
}

// MaxAttemptsFor returns the default candidate bound for order n.
//
// Candidates are qlen whole bytes with no bit shift, so when n is not byte
// aligned each one lands below n with probability about 2^-excess, where
// excess = 8*qlen - bitlen(n). A P-521 order has an excess of seven bits and
// accepts roughly one candidate in 128. The bound grows by the same factor
// to keep exhaustion out of reach.
func MaxAttemptsFor(n *big.Int) int {
	bits := n.BitLen()
	excess := 8*((bits+7)/8) - bits
	return DefaultMaxAttempts << excess
}

// WithMaxAttempts overrides the candidate bound. Values below one are ignored.
func (g *Generator) WithMaxAttempts(max int) *Generator {
	if max > 0 {
		g.maxAttempts = max
	}
	return g
}

// Attempts returns the number of candidates produced so far.
func (g *Generator) Attempts() int {
	return g.attempts
}

// Next returns the next nonce k with 1 <= k < n.
func (g *Generator) Next() (*big.Int, error) {
	for {
		if g.emitted {
			g.reseed()
		}
		if g.attempts >= g.maxAttempts {
			return nil, fmt.Errorf("%w after %d candidates", ErrExhausted, g.attempts)
		}
		g.emitted = true
		g.attempts++

		t := g.blocks(g.qlen)
		cand := new(big.Int).SetBytes(t)
		wipe(t)
		if cand.Sign() > 0 && cand.Cmp(g.n) < 0 {
			return cand, nil
		}
	}
}

// Nonce returns the first nonce accepted for (d, z, n).
func Nonce(h func() hash.Hash, d, z, n *big.Int) (*big.Int, error) {
	return New(h, d, z, n).Next()
}

// blocks concatenates successive V = HMAC_K(V) outputs until at least size
// bytes are available and returns exactly size bytes.
func (g *Generator) blocks(size int) []byte {
	t := make([]byte, 0, size+len(g.v))
	for len(t) < size {
		g.v = g.mac(g.k, g.v)
		t = append(t, g.v...)
	}
	return t[:size]
}

// reseed applies K = HMAC_K(V || 0x00); V = HMAC_K(V).
func (g *Generator) reseed() {
	g.k = g.mac(g.k, g.v, markerZero)
	g.v = g.mac(g.k, g.v)
}

func (g *Generator) mac(key []byte, parts ...[]byte) []byte {
	m := hmac.New(g.newHash, key)
	for _, p := range parts {
		m.Write(p)
	}
	return m.Sum(nil)
}

// int2octets encodes x big-endian, left padded to exactly size bytes.
func int2octets(x *big.Int, size int) []byte {
	out := make([]byte, size)
	b := x.Bytes()
	if len(b) > size {
		b = b[len(b)-size:]
	}
	copy(out[size-len(b):], b)
	return out
}

func fill(size int, value byte) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = value
	}
	return out
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
