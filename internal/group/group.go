// Package group adapts elliptic curve implementations to the small set of
// group operations the signing engine needs: generator, order, scalar
// multiplication, point addition and on-curve checks.
//
// The arithmetic itself is provided by crypto/elliptic (NIST curves), the
// decred secp256k1 package and the ProtonMail brainpool package. Every value
// crossing this boundary is copied, so callers may mutate what they get back.
package group

import (
	"crypto/elliptic"
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidPoint is returned when an encoded point cannot be decoded into a
// point on the curve.
var ErrInvalidPoint = errors.New("group: invalid point encoding")

// Point is an affine curve point. The identity element is represented as
// (0, 0), the convention shared by crypto/elliptic and the secp256k1 package.
type Point struct {
	X *big.Int
	Y *big.Int
}

// Identity returns the point at infinity.
func Identity() Point {
	return Point{X: new(big.Int), Y: new(big.Int)}
}

// IsIdentity reports whether p is the point at infinity.
func (p Point) IsIdentity() bool {
	return p.X == nil || p.Y == nil || (p.X.Sign() == 0 && p.Y.Sign() == 0)
}

// Equal reports whether p and q are the same point.
func (p Point) Equal(q Point) bool {
	if p.IsIdentity() || q.IsIdentity() {
		return p.IsIdentity() && q.IsIdentity()
	}
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

// Copy returns a deep copy of p.
func (p Point) Copy() Point {
	if p.IsIdentity() {
		return Identity()
	}
	return Point{X: new(big.Int).Set(p.X), Y: new(big.Int).Set(p.Y)}
}

// Group is a prime order elliptic curve group backed by an elliptic.Curve.
type Group struct {
	name  string
	curve elliptic.Curve
	n     *big.Int
	p     *big.Int
}

// New wraps curve. The order and field prime are read once from the curve
// parameters.
func New(name string, curve elliptic.Curve) *Group {
	params := curve.Params()
	return &Group{
		name:  name,
		curve: curve,
		n:     new(big.Int).Set(params.N),
		p:     new(big.Int).Set(params.P),
	}
}

// Name returns the curve name the group was registered with.
func (g *Group) Name() string {
	return g.name
}

// Order returns a copy of the group order n.
func (g *Group) Order() *big.Int {
	return new(big.Int).Set(g.n)
}

// BitSize returns the bit length of the underlying field.
func (g *Group) BitSize() int {
	return g.curve.Params().BitSize
}

// CoordinateLen returns the byte length of one encoded field element.
func (g *Group) CoordinateLen() int {
	return (g.p.BitLen() + 7) / 8
}

// Generator returns a copy of the base point G.
func (g *Group) Generator() Point {
	params := g.curve.Params()
	return Point{X: new(big.Int).Set(params.Gx), Y: new(big.Int).Set(params.Gy)}
}

// ScalarBaseMult returns k·G. k is reduced modulo the group order first.
func (g *Group) ScalarBaseMult(k *big.Int) Point {
	scalar := g.reduce(k)
	if scalar.Sign() == 0 {
		return Identity()
	}
	x, y := g.curve.ScalarBaseMult(scalar.Bytes())
	return Point{X: x, Y: y}.Copy()
}

// ScalarMult returns k·P. P must be on the curve or the identity.
func (g *Group) ScalarMult(p Point, k *big.Int) Point {
	scalar := g.reduce(k)
	if scalar.Sign() == 0 || p.IsIdentity() {
		return Identity()
	}
	x, y := g.curve.ScalarMult(p.X, p.Y, scalar.Bytes())
	return Point{X: x, Y: y}.Copy()
}

// Add returns P + Q. Both points must be on the curve or the identity.
func (g *Group) Add(p, q Point) Point {
	switch {
	case p.IsIdentity():
		return q.Copy()
	case q.IsIdentity():
		return p.Copy()
	}
	x, y := g.curve.Add(p.X, p.Y, q.X, q.Y)
	return Point{X: x, Y: y}.Copy()
}

// IsOnCurve reports whether p is a non-identity point with coordinates in the
// field that satisfies the curve equation.
func (g *Group) IsOnCurve(p Point) bool {
	if p.IsIdentity() {
		return false
	}
	if p.X.Sign() < 0 || p.Y.Sign() < 0 || p.X.Cmp(g.p) >= 0 || p.Y.Cmp(g.p) >= 0 {
		return false
	}
	return g.curve.IsOnCurve(p.X, p.Y)
}

// MarshalUncompressed encodes p as 0x04 || X || Y with fixed width
// coordinates. The identity and points off the curve have no encoding.
func (g *Group) MarshalUncompressed(p Point) ([]byte, error) {
	if !g.IsOnCurve(p) {
		return nil, fmt.Errorf("%w: cannot encode a point that is not on %s", ErrInvalidPoint, g.name)
	}
	size := g.CoordinateLen()
	out := make([]byte, 1+2*size)
	out[0] = 0x04
	p.X.FillBytes(out[1 : 1+size])
	p.Y.FillBytes(out[1+size:])
	return out, nil
}

// UnmarshalUncompressed decodes an uncompressed SEC1 point and checks that it
// lies on the curve.
func (g *Group) UnmarshalUncompressed(b []byte) (Point, error) {
	size := g.CoordinateLen()
	if len(b) != 1+2*size || b[0] != 0x04 {
		return Point{}, fmt.Errorf("%w: %s expects %d bytes with 0x04 prefix, got %d",
			ErrInvalidPoint, g.name, 1+2*size, len(b))
	}
	p := Point{
		X: new(big.Int).SetBytes(b[1 : 1+size]),
		Y: new(big.Int).SetBytes(b[1+size:]),
	}
	if !g.IsOnCurve(p) {
		return Point{}, fmt.Errorf("%w: point is not on %s", ErrInvalidPoint, g.name)
	}
	return p, nil
}

// Curve exposes the wrapped elliptic.Curve, for interop with crypto/ecdsa.
func (g *Group) Curve() elliptic.Curve {
	return g.curve
}

func (g *Group) reduce(k *big.Int) *big.Int {
	if k == nil {
		return new(big.Int)
	}
	return new(big.Int).Mod(k, g.n)
}
