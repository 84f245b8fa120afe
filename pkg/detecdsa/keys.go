package detecdsa

import (
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/mahdiidarabi/ecdsa-deterministic/internal/group"
	"github.com/mahdiidarabi/ecdsa-deterministic/pkg/logging"
)

// PublicKey is a public curve point Q = d·G.
type PublicKey struct {
	X *big.Int
	Y *big.Int
}

func (p *PublicKey) point() group.Point {
	return group.Point{X: p.X, Y: p.Y}
}

// Equal reports whether p and q are the same point.
func (p *PublicKey) Equal(q *PublicKey) bool {
	if p == nil || q == nil {
		return p == q
	}
	return p.point().Equal(q.point())
}

// Verify reports whether sig is a valid signature of message by p on curve.
func (p *PublicKey) Verify(message []byte, sig *Signature, curve *Curve) bool {
	return Verify(message, sig, p, curve)
}

// KeyPair holds a private scalar d and its public point Q. The scalar is
// never printed: String, Format and LogValue all redact it.
type KeyPair struct {
	curve  *Curve
	d      *big.Int
	public *PublicKey
}

// GenerateKey draws d uniformly from [1, n-1] using r and derives Q = d·G.
// A nil reader selects crypto/rand.Reader.
func GenerateKey(curve *Curve, r io.Reader) (*KeyPair, error) {
	if curve == nil {
		return nil, makeError(ErrUnknownCurve, "nil curve")
	}
	if r == nil {
		r = rand.Reader
	}

	nMinusOne := new(big.Int).Sub(curve.Order(), big.NewInt(1))
	d, err := rand.Int(r, nMinusOne)
	if err != nil {
		return nil, fmt.Errorf("failed to draw private scalar: %w", err)
	}
	d.Add(d, big.NewInt(1))

	return NewKeyPair(curve, d)
}

// NewKeyPair builds a key pair from an existing private scalar.
func NewKeyPair(curve *Curve, d *big.Int) (*KeyPair, error) {
	if curve == nil {
		return nil, makeError(ErrUnknownCurve, "nil curve")
	}
	if !inScalarRange(d, curve.group.Order()) {
		return nil, makeError(ErrInvalidPrivateKey,
			fmt.Sprintf("private scalar must be in [1, n-1] for %s", curve.name))
	}

	q := curve.group.ScalarBaseMult(d)
	return &KeyPair{
		curve:  curve,
		d:      new(big.Int).Set(d),
		public: &PublicKey{X: q.X, Y: q.Y},
	}, nil
}

// Curve returns the curve the key belongs to.
func (k *KeyPair) Curve() *Curve {
	return k.curve
}

// D returns a copy of the private scalar.
func (k *KeyPair) D() *big.Int {
	return new(big.Int).Set(k.d)
}

// PublicKey returns a copy of the public point.
func (k *KeyPair) PublicKey() *PublicKey {
	return &PublicKey{X: new(big.Int).Set(k.public.X), Y: new(big.Int).Set(k.public.Y)}
}

// Sign signs message with the default engine.
func (k *KeyPair) Sign(message []byte) (*Signature, error) {
	return defaultEngine.Sign(message, k.d, k.curve)
}

// Zeroize overwrites the private scalar. The key pair must not be used
// afterwards.
func (k *KeyPair) Zeroize() {
	words := k.d.Bits()
	for i := range words {
		words[i] = 0
	}
	k.d.SetInt64(0)
}

// String implements fmt.Stringer without revealing the private scalar.
func (k *KeyPair) String() string {
	return fmt.Sprintf("KeyPair{curve: %s, d: %s}", k.curve.name, logging.Placeholder())
}

// Format routes every fmt verb through String so %v, %+v, %d and %x cannot
// print the scalar.
func (k *KeyPair) Format(f fmt.State, _ rune) {
	io.WriteString(f, k.String())
}

// LogValue implements slog.LogValuer.
func (k *KeyPair) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("curve", k.curve.name),
		logging.Redacted("private_key"),
	)
}

// MarshalPublicKey encodes pub as an uncompressed SEC1 point.
func MarshalPublicKey(curve *Curve, pub *PublicKey) ([]byte, error) {
	if err := checkEncodable(curve, pub); err != nil {
		return nil, err
	}
	out, err := curve.group.MarshalUncompressed(pub.point())
	if err != nil {
		return nil, makeError(ErrInvalidPublicKey, err.Error())
	}
	return out, nil
}

// MarshalPublicKeyCompressed encodes pub as a compressed SEC1 point.
func MarshalPublicKeyCompressed(curve *Curve, pub *PublicKey) ([]byte, error) {
	if err := checkEncodable(curve, pub); err != nil {
		return nil, err
	}
	size := curve.group.CoordinateLen()
	out := make([]byte, 1+size)
	out[0] = 0x02 | byte(pub.Y.Bit(0))
	pub.X.FillBytes(out[1:])
	return out, nil
}

// checkEncodable rejects keys with no SEC1 encoding: nil, the identity, and
// points off the curve, whose coordinates may not fit the field width.
func checkEncodable(curve *Curve, pub *PublicKey) error {
	if curve == nil {
		return makeError(ErrUnknownCurve, "nil curve")
	}
	if pub == nil || !curve.group.IsOnCurve(pub.point()) {
		return makeError(ErrInvalidPublicKey,
			fmt.Sprintf("public key is not a point on %s", curve.name))
	}
	return nil
}

// ParsePublicKey decodes a SEC1 encoded point for curve. Uncompressed points
// are accepted for every curve; compressed points for secp256k1 and the NIST
// curves. The point must lie on the curve.
func ParsePublicKey(curve *Curve, b []byte) (*PublicKey, error) {
	if len(b) == 0 {
		return nil, makeError(ErrInvalidPublicKey, "empty public key")
	}

	var p group.Point
	switch b[0] {
	case 0x04:
		pt, err := curve.group.UnmarshalUncompressed(b)
		if err != nil {
			return nil, makeError(ErrInvalidPublicKey, err.Error())
		}
		p = pt

	case 0x02, 0x03:
		x, y, err := decompress(curve, b)
		if err != nil {
			return nil, err
		}
		p = group.Point{X: x, Y: y}

	default:
		return nil, makeError(ErrInvalidPublicKey,
			fmt.Sprintf("unsupported public key prefix 0x%02x", b[0]))
	}

	if !curve.group.IsOnCurve(p) {
		return nil, makeError(ErrInvalidPublicKey,
			fmt.Sprintf("public key is not on %s", curve.name))
	}
	return &PublicKey{X: p.X, Y: p.Y}, nil
}

func decompress(curve *Curve, b []byte) (*big.Int, *big.Int, error) {
	switch curve.name {
	case "secp256k1":
		pk, err := btcec.ParsePubKey(b)
		if err != nil {
			return nil, nil, makeError(ErrInvalidPublicKey, err.Error())
		}
		return pk.X(), pk.Y(), nil

	case "secp256r1", "secp384r1", "secp521r1":
		x, y := elliptic.UnmarshalCompressed(curve.group.Curve(), b)
		if x == nil {
			return nil, nil, makeError(ErrInvalidPublicKey,
				fmt.Sprintf("invalid compressed point for %s", curve.name))
		}
		return x, y, nil

	default:
		return nil, nil, makeError(ErrInvalidPublicKey,
			fmt.Sprintf("compressed points are not supported for %s", curve.name))
	}
}

func inScalarRange(v, n *big.Int) bool {
	return v != nil && v.Sign() > 0 && v.Cmp(n) < 0
}
