package detecdsa

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// Signature is an ECDSA signature. Both components lie in [1, n-1] when
// produced by Sign; values read from outside are checked by Verify.
type Signature struct {
	R *big.Int
	S *big.Int
}

// Record is one signed message as read from a signature file: the digest
// integer z plus the signature. Message is kept when the file carried it.
type Record struct {
	Message []byte
	Z       *big.Int
	Signature
}

// Equal reports whether sig and other carry the same components.
func (sig *Signature) Equal(other *Signature) bool {
	if sig == nil || other == nil {
		return sig == other
	}
	return sig.R.Cmp(other.R) == 0 && sig.S.Cmp(other.S) == 0
}

// InRange reports whether both components lie in [1, n-1] for curve.
func (sig *Signature) InRange(curve *Curve) bool {
	if sig == nil {
		return false
	}
	n := curve.group.Order()
	return inScalarRange(sig.R, n) && inScalarRange(sig.S, n)
}

// Serialize returns the ASN.1 DER encoding SEQUENCE { r INTEGER, s INTEGER }.
func (sig *Signature) Serialize() []byte {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(sig.R)
		b.AddASN1BigInt(sig.S)
	})
	return b.BytesOrPanic()
}

// SerializeFixed returns r || s, each left padded to the curve's scalar
// length. Components outside [1, n-1] are rejected.
func (sig *Signature) SerializeFixed(curve *Curve) ([]byte, error) {
	if curve == nil {
		return nil, makeError(ErrUnknownCurve, "nil curve")
	}
	if !sig.InRange(curve) {
		return nil, makeError(ErrInvalidSignatureFormat,
			fmt.Sprintf("signature components must be in [1, n-1] for %s", curve.name))
	}
	size := curve.ByteLen()
	out := make([]byte, 2*size)
	sig.R.FillBytes(out[:size])
	sig.S.FillBytes(out[size:])
	return out, nil
}

// String returns the components in hexadecimal.
func (sig *Signature) String() string {
	return fmt.Sprintf("(r=0x%s, s=0x%s)", sig.R.Text(16), sig.S.Text(16))
}

// ParseDERSignature decodes a DER signature and checks its components
// against curve.
func ParseDERSignature(curve *Curve, der []byte) (*Signature, error) {
	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, makeError(ErrInvalidEncoding, "malformed DER signature")
	}
	return checkedSignature(curve, r, s)
}

// ParseFixedSignature decodes r || s as produced by SerializeFixed.
func ParseFixedSignature(curve *Curve, b []byte) (*Signature, error) {
	size := curve.ByteLen()
	if len(b) != 2*size {
		return nil, makeError(ErrInvalidEncoding,
			fmt.Sprintf("fixed signature for %s must be %d bytes, got %d", curve.name, 2*size, len(b)))
	}
	r := new(big.Int).SetBytes(b[:size])
	s := new(big.Int).SetBytes(b[size:])
	return checkedSignature(curve, r, s)
}

func checkedSignature(curve *Curve, r, s *big.Int) (*Signature, error) {
	sig := &Signature{R: r, S: s}
	if !sig.InRange(curve) {
		return nil, makeError(ErrInvalidSignatureFormat,
			fmt.Sprintf("signature components must be in [1, n-1] for %s", curve.name))
	}
	return sig, nil
}
