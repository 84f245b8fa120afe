package detecdsa

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"math/big"
	"strings"

	"github.com/mahdiidarabi/ecdsa-deterministic/internal/rfc6979"
	"github.com/mahdiidarabi/ecdsa-deterministic/pkg/logging"
)

// NonceHash selects the HMAC hash driving the nonce generator.
type NonceHash int

const (
	// NonceHashSHA256 uses HMAC-SHA256 for every curve. Larger orders are
	// covered by concatenating several HMAC blocks.
	NonceHashSHA256 NonceHash = iota

	// NonceHashCurve uses the same hash as the message digest, the pairing
	// RFC 6979 describes.
	NonceHashCurve
)

// String returns the configuration name of h.
func (h NonceHash) String() string {
	switch h {
	case NonceHashSHA256:
		return "sha256"
	case NonceHashCurve:
		return "curve"
	default:
		return fmt.Sprintf("NonceHash(%d)", int(h))
	}
}

// ParseNonceHash converts a configuration name into a NonceHash. An empty
// name selects NonceHashSHA256.
func ParseNonceHash(name string) (NonceHash, error) {
	switch strings.ToLower(name) {
	case "", "sha256":
		return NonceHashSHA256, nil
	case "curve":
		return NonceHashCurve, nil
	default:
		return 0, fmt.Errorf("unknown nonce hash %q", name)
	}
}

// nonceSource yields successive nonce candidates for one signing operation.
type nonceSource interface {
	Next() (*big.Int, error)
}

// Engine signs and verifies messages. It carries configuration only and
// holds no per-operation state, so one Engine may be shared by any number of
// goroutines.
type Engine struct {
	logger           logging.Logger
	nonceHash        NonceHash
	maxNonceAttempts int
}

// defaultEngine backs the package level Sign and Verify functions.
var defaultEngine = NewEngine()

// NewEngine creates an engine with HMAC-SHA256 nonces, the default nonce
// bound and a logger that discards everything.
func NewEngine() *Engine {
	return &Engine{
		logger:    logging.Discard(),
		nonceHash: NonceHashSHA256,
	}
}

// WithLogger sets the logger used for diagnostics.
func (e *Engine) WithLogger(logger logging.Logger) *Engine {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// WithNonceHash selects the HMAC hash of the nonce generator.
func (e *Engine) WithNonceHash(h NonceHash) *Engine {
	e.nonceHash = h
	return e
}

// WithMaxNonceAttempts bounds the number of nonce candidates per signature.
// Values below one keep the default, which the nonce generator sizes from the
// curve order.
func (e *Engine) WithMaxNonceAttempts(max int) *Engine {
	if max > 0 {
		e.maxNonceAttempts = max
	}
	return e
}

// Sign hashes message with the curve's hash and signs the digest with d.
func Sign(message []byte, d *big.Int, curve *Curve) (*Signature, error) {
	return defaultEngine.Sign(message, d, curve)
}

// Verify reports whether sig is a valid signature of message under pub.
func Verify(message []byte, sig *Signature, pub *PublicKey, curve *Curve) bool {
	return defaultEngine.Verify(message, sig, pub, curve)
}

// Sign hashes message with the curve's hash and signs the digest with d.
// Identical inputs always produce the identical signature.
func (e *Engine) Sign(message []byte, d *big.Int, curve *Curve) (*Signature, error) {
	if curve == nil {
		return nil, makeError(ErrUnknownCurve, "nil curve")
	}
	return e.SignDigest(curve.Digest(message), d, curve)
}

// SignDigest signs a precomputed digest, interpreted as a big-endian integer.
func (e *Engine) SignDigest(digest []byte, d *big.Int, curve *Curve) (*Signature, error) {
	if curve == nil {
		return nil, makeError(ErrUnknownCurve, "nil curve")
	}
	n := curve.group.Order()
	if !inScalarRange(d, n) {
		return nil, makeError(ErrInvalidPrivateKey,
			fmt.Sprintf("private scalar must be in [1, n-1] for %s", curve.name))
	}

	z := new(big.Int).SetBytes(digest)
	gen := rfc6979.New(e.nonceHashFunc(curve), d, z, n)
	if e.maxNonceAttempts > 0 {
		gen.WithMaxAttempts(e.maxNonceAttempts)
	}

	ctx := context.Background()
	log := e.logger.With("curve", curve.name, logging.Redacted("private_key"))

	sig, err := e.signWithSource(ctx, log, curve, d, z, gen)
	if err != nil {
		log.Error(ctx, "signing failed", "nonce_attempts", gen.Attempts(), "error", err)
		return nil, err
	}
	log.Debug(ctx, "signature produced", "nonce_attempts", gen.Attempts())
	return sig, nil
}

// signWithSource draws nonces until one yields a signature with r and s both
// nonzero.
func (e *Engine) signWithSource(ctx context.Context, log logging.Logger, curve *Curve, d, z *big.Int, src nonceSource) (*Signature, error) {
	for {
		k, err := src.Next()
		if err != nil {
			if errors.Is(err, rfc6979.ErrExhausted) {
				return nil, makeError(ErrNonceGenerationExhausted,
					fmt.Sprintf("no usable nonce for %s: %v", curve.name, err))
			}
			return nil, err
		}

		sig, err := signWithNonce(curve, d, z, k)
		if errors.Is(err, ErrDegenerateSignatureComponent) {
			log.Warn(ctx, "degenerate signature component, advancing nonce generator")
			continue
		}
		return sig, err
	}
}

// signWithNonce computes r = (k·G).x mod n and s = k⁻¹(z + d·r) mod n.
func signWithNonce(curve *Curve, d, z, k *big.Int) (*Signature, error) {
	n := curve.group.Order()

	R := curve.group.ScalarBaseMult(k)
	r := new(big.Int).Mod(R.X, n)
	if r.Sign() == 0 {
		return nil, makeError(ErrDegenerateSignatureComponent, "r is zero")
	}

	kInv := new(big.Int).ModInverse(k, n)
	if kInv == nil {
		return nil, makeError(ErrDegenerateSignatureComponent, "nonce has no inverse")
	}

	s := new(big.Int).Mul(d, r)
	s.Add(s, z)
	s.Mul(s, kInv)
	s.Mod(s, n)
	if s.Sign() == 0 {
		return nil, makeError(ErrDegenerateSignatureComponent, "s is zero")
	}

	return &Signature{R: r, S: s}, nil
}

// Verify reports whether sig is a valid signature of message under pub.
func (e *Engine) Verify(message []byte, sig *Signature, pub *PublicKey, curve *Curve) bool {
	if curve == nil {
		return false
	}
	return e.VerifyDigest(curve.Digest(message), sig, pub, curve)
}

// VerifyDigest checks sig against a precomputed digest. Out-of-range
// components, a public key off the curve or at infinity, and a computed
// point at infinity all yield false.
func (e *Engine) VerifyDigest(digest []byte, sig *Signature, pub *PublicKey, curve *Curve) bool {
	if curve == nil || pub == nil {
		return false
	}
	ctx := context.Background()
	log := e.logger.With("curve", curve.name)

	if !sig.InRange(curve) {
		log.Debug(ctx, "signature rejected", "reason", ErrInvalidSignatureFormat)
		return false
	}
	q := pub.point()
	if !curve.group.IsOnCurve(q) {
		log.Debug(ctx, "signature rejected", "reason", ErrInvalidPublicKey)
		return false
	}

	n := curve.group.Order()
	z := new(big.Int).SetBytes(digest)
	w := new(big.Int).ModInverse(sig.S, n)
	if w == nil {
		return false
	}

	u1 := new(big.Int).Mul(z, w)
	u1.Mod(u1, n)
	u2 := new(big.Int).Mul(sig.R, w)
	u2.Mod(u2, n)

	p := curve.group.Add(curve.group.ScalarBaseMult(u1), curve.group.ScalarMult(q, u2))
	if p.IsIdentity() {
		log.Debug(ctx, "signature rejected", "reason", "point at infinity")
		return false
	}

	v := new(big.Int).Mod(p.X, n)
	ok := v.Cmp(sig.R) == 0
	log.Debug(ctx, "signature checked", "valid", ok)
	return ok
}

func (e *Engine) nonceHashFunc(curve *Curve) func() hash.Hash {
	if e.nonceHash == NonceHashCurve {
		return curve.Hash().New
	}
	return sha256.New
}
