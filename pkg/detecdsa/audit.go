package detecdsa

import (
	"errors"
	"fmt"
	"math/big"
)

// NonceReuse describes two records that were signed with the same nonce.
type NonceReuse struct {
	Pair       [2]int   // Indices of the two records
	PrivateKey *big.Int // Private scalar recovered from the pair
	Verified   bool     // Whether the scalar reproduces the supplied public key
}

// RecoverFromNonceReuse recovers the private scalar from two signatures that
// share r (and therefore the nonce) over different digests:
//
//	d = (s2·z1 - s1·z2) / (r·(s1 - s2)) mod n
//
// Args:
//   - curve: curve both signatures were made on
//   - a, b: the two records; a.R must equal b.R
//
// Returns:
//   - The private scalar, or an error if the pair does not determine one
func RecoverFromNonceReuse(curve *Curve, a, b *Record) (*big.Int, error) {
	if curve == nil {
		return nil, makeError(ErrUnknownCurve, "nil curve")
	}
	if a.R.Cmp(b.R) != 0 {
		return nil, errors.New("signatures do not share r")
	}
	n := curve.group.Order()

	z1 := new(big.Int).Mod(a.Z, n)
	z2 := new(big.Int).Mod(b.Z, n)

	// numerator: s2·z1 - s1·z2
	numerator := new(big.Int).Mul(b.S, z1)
	numerator.Sub(numerator, new(big.Int).Mul(a.S, z2))
	numerator.Mod(numerator, n)

	// denominator: r·(s1 - s2)
	denominator := new(big.Int).Sub(a.S, b.S)
	denominator.Mul(denominator, a.R)
	denominator.Mod(denominator, n)

	if denominator.Sign() == 0 {
		return nil, errors.New("denominator is zero: cannot recover private key")
	}

	denominatorInv := new(big.Int).ModInverse(denominator, n)
	if denominatorInv == nil {
		return nil, errors.New("failed to compute modular inverse")
	}

	priv := new(big.Int).Mul(numerator, denominatorInv)
	priv.Mod(priv, n)
	if priv.Sign() == 0 {
		return nil, errors.New("recovered private key is zero")
	}
	return priv, nil
}

// FindNonceReuse scans records for pairs that share r over distinct digests.
// Repeated signatures of the same digest are expected with deterministic
// nonces and are not reported. When pub is non-nil each recovered scalar is
// checked against it.
func FindNonceReuse(curve *Curve, records []*Record, pub *PublicKey) ([]NonceReuse, error) {
	if curve == nil {
		return nil, makeError(ErrUnknownCurve, "nil curve")
	}
	n := curve.group.Order()

	byR := make(map[string][]int)
	for i, rec := range records {
		if rec == nil || rec.Z == nil || !rec.Signature.InRange(curve) {
			return nil, makeError(ErrInvalidSignatureFormat, fmt.Sprintf("record %d is not a valid signature for %s", i, curve.name))
		}
		key := rec.R.Text(16)
		byR[key] = append(byR[key], i)
	}

	var found []NonceReuse
	for i := range records {
		indices := byR[records[i].R.Text(16)]
		for _, j := range indices {
			if j <= i {
				continue
			}
			zi := new(big.Int).Mod(records[i].Z, n)
			zj := new(big.Int).Mod(records[j].Z, n)
			if zi.Cmp(zj) == 0 {
				continue
			}

			priv, err := RecoverFromNonceReuse(curve, records[i], records[j])
			if err != nil {
				continue
			}

			verified := false
			if pub != nil {
				q := curve.group.ScalarBaseMult(priv)
				verified = pub.Equal(&PublicKey{X: q.X, Y: q.Y})
			}
			found = append(found, NonceReuse{
				Pair:       [2]int{i, j},
				PrivateKey: priv,
				Verified:   verified,
			})
		}
	}
	return found, nil
}
