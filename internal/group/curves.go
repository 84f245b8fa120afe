package group

import (
	"crypto/elliptic"

	"github.com/ProtonMail/go-crypto/brainpool"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Secp256k1 returns the secp256k1 group backed by the decred implementation.
func Secp256k1() *Group {
	return New("secp256k1", secp256k1.S256())
}

// P256 returns the NIST P-256 (secp256r1) group.
func P256() *Group {
	return New("secp256r1", elliptic.P256())
}

// P384 returns the NIST P-384 (secp384r1) group.
func P384() *Group {
	return New("secp384r1", elliptic.P384())
}

// P521 returns the NIST P-521 (secp521r1) group.
func P521() *Group {
	return New("secp521r1", elliptic.P521())
}

// BrainpoolP256r1 returns the brainpoolP256r1 group.
func BrainpoolP256r1() *Group {
	return New("brainpoolP256r1", brainpool.P256r1())
}
