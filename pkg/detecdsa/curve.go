package detecdsa

import (
	"crypto"
	_ "crypto/sha256" // registers SHA-256 for crypto.Hash
	_ "crypto/sha512" // registers SHA-384 and SHA-512 for crypto.Hash
	"fmt"
	"math/big"
	"strings"

	"github.com/mahdiidarabi/ecdsa-deterministic/internal/group"
)

// Curve is an immutable registry entry: a named prime order group together
// with the digest size used when hashing messages for it.
type Curve struct {
	name        string
	aliases     []string
	description string
	hashSize    int
	group       *group.Group
}

// registry is populated once at package initialization and never modified.
var registry = []*Curve{
	{
		name:        "secp256k1",
		description: "Bitcoin/Ethereum curve (256-bit)",
		hashSize:    32,
		group:       group.Secp256k1(),
	},
	{
		name:        "secp256r1",
		aliases:     []string{"P-256", "prime256v1"},
		description: "NIST P-256 (256-bit)",
		hashSize:    32,
		group:       group.P256(),
	},
	{
		name:        "secp384r1",
		aliases:     []string{"P-384"},
		description: "NIST P-384 (384-bit)",
		hashSize:    48,
		group:       group.P384(),
	},
	{
		name:        "secp521r1",
		aliases:     []string{"P-521"},
		description: "NIST P-521 (521-bit)",
		hashSize:    66,
		group:       group.P521(),
	},
	{
		name:        "brainpoolP256r1",
		description: "Brainpool P-256 (256-bit)",
		hashSize:    32,
		group:       group.BrainpoolP256r1(),
	},
}

var registryIndex = func() map[string]*Curve {
	index := make(map[string]*Curve)
	for _, c := range registry {
		index[strings.ToLower(c.name)] = c
		for _, alias := range c.aliases {
			index[strings.ToLower(alias)] = c
		}
	}
	return index
}()

// Lookup returns the registered curve with the given name or alias. Names
// are matched case-insensitively.
func Lookup(name string) (*Curve, error) {
	c, ok := registryIndex[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, makeError(ErrUnknownCurve, fmt.Sprintf("unknown curve %q", name))
	}
	return c, nil
}

// Curves returns every registered curve in registry order.
func Curves() []*Curve {
	out := make([]*Curve, len(registry))
	copy(out, registry)
	return out
}

// Name returns the canonical curve name.
func (c *Curve) Name() string {
	return c.name
}

// Aliases returns the alternative names accepted by Lookup.
func (c *Curve) Aliases() []string {
	return append([]string(nil), c.aliases...)
}

// Description returns a short human-readable description.
func (c *Curve) Description() string {
	return c.description
}

// HashSize returns the declared digest size in bytes.
func (c *Curve) HashSize() int {
	return c.hashSize
}

// Hash returns the hash algorithm chosen for the curve's digest size.
func (c *Curve) Hash() crypto.Hash {
	return SelectHash(c.hashSize)
}

// Order returns a copy of the group order n.
func (c *Curve) Order() *big.Int {
	return c.group.Order()
}

// BitSize returns the bit length of the group order.
func (c *Curve) BitSize() int {
	return c.group.Order().BitLen()
}

// ByteLen returns the byte length of a scalar modulo n.
func (c *Curve) ByteLen() int {
	return (c.BitSize() + 7) / 8
}

// Generator returns a copy of the base point G.
func (c *Curve) Generator() *PublicKey {
	g := c.group.Generator()
	return &PublicKey{X: g.X, Y: g.Y}
}

// Digest hashes message with the curve's selected hash algorithm.
func (c *Curve) Digest(message []byte) []byte {
	h := c.Hash().New()
	h.Write(message)
	return h.Sum(nil)
}

// String returns the canonical curve name.
func (c *Curve) String() string {
	return c.name
}

// SelectHash maps a digest size in bytes to a hash algorithm: up to 32 bytes
// selects SHA-256, up to 48 SHA-384, anything larger SHA-512.
func SelectHash(hashSize int) crypto.Hash {
	switch {
	case hashSize <= 32:
		return crypto.SHA256
	case hashSize <= 48:
		return crypto.SHA384
	default:
		return crypto.SHA512
	}
}
