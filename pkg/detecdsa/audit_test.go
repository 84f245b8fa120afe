package detecdsa

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reusedNonceRecords signs each message with the same nonce k.
func reusedNonceRecords(t *testing.T, curve *Curve, d, k *big.Int, messages ...string) []*Record {
	t.Helper()
	records := make([]*Record, 0, len(messages))
	for _, msg := range messages {
		z := new(big.Int).SetBytes(curve.Digest([]byte(msg)))
		sig, err := signWithNonce(curve, d, z, k)
		require.NoError(t, err)
		records = append(records, &Record{Message: []byte(msg), Z: z, Signature: *sig})
	}
	return records
}

func TestRecoverFromNonceReuse(t *testing.T) {
	for _, curve := range Curves() {
		t.Run(curve.Name(), func(t *testing.T) {
			d := new(big.Int).SetBytes([]byte("audit private key"))
			d.Mod(d, curve.Order())
			records := reusedNonceRecords(t, curve, d, big.NewInt(1234567), "first", "second")

			priv, err := RecoverFromNonceReuse(curve, records[0], records[1])
			require.NoError(t, err)
			assert.Equal(t, 0, d.Cmp(priv))
		})
	}
}

func TestRecoverFromNonceReuseErrors(t *testing.T) {
	curve := mustCurve(t, "secp256k1")
	d := big.NewInt(77)
	records := reusedNonceRecords(t, curve, d, big.NewInt(99), "a", "b")

	_, err := RecoverFromNonceReuse(nil, records[0], records[1])
	require.ErrorIs(t, err, ErrUnknownCurve)

	// Same signature twice: s1 - s2 = 0.
	_, err = RecoverFromNonceReuse(curve, records[0], records[0])
	require.Error(t, err)

	other := *records[1]
	other.R = new(big.Int).Add(other.R, big.NewInt(1))
	_, err = RecoverFromNonceReuse(curve, records[0], &other)
	require.Error(t, err)
}

func TestFindNonceReuse(t *testing.T) {
	curve := mustCurve(t, "secp256r1")
	key, err := NewKeyPair(curve, big.NewInt(0xC0FFEE))
	require.NoError(t, err)

	reused := reusedNonceRecords(t, curve, key.D(), big.NewInt(42), "tx-1", "tx-2")

	fresh := make([]*Record, 0, 2)
	for _, msg := range []string{"tx-1", "tx-3"} {
		sig, err := key.Sign([]byte(msg))
		require.NoError(t, err)
		fresh = append(fresh, &Record{Z: new(big.Int).SetBytes(curve.Digest([]byte(msg))), Signature: *sig})
	}

	records := []*Record{fresh[0], reused[0], fresh[1], reused[1]}
	found, err := FindNonceReuse(curve, records, key.PublicKey())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, [2]int{1, 3}, found[0].Pair)
	assert.Equal(t, 0, key.D().Cmp(found[0].PrivateKey))
	assert.True(t, found[0].Verified)

	found, err = FindNonceReuse(curve, records, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.False(t, found[0].Verified)

	other, err := NewKeyPair(curve, big.NewInt(5))
	require.NoError(t, err)
	found, err = FindNonceReuse(curve, records, other.PublicKey())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.False(t, found[0].Verified)
}

// TestFindNonceReuseIgnoresRepeatedSignatures checks that signing the same
// message twice, which deterministic nonces make identical, is not reported.
func TestFindNonceReuseIgnoresRepeatedSignatures(t *testing.T) {
	curve := mustCurve(t, "secp256k1")
	key, err := NewKeyPair(curve, big.NewInt(31))
	require.NoError(t, err)

	var records []*Record
	for _, msg := range []string{"same", "same", "different"} {
		sig, err := key.Sign([]byte(msg))
		require.NoError(t, err)
		records = append(records, &Record{Z: new(big.Int).SetBytes(curve.Digest([]byte(msg))), Signature: *sig})
	}
	require.True(t, records[0].Signature.Equal(&records[1].Signature))

	found, err := FindNonceReuse(curve, records, key.PublicKey())
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFindNonceReuseFromFixture(t *testing.T) {
	curve := mustCurve(t, "secp256k1")
	records := loadTestRecords(t, curve, "nonce_reuse.json")

	// The fixture pairs z = 3 and z = 10 under r = 11 with k = 1 and d = 5.
	five, err := NewKeyPair(curve, big.NewInt(5))
	require.NoError(t, err)

	found, err := FindNonceReuse(curve, records, five.PublicKey())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, [2]int{0, 1}, found[0].Pair)
	assert.Equal(t, int64(5), found[0].PrivateKey.Int64())
	assert.True(t, found[0].Verified)
}

func TestFindNonceReuseRejectsInvalidRecords(t *testing.T) {
	curve := mustCurve(t, "secp256k1")
	records := []*Record{
		{Z: big.NewInt(1), Signature: Signature{R: big.NewInt(0), S: big.NewInt(1)}},
	}
	_, err := FindNonceReuse(curve, records, nil)
	require.ErrorIs(t, err, ErrInvalidSignatureFormat)

	_, err = FindNonceReuse(curve, []*Record{nil}, nil)
	require.ErrorIs(t, err, ErrInvalidSignatureFormat)

	_, err = FindNonceReuse(nil, nil, nil)
	require.ErrorIs(t, err, ErrUnknownCurve)
}
