package keyfile

import (
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/ecdsa-deterministic/pkg/detecdsa"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, curve := range detecdsa.Curves() {
		t.Run(curve.Name(), func(t *testing.T) {
			key, err := detecdsa.GenerateKey(curve, nil)
			require.NoError(t, err)

			path := filepath.Join(dir, curve.Name()+".json")
			require.NoError(t, Write(path, key))

			got, err := Read(path)
			require.NoError(t, err)
			assert.Equal(t, curve.Name(), got.Curve().Name())
			assert.Equal(t, 0, key.D().Cmp(got.D()))
			assert.True(t, key.PublicKey().Equal(got.PublicKey()))
		})
	}
}

func TestWritePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	curve, err := detecdsa.Lookup("secp256k1")
	require.NoError(t, err)
	key, err := detecdsa.NewKeyPair(curve, big.NewInt(1))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	require.NoError(t, Write(path, key))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEncodeLayout(t *testing.T) {
	curve, err := detecdsa.Lookup("secp521r1")
	require.NoError(t, err)
	key, err := detecdsa.NewKeyPair(curve, big.NewInt(1))
	require.NoError(t, err)

	data, err := Encode(key)
	require.NoError(t, err)

	var doc map[string]string
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "secp521r1", doc["curve"])
	assert.Len(t, doc["private_key"], 2*curve.ByteLen())
	assert.Equal(t, "04", doc["public_key"][:2])

	// Encoding must not disturb the key.
	assert.Equal(t, int64(1), key.D().Int64())
}

func TestDecodeErrors(t *testing.T) {
	tests := map[string]struct {
		input string
		kind  error
	}{
		"not json":      {`{`, nil},
		"unknown curve": {`{"curve":"secp224r1","private_key":"01"}`, detecdsa.ErrUnknownCurve},
		"bad scalar":    {`{"curve":"secp256k1","private_key":"zz"}`, nil},
		"zero scalar":   {`{"curve":"secp256k1","private_key":"00"}`, detecdsa.ErrInvalidPrivateKey},
		"bad public":    {`{"curve":"secp256k1","private_key":"01","public_key":"0401"}`, detecdsa.ErrInvalidPublicKey},
	}
	for name, test := range tests {
		_, err := Decode([]byte(test.input))
		require.Error(t, err, name)
		if test.kind != nil {
			require.ErrorIs(t, err, test.kind, name)
		}
	}
}

func TestDecodeMismatchedPublicKey(t *testing.T) {
	curve, err := detecdsa.Lookup("secp256r1")
	require.NoError(t, err)
	one, err := detecdsa.NewKeyPair(curve, big.NewInt(1))
	require.NoError(t, err)
	two, err := detecdsa.NewKeyPair(curve, big.NewInt(2))
	require.NoError(t, err)

	data, err := Encode(one)
	require.NoError(t, err)

	var doc document
	require.NoError(t, json.Unmarshal(data, &doc))
	doc.PublicKey = encodePublic(two)
	data, err = json.Marshal(doc)
	require.NoError(t, err)

	_, err = Decode(data)
	require.ErrorIs(t, err, ErrMismatchedPublicKey)
}

func TestDecodeWithoutPublicKey(t *testing.T) {
	key, err := Decode([]byte(`{"curve":"P-256","private_key":"05"}`))
	require.NoError(t, err)
	assert.Equal(t, "secp256r1", key.Curve().Name())
	assert.Equal(t, int64(5), key.D().Int64())
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func encodePublic(key *detecdsa.KeyPair) string {
	data, _ := Encode(key)
	var doc document
	_ = json.Unmarshal(data, &doc)
	return doc.PublicKey
}
