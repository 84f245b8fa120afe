package detecdsa

import (
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/ecdsa-deterministic/internal/rfc6979"
)

// testdataDir returns the directory holding the signature fixtures.
func testdataDir() string {
	return "testdata"
}

// loadTestRecords parses a fixture with the parser matching its extension.
func loadTestRecords(t *testing.T, curve *Curve, filename string) []*Record {
	t.Helper()

	var parser RecordParser = &JSONParser{Curve: curve}
	if strings.HasSuffix(filename, ".csv") {
		parser = &CSVParser{Curve: curve}
	}
	records, err := ParseRecordsFile(parser, filepath.Join(testdataDir(), filename))
	require.NoError(t, err)
	return records
}

func mustCurve(t *testing.T, name string) *Curve {
	t.Helper()
	c, err := Lookup(name)
	require.NoError(t, err)
	return c
}

func mustHex(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 16)
	require.True(t, ok, "bad hex %q", s)
	return v
}

// fixedNonces replays a fixed list of nonces and then reports exhaustion.
type fixedNonces struct {
	ks []*big.Int
	i  int
}

func (f *fixedNonces) Next() (*big.Int, error) {
	if f.i >= len(f.ks) {
		return nil, rfc6979.ErrExhausted
	}
	k := f.ks[f.i]
	f.i++
	return k, nil
}

// testKeys returns boundary and ordinary private scalars for curve.
func testKeys(curve *Curve) []*big.Int {
	n := curve.Order()
	return []*big.Int{
		big.NewInt(1),
		big.NewInt(2),
		new(big.Int).Sub(n, big.NewInt(1)),
		new(big.Int).Rsh(n, 1),
		new(big.Int).SetBytes([]byte("deterministic nonce test key")),
	}
}
