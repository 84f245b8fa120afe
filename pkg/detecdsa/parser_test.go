package detecdsa

import (
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONParser_ParseRecords(t *testing.T) {
	curve := mustCurve(t, "secp256k1")
	records := loadTestRecords(t, curve, "nonce_reuse.json")
	require.Len(t, records, 3)

	assert.Equal(t, int64(3), records[0].Z.Int64())
	assert.Equal(t, int64(11), records[0].R.Int64())
	assert.Equal(t, int64(58), records[0].S.Int64())

	// Hex with prefix and a bare JSON number.
	assert.Equal(t, int64(10), records[1].Z.Int64())
	assert.Equal(t, int64(11), records[1].R.Int64())
	assert.Equal(t, int64(65), records[1].S.Int64())

	// Message without z is hashed with the curve's hash.
	assert.Equal(t, []byte("hello"), records[2].Message)
	assert.Equal(t, new(big.Int).SetBytes(curve.Digest([]byte("hello"))), records[2].Z)
}

func TestJSONParser_CustomFields(t *testing.T) {
	parser := &JSONParser{ZField: "h", RField: "sig_r", SField: "sig_s"}
	records, err := parser.ParseRecords(strings.NewReader(`[{"h":"ff","sig_r":"1","sig_s":"2"}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(255), records[0].Z.Int64())
}

func TestJSONParser_Errors(t *testing.T) {
	tests := map[string]string{
		"not json":       `{`,
		"not an array":   `{"r":"1"}`,
		"missing r":      `[{"z":"1","s":"2"}]`,
		"missing s":      `[{"z":"1","r":"2"}]`,
		"missing digest": `[{"r":"1","s":"2"}]`,
		"bad number":     `[{"z":"xyz","r":"1","s":"2"}]`,
		"negative":       `[{"z":"-1","r":"1","s":"2"}]`,
		"object value":   `[{"z":{"v":1},"r":"1","s":"2"}]`,
	}
	parser := &JSONParser{}
	for name, input := range tests {
		_, err := parser.ParseRecords(strings.NewReader(input))
		require.ErrorIs(t, err, ErrInvalidEncoding, name)
	}

	// A message cannot be hashed without a curve.
	_, err := parser.ParseRecords(strings.NewReader(`[{"message":"hi","r":"1","s":"2"}]`))
	require.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestCSVParser_ParseRecords(t *testing.T) {
	curve := mustCurve(t, "secp384r1")
	records := loadTestRecords(t, curve, "records.csv")
	require.Len(t, records, 2)

	assert.Equal(t, []byte("with, comma"), records[1].Message)
	assert.Len(t, records[0].Z.Bytes(), 48)
	assert.Equal(t, new(big.Int).SetBytes(curve.Digest([]byte("hello"))), records[0].Z)
	assert.Equal(t, int64(3), records[1].R.Int64())
}

func TestCSVParser_CustomColumns(t *testing.T) {
	parser := &CSVParser{ZCol: "digest", RCol: "sig_r", SCol: "sig_s"}
	records, err := ParseRecordsFile(parser, filepath.Join(testdataDir(), "custom_fields.csv"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(3), records[0].Z.Int64())
	assert.Equal(t, int64(10), records[1].Z.Int64())
}

func TestCSVParser_Errors(t *testing.T) {
	parser := &CSVParser{}

	_, err := parser.ParseRecords(strings.NewReader(""))
	require.ErrorIs(t, err, ErrInvalidEncoding)

	_, err = parser.ParseRecords(strings.NewReader("z,r,s\n1,2\n"))
	require.ErrorIs(t, err, ErrInvalidEncoding)

	_, err = parser.ParseRecords(strings.NewReader("z,r,s\n1,2,zz\n"))
	require.ErrorIs(t, err, ErrInvalidEncoding)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseRecordsFileMissing(t *testing.T) {
	_, err := ParseRecordsFile(&JSONParser{}, filepath.Join(testdataDir(), "does_not_exist.json"))
	require.Error(t, err)
}

func TestParseBigInt(t *testing.T) {
	tests := map[string]int64{
		"0x10":   16,
		"0X10":   16,
		"0x1234": 0x1234,
		"10":     10,
		"ff":     255,
		" 42 ":   42,
	}
	for in, want := range tests {
		got, err := parseBigInt(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.Int64(), in)
	}

	for _, in := range []string{"", "0x", "g1", "-5"} {
		_, err := parseBigInt(in)
		require.Error(t, err, in)
	}
}
