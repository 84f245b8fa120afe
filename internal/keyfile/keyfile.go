// Package keyfile stores key pairs as small JSON documents. Files are written
// with owner-only permissions and hold the private scalar in hex.
package keyfile

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/mahdiidarabi/ecdsa-deterministic/pkg/detecdsa"
)

// ErrMismatchedPublicKey is returned when the stored public key is not the
// one derived from the stored private scalar.
var ErrMismatchedPublicKey = errors.New("keyfile: public key does not match private scalar")

// filePerm restricts key files to the owner.
const filePerm = 0o600

type document struct {
	Curve      string `json:"curve"`
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

// Encode serializes key. The public key is stored uncompressed.
func Encode(key *detecdsa.KeyPair) ([]byte, error) {
	if key == nil {
		return nil, errors.New("keyfile: nil key")
	}
	curve := key.Curve()
	pub, err := detecdsa.MarshalPublicKey(curve, key.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("keyfile: %w", err)
	}
	d := key.D()
	scalar := make([]byte, curve.ByteLen())
	d.FillBytes(scalar)

	doc := document{
		Curve:      curve.Name(),
		PrivateKey: hex.EncodeToString(scalar),
		PublicKey:  hex.EncodeToString(pub),
	}
	clear(scalar)
	d.SetInt64(0)

	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses data produced by Encode and checks that the stored public key
// matches the private scalar.
func Decode(data []byte) (*detecdsa.KeyPair, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("keyfile: unmarshal JSON: %w", err)
	}

	curve, err := detecdsa.Lookup(doc.Curve)
	if err != nil {
		return nil, err
	}

	scalar, err := hex.DecodeString(doc.PrivateKey)
	if err != nil {
		return nil, errors.New("keyfile: private_key is not hex")
	}
	d := new(big.Int).SetBytes(scalar)
	clear(scalar)

	key, err := detecdsa.NewKeyPair(curve, d)
	d.SetInt64(0)
	if err != nil {
		return nil, err
	}

	if doc.PublicKey != "" {
		raw, err := hex.DecodeString(doc.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("keyfile: public_key is not hex: %w", err)
		}
		pub, err := detecdsa.ParsePublicKey(curve, raw)
		if err != nil {
			return nil, err
		}
		if !pub.Equal(key.PublicKey()) {
			return nil, ErrMismatchedPublicKey
		}
	}
	return key, nil
}

// Write stores key at path, replacing any existing file.
func Write(path string, key *detecdsa.KeyPair) error {
	data, err := Encode(key)
	if err != nil {
		return err
	}
	defer clear(data)

	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("keyfile: write %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, filePerm); err != nil {
		return fmt.Errorf("keyfile: chmod %s: %w", path, err)
	}
	return nil
}

// Read loads a key written by Write.
func Read(path string) (*detecdsa.KeyPair, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("keyfile: read %s: %w", path, err)
	}
	defer clear(data)
	return Decode(data)
}
