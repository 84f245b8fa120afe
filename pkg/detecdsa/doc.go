// Package detecdsa signs and verifies messages with ECDSA over a fixed set of
// named curves, deriving every nonce deterministically with the HMAC-DRBG
// construction of RFC 6979 instead of reading a random source at sign time.
//
// # Quick Start
//
//	curve, err := detecdsa.Lookup("secp256k1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	key, err := detecdsa.GenerateKey(curve, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sig, err := key.Sign([]byte("hello"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ok := detecdsa.Verify([]byte("hello"), sig, key.PublicKey(), curve)
//
// # Curves
//
// The registry holds secp256k1, secp256r1 (P-256), secp384r1 (P-384),
// secp521r1 (P-521) and brainpoolP256r1. Each curve declares a digest size
// (32, 48 or 66 bytes) which SelectHash maps to SHA-256, SHA-384 or SHA-512.
//
// # Nonces
//
// By default the nonce generator runs HMAC-SHA256 for every curve and
// concatenates as many HMAC blocks as the curve order needs. An Engine can
// instead pair the HMAC with the curve's message hash:
//
//	engine := detecdsa.NewEngine().
//	    WithNonceHash(detecdsa.NonceHashCurve).
//	    WithLogger(logging.New(slog.Default()))
//
//	sig, err := engine.Sign(message, key.D(), curve)
//
// A nonce whose signature would have r = 0 or s = 0 is rejected and the
// generator is advanced, so a zero component is never returned.
//
// # Auditing
//
// FindNonceReuse scans signature records (see JSONParser and CSVParser) for
// pairs that share a nonce across different digests and recovers the private
// scalar such a pair exposes.
package detecdsa
