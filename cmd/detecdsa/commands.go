package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/mahdiidarabi/ecdsa-deterministic/internal/keyfile"
	"github.com/mahdiidarabi/ecdsa-deterministic/internal/selftest"
	"github.com/mahdiidarabi/ecdsa-deterministic/pkg/detecdsa"
)

// errUsage marks bad command line input. The flag package has already
// printed the details.
var errUsage = errors.New("usage")

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	return nil
}

func usageError(fs *flag.FlagSet, format string, args ...any) error {
	fmt.Fprintf(fs.Output(), "Error: "+format+"\n", args...)
	fs.Usage()
	return errUsage
}

func runCurves(_ context.Context, a *app, args []string) error {
	fs := a.flagSet("curves")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	for i, c := range detecdsa.Curves() {
		aliases := ""
		if len(c.Aliases()) > 0 {
			aliases = " (" + strings.Join(c.Aliases(), ", ") + ")"
		}
		fmt.Fprintf(a.stdout, "%d. %s%s - %s\n", i+1, c.Name(), aliases, c.Description())
		fmt.Fprintf(a.stdout, "   order bits: %d, hash: %s\n", c.BitSize(), c.Hash())
	}
	return nil
}

func runKeygen(_ context.Context, a *app, args []string) error {
	fs := a.flagSet("keygen")
	curveName := fs.String("curve", a.cfg.Curve, "Curve name")
	out := fs.String("out", "", "Key file to write (required)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *out == "" {
		return usageError(fs, "-out is required")
	}

	curve, err := detecdsa.Lookup(*curveName)
	if err != nil {
		return err
	}
	key, err := detecdsa.GenerateKey(curve, nil)
	if err != nil {
		return err
	}
	defer key.Zeroize()

	if err := keyfile.Write(*out, key); err != nil {
		return err
	}

	pub := key.PublicKey()
	uncompressed, err := detecdsa.MarshalPublicKey(curve, pub)
	if err != nil {
		return err
	}
	compressed, err := detecdsa.MarshalPublicKeyCompressed(curve, pub)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Curve: %s\n", curve.Name())
	fmt.Fprintf(a.stdout, "Key file: %s\n", *out)
	fmt.Fprintf(a.stdout, "Public key: %s\n", hex.EncodeToString(uncompressed))
	fmt.Fprintf(a.stdout, "Public key (compressed): %s\n", hex.EncodeToString(compressed))
	return nil
}

// signatureOutput is the JSON document printed by sign. R and S carry a 0x
// prefix so the audit parser reads them as hex even when every digit is
// decimal.
type signatureOutput struct {
	Curve string `json:"curve"`
	R     string `json:"r"`
	S     string `json:"s"`
	DER   string `json:"der"`
}

func runSign(_ context.Context, a *app, args []string) error {
	fs := a.flagSet("sign")
	keyPath := fs.String("key", "", "Key file (required)")
	message := fs.String("message", "", "Message to sign")
	inPath := fs.String("in", "", "File whose contents are signed")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *keyPath == "" {
		return usageError(fs, "-key is required")
	}
	msg, err := readMessage(fs, *message, *inPath)
	if err != nil {
		return err
	}

	key, err := keyfile.Read(*keyPath)
	if err != nil {
		return err
	}
	defer key.Zeroize()

	curve := key.Curve()
	d := key.D()
	sig, err := a.engine.Sign(msg, d, curve)
	d.SetInt64(0)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(signatureOutput{
		Curve: curve.Name(),
		R:     "0x" + sig.R.Text(16),
		S:     "0x" + sig.S.Text(16),
		DER:   hex.EncodeToString(sig.Serialize()),
	})
}

func runVerify(_ context.Context, a *app, args []string) error {
	fs := a.flagSet("verify")
	keyPath := fs.String("key", "", "Key file holding the public key")
	curveName := fs.String("curve", a.cfg.Curve, "Curve name, used with -pub")
	pubHex := fs.String("pub", "", "SEC1 public key in hex")
	message := fs.String("message", "", "Signed message")
	inPath := fs.String("in", "", "File whose contents were signed")
	rHex := fs.String("r", "", "Signature r in hex")
	sHex := fs.String("s", "", "Signature s in hex")
	derHex := fs.String("der", "", "DER signature in hex (instead of -r and -s)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	msg, err := readMessage(fs, *message, *inPath)
	if err != nil {
		return err
	}

	var (
		curve *detecdsa.Curve
		pub   *detecdsa.PublicKey
	)
	switch {
	case *keyPath != "":
		key, err := keyfile.Read(*keyPath)
		if err != nil {
			return err
		}
		curve, pub = key.Curve(), key.PublicKey()
		key.Zeroize()
	case *pubHex != "":
		curve, err = detecdsa.Lookup(*curveName)
		if err != nil {
			return err
		}
		raw, err := hex.DecodeString(*pubHex)
		if err != nil {
			return usageError(fs, "-pub is not hex")
		}
		if pub, err = detecdsa.ParsePublicKey(curve, raw); err != nil {
			return err
		}
	default:
		return usageError(fs, "-key or -pub is required")
	}

	var sig *detecdsa.Signature
	if *derHex != "" {
		raw, err := hex.DecodeString(*derHex)
		if err != nil {
			return usageError(fs, "-der is not hex")
		}
		// An out-of-range signature is reported as invalid, not as an error.
		if sig, err = detecdsa.ParseDERSignature(curve, raw); err != nil && !errors.Is(err, detecdsa.ErrInvalidSignatureFormat) {
			return err
		}
	} else {
		r, okR := new(big.Int).SetString(strings.TrimPrefix(*rHex, "0x"), 16)
		s, okS := new(big.Int).SetString(strings.TrimPrefix(*sHex, "0x"), 16)
		if !okR || !okS {
			return usageError(fs, "-r and -s must be hex (or use -der)")
		}
		sig = &detecdsa.Signature{R: r, S: s}
	}

	if !a.engine.Verify(msg, sig, pub, curve) {
		fmt.Fprintln(a.stdout, "Verification result: false")
		return errInvalid
	}
	fmt.Fprintln(a.stdout, "Verification result: true")
	return nil
}

func runAudit(_ context.Context, a *app, args []string) error {
	fs := a.flagSet("audit")
	curveName := fs.String("curve", a.cfg.Curve, "Curve the signatures were made on")
	sigPath := fs.String("signatures", "", "Signature file (required)")
	format := fs.String("format", "", "Signature file format: json or csv (default: from extension)")
	pubHex := fs.String("pub", "", "SEC1 public key in hex, to verify recovered keys")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *sigPath == "" {
		return usageError(fs, "-signatures is required")
	}

	curve, err := detecdsa.Lookup(*curveName)
	if err != nil {
		return err
	}

	var pub *detecdsa.PublicKey
	if *pubHex != "" {
		raw, err := hex.DecodeString(*pubHex)
		if err != nil {
			return usageError(fs, "-pub is not hex")
		}
		if pub, err = detecdsa.ParsePublicKey(curve, raw); err != nil {
			return err
		}
	}

	if *format == "" {
		*format = "json"
		if strings.HasSuffix(strings.ToLower(*sigPath), ".csv") {
			*format = "csv"
		}
	}
	var parser detecdsa.RecordParser
	switch *format {
	case "json":
		parser = &detecdsa.JSONParser{Curve: curve}
	case "csv":
		parser = &detecdsa.CSVParser{Curve: curve}
	default:
		return usageError(fs, "unknown format %q", *format)
	}

	records, err := detecdsa.ParseRecordsFile(parser, *sigPath)
	if err != nil {
		return err
	}
	found, err := detecdsa.FindNonceReuse(curve, records, pub)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Scanned %d signatures on %s\n", len(records), curve.Name())
	if len(found) == 0 {
		fmt.Fprintln(a.stdout, "No reused nonces found")
		return nil
	}
	for _, f := range found {
		fmt.Fprintf(a.stdout, "\n[+] Nonce reused by signatures %d and %d\n", f.Pair[0], f.Pair[1])
		fmt.Fprintf(a.stdout, "    Private key: 0x%s\n", f.PrivateKey.Text(16))
		if f.Verified {
			fmt.Fprintln(a.stdout, "    Verified against public key")
		}
	}
	return errInvalid
}

func runSelftest(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("selftest")
	rounds := fs.Int("rounds", a.cfg.Selftest.Rounds, "Keys per curve")
	workers := fs.Int("workers", a.cfg.Selftest.Workers, "Parallel workers (0 = number of CPUs)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	report, err := selftest.Run(ctx, selftest.Options{
		Rounds:  *rounds,
		Workers: *workers,
		Engine:  a.engine,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Checked %d keys, %d properties in %s\n", report.Items, report.Checks, report.Elapsed.Round(time.Millisecond))
	for _, f := range report.Failures {
		fmt.Fprintf(a.stdout, "FAIL %s\n", f)
	}
	if !report.OK() {
		return errInvalid
	}
	fmt.Fprintln(a.stdout, "All checks passed")
	return nil
}

// readMessage returns the message given by -message or read from -in.
func readMessage(fs *flag.FlagSet, message, inPath string) ([]byte, error) {
	if inPath == "" {
		return []byte(message), nil
	}
	if message != "" {
		return nil, usageError(fs, "-message and -in are mutually exclusive")
	}
	data, err := os.ReadFile(inPath) // #nosec G304 -- path chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	return data, nil
}
