package detecdsa

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
)

// RecordParser reads signature records from a source.
type RecordParser interface {
	// ParseRecords parses every record available from r.
	ParseRecords(r io.Reader) ([]*Record, error)
}

// ParseRecordsFile opens path and parses it with p.
func ParseRecordsFile(p RecordParser, path string) ([]*Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.ParseRecords(file)
}

// JSONParser parses records from a JSON array of objects.
type JSONParser struct {
	Curve        *Curve // Curve whose hash digests the message field
	MessageField string // Field name for message (default: "message")
	RField       string // Field name for r (default: "r")
	SField       string // Field name for s (default: "s")
	ZField       string // Field name for z (default: "z"); takes precedence over the message
}

// ParseRecords parses records from JSON.
//
// Expected format:
//
//	[
//	  {"message": "...", "r": "0x...", "s": "0x..."},
//	  {"z": "0x...", "r": "...", "s": "..."}
//	]
func (p *JSONParser) ParseRecords(r io.Reader) ([]*Record, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var items []map[string]interface{}
	if err := decoder.Decode(&items); err != nil {
		return nil, makeError(ErrInvalidEncoding, fmt.Sprintf("failed to parse JSON: %v", err))
	}

	messageField := orDefault(p.MessageField, "message")
	rField := orDefault(p.RField, "r")
	sField := orDefault(p.SField, "s")
	zField := orDefault(p.ZField, "z")

	records := make([]*Record, 0, len(items))
	for i, item := range items {
		fields := make(map[string]string, 4)
		for _, k := range []string{messageField, rField, sField, zField} {
			v, ok := item[k]
			if !ok {
				continue
			}
			s, err := jsonScalar(v)
			if err != nil {
				return nil, makeError(ErrInvalidEncoding, fmt.Sprintf("record %d field %q: %v", i, k, err))
			}
			fields[k] = s
		}

		rec, err := buildRecord(p.Curve, fields, messageField, rField, sField, zField)
		if err != nil {
			return nil, makeError(ErrInvalidEncoding, fmt.Sprintf("record %d: %v", i, err))
		}
		records = append(records, rec)
	}
	return records, nil
}

// CSVParser parses records from CSV with a header row.
type CSVParser struct {
	Curve      *Curve // Curve whose hash digests the message column
	MessageCol string // Column name for message (default: "message")
	RCol       string // Column name for r (default: "r")
	SCol       string // Column name for s (default: "s")
	ZCol       string // Column name for z (default: "z")
}

// ParseRecords parses records from CSV.
func (p *CSVParser) ParseRecords(r io.Reader) ([]*Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, makeError(ErrInvalidEncoding, fmt.Sprintf("failed to read header: %v", err))
	}

	var records []*Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, makeError(ErrInvalidEncoding, fmt.Sprintf("failed to read record: %v", err))
		}

		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				fields[col] = row[i]
			}
		}

		rec, err := buildRecord(p.Curve, fields,
			orDefault(p.MessageCol, "message"), orDefault(p.RCol, "r"),
			orDefault(p.SCol, "s"), orDefault(p.ZCol, "z"))
		if err != nil {
			return nil, makeError(ErrInvalidEncoding, fmt.Sprintf("line %d: %v", line, err))
		}
		records = append(records, rec)
	}
	return records, nil
}

func buildRecord(curve *Curve, fields map[string]string, messageField, rField, sField, zField string) (*Record, error) {
	rec := &Record{}

	if zVal, ok := fields[zField]; ok && zVal != "" {
		z, err := parseBigInt(zVal)
		if err != nil {
			return nil, fmt.Errorf("failed to parse z: %w", err)
		}
		rec.Z = z
	}
	if msg, ok := fields[messageField]; ok {
		rec.Message = []byte(msg)
		if rec.Z == nil {
			if curve == nil {
				return nil, fmt.Errorf("a curve is required to hash the message")
			}
			rec.Z = new(big.Int).SetBytes(curve.Digest(rec.Message))
		}
	}
	if rec.Z == nil {
		return nil, fmt.Errorf("missing %s or %s field", messageField, zField)
	}

	rVal, ok := fields[rField]
	if !ok {
		return nil, fmt.Errorf("missing %s field", rField)
	}
	r, err := parseBigInt(rVal)
	if err != nil {
		return nil, fmt.Errorf("failed to parse r: %w", err)
	}

	sVal, ok := fields[sField]
	if !ok {
		return nil, fmt.Errorf("missing %s field", sField)
	}
	s, err := parseBigInt(sVal)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s: %w", err)
	}

	rec.R, rec.S = r, s
	return rec, nil
}

func jsonScalar(v interface{}) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unsupported type: %T", v)
	}
}

// parseBigInt accepts 0x-prefixed hex, bare hex containing a-f digits, or
// decimal.
func parseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s = s[2:]
		base = 16
	case strings.ContainsAny(s, "abcdefABCDEF"):
		base = 16
	}

	z, ok := new(big.Int).SetString(s, base)
	if !ok || z.Sign() < 0 {
		return nil, fmt.Errorf("invalid number format: %q", s)
	}
	return z, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
