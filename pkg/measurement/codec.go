package measurement

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

// MaxDatagramBytes bounds a single UDP payload; producers must chunk their
// records so that no encoded datagram exceeds this.
const MaxDatagramBytes = 8000

// pathPattern matches 1 to 10 slash-separated alphanumeric segments, per the
// shared field table's path constraint.
var pathPattern = regexp.MustCompile(`^(/[A-Za-z0-9]+){1,10}$`)

// Encode renders one record as compact JSON followed by a trailing newline,
// the unit the wire codec works in.
func Encode(r Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// EncodeBatch concatenates the encoded form of every record, in order.
func EncodeBatch(rs []Record) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range rs {
		line, err := Encode(r)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
	}
	return buf.Bytes(), nil
}

// DecodeLines parses a datagram's worth of line-delimited JSON. Malformed
// lines are dropped (returned in bad, with the raw bytes and the error) so a
// single bad record never aborts the rest of the datagram.
type BadLine struct {
	Line []byte
	Err  error
}

func DecodeLines(datagram []byte) (records []Record, bad []BadLine) {
	scanner := bufio.NewScanner(bytes.NewReader(datagram))
	scanner.Buffer(make([]byte, 0, MaxDatagramBytes), MaxDatagramBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			cp := append([]byte(nil), line...)
			bad = append(bad, BadLine{Line: cp, Err: err})
			continue
		}
		records = append(records, r)
	}
	return records, bad
}

// Validate checks a Record against the shared field table. It returns the
// first violation found, or nil if the record is well-formed.
func Validate(r Record) error {
	if l := len(r.Name); l < 1 || l > 100 {
		return fmt.Errorf("measurement: name length %d out of range 1..100", l)
	}
	if len(r.Path) > 1000 {
		return fmt.Errorf("measurement: path length %d exceeds 1000", len(r.Path))
	}
	if !pathPattern.MatchString(r.Path) {
		return fmt.Errorf("measurement: path %q does not match required shape", r.Path)
	}
	kind, ok := ParseKind(r.Type)
	if !ok {
		return fmt.Errorf("measurement: unknown type %q", r.Type)
	}
	if r.V.Kind != kind {
		return fmt.Errorf("measurement: value kind %s does not match declared type %s", r.V.Kind, kind)
	}
	if len(r.Unit) > 10 {
		return fmt.Errorf("measurement: unit length %d exceeds 10", len(r.Unit))
	}
	return nil
}

// ValidateLines validates every decoded record from a datagram, returning
// only the records that pass. Rejections are reported through reject so the
// caller can log them without aborting the batch.
func ValidateLines(datagram []byte, reject func(line []byte, err error)) []Record {
	records, bad := DecodeLines(datagram)
	for _, b := range bad {
		if reject != nil {
			reject(b.Line, b.Err)
		}
	}
	out := records[:0]
	for _, r := range records {
		if err := Validate(r); err != nil {
			if reject != nil {
				line, _ := json.Marshal(r)
				reject(line, err)
			}
			continue
		}
		out = append(out, r)
	}
	return out
}
