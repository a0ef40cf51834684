// Package measurement defines the wire record exchanged between adapters
// and the router, its line-delimited JSON codec, and the validation rules
// applied to every inbound line.
package measurement

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates which field of Value is meaningful.
type Kind int

const (
	KindDouble Kind = iota
	KindLong
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindDouble:
		return "double"
	case KindLong:
		return "long"
	case KindBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// ParseKind maps the wire "type" field to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "double":
		return KindDouble, true
	case "long":
		return KindLong, true
	case "boolean":
		return KindBool, true
	default:
		return 0, false
	}
}

// Value is a tagged union over the three measurement value shapes the wire
// format can carry. Exactly one of D, L, B is meaningful, selected by Kind.
type Value struct {
	Kind Kind
	D    float64
	L    int64
	B    bool
}

func DoubleValue(d float64) Value { return Value{Kind: KindDouble, D: d} }
func LongValue(l int64) Value     { return Value{Kind: KindLong, L: l} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, B: b} }

// String renders the value in the text form used by TSV rows and the
// value-query reply, e.g. "1.5", "-7", "true".
func (v Value) String() string {
	switch v.Kind {
	case KindDouble:
		return strconv.FormatFloat(v.D, 'g', -1, 64)
	case KindLong:
		return strconv.FormatInt(v.L, 10)
	case KindBool:
		return strconv.FormatBool(v.B)
	default:
		return ""
	}
}

// MarshalJSON renders the value in the shape its Kind dictates: a JSON
// number for double/long, a JSON boolean literal for boolean.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindDouble:
		return json.Marshal(v.D)
	case KindLong:
		return json.Marshal(v.L)
	case KindBool:
		return json.Marshal(v.B)
	default:
		return nil, fmt.Errorf("measurement: value has no kind set")
	}
}

// Record is one measurement as defined by the shared field table. Type
// governs how V is interpreted; Secret defaults to false when absent.
type Record struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	V      Value  `json:"v"`
	Ts     int64  `json:"ts"`
	Unit   string `json:"unit"`
	Type   string `json:"type"`
	ID     int64  `json:"id"`
	Secret bool   `json:"secret"`
}

// wireRecord mirrors Record but defers decoding of "v" until Type is known.
type wireRecord struct {
	Name   string          `json:"name"`
	Path   string          `json:"path"`
	V      json.RawMessage `json:"v"`
	Ts     int64           `json:"ts"`
	Unit   string          `json:"unit"`
	Type   string          `json:"type"`
	ID     int64           `json:"id"`
	Secret bool            `json:"secret"`
}

// UnmarshalJSON decodes a wire line into Record, narrowing "v" using "type".
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, ok := ParseKind(w.Type)
	if !ok {
		return fmt.Errorf("measurement: unknown type %q", w.Type)
	}
	var v Value
	switch kind {
	case KindDouble:
		var d float64
		if err := json.Unmarshal(w.V, &d); err != nil {
			return fmt.Errorf("measurement: v does not match type double: %w", err)
		}
		v = DoubleValue(d)
	case KindLong:
		var l int64
		if err := json.Unmarshal(w.V, &l); err != nil {
			return fmt.Errorf("measurement: v does not match type long: %w", err)
		}
		v = LongValue(l)
	case KindBool:
		var b bool
		if err := json.Unmarshal(w.V, &b); err != nil {
			return fmt.Errorf("measurement: v does not match type boolean: %w", err)
		}
		v = BoolValue(b)
	}
	r.Name = w.Name
	r.Path = w.Path
	r.V = v
	r.Ts = w.Ts
	r.Unit = w.Unit
	r.Type = w.Type
	r.ID = w.ID
	r.Secret = w.Secret
	return nil
}

// TicketRecord is the record shape forwarded to the uploader: it drops id
// and secret, keeping only what the cloud time-series service needs.
type TicketRecord struct {
	Name string `json:"name"`
	Path string `json:"path"`
	V    Value  `json:"v"`
	Ts   int64  `json:"ts"`
	Unit string `json:"unit"`
	Type string `json:"type"`
}

// ToTicket narrows a validated Record to the shape the uploader transmits.
func (r Record) ToTicket() TicketRecord {
	return TicketRecord{Name: r.Name, Path: r.Path, V: r.V, Ts: r.Ts, Unit: r.Unit, Type: r.Type}
}
