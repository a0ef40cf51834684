package measurement

import "testing"

func TestCodecRoundTrip(t *testing.T) {
	cases := []Record{
		{Name: "p", Path: "/a", V: DoubleValue(1.5), Ts: 10, Unit: "u", Type: "double", ID: 1, Secret: false},
		{Name: "q", Path: "/a/b", V: LongValue(-7), Ts: 20, Unit: "c", Type: "long", ID: 2, Secret: true},
		{Name: "r", Path: "/a/b/c", V: BoolValue(true), Ts: 30, Unit: "", Type: "boolean", ID: 3},
	}
	for _, want := range cases {
		line, err := Encode(want)
		if err != nil {
			t.Fatalf("Encode(%+v): %v", want, err)
		}
		got, bad := DecodeLines(line)
		if len(bad) != 0 {
			t.Fatalf("DecodeLines reported bad lines: %+v", bad)
		}
		if len(got) != 1 || got[0] != want {
			t.Fatalf("round trip mismatch: want %+v got %+v", want, got)
		}
	}
}

func TestDecodeLinesDropsMalformedOnly(t *testing.T) {
	good := Record{Name: "p", Path: "/a", V: DoubleValue(1), Ts: 1, Unit: "u", Type: "double", ID: 1}
	line, _ := Encode(good)
	datagram := append(append([]byte("{not json}\n"), line...), []byte("{\"type\":\"nope\"}\n")...)

	records, bad := DecodeLines(datagram)
	if len(records) != 1 || records[0] != good {
		t.Fatalf("expected one good record, got %+v", records)
	}
	if len(bad) != 2 {
		t.Fatalf("expected two bad lines, got %d", len(bad))
	}
}

func TestValidateRejectsBadPath(t *testing.T) {
	r := Record{Name: "p", Path: "no-leading-slash", V: DoubleValue(1), Ts: 1, Unit: "u", Type: "double", ID: 1}
	if err := Validate(r); err == nil {
		t.Fatal("expected path validation to fail")
	}
}

func TestValidateRejectsNameLength(t *testing.T) {
	r := Record{Name: "", Path: "/a", V: DoubleValue(1), Ts: 1, Unit: "u", Type: "double", ID: 1}
	if err := Validate(r); err == nil {
		t.Fatal("expected empty name to fail")
	}
}

func TestValidateRejectsTypeMismatch(t *testing.T) {
	r := Record{Name: "p", Path: "/a", V: BoolValue(true), Ts: 1, Unit: "u", Type: "double", ID: 1}
	if err := Validate(r); err == nil {
		t.Fatal("expected value/type mismatch to fail")
	}
}

func TestValidateLinesFiltersBothBadJSONAndBadSemantics(t *testing.T) {
	good := Record{Name: "p", Path: "/a", V: DoubleValue(1), Ts: 1, Unit: "u", Type: "double", ID: 1}
	bad := Record{Name: "p", Path: "bad", V: DoubleValue(1), Ts: 1, Unit: "u", Type: "double", ID: 2}
	line1, _ := Encode(good)
	line2, _ := Encode(bad)
	datagram := append(append([]byte{}, line1...), line2...)

	var rejections int
	out := ValidateLines(datagram, func(line []byte, err error) { rejections++ })
	if len(out) != 1 || out[0] != good {
		t.Fatalf("expected only the good record, got %+v", out)
	}
	if rejections != 1 {
		t.Fatalf("expected 1 rejection, got %d", rejections)
	}
}
