package signal

import (
	"encoding/json"
	"testing"
)

func TestLookupNested(t *testing.T) {
	m := Map{"context": map[string]any{"login_anomaly": true}}
	v, ok := Lookup(m, "context", "login_anomaly")
	if !ok || v != true {
		t.Errorf("expected true, got %v (ok=%v)", v, ok)
	}
}

func TestLookupThroughNonObject(t *testing.T) {
	m := Map{"context": "not-an-object"}
	if _, ok := Lookup(m, "context", "login_anomaly"); ok {
		t.Error("expected lookup through string to fail")
	}
	if _, ok := Lookup(nil, "context"); ok {
		t.Error("expected lookup on nil map to fail")
	}
}

func TestIntAcceptsIntegralJSONNumbers(t *testing.T) {
	var m Map
	if err := json.Unmarshal([]byte(`{"abuseipdb":{"confidence":85}}`), &m); err != nil {
		t.Fatal(err)
	}
	n, ok := Int(m, "abuseipdb", "confidence")
	if !ok || n != 85 {
		t.Errorf("expected 85, got %d (ok=%v)", n, ok)
	}
}

func TestIntRejectsFractionsStringsAndBools(t *testing.T) {
	m := Map{"a": 85.5, "b": "85", "c": true, "d": nil}
	for _, key := range []string{"a", "b", "c", "d"} {
		if _, ok := Int(m, key); ok {
			t.Errorf("expected %s to be rejected as int", key)
		}
	}
}

func TestIntJSONNumber(t *testing.T) {
	m := Map{"n": json.Number("12")}
	if n, ok := Int(m, "n"); !ok || n != 12 {
		t.Errorf("expected 12, got %d (ok=%v)", n, ok)
	}
}

func TestNumberAcceptsIntsAndFloats(t *testing.T) {
	m := Map{"i": 3, "f": 0.127}
	if f, ok := Number(m, "i"); !ok || f != 3 {
		t.Errorf("expected 3, got %v", f)
	}
	if f, ok := Number(m, "f"); !ok || f != 0.127 {
		t.Errorf("expected 0.127, got %v", f)
	}
	if _, ok := Number(Map{"b": false}, "b"); ok {
		t.Error("expected bool rejected as number")
	}
}

func TestBoolAndString(t *testing.T) {
	m := Map{"asn": map[string]any{"type": "Hosting", "is_bulletproof": "yes"}}
	if _, ok := Bool(m, "asn", "is_bulletproof"); ok {
		t.Error("expected string rejected as bool")
	}
	if !EqualFold(m, "hosting", "asn", "type") {
		t.Error("expected case-insensitive match on asn.type")
	}
}

func TestObjectFromYAMLStyleMap(t *testing.T) {
	m := Map{"whois": map[any]any{"domain_age_days": 3, 7: "ignored"}}
	obj, ok := Object(m, "whois")
	if !ok {
		t.Fatal("expected object")
	}
	if len(obj) != 1 {
		t.Errorf("expected non-string keys dropped, got %v", obj)
	}
	if n, ok := Int(m, "whois", "domain_age_days"); !ok || n != 3 {
		t.Errorf("expected 3, got %d", n)
	}
}

func TestIntAcceptsValuesBeyondInt32(t *testing.T) {
	var m Map
	if err := json.Unmarshal([]byte(`{"big": 3000000000, "neg": -3000000000}`), &m); err != nil {
		t.Fatal(err)
	}
	if n, ok := Int(m, "big"); !ok || n != 3000000000 {
		t.Errorf("expected 3000000000, got %d (ok=%v)", n, ok)
	}
	if n, ok := Int(m, "neg"); !ok || n != -3000000000 {
		t.Errorf("expected -3000000000, got %d (ok=%v)", n, ok)
	}
	if _, ok := Int(Map{"huge": 1e19}, "huge"); ok {
		t.Error("expected value past int range to be rejected")
	}
}
