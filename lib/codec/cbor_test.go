// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// storedRecord uses cbor tags: stored only.
type storedRecord struct {
	Repository string `cbor:"repository"`
	Error      string `cbor:"error,omitempty"`
	Attempts   int    `cbor:"attempts"`
}

// servedRecord uses json tags: stored and served over HTTP.
type servedRecord struct {
	Namespace string    `json:"namespace"`
	BuiltAt   time.Time `json:"built_at"`
	Packages  []string  `json:"packages"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := storedRecord{Repository: "octo/hello", Error: "upstream fetch failed", Attempts: 2}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded storedRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"zeta": 1, "alpha": "a", "mid": []string{"x"}}
	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestJSONTagFallbackAndTimePrecision(t *testing.T) {
	original := servedRecord{
		Namespace: "repos/octo/hello",
		BuiltAt:   time.Date(2026, 4, 5, 6, 7, 8, 123456789, time.UTC),
		Packages:  []string{"hello_1.0_amd64.deb"},
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"built_at"`) || !strings.Contains(notation, `"2026-04-05T06:07:08.123456789Z"`) {
		t.Errorf("notation %s lacks json field name or RFC 3339 time", notation)
	}

	var decoded servedRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.BuiltAt.Equal(original.BuiltAt) || decoded.Namespace != original.Namespace ||
		len(decoded.Packages) != 1 || decoded.Packages[0] != original.Packages[0] {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestOmitemptyRespected(t *testing.T) {
	withError, err := Marshal(storedRecord{Repository: "a/b", Error: "x"})
	if err != nil {
		t.Fatal(err)
	}
	withoutError, err := Marshal(storedRecord{Repository: "a/b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(withoutError) >= len(withError) {
		t.Errorf("omitempty not effective: without=%d bytes, with=%d bytes",
			len(withoutError), len(withError))
	}
}

func TestUnmarshalAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"outer": map[string]any{"inner": 1}})
	if err != nil {
		t.Fatal(err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type %T, want map[string]any", decoded)
	}
	if _, ok := outer["outer"].(map[string]any); !ok {
		t.Errorf("nested type %T, want map[string]any", outer["outer"])
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var record storedRecord
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &record); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestEncoderDecoderStreamRoundtrip(t *testing.T) {
	records := []storedRecord{
		{Repository: "a/b", Attempts: 1},
		{Repository: "c/d", Error: "boom", Attempts: 2},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	decoder := NewDecoder(&buffer)
	for i, want := range records {
		var got storedRecord
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode record %d: %v", i, err)
		}
		if got != want {
			t.Errorf("record %d: got %+v, want %+v", i, got, want)
		}
	}
}
