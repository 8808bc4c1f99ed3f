// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type sampleEntry struct {
	Event  string    `json:"event"`
	RunID  string    `json:"run_id"`
	State  string    `json:"state,omitempty"`
	Paths  []string  `json:"paths,omitempty"`
	Time   time.Time `json:"time"`
	Output []byte    `json:"output,omitempty"`
}

func sample() sampleEntry {
	return sampleEntry{
		Event: "transition",
		RunID: "run-1",
		State: "executing",
		Paths: []string{"src/lib.rs", "src/main.rs"},
		Time:  time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC),
	}
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sample()

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleEntry
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Event != original.Event || decoded.RunID != original.RunID || decoded.State != original.State {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
	if len(decoded.Paths) != 2 || decoded.Paths[1] != "src/main.rs" {
		t.Errorf("paths = %v", decoded.Paths)
	}
	if !decoded.Time.Equal(original.Time) {
		t.Errorf("time = %v, want %v", decoded.Time, original.Time)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	first, err := Marshal(map[string]any{"b": 1, "a": 2, "c": "x"})
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(map[string]any{"c": "x", "a": 2, "b": 1})
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestEncoderDecoderSequence(t *testing.T) {
	entries := []sampleEntry{
		{Event: "start", RunID: "run-2"},
		{Event: "transition", RunID: "run-2", State: "provisioning"},
		{Event: "complete", RunID: "run-2", Output: []byte("ok\n")},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range entries {
		var got sampleEntry
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode entry %d: %v", i, err)
		}
		if got.Event != want.Event || got.State != want.State || !bytes.Equal(got.Output, want.Output) {
			t.Errorf("entry %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestOmitemptyRespected(t *testing.T) {
	withState := sampleEntry{Event: "a", State: "detecting"}
	withoutState := sampleEntry{Event: "a"}

	dataWith, err := Marshal(withState)
	if err != nil {
		t.Fatal(err)
	}
	dataWithout, err := Marshal(withoutState)
	if err != nil {
		t.Fatal(err)
	}

	if len(dataWithout) >= len(dataWith) {
		t.Errorf("omitempty not effective: without=%d bytes, with=%d bytes",
			len(dataWithout), len(dataWith))
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var entry sampleEntry
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &entry); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestUnmarshalAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"event": "failed"})
	if err != nil {
		t.Fatal(err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	fields, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
	if fields["event"] != "failed" {
		t.Errorf("event = %v", fields["event"])
	}
}

func TestDiagnoseFirst(t *testing.T) {
	item1, err := Marshal(sampleEntry{Event: "start", RunID: "run-3"})
	if err != nil {
		t.Fatalf("Marshal item 1: %v", err)
	}
	item2, err := Marshal(int64(42))
	if err != nil {
		t.Fatalf("Marshal item 2: %v", err)
	}

	sequence := append(append([]byte{}, item1...), item2...)

	notation, remaining, err := DiagnoseFirst(sequence)
	if err != nil {
		t.Fatalf("DiagnoseFirst: %v", err)
	}
	if !strings.Contains(notation, `"run-3"`) {
		t.Errorf("first item notation %q does not contain \"run-3\"", notation)
	}

	notation2, remaining2, err := DiagnoseFirst(remaining)
	if err != nil {
		t.Fatalf("DiagnoseFirst second: %v", err)
	}
	if !strings.Contains(notation2, "42") {
		t.Errorf("second item notation %q does not contain \"42\"", notation2)
	}
	if len(remaining2) != 0 {
		t.Errorf("expected no remaining bytes, got %d", len(remaining2))
	}
}

func BenchmarkMarshal(b *testing.B) {
	entry := sample()
	b.ReportAllocs()
	for b.Loop() {
		Marshal(entry)
	}
}
