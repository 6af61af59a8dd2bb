package models

import (
	"testing"
)

func TestStringList_ValueNilMarshalsEmptyArray(t *testing.T) {
	var list StringList

	value, err := list.Value()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(value.([]byte)) != "[]" {
		t.Errorf("expected nil list to marshal as [], got %s", value)
	}
}

func TestStringList_ScanRoundTrip(t *testing.T) {
	list := StringList{"0001", "0002"}

	value, err := list.Value()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var scanned StringList
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(scanned) != 2 || scanned[0] != "0001" || scanned[1] != "0002" {
		t.Errorf("unexpected scan result: %v", scanned)
	}
}

func TestJSONB_ScanNil(t *testing.T) {
	var data JSONB
	if err := data.Scan(nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if data != nil {
		t.Errorf("expected nil JSONB, got %v", data)
	}
}

func TestJSONB_ValueRoundTrip(t *testing.T) {
	data := JSONB{"origem": "BACKGROUND_INITIAL", "syncedCount": float64(2)}

	value, err := data.Value()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var scanned JSONB
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if scanned["origem"] != "BACKGROUND_INITIAL" {
		t.Errorf("unexpected origem: %v", scanned["origem"])
	}
	if scanned["syncedCount"] != float64(2) {
		t.Errorf("unexpected syncedCount: %v", scanned["syncedCount"])
	}
}
