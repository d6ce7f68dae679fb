package seriessync

import "testing"

func TestSeriesNameFromEventNameStripsSessionQualifier(t *testing.T) {
	name, err := seriesNameFromEventName("D&D: Curse of Strahd [Session 4]")
	if err != nil {
		t.Fatalf("seriesNameFromEventName: %v", err)
	}
	if name != "D&D: Curse of Strahd" {
		t.Fatalf("expected %q, got %q", "D&D: Curse of Strahd", name)
	}
}

func TestSeriesNameFromEventNameRejectsTooShort(t *testing.T) {
	if _, err := seriesNameFromEventName("X"); err == nil {
		t.Fatal("expected an error for a too-short series name")
	}
}

func TestSeriesNameFromEventNameRejectsEmptyAfterBracket(t *testing.T) {
	if _, err := seriesNameFromEventName("[Session 4]"); err == nil {
		t.Fatal("expected an error when nothing precedes the bracket")
	}
}
