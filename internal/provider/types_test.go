package provider

import (
	"errors"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       RawCandidate
		wantErr bool
	}{
		{"complete", RawCandidate{Source: SourceDiscogs, ID: "123"}, false},
		{"missing source", RawCandidate{ID: "123"}, true},
		{"missing id", RawCandidate{Source: SourceDiscogs}, true},
		{"blank id", RawCandidate{Source: SourceDiscogs, ID: "  "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			var mal *ErrMalformedCandidate
			if err != nil && !errors.As(err, &mal) {
				t.Errorf("expected ErrMalformedCandidate, got %T", err)
			}
		})
	}
}

func TestUnknownHelpers(t *testing.T) {
	if Text("   ") != nil {
		t.Error("blank text should be unknown")
	}
	if got := Text(" Abbey Road "); got == nil || *got != "Abbey Road" {
		t.Errorf("Text trimmed = %v", got)
	}
	if Number(0) != nil || Number(-3) != nil {
		t.Error("non-positive numbers should be unknown")
	}
	if Seconds(0) != nil {
		t.Error("zero seconds should be unknown")
	}
	if got := Seconds(1.5); got == nil || *got != 1500*time.Millisecond {
		t.Errorf("Seconds(1.5) = %v", got)
	}
	if got := Millis(259000); got == nil || *got != 259*time.Second {
		t.Errorf("Millis = %v", got)
	}
}

func TestYearOf(t *testing.T) {
	tests := map[string]int{
		"1969-09-26": 1969,
		"1969":       1969,
		"2019-09":    2019,
		"":           0,
		"19":         0,
		"unknown":    0,
		"0000":       0,
	}
	for in, want := range tests {
		got := YearOf(in)
		if want == 0 {
			if got != nil {
				t.Errorf("YearOf(%q) = %d, want unknown", in, *got)
			}
			continue
		}
		if got == nil || *got != want {
			t.Errorf("YearOf(%q) = %v, want %d", in, got, want)
		}
	}
}

func TestIdentifiable(t *testing.T) {
	var nilEntity *LocalEntity
	if nilEntity.Identifiable() {
		t.Error("nil entity should not be identifiable")
	}
	if (&LocalEntity{Year: Number(1969)}).Identifiable() {
		t.Error("year alone should not be identifiable")
	}
	if !(&LocalEntity{Artist: Text("The Beatles")}).Identifiable() {
		t.Error("artist alone should be identifiable")
	}
	album := &LocalEntity{Tracks: []LocalTrack{{Index: Number(1)}, {Title: Text("Something")}}}
	if !album.Identifiable() {
		t.Error("album with a titled track should be identifiable")
	}
	if album.SearchTitle() != "Something" {
		t.Errorf("SearchTitle = %q", album.SearchTitle())
	}
}
