package match

import (
	"testing"

	"github.com/sydlexius/autotagger/internal/provider"
)

func TestDetectScript(t *testing.T) {
	tests := map[string]string{
		"Abbey Road":     "Latn",
		"アビイ・ロード":        "Jpan",
		"東京事変":           "Hani",
		"林檎の唄":           "Jpan",
		"Кино":           "Cyrl",
		"방탄소년단":          "Hang",
		"1969 - 2019 !!": "",
		"":               "",
	}
	for in, want := range tests {
		if got := DetectScript(in); got != want {
			t.Errorf("DetectScript(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCandidateScript(t *testing.T) {
	declared := &provider.RawCandidate{Script: "latn", Title: provider.Text("アビイ・ロード")}
	if got := CandidateScript(declared); got != "Latn" {
		t.Errorf("declared script: got %q, want Latn", got)
	}
	detected := &provider.RawCandidate{
		Title:  provider.Text("Kid A"),
		Tracks: []provider.CandidateTrack{{Title: provider.Text("Everything in Its Right Place")}},
	}
	if got := CandidateScript(detected); got != "Latn" {
		t.Errorf("detected script: got %q, want Latn", got)
	}
}
