package docpipe

import (
	"strings"
	"testing"
)

func TestScore_Bounds(t *testing.T) {
	// WHAT: Scores stay in [0,1] for hostile inputs.
	// WHY: The score is persisted and filtered on; out-of-range values
	// would poison retrieval thresholds.
	inputs := []string{
		"",
		"   \n\t  ",
		"normal english prose about reading goals",
		strings.Repeat("a", 10_000),
		"!@#$%^&*()_+{}|:<>?",
		"1234567890 1234567890",
		strings.Repeat("supercalifragilisticexpialidocious ", 50),
	}
	for _, in := range inputs {
		got := Score(in)
		if got < 0 || got > 1 {
			t.Errorf("Score(%.20q) = %f, out of bounds", in, got)
		}
	}
}

func TestScore_Empty(t *testing.T) {
	if got := Score(""); got != 0 {
		t.Errorf("Score(\"\") = %f, want 0", got)
	}
	if got := Score("   "); got != 0 {
		t.Errorf("Score(blank) = %f, want 0", got)
	}
}

func TestScore_Ranking(t *testing.T) {
	// WHAT: Clean prose outranks digit soup and symbol noise.
	prose := Score("The student demonstrates consistent progress in reading comprehension.")
	digits := Score("0001 1203 9982 1 2 3 4 5 6 7 8 9 0")
	noise := Score("%%%% #### @@@@ !!!!")
	if prose <= digits {
		t.Errorf("prose %f should outrank digits %f", prose, digits)
	}
	// Symbols and digits have zero letters; only word length contributes,
	// capping both well below prose.
	if noise > 0.31 || digits > 0.31 {
		t.Errorf("letterless scores too high: noise %f, digits %f", noise, digits)
	}
}

func TestScore_Rounding(t *testing.T) {
	// WHAT: Scores round to three decimals.
	// "abc": letterRatio 1.0 → 0.7; avgWordLen 3/6 → 0.15; total 0.85.
	if got := Score("abc"); got != 0.85 {
		t.Errorf("Score(abc) = %f, want 0.85", got)
	}
}

func TestScore_Formula(t *testing.T) {
	// WHAT: Known input hits the documented 0.7/0.3 weighting.
	// "aaaaaa" → letterRatio 1.0, avgWordLen 6 → 0.7 + 0.3 = 1.0
	if got := Score("aaaaaa"); got != 1.0 {
		t.Errorf("Score(aaaaaa) = %f, want 1.0", got)
	}
	// "aa" → letterRatio 1.0, avgWordLen 2/6 → 0.7 + 0.1 = 0.8
	if got := Score("aa"); got != 0.8 {
		t.Errorf("Score(aa) = %f, want 0.8", got)
	}
}

func TestScore_NonASCIIExcluded(t *testing.T) {
	// WHAT: Accented characters count in neither ratio, so text with a few
	// of them is not penalized as if it were mojibake.
	// "café naïve": 7 ASCII letters over 8 ASCII chars (é and ï excluded,
	// the space counts); ASCII word chars 4+3 over 2 words → avg 3.5.
	// 0.7*(7/8) + 0.3*(3.5/6) = 0.7875 → 0.788.
	if got := Score("café naïve"); got != 0.788 {
		t.Errorf("Score(café naïve) = %f, want 0.788", got)
	}
	// Text with no ASCII at all scores 0 rather than dividing by zero.
	if got := Score("日本語"); got != 0 {
		t.Errorf("Score(non-ASCII only) = %f, want 0", got)
	}
}

func TestNeedsOCR(t *testing.T) {
	tests := []struct {
		name string
		q    ExtractionQuality
		want bool
	}{
		{"scanned", ExtractionQuality{CharsPerPage: 10, HasImageStreams: true, PrintableRatio: 0.95}, true},
		{"garbage", ExtractionQuality{CharsPerPage: 800, PrintableRatio: 0.5}, true},
		{"clean", ExtractionQuality{CharsPerPage: 1200, PrintableRatio: 0.99}, false},
		{"sparse no images", ExtractionQuality{CharsPerPage: 10, HasImageStreams: false, PrintableRatio: 0.99}, false},
	}
	for _, tt := range tests {
		if got := tt.q.NeedsOCR(); got != tt.want {
			t.Errorf("%s: NeedsOCR() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestComputeWordlikeRatio(t *testing.T) {
	if got := computeWordlikeRatio("the quick brown fox"); got != 1.0 {
		t.Errorf("all wordlike: got %f", got)
	}
	if got := computeWordlikeRatio("a " + strings.Repeat("x", 40)); got != 0 {
		t.Errorf("no wordlike tokens: got %f", got)
	}
	if got := computeWordlikeRatio(""); got != 0 {
		t.Errorf("empty: got %f", got)
	}
}
