package docpipe

import (
	"math"
	"strings"
	"unicode"
)

// Score rates text quality in [0, 1]. It weighs the ASCII letter ratio
// (0.7) against average word length relative to typical English prose
// (0.3, saturating at 6 chars). Both ratios are computed over ASCII
// characters only; non-ASCII bytes (accented letters, leftover mojibake)
// count in neither numerator nor denominator. Garbage extractions score
// low on both axes. Empty or whitespace-only text scores 0. Total:
// never errors.
func Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	letters, ascii := 0, 0
	for i := 0; i < len(text); i++ {
		b := text[i]
		switch {
		case (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z'):
			letters++
			ascii++
		case (b >= 0x20 && b <= 0x7E) || b == '\n' || b == '\r' || b == '\t':
			ascii++
		}
	}
	if ascii == 0 {
		return 0
	}
	letterRatio := float64(letters) / float64(ascii)

	words := strings.Fields(text)
	var avgWordLen float64
	if len(words) > 0 {
		total := 0
		for _, w := range words {
			for i := 0; i < len(w); i++ {
				if w[i] > 0x20 && w[i] < 0x7F {
					total++
				}
			}
		}
		avgWordLen = float64(total) / float64(len(words))
	}
	lengthFactor := avgWordLen / 6
	if lengthFactor > 1 {
		lengthFactor = 1
	}

	score := 0.7*letterRatio + 0.3*lengthFactor
	return math.Round(score*1000) / 1000
}

// ExtractionQuality captures telemetry about PDF text extraction.
type ExtractionQuality struct {
	PageCount       int     `json:"page_count"`
	CharsPerPage    float64 `json:"chars_per_page"`
	PrintableRatio  float64 `json:"printable_ratio"`
	WordlikeRatio   float64 `json:"wordlike_ratio"`
	HasImageStreams bool    `json:"has_image_streams"`
}

// NeedsOCR reports whether the PDF likely has no usable text layer:
// near-empty pages alongside image streams, or mostly garbage output.
func (q *ExtractionQuality) NeedsOCR() bool {
	return (q.CharsPerPage < 50 && q.HasImageStreams) || q.PrintableRatio < 0.85
}

// computePrintableRatio returns the ratio of printable characters.
// Private Use Area, U+FFFD and bare control chars count as garbage.
func computePrintableRatio(text string) float64 {
	if len(text) == 0 {
		return 1.0
	}
	total := 0
	printable := 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == 0xFFFD {
		return true
	}
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}

// computeWordlikeRatio returns the ratio of tokens whose length falls in
// the 2-15 range typical of real words.
func computeWordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordlike := 0
	for _, f := range fields {
		n := len([]rune(f))
		if n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}
