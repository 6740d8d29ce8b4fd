package docpipe

import (
	"regexp"
	"strings"
)

// Normalization constants.
const (
	// MaxNormalizedLength caps the normalized text; longer documents are
	// truncated and marked.
	MaxNormalizedLength = 100_000

	// TruncationMarker is appended when a document is cut at
	// MaxNormalizedLength.
	TruncationMarker = "[Document truncated for processing...]"

	// maxCharRun is the longest allowed run of a single repeated
	// character. Longer runs are collapsed to one occurrence (scanner
	// artifacts, ruled lines rendered as dots or dashes).
	maxCharRun = 5
)

// smartReplacer maps typographic Unicode to plain ASCII and removes
// invisible layout characters that PDF generators leave behind.
var smartReplacer = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"–", "-", // en dash
	"—", "-", // em dash
	"…", "...", // ellipsis
	"\u00A0", " ", // no-break space
	"\u00AD", "", // soft hyphen
	"\u200B", "", // zero-width space
	"\u200C", "", // zero-width non-joiner
	"\u200D", "", // zero-width joiner
	"\u2060", "", // word joiner
	"\uFEFF", "", // byte order mark
)

var (
	spaceRunRe      = regexp.MustCompile(`[ \t]+`)
	lineEdgeSpaceRe = regexp.MustCompile(` ?\n ?`)
	spacedPunctRe   = regexp.MustCompile(` +([,.!?;:])`)
	crampedPunctRe  = regexp.MustCompile(`([,.!?;:])([A-Za-z])`)
	manyNewlinesRe  = regexp.MustCompile(`\n{3,}`)
	hyphenBreakRe   = regexp.MustCompile(`([A-Za-z])-\n([A-Za-z])`)
	brokenWordRe    = regexp.MustCompile(`([a-z])\n([a-z])`)
)

// Normalize cleans extracted document text into a stable canonical form.
// It is a total function and idempotent: Normalize(Normalize(s)) == Normalize(s).
//
// Whitespace is canonicalized first so the rejoin patterns only ever see
// bare newlines; the shortening rewrites then iterate to a fixpoint.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = smartReplacer.Replace(text)
	text = stripControl(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = lineEdgeSpaceRe.ReplaceAllString(text, "\n")
	text = spacedPunctRe.ReplaceAllString(text, "$1")
	text = crampedPunctRe.ReplaceAllString(text, "$1 $2")
	text = manyNewlinesRe.ReplaceAllString(text, "\n\n")

	// The shortening rewrites can expose new matches for each other:
	// chained hyphen breaks, or a char run re-formed by a rejoin. A
	// single left-to-right pass of each is not enough, so iterate until
	// nothing changes. Every rewrite strictly shortens the text, so this
	// terminates.
	for {
		prev := text
		text = hyphenBreakRe.ReplaceAllString(text, "$1$2")
		text = brokenWordRe.ReplaceAllString(text, "$1$2")
		text = collapseRuns(text, maxCharRun)
		if text == prev {
			break
		}
	}

	text = strings.TrimSpace(text)

	return truncate(text)
}

// stripControl removes control characters except \n, \r and \t.
func stripControl(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		if r == 0x7F {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// collapseRuns reduces any run of a single rune longer than max to one
// occurrence. RE2 has no backreferences, so this is a manual scan.
func collapseRuns(text string, max int) string {
	runes := []rune(text)
	var sb strings.Builder
	sb.Grow(len(text))
	i := 0
	for i < len(runes) {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i > max {
			sb.WriteRune(runes[i])
		} else {
			for k := i; k < j; k++ {
				sb.WriteRune(runes[k])
			}
		}
		i = j
	}
	return sb.String()
}

// truncate caps text at MaxNormalizedLength runes and appends the marker.
// Already-marked text is left alone so repeated normalization is stable.
func truncate(text string) string {
	if strings.HasSuffix(text, TruncationMarker) {
		return text
	}
	runes := []rune(text)
	if len(runes) <= MaxNormalizedLength {
		return text
	}
	head := strings.TrimRight(string(runes[:MaxNormalizedLength]), " \n\t")
	return head + "\n\n" + TruncationMarker
}
