package docpipe

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// TextExtractor pulls raw text out of PDF bytes. Implementations must be
// safe for concurrent use. The returned quality telemetry may be nil when
// the extractor has no structural view of the document.
type TextExtractor interface {
	Name() string
	Extract(ctx context.Context, data []byte) (string, *ExtractionQuality, error)
}

// RegexHeuristicExtractor scrapes text-showing operators straight out of
// PDF bytes without parsing the document structure. It works on the large
// share of IEP paperwork produced by district systems that emit
// uncompressed content streams, and it never touches object streams or
// fonts, so it cannot fail on malformed xref tables.
type RegexHeuristicExtractor struct{}

func (RegexHeuristicExtractor) Name() string { return "regex-heuristic" }

var (
	btBlockRe     = regexp.MustCompile(`(?s)BT(.*?)ET`)
	tjShowRe      = regexp.MustCompile(`\(((?:\\.|[^()\\])*)\)\s*Tj`)
	tjArrayRe     = regexp.MustCompile(`(?s)\[((?:\\.|[^\[\]\\])*)\]\s*TJ`)
	parenStringRe = regexp.MustCompile(`\(((?:\\.|[^()\\])*)\)`)
	streamBlockRe = regexp.MustCompile(`(?s)stream\r?\n(.*?)endstream`)
	printRunRe    = regexp.MustCompile(`[\x20-\x7E]{4,}`)
	tripleAlphaRe = regexp.MustCompile(`[A-Za-z]{3}`)
)

// Extract runs the pattern families over the raw bytes, unions their
// output in document order, and falls back to a raw printable scan when
// the families together yield too little.
func (RegexHeuristicExtractor) Extract(ctx context.Context, data []byte) (string, *ExtractionQuality, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	// Latin-1 is lossless byte-to-rune, so offsets into the decoded
	// string track offsets into the raw bytes one to one.
	raw := decodeLatin1(data)

	type segment struct {
		off  int
		text string
	}
	var segs []segment
	seen := make(map[string]bool)
	add := func(off int, text string) {
		text = strings.TrimSpace(text)
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		segs = append(segs, segment{off, text})
	}

	// Family 1: show operators inside BT..ET text objects.
	for _, block := range btBlockRe.FindAllStringSubmatchIndex(raw, -1) {
		inner := raw[block[2]:block[3]]
		for _, m := range tjShowRe.FindAllStringSubmatchIndex(inner, -1) {
			add(block[2]+m[0], decodePDFString(inner[m[2]:m[3]]))
		}
	}

	// Family 2: bare (text) Tj outside captured blocks.
	for _, m := range tjShowRe.FindAllStringSubmatchIndex(raw, -1) {
		add(m[0], decodePDFString(raw[m[2]:m[3]]))
	}

	// Family 3: [(a) -120 (b)] TJ arrays, string runs concatenated.
	for _, m := range tjArrayRe.FindAllStringSubmatchIndex(raw, -1) {
		arr := raw[m[2]:m[3]]
		var sb strings.Builder
		for _, p := range parenStringRe.FindAllStringSubmatch(arr, -1) {
			sb.WriteString(decodePDFString(p[1]))
		}
		add(m[0], sb.String())
	}

	// Family 4: printable runs inside stream bodies.
	for _, m := range streamBlockRe.FindAllStringSubmatchIndex(raw, -1) {
		body := raw[m[2]:m[3]]
		runs := printRunRe.FindAllString(body, -1)
		if len(runs) > 0 {
			add(m[0], strings.Join(runs, " "))
		}
	}

	sort.SliceStable(segs, func(i, j int) bool { return segs[i].off < segs[j].off })

	var sb strings.Builder
	for i, s := range segs {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s.text)
	}
	combined := collapseUnprintable(sb.String())

	if len(strings.TrimSpace(combined)) < FallbackThreshold {
		if fb := rawPrintableScan(raw); len(fb) > len(strings.TrimSpace(combined)) {
			combined = fb
		}
	}

	combined = strings.TrimSpace(combined)
	if len(combined) < MinReadableChars {
		return "", nil, ErrExtraction
	}

	q := &ExtractionQuality{
		PrintableRatio: computePrintableRatio(combined),
		WordlikeRatio:  computeWordlikeRatio(combined),
	}
	return combined, q, nil
}

// decodeLatin1 maps each byte to the rune with the same code point.
func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// decodePDFString resolves PDF string escapes: \n \r \t \( \) \\ and
// octal \ddd.
func decodePDFString(raw string) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}

// collapseUnprintable replaces anything outside printable ASCII (keeping
// \n \r \t) with a space.
func collapseUnprintable(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if (r >= 0x20 && r <= 0x7E) || r == '\n' || r == '\r' || r == '\t' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// rawPrintableScan is the last-resort pass: printable runs longer than 15
// characters that contain at least three consecutive letters. Catches
// documents whose text never goes through show operators.
func rawPrintableScan(raw string) string {
	var keep []string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		run := raw[start:end]
		if len(run) > 15 && tripleAlphaRe.MatchString(run) {
			keep = append(keep, strings.TrimSpace(run))
		}
		start = -1
	}
	for i, r := range raw {
		if r >= 0x20 && r <= 0x7E {
			if start < 0 {
				start = i
			}
		} else {
			flush(i)
		}
	}
	flush(len(raw))
	return strings.TrimSpace(strings.Join(keep, " "))
}
