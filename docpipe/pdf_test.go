package docpipe

import (
	"context"
	"strings"
	"testing"
)

func TestRegexHeuristic_TjOperators(t *testing.T) {
	// WHAT: (text) Tj show operators inside BT..ET blocks are scraped.
	// WHY: This is the dominant encoding in district-generated IEP PDFs.
	body := "BT\n/F1 12 Tf\n(PRESENT LEVELS OF ACADEMIC ACHIEVEMENT) Tj\n" +
		"(Jordan is reading at the second grade level with adult support and responds well to praise.) Tj\nET"
	data := wrapPDFBody(body)

	text, q, err := RegexHeuristicExtractor{}.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "PRESENT LEVELS") || !strings.Contains(text, "second grade level") {
		t.Fatalf("missing content: %q", text)
	}
	if q == nil || q.PrintableRatio <= 0 {
		t.Fatalf("expected quality telemetry, got %+v", q)
	}
}

func TestRegexHeuristic_TJArrays(t *testing.T) {
	// WHAT: [(a) -120 (b)] TJ arrays concatenate their string runs.
	body := "BT\n[(ANNUAL ) -250 (GOALS: Jordan will increase reading fluency) 18 ( to ninety words per minute as measured by weekly curriculum-based probes.)] TJ\nET"
	data := wrapPDFBody(body)

	text, _, err := RegexHeuristicExtractor{}.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "ANNUAL GOALS: Jordan will increase reading fluency to ninety words per minute as measured by weekly curriculum-based probes.") {
		t.Fatalf("TJ runs not concatenated: %q", text)
	}
}

func TestRegexHeuristic_Escapes(t *testing.T) {
	// WHAT: PDF string escapes decode, including octal.
	body := `BT
(Parent\(s\) signed the consent form on time\056 All team members were present and the meeting lasted one hour.) Tj
ET`
	data := wrapPDFBody(body)

	text, _, err := RegexHeuristicExtractor{}.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "Parent(s) signed the consent form on time.") {
		t.Fatalf("escapes not decoded: %q", text)
	}
}

func TestRegexHeuristic_StreamRuns(t *testing.T) {
	// WHAT: Printable runs inside stream bodies contribute when show
	// operators are absent.
	body := "stream\nAccommodations include extended time on assessments and preferential seating near the teacher\nendstream"
	data := []byte("%PDF-1.4\n" + body + "\n%%EOF")

	text, _, err := RegexHeuristicExtractor{}.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "extended time") {
		t.Fatalf("stream text missing: %q", text)
	}
}

func TestRegexHeuristic_RawFallback(t *testing.T) {
	// WHAT: With no recognizable operators, printable runs over 15 chars
	// with three consecutive letters are salvaged.
	// WHY: Some generators emit text outside any known operator shape.
	junk := string([]byte{0x01, 0x02, 0xFF, 0xFE})
	data := []byte(junk + "The individualized education program team convened to review progress" + junk + "short" + junk)

	text, _, err := RegexHeuristicExtractor{}.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "individualized education program") {
		t.Fatalf("fallback missed run: %q", text)
	}
	if strings.Contains(text, "short") {
		t.Fatalf("fallback kept a run under the length floor: %q", text)
	}
}

func TestRegexHeuristic_InsufficientText(t *testing.T) {
	// WHAT: Under 50 readable chars → ErrExtraction, terminal.
	data := wrapPDFBody("BT\n(too short) Tj\nET")
	_, _, err := RegexHeuristicExtractor{}.Extract(context.Background(), data)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "insufficient readable text") {
		t.Fatalf("wrong error: %v", err)
	}
}

func TestRegexHeuristic_Dedup(t *testing.T) {
	// WHAT: The same string found by two families appears once.
	line := "(Related services include speech therapy twice weekly and occupational therapy once weekly in a small group setting.) Tj"
	body := "BT\n" + line + "\nET\n" + line
	data := wrapPDFBody(body)

	text, _, err := RegexHeuristicExtractor{}.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if n := strings.Count(text, "speech therapy"); n != 1 {
		t.Fatalf("expected 1 occurrence, got %d in %q", n, text)
	}
}

func TestLibraryBacked_RealPDF(t *testing.T) {
	// WHAT: pdfcpu-backed extraction reads a well-formed PDF and reports
	// page-aware quality telemetry.
	data := buildTextPDF("Present Levels of Academic Achievement and Functional Performance for Jordan")

	text, q, err := LibraryBackedExtractor{}.Extract(context.Background(), data)
	if err != nil {
		t.Skipf("pdfcpu rejected minimal fixture: %v", err)
	}
	if !strings.Contains(text, "Present Levels") {
		t.Fatalf("missing content: %q", text)
	}
	if q == nil || q.PageCount != 1 {
		t.Fatalf("quality = %+v", q)
	}
}

func TestPipeline_PDFFallback(t *testing.T) {
	// WHAT: With the library extractor enabled, a PDF pdfcpu cannot parse
	// still extracts through the regex heuristic.
	data := wrapPDFBody("BT\n(The student continues to receive specially designed instruction in mathematics daily.) Tj\nET")

	pipe := New(Config{UsePDFLibrary: true})
	doc, err := pipe.Process(context.Background(), "broken.pdf", data)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.Contains(doc.Text, "specially designed instruction") {
		t.Fatalf("fallback failed: %q", doc.Text)
	}
}

// --- fixtures ---

// wrapPDFBody frames a content snippet with enough PDF syntax for the
// heuristic; deliberately not a valid document.
func wrapPDFBody(body string) []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< >>\nendobj\n" + body + "\n%%EOF")
}

// buildTextPDF creates a minimal valid PDF with correct xref offsets.
func buildTextPDF(text string) []byte {
	escaped := strings.ReplaceAll(text, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "(", `\(`)
	escaped = strings.ReplaceAll(escaped, ")", `\)`)

	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, 6)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")

	offsets[4] = b.Len()
	b.WriteString("4 0 obj\n<< /Length ")
	b.WriteString(itoa(len(stream)))
	b.WriteString(" >>\nstream\n")
	b.WriteString(stream)
	b.WriteString("\nendstream\nendobj\n")

	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xrefOffset := b.Len()
	b.WriteString("xref\n0 6\n")
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		b.WriteString(pad10(offsets[i]))
		b.WriteString(" 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n")
	b.WriteString(itoa(xrefOffset))
	b.WriteString("\n%%EOF\n")

	return []byte(b.String())
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func pad10(n int) string {
	s := itoa(n)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}
