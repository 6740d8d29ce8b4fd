package docpipe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// LibraryBackedExtractor parses the PDF structure with pdfcpu and walks
// page content streams. It decompresses object streams the regex
// heuristic cannot see, at the cost of failing on documents pdfcpu
// refuses to validate.
type LibraryBackedExtractor struct{}

func (LibraryBackedExtractor) Name() string { return "pdfcpu" }

// Extract reads the document structure and concatenates per-page text.
func (LibraryBackedExtractor) Extract(ctx context.Context, data []byte) (string, *ExtractionQuality, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	var all strings.Builder
	totalChars := 0
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		pageText := extractPageText(pdfCtx, pageNr)
		if pageText == "" {
			continue
		}
		totalChars += len([]rune(pageText))
		if all.Len() > 0 {
			all.WriteByte('\n')
		}
		all.WriteString(pageText)
	}

	text := strings.TrimSpace(all.String())
	if len(text) < MinReadableChars {
		return "", nil, ErrExtraction
	}

	var charsPerPage float64
	if pdfCtx.PageCount > 0 {
		charsPerPage = float64(totalChars) / float64(pdfCtx.PageCount)
	}
	q := &ExtractionQuality{
		PageCount:       pdfCtx.PageCount,
		CharsPerPage:    charsPerPage,
		PrintableRatio:  computePrintableRatio(text),
		WordlikeRatio:   computeWordlikeRatio(text),
		HasImageStreams: detectImageStreams(pdfCtx),
	}
	return text, q, nil
}

// extractPageText pulls one page's content stream and walks its text
// operators.
func extractPageText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return walkContentStream(data)
}

// detectImageStreams checks whether the PDF carries image XObjects, the
// signal that a near-empty text layer means a scanned document.
func detectImageStreams(pdfCtx *model.Context) bool {
	if pdfCtx.Optimize != nil {
		for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(pdfCtx, pageNr)) > 0 {
				return true
			}
		}
	}
	for _, entry := range pdfCtx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}

// walkContentStream interprets the text-showing and positioning operators
// of a decoded content stream.
func walkContentStream(data []byte) string {
	var sb strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range parenStringRe.FindAllStringSubmatch(string(line), -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range parenStringRe.FindAllStringSubmatch(string(line), -1) {
				sb.WriteByte('\n')
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}
	return strings.TrimSpace(collapseUnprintable(sb.String()))
}
