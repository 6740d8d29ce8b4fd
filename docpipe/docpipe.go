// Package docpipe turns uploaded IEP documents into tagged, retrieval-ready
// text chunks.
//
// The pipeline has five stages:
//   - extraction: pdf (regex heuristic or pdfcpu), docx, doc, txt
//   - normalization: canonical whitespace, punctuation, truncation
//   - section detection: IDEA heading vocabulary, tagged spans
//   - chunking: sentence-bounded packing under a token budget
//   - scoring: per-chunk text quality in [0, 1]
//
// All parsers are pure Go, CGO_ENABLED=0 compatible. Stages after
// extraction are total functions and safe for concurrent use.
//
// Usage:
//
//	pipe := docpipe.New(docpipe.Config{})
//	doc, err := pipe.Process(ctx, "review.pdf", data)
//	fmt.Println(len(doc.Chunks), "chunks")
package docpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Pipeline is the document processing engine.
type Pipeline struct {
	cfg        Config
	logger     *slog.Logger
	extractors []TextExtractor // PDF extractors, tried in order
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	extractors := []TextExtractor{RegexHeuristicExtractor{}}
	if cfg.UsePDFLibrary {
		extractors = []TextExtractor{LibraryBackedExtractor{}, RegexHeuristicExtractor{}}
	}
	return &Pipeline{
		cfg:        cfg,
		logger:     cfg.Logger,
		extractors: extractors,
	}
}

// DetectFormat resolves the document format from the filename extension,
// falling back to the MIME content type. Anything outside pdf, docx, doc
// and txt is ErrUnsupportedFormat.
func DetectFormat(filename, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDocx, nil
	case ".doc":
		return FormatDoc, nil
	case ".txt", ".text":
		return FormatTXT, nil
	}

	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "application/pdf":
		return FormatPDF, nil
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDocx, nil
	case "application/msword":
		return FormatDoc, nil
	case "text/plain":
		return FormatTXT, nil
	}

	return "", fmt.Errorf("%w: %q (%s)", ErrUnsupportedFormat, filename, contentType)
}

// Process runs the full pipeline over one document: extract, normalize,
// detect sections, chunk, score.
func (p *Pipeline) Process(ctx context.Context, filename string, data []byte) (*Document, error) {
	if int64(len(data)) > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(data), p.cfg.MaxFileSize)
	}

	format, err := DetectFormat(filename, "")
	if err != nil {
		return nil, err
	}
	return p.process(ctx, filename, format, data)
}

// ProcessAs is Process with an explicit format, for callers that already
// resolved it from upload metadata.
func (p *Pipeline) ProcessAs(ctx context.Context, filename string, format Format, data []byte) (*Document, error) {
	if int64(len(data)) > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(data), p.cfg.MaxFileSize)
	}
	return p.process(ctx, filename, format, data)
}

func (p *Pipeline) process(ctx context.Context, filename string, format Format, data []byte) (*Document, error) {
	p.logger.Debug("processing document", "filename", filename, "format", format, "bytes", len(data))

	var (
		text    string
		quality *ExtractionQuality
		err     error
	)
	switch format {
	case FormatPDF:
		text, quality, err = p.extractPDF(ctx, data)
	case FormatDocx:
		text, err = extractDocx(data)
	case FormatDoc:
		text, err = extractDoc(data)
	case FormatTXT:
		text, err = extractPlainText(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s (%s): %w", filename, format, err)
	}

	normalized := Normalize(text)
	if len(normalized) < MinReadableChars {
		return nil, fmt.Errorf("extract %s (%s): %w", filename, format, ErrExtraction)
	}

	sections := DetectSections(normalized, p.cfg.Detector)
	chunks := BuildChunks(sections, p.cfg.TokenBudget, p.cfg.Estimator)

	p.logger.Debug("document processed",
		"filename", filename,
		"text_len", len(normalized),
		"sections", len(sections),
		"chunks", len(chunks))

	return &Document{
		Filename: filename,
		Format:   format,
		Text:     normalized,
		Sections: sections,
		Chunks:   chunks,
		Quality:  quality,
	}, nil
}

// extractPDF tries the configured extractors in order and keeps the first
// result over the readable floor.
func (p *Pipeline) extractPDF(ctx context.Context, data []byte) (string, *ExtractionQuality, error) {
	var lastErr error
	for _, ex := range p.extractors {
		text, quality, err := ex.Extract(ctx, data)
		if err == nil {
			return text, quality, nil
		}
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		p.logger.Debug("pdf extractor failed", "extractor", ex.Name(), "error", err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrExtraction
	}
	if !errors.Is(lastErr, ErrExtraction) {
		lastErr = fmt.Errorf("%w (last: %v)", ErrExtraction, lastErr)
	}
	return "", nil, lastErr
}
