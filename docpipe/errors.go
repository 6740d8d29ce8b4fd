package docpipe

import "errors"

var (
	// ErrExtraction is terminal: the document has no usable text layer
	// (likely a scanned image) and no extraction strategy can recover it.
	ErrExtraction = errors.New("docpipe: insufficient readable text")

	// ErrUnsupportedFormat rejects anything outside pdf, docx, doc, txt.
	ErrUnsupportedFormat = errors.New("docpipe: unsupported document format")

	// ErrFileTooLarge rejects inputs over Config.MaxFileSize.
	ErrFileTooLarge = errors.New("docpipe: file too large")
)
