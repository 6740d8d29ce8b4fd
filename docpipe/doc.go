package docpipe

import "strings"

// legacyDocRunLimit collapses the long repeated-byte runs that OLE
// container padding produces.
const legacyDocRunLimit = 10

// extractDoc scavenges readable text from a legacy .doc binary. There is
// no OLE parsing here: printable runs with at least three consecutive
// letters are kept, container noise is dropped. Good enough for the
// occasional decades-old IEP a parent still has on file.
func extractDoc(data []byte) (string, error) {
	text := rawPrintableScan(decodeLatin1(data))
	text = collapseRuns(text, legacyDocRunLimit)
	text = strings.TrimSpace(text)
	if len(text) < FallbackThreshold {
		return "", ErrExtraction
	}
	return text, nil
}

// extractPlainText sanitizes a text file: invalid UTF-8 byte sequences
// become spaces, everything else passes through to the normalizer.
func extractPlainText(data []byte) (string, error) {
	text := strings.ToValidUTF8(string(data), " ")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrExtraction
	}
	return text, nil
}
