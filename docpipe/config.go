package docpipe

import "log/slog"

// Pipeline tuning constants. All are defaults for the corresponding Config
// fields and can be overridden per pipeline.
const (
	// DefaultMaxFileSize caps input size (50 MB, matches upload limit).
	DefaultMaxFileSize = 50 * 1024 * 1024

	// DefaultTokenBudget is the soft per-chunk token ceiling.
	DefaultTokenBudget = 1500

	// MinReadableChars is the terminal extraction floor: fewer readable
	// characters than this means the document has no usable text layer.
	MinReadableChars = 50

	// FallbackThreshold triggers the raw byte-scan fallback when the
	// pattern families together yield less than this many characters.
	FallbackThreshold = 100
)

// Config configures the document pipeline.
type Config struct {
	// MaxFileSize is the maximum input size in bytes (default: 50 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// TokenBudget is the soft per-chunk token ceiling (default: 1500).
	TokenBudget int `json:"token_budget" yaml:"token_budget"`

	// UsePDFLibrary enables the pdfcpu-backed extractor as the first
	// attempt for PDFs; the regex heuristic remains the fallback.
	UsePDFLibrary bool `json:"use_pdf_library" yaml:"use_pdf_library"`

	// Detector overrides section detection spans (zero value = defaults).
	Detector DetectorConfig `json:"detector" yaml:"detector"`

	// Estimator converts text length to a token count. Defaults to
	// EstimateTokens (ceil(len/4)).
	Estimator TokenEstimator `json:"-" yaml:"-"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.TokenBudget <= 0 {
		c.TokenBudget = DefaultTokenBudget
	}
	c.Detector.defaults()
	if c.Estimator == nil {
		c.Estimator = EstimateTokens
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
