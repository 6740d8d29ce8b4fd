package docpipe

// Format identifies a document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDocx Format = "docx"
	FormatDoc  Format = "doc"
	FormatTXT  Format = "txt"
)

// SectionTag labels a region of an IEP document.
type SectionTag string

const (
	TagPresentLevels  SectionTag = "Present_Levels"
	TagGoals          SectionTag = "Goals"
	TagServices       SectionTag = "Services"
	TagAccommodations SectionTag = "Accommodations"
	TagLRE            SectionTag = "LRE"
	TagTransition     SectionTag = "Transition"
	TagAssessment     SectionTag = "Assessment"
	TagESY            SectionTag = "ESY"
	TagUntagged       SectionTag = "Untagged"
)

// Section is a tagged span of the normalized document text.
// Start and End are byte offsets into the normalized text, End exclusive.
type Section struct {
	Tag   SectionTag `json:"tag"`
	Start int        `json:"start"`
	End   int        `json:"end"`
	Text  string     `json:"text"`
}

// Chunk is a retrieval-ready unit of document text.
type Chunk struct {
	Content      string     `json:"content"`
	SectionTag   SectionTag `json:"section_tag"`
	PageIndex    int        `json:"page_index"` // always 0; byte-level extraction has no page map
	ChunkHash    string     `json:"chunk_hash"` // md5 hex of Content
	QualityScore float64    `json:"text_quality_score"`
	Tokens       int        `json:"tokens"`
}

// Document is the result of running the full pipeline over one file.
type Document struct {
	Filename string             `json:"filename"`
	Format   Format             `json:"format"`
	Text     string             `json:"text"` // normalized full text
	Sections []Section          `json:"sections"`
	Chunks   []Chunk            `json:"chunks"`
	Quality  *ExtractionQuality `json:"quality,omitempty"` // PDF extraction telemetry
}

// SupportedFormats returns the file extensions the pipeline accepts.
func SupportedFormats() []string {
	return []string{"pdf", "docx", "doc", "txt"}
}
