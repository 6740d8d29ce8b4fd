// Package ingester is the IEP document ingest service: it drives the
// docpipe pipeline, persists documents and chunks in SQLite, and
// exposes the HTTP API.
package ingester

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/myiephero/ieppipe/docpipe"
	"github.com/myiephero/ieppipe/idgen"
	"github.com/myiephero/ieppipe/observability"
)

// Ingester processes uploads end to end and records the results.
type Ingester struct {
	pipeline *docpipe.Pipeline
	store    *Store
	ids      idgen.Generator
	events   *observability.EventLogger
	metrics  *observability.MetricsManager
	logger   *slog.Logger
}

// IngesterOption customises an Ingester.
type IngesterOption func(*Ingester)

// WithEventLogger records business events for each ingest and delete.
func WithEventLogger(el *observability.EventLogger) IngesterOption {
	return func(ing *Ingester) { ing.events = el }
}

// WithMetrics records ingest timing and output metrics.
func WithMetrics(mm *observability.MetricsManager) IngesterOption {
	return func(ing *Ingester) { ing.metrics = mm }
}

// WithIDGenerator overrides the document ID generator.
func WithIDGenerator(g idgen.Generator) IngesterOption {
	return func(ing *Ingester) { ing.ids = g }
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) IngesterOption {
	return func(ing *Ingester) { ing.logger = l }
}

// New creates an Ingester backed by the given store.
func New(cfg *Config, store *Store, opts ...IngesterOption) *Ingester {
	ing := &Ingester{
		pipeline: docpipe.New(docpipe.Config{
			MaxFileSize:   cfg.MaxFileBytes(),
			TokenBudget:   cfg.TokenBudget,
			UsePDFLibrary: cfg.UsePDFLibrary,
		}),
		store:  store,
		ids:    idgen.Prefixed("doc_", idgen.UUIDv7()),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(ing)
	}
	return ing
}

// IngestResult summarises a completed ingest for API responses.
type IngestResult struct {
	Success             bool   `json:"success"`
	DocID               string `json:"docId"`
	ExtractedTextLength int    `json:"extractedTextLength"`
	ChunksCreated       int    `json:"chunksCreated"`
	SectionsIdentified  int    `json:"sectionsIdentified"`
}

// Ingest runs the pipeline over one upload and persists the result.
// ownerSub scopes the document to the authenticated user.
func (ing *Ingester) Ingest(ctx context.Context, filename, contentType string, data []byte, ownerSub string) (*IngestResult, error) {
	start := time.Now()

	format, err := docpipe.DetectFormat(filename, contentType)
	if err != nil {
		ing.logFailure(ctx, filename, ownerSub, err)
		return nil, err
	}

	doc, err := ing.pipeline.ProcessAs(ctx, filename, format, data)
	if err != nil {
		ing.logFailure(ctx, filename, ownerSub, err)
		return nil, err
	}

	docID := ing.ids()
	sections := identifiedSections(doc.Sections)
	row := &DocumentRow{
		DocID:          docID,
		OwnerSub:       ownerSub,
		Filename:       filename,
		Format:         string(doc.Format),
		ExtractedChars: len(doc.Text),
		ChunkCount:     len(doc.Chunks),
		SectionCount:   sections,
		CreatedAt:      time.Now().UTC(),
	}
	if err := ing.store.InsertDocument(ctx, row, doc.Chunks); err != nil {
		ing.logFailure(ctx, filename, ownerSub, err)
		return nil, fmt.Errorf("persist document: %w", err)
	}

	ing.recordMetrics(doc, start)
	if ing.events != nil {
		ing.events.LogEvent(ctx, observability.BusinessEvent{
			EventType:   observability.EventDocumentIngested,
			ServiceName: "ieppipe",
			EntityType:  "document",
			EntityID:    docID,
			UserID:      ownerSub,
			Action:      "ingest",
			Success:     true,
		})
	}
	ing.logger.Info("document ingested",
		"doc_id", docID,
		"filename", filename,
		"format", doc.Format,
		"chars", len(doc.Text),
		"chunks", len(doc.Chunks),
		"sections", sections,
		"duration_ms", time.Since(start).Milliseconds())

	return &IngestResult{
		Success:             true,
		DocID:               docID,
		ExtractedTextLength: len(doc.Text),
		ChunksCreated:       len(doc.Chunks),
		SectionsIdentified:  sections,
	}, nil
}

// Delete removes a document owned by ownerSub. Reports whether it existed.
func (ing *Ingester) Delete(ctx context.Context, docID, ownerSub string) (bool, error) {
	doc, err := ing.store.GetDocument(ctx, docID)
	if err != nil {
		return false, err
	}
	if doc == nil || doc.OwnerSub != ownerSub {
		return false, nil
	}
	found, err := ing.store.DeleteDocument(ctx, docID)
	if err != nil {
		return false, err
	}
	if found && ing.events != nil {
		ing.events.LogEvent(ctx, observability.BusinessEvent{
			EventType:   observability.EventDocumentDeleted,
			ServiceName: "ieppipe",
			EntityType:  "document",
			EntityID:    docID,
			UserID:      ownerSub,
			Action:      "delete",
			Success:     true,
		})
	}
	return found, nil
}

// identifiedSections counts detected sections, excluding untagged filler.
func identifiedSections(sections []docpipe.Section) int {
	n := 0
	for _, s := range sections {
		if s.Tag != docpipe.TagUntagged {
			n++
		}
	}
	return n
}

func (ing *Ingester) recordMetrics(doc *docpipe.Document, start time.Time) {
	if ing.metrics == nil {
		return
	}
	ing.metrics.RecordSimple(observability.MetricIngestDurationMs, float64(time.Since(start).Milliseconds()), "milliseconds")
	ing.metrics.RecordSimple(observability.MetricChunksCreated, float64(len(doc.Chunks)), "count")
	ing.metrics.RecordSimple(observability.MetricExtractedChars, float64(len(doc.Text)), "count")
	for _, c := range doc.Chunks {
		ing.metrics.RecordSimple(observability.MetricChunkQualityScore, c.QualityScore, "ratio")
	}
}

func (ing *Ingester) logFailure(ctx context.Context, filename, ownerSub string, err error) {
	ing.logger.Warn("ingest failed", "filename", filename, "error", err)
	if ing.events != nil {
		ing.events.LogEvent(ctx, observability.BusinessEvent{
			EventType:   observability.EventIngestFailed,
			ServiceName: "ieppipe",
			EntityType:  "document",
			EntityID:    filename,
			UserID:      ownerSub,
			Action:      "ingest",
			Success:     false,
			Details:     fmt.Sprintf(`{"error":%q}`, err.Error()),
		})
	}
}
