package ingester

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/myiephero/ieppipe/dbopen"
	"github.com/myiephero/ieppipe/docpipe"
)

// Schema is the ingest store DDL, applied via dbopen.WithSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS iep_documents (
    doc_id          TEXT PRIMARY KEY,
    owner_sub       TEXT NOT NULL DEFAULT '',
    filename        TEXT NOT NULL,
    format          TEXT NOT NULL,
    extracted_chars INTEGER NOT NULL,
    chunk_count     INTEGER NOT NULL,
    section_count   INTEGER NOT NULL,
    created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS iep_text_chunks (
    doc_id             TEXT NOT NULL REFERENCES iep_documents(doc_id) ON DELETE CASCADE,
    idx                INTEGER NOT NULL,
    content            TEXT NOT NULL,
    tokens             INTEGER NOT NULL,
    section_tag        TEXT NOT NULL,
    page_index         INTEGER NOT NULL DEFAULT 0,
    chunk_hash         TEXT NOT NULL,
    text_quality_score REAL NOT NULL,
    PRIMARY KEY (doc_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_documents_owner ON iep_documents(owner_sub);
CREATE INDEX IF NOT EXISTS idx_chunks_section  ON iep_text_chunks(section_tag);
`

// Store persists ingested documents and their chunks in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already-opened database. The caller applies Schema
// via dbopen.WithSchema (or ApplySchema) before use.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// ApplySchema creates the ingest tables if they do not exist.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("ingester: apply schema: %w", err)
	}
	return nil
}

// DB returns the underlying *sql.DB for sharing with other layers.
func (s *Store) DB() *sql.DB { return s.db }

// DocumentRow is a persisted document record.
type DocumentRow struct {
	DocID          string    `json:"doc_id"`
	OwnerSub       string    `json:"-"`
	Filename       string    `json:"filename"`
	Format         string    `json:"format"`
	ExtractedChars int       `json:"extracted_chars"`
	ChunkCount     int       `json:"chunk_count"`
	SectionCount   int       `json:"section_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// ChunkRow is a persisted chunk record.
type ChunkRow struct {
	DocID        string  `json:"doc_id"`
	Idx          int     `json:"idx"`
	Content      string  `json:"content"`
	Tokens       int     `json:"tokens"`
	SectionTag   string  `json:"section_tag"`
	PageIndex    int     `json:"page_index"`
	ChunkHash    string  `json:"chunk_hash"`
	QualityScore float64 `json:"text_quality_score"`
}

// InsertDocument writes the document record and all its chunks in a
// single transaction. Chunk idx follows slice order.
func (s *Store) InsertDocument(ctx context.Context, doc *DocumentRow, chunks []docpipe.Chunk) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO iep_documents (doc_id, owner_sub, filename, format, extracted_chars, chunk_count, section_count, created_at)
			VALUES (?,?,?,?,?,?,?,?)`,
			doc.DocID, doc.OwnerSub, doc.Filename, doc.Format,
			doc.ExtractedChars, doc.ChunkCount, doc.SectionCount, doc.CreatedAt.Unix()); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		for i, c := range chunks {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO iep_text_chunks (doc_id, idx, content, tokens, section_tag, page_index, chunk_hash, text_quality_score)
				VALUES (?,?,?,?,?,?,?,?)`,
				doc.DocID, i, c.Content, c.Tokens, string(c.SectionTag),
				c.PageIndex, c.ChunkHash, c.QualityScore); err != nil {
				return fmt.Errorf("insert chunk %d: %w", i, err)
			}
		}
		return nil
	})
}

// GetDocument returns a document by ID. Returns nil, nil if not found.
func (s *Store) GetDocument(ctx context.Context, docID string) (*DocumentRow, error) {
	d := &DocumentRow{}
	var ts int64
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_id, owner_sub, filename, format, extracted_chars, chunk_count, section_count, created_at
		FROM iep_documents WHERE doc_id = ?`, docID,
	).Scan(&d.DocID, &d.OwnerSub, &d.Filename, &d.Format,
		&d.ExtractedChars, &d.ChunkCount, &d.SectionCount, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	d.CreatedAt = time.Unix(ts, 0)
	return d, nil
}

// ListDocuments returns documents for an owner, newest first.
func (s *Store) ListDocuments(ctx context.Context, ownerSub string, limit int) ([]*DocumentRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, owner_sub, filename, format, extracted_chars, chunk_count, section_count, created_at
		FROM iep_documents WHERE owner_sub = ?
		ORDER BY created_at DESC, doc_id DESC LIMIT ?`, ownerSub, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*DocumentRow
	for rows.Next() {
		d := &DocumentRow{}
		var ts int64
		if err := rows.Scan(&d.DocID, &d.OwnerSub, &d.Filename, &d.Format,
			&d.ExtractedChars, &d.ChunkCount, &d.SectionCount, &ts); err != nil {
			return nil, err
		}
		d.CreatedAt = time.Unix(ts, 0)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListChunks returns a document's chunks ordered by idx.
func (s *Store) ListChunks(ctx context.Context, docID string) ([]*ChunkRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, idx, content, tokens, section_tag, page_index, chunk_hash, text_quality_score
		FROM iep_text_chunks WHERE doc_id = ? ORDER BY idx`, docID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*ChunkRow
	for rows.Next() {
		c := &ChunkRow{}
		if err := rows.Scan(&c.DocID, &c.Idx, &c.Content, &c.Tokens,
			&c.SectionTag, &c.PageIndex, &c.ChunkHash, &c.QualityScore); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteDocument removes a document. CASCADE cleans up its chunks.
// Reports whether a row was deleted.
func (s *Store) DeleteDocument(ctx context.Context, docID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM iep_documents WHERE doc_id = ?`, docID)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
