package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medintel/medrag/internal/models"
)

const stagingSuffix = "_staging"

// sqliteStaging writes a rebuilt corpus into shadow tables in the same
// database. The live tables keep serving reads until Commit renames the
// shadow tables over them in one transaction, mirroring the index artifact's
// temp-file-then-rename swap.
type sqliteStaging struct {
	db *sql.DB
}

// CreateDocument inserts a document into the staging tables.
func (st *sqliteStaging) CreateDocument(ctx context.Context, doc *models.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	doc.CreatedAt = time.Now()

	_, err = st.db.ExecContext(ctx,
		`INSERT INTO documents_staging (id, title, source, content, year, url, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Source, doc.Content, doc.Year, doc.URL, string(metadataJSON), doc.CreatedAt,
	)
	return err
}

// BatchCreateChunks inserts chunks into the staging tables in one transaction.
func (st *sqliteStaging) BatchCreateChunks(ctx context.Context, chunks []*models.DocumentChunk) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_chunks_staging (id, document_id, content, chunk_index, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, chunk := range chunks {
		chunk.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Content, chunk.ChunkIndex, chunk.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Commit atomically replaces the live corpus with the staged one: the live
// tables are dropped and the staging tables renamed over them in a single
// transaction. WAL readers mid-query keep their snapshot of the old corpus.
func (st *sqliteStaging) Commit(ctx context.Context) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`DROP TABLE IF EXISTS document_chunks`,
		`DROP TABLE IF EXISTS documents`,
		`ALTER TABLE documents_staging RENAME TO documents`,
		`ALTER TABLE document_chunks_staging RENAME TO document_chunks`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("swap corpus tables: %w", err)
		}
	}
	// Dropping the old tables took their indexes with them.
	if _, err := tx.ExecContext(ctx, liveIndexes); err != nil {
		return fmt.Errorf("recreate corpus indexes: %w", err)
	}
	return tx.Commit()
}

// Discard drops the staging tables, leaving the live corpus untouched.
func (st *sqliteStaging) Discard() error {
	return dropStagingTables(context.Background(), st.db)
}

func dropStagingTables(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS document_chunks_staging`); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS documents_staging`)
	return err
}
