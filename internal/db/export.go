package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ishaan812/gitinsight/internal/cache"
	"github.com/ishaan812/gitinsight/internal/vectorstore"
)

type ExportResult struct {
	Commits int
	Chunks  int
	Overall bool
}

// Export replaces the contents of the export tables with the current cache
// and, when index is non-nil, its vector namespace. The whole export is one
// transaction.
func Export(ctx context.Context, db *sql.DB, store *cache.Store, index *vectorstore.Index) (ExportResult, error) {
	var res ExportResult

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin export: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"commits", "chunks", "overall_summary"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return res, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	chunkCounts := make(map[string]int)
	var entries []vectorstore.Entry
	if index != nil {
		entries = index.Entries()
		for _, e := range entries {
			chunkCounts[e.Metadata.Hash]++
		}
	}

	commitStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO commits (hash, message, author, committed_at, summary, diff_lines, chunk_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return res, fmt.Errorf("failed to prepare commit insert: %w", err)
	}
	defer commitStmt.Close()

	for _, c := range store.List(0) {
		diffLines := 0
		if c.Diff != "" {
			diffLines = strings.Count(strings.TrimSuffix(c.Diff, "\n"), "\n") + 1
		}
		if _, err := commitStmt.ExecContext(ctx, c.Hash, c.Message, c.Author, c.Date.UTC(), c.Summary, diffLines, chunkCounts[c.Hash]); err != nil {
			return res, fmt.Errorf("failed to insert commit %s: %w", c.Hash, err)
		}
		res.Commits++
	}

	if len(entries) > 0 {
		chunkStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, commit_hash, chunk_index, model, dimensions, text)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return res, fmt.Errorf("failed to prepare chunk insert: %w", err)
		}
		defer chunkStmt.Close()

		for _, e := range entries {
			if _, err := chunkStmt.ExecContext(ctx, e.ID, e.Metadata.Hash, e.Metadata.Chunk, index.Model(), len(e.Embedding), e.Text); err != nil {
				return res, fmt.Errorf("failed to insert chunk %s: %w", e.ID, err)
			}
			res.Chunks++
		}
	}

	if overall, ok := store.Overall(); ok {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO overall_summary (generated_at, number_of_commits, summary)
			VALUES (?, ?, ?)
		`, overall.Date.UTC(), overall.NumberOfCommits, overall.Summary)
		if err != nil {
			return res, fmt.Errorf("failed to insert overall summary: %w", err)
		}
		res.Overall = true
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit export: %w", err)
	}
	return res, nil
}
