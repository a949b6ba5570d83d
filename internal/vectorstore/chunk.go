package vectorstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/ishaan812/gitinsight/internal/cache"
)

// Metadata travels with every indexed chunk.
type Metadata struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
	Summary string    `json:"summary,omitempty"`
	Chunk   int       `json:"chunk"`
}

// Document is one embeddable unit derived from a commit.
type Document struct {
	ID       string
	Text     string
	Metadata Metadata
}

// ChunkLines splits text into pieces of at most maxLines lines. A trailing
// newline terminates the last line rather than starting a new one, and
// empty text yields no chunks.
func ChunkLines(text string, maxLines int) []string {
	if text == "" {
		return nil
	}
	if maxLines <= 0 {
		return []string{text}
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	chunks := make([]string, 0, (len(lines)+maxLines-1)/maxLines)
	for start := 0; start < len(lines); start += maxLines {
		end := start + maxLines
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, strings.Join(lines[start:end], "\n"))
	}
	return chunks
}

// ChunkID names the i-th chunk of a commit.
func ChunkID(hash string, i int) string {
	return fmt.Sprintf("%s_chunk_%d", hash, i)
}

// BaseDocument renders the commit header shared by all of its chunks.
func BaseDocument(c cache.Commit) string {
	return fmt.Sprintf("Commit: %s\nAuthor: %s\nDate: %s\nMessage: %s\nSummary: %s",
		c.Hash, c.Author, c.Date.UTC().Format(time.RFC3339), strings.TrimSpace(c.Message), c.Summary)
}

// Documents turns a commit into one document per diff chunk. A commit
// without a diff still gets a single header-only document.
func Documents(c cache.Commit, maxLines int) []Document {
	base := BaseDocument(c)
	meta := Metadata{
		Hash:    c.Hash,
		Author:  c.Author,
		Date:    c.Date,
		Message: c.Message,
		Summary: c.Summary,
	}

	chunks := ChunkLines(c.Diff, maxLines)
	if len(chunks) == 0 {
		return []Document{{ID: ChunkID(c.Hash, 0), Text: base, Metadata: meta}}
	}

	docs := make([]Document, len(chunks))
	for i, chunk := range chunks {
		m := meta
		m.Chunk = i
		docs[i] = Document{
			ID:       ChunkID(c.Hash, i),
			Text:     base + "\n\nDiff Chunk:\n" + chunk,
			Metadata: m,
		}
	}
	return docs
}
