package db

// Schema defines the DuckDB tables the cache and vector index export into.
const Schema = `
-- One row per cached commit
CREATE TABLE IF NOT EXISTS commits (
    hash VARCHAR PRIMARY KEY,
    message VARCHAR NOT NULL,
    author VARCHAR,
    committed_at TIMESTAMP NOT NULL,
    summary VARCHAR,
    diff_lines INTEGER DEFAULT 0,
    chunk_count INTEGER DEFAULT 0
);

-- One row per embedded diff chunk
CREATE TABLE IF NOT EXISTS chunks (
    id VARCHAR PRIMARY KEY,
    commit_hash VARCHAR NOT NULL,
    chunk_index INTEGER NOT NULL,
    model VARCHAR NOT NULL,
    dimensions INTEGER NOT NULL,
    text VARCHAR
);

-- The project-wide summary, at most one row
CREATE TABLE IF NOT EXISTS overall_summary (
    generated_at TIMESTAMP,
    number_of_commits INTEGER,
    summary VARCHAR
);

-- Commits per UTC day
CREATE OR REPLACE VIEW commits_per_day AS
SELECT CAST(committed_at AS DATE) AS day, COUNT(*) AS commits
FROM commits
GROUP BY 1
ORDER BY 1;
`

// SchemaDescription is printed by the export command to help with ad-hoc
// queries.
const SchemaDescription = `Tables:
  commits(hash, message, author, committed_at, summary, diff_lines, chunk_count)
  chunks(id, commit_hash, chunk_index, model, dimensions, text)
  overall_summary(generated_at, number_of_commits, summary)
Views:
  commits_per_day(day, commits)`
