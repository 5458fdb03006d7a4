package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	filename TEXT NOT NULL,
	file_type TEXT NOT NULL,
	mime_type TEXT,
	size INTEGER NOT NULL,
	hash TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	modified_at INTEGER NOT NULL,
	indexed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);
CREATE INDEX IF NOT EXISTS idx_files_file_type ON files(file_type);
CREATE INDEX IF NOT EXISTS idx_files_modified_at ON files(modified_at);
CREATE INDEX IF NOT EXISTS idx_files_hash ON files(hash);

CREATE TABLE IF NOT EXISTS content (
	file_id INTEGER PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	word_count INTEGER NOT NULL,
	language TEXT
);

CREATE TABLE IF NOT EXISTS vectors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	vector_type TEXT NOT NULL,
	vector_id INTEGER NOT NULL,
	chunk_index INTEGER NOT NULL DEFAULT 0,
	UNIQUE(file_id, vector_type, chunk_index)
);
CREATE INDEX IF NOT EXISTS idx_vectors_file_id ON vectors(file_id);
CREATE INDEX IF NOT EXISTS idx_vectors_vector_type ON vectors(vector_type);

CREATE VIRTUAL TABLE IF NOT EXISTS content_fts USING fts5(text, content='content', content_rowid='file_id');

CREATE TRIGGER IF NOT EXISTS content_ai AFTER INSERT ON content BEGIN
	INSERT INTO content_fts(rowid, text) VALUES (new.file_id, new.text);
END;
CREATE TRIGGER IF NOT EXISTS content_ad AFTER DELETE ON content BEGIN
	INSERT INTO content_fts(content_fts, rowid, text) VALUES ('delete', old.file_id, old.text);
END;
CREATE TRIGGER IF NOT EXISTS content_au AFTER UPDATE ON content BEGIN
	INSERT INTO content_fts(content_fts, rowid, text) VALUES ('delete', old.file_id, old.text);
	INSERT INTO content_fts(rowid, text) VALUES (new.file_id, new.text);
END;
`

// SQLiteMetadataStore is the MetadataStore implementation backed by
// database/sql over modernc.org/sqlite (pure Go, no cgo).
type SQLiteMetadataStore struct {
	db *sql.DB
}

// OpenMetadataStore opens (or creates) the relational store at path and
// applies schema migrations idempotently.
func OpenMetadataStore(path string) (*SQLiteMetadataStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer, serialized per §5

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteMetadataStore{db: db}, nil
}

func (s *SQLiteMetadataStore) Close() error { return s.db.Close() }

func (s *SQLiteMetadataStore) UpsertFile(ctx context.Context, rec *FileRecord) (int64, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existingID int64
	var existingHash string
	var existingSize int64
	err = tx.QueryRowContext(ctx, `SELECT id, hash, size FROM files WHERE path = ?`, rec.Path).
		Scan(&existingID, &existingHash, &existingSize)

	switch {
	case err == sql.ErrNoRows:
		res, insErr := tx.ExecContext(ctx, `
			INSERT INTO files (path, filename, file_type, mime_type, size, hash, created_at, modified_at, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.Path, rec.Filename, string(rec.FileType), rec.MimeType, rec.SizeBytes, rec.Hash,
			rec.CreatedAt, rec.ModifiedAt, rec.IndexedAt)
		if insErr != nil {
			return 0, false, fmt.Errorf("insert file: %w", insErr)
		}
		id, idErr := res.LastInsertId()
		if idErr != nil {
			return 0, false, fmt.Errorf("last insert id: %w", idErr)
		}
		if err := tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("commit: %w", err)
		}
		return id, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("lookup file: %w", err)
	}

	if existingHash == rec.Hash && existingSize == rec.SizeBytes {
		// fast path: no-op, indexed_at untouched
		return existingID, true, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE files SET filename=?, file_type=?, mime_type=?, size=?, hash=?, modified_at=?, indexed_at=?
		WHERE id = ?
	`, rec.Filename, string(rec.FileType), rec.MimeType, rec.SizeBytes, rec.Hash, rec.ModifiedAt, rec.IndexedAt, existingID)
	if err != nil {
		return 0, false, fmt.Errorf("update file: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit: %w", err)
	}
	return existingID, false, nil
}

func (s *SQLiteMetadataStore) UpsertContent(ctx context.Context, fileID int64, text string, wordCount int, language string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content (file_id, text, word_count, language) VALUES (?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET text=excluded.text, word_count=excluded.word_count, language=excluded.language
	`, fileID, text, wordCount, nullable(language))
	if err != nil {
		return fmt.Errorf("upsert content: %w", err)
	}
	return nil
}

func (s *SQLiteMetadataStore) UpsertVector(ctx context.Context, fileID int64, vt VectorType, vectorID int64, chunkIndex int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vectors (file_id, vector_type, vector_id, chunk_index) VALUES (?, ?, ?, ?)
		ON CONFLICT(file_id, vector_type, chunk_index) DO UPDATE SET vector_id=excluded.vector_id
	`, fileID, string(vt), vectorID, chunkIndex)
	if err != nil {
		return fmt.Errorf("upsert vector: %w", err)
	}
	return nil
}

func (s *SQLiteMetadataStore) DeleteFile(ctx context.Context, fileID int64) (OrphanedVectors, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT vector_type, vector_id FROM vectors WHERE file_id = ?`, fileID)
	if err != nil {
		return nil, fmt.Errorf("select vectors: %w", err)
	}
	orphans := make(OrphanedVectors)
	for rows.Next() {
		var vt string
		var vid int64
		if err := rows.Scan(&vt, &vid); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan vector: %w", err)
		}
		orphans[VectorType(vt)] = append(orphans[VectorType(vt)], vid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID); err != nil {
		return nil, fmt.Errorf("delete file: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return orphans, nil
}

func (s *SQLiteMetadataStore) GetFile(ctx context.Context, fileID int64) (*FileRecord, error) {
	return s.scanOne(ctx, `SELECT id, path, filename, file_type, mime_type, size, hash, created_at, modified_at, indexed_at FROM files WHERE id = ?`, fileID)
}

func (s *SQLiteMetadataStore) GetByPath(ctx context.Context, path string) (*FileRecord, error) {
	return s.scanOne(ctx, `SELECT id, path, filename, file_type, mime_type, size, hash, created_at, modified_at, indexed_at FROM files WHERE path = ?`, path)
}

func (s *SQLiteMetadataStore) scanOne(ctx context.Context, query string, arg any) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	rec, err := scanFileRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return rec, nil
}

func scanFileRecord(row *sql.Row) (*FileRecord, error) {
	var rec FileRecord
	var mime sql.NullString
	var ftype string
	if err := row.Scan(&rec.FileID, &rec.Path, &rec.Filename, &ftype, &mime, &rec.SizeBytes, &rec.Hash,
		&rec.CreatedAt, &rec.ModifiedAt, &rec.IndexedAt); err != nil {
		return nil, err
	}
	rec.FileType = ParseFileType(ftype)
	rec.MimeType = mime.String
	return &rec, nil
}

func (s *SQLiteMetadataStore) ListAll(ctx context.Context) ([]*FileRecord, error) {
	return s.queryFiles(ctx, `SELECT id, path, filename, file_type, mime_type, size, hash, created_at, modified_at, indexed_at FROM files ORDER BY id`)
}

func (s *SQLiteMetadataStore) ListPathsUnder(ctx context.Context, root string) ([]*FileRecord, error) {
	root = filepath.Clean(root)
	prefix := root + string(filepath.Separator)
	return s.queryFiles(ctx, `
		SELECT id, path, filename, file_type, mime_type, size, hash, created_at, modified_at, indexed_at
		FROM files WHERE path = ? OR path LIKE ? ESCAPE '\'
	`, root, escapeLike(prefix)+"%")
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func (s *SQLiteMetadataStore) queryFiles(ctx context.Context, query string, args ...any) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var out []*FileRecord
	for rows.Next() {
		var rec FileRecord
		var mime sql.NullString
		var ftype string
		if err := rows.Scan(&rec.FileID, &rec.Path, &rec.Filename, &ftype, &mime, &rec.SizeBytes, &rec.Hash,
			&rec.CreatedAt, &rec.ModifiedAt, &rec.IndexedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		rec.FileType = ParseFileType(ftype)
		rec.MimeType = mime.String
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *SQLiteMetadataStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{FilesByType: map[FileType]int{}, VectorsByType: map[VectorType]int{}}

	rows, err := s.db.QueryContext(ctx, `SELECT file_type, COUNT(*), COALESCE(SUM(size), 0) FROM files GROUP BY file_type`)
	if err != nil {
		return nil, fmt.Errorf("stats files: %w", err)
	}
	for rows.Next() {
		var ftype string
		var count int
		var bytes int64
		if err := rows.Scan(&ftype, &count, &bytes); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.FilesByType[ParseFileType(ftype)] += count
		stats.TotalFiles += count
		stats.BytesTotal += bytes
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vrows, err := s.db.QueryContext(ctx, `SELECT vector_type, COUNT(*) FROM vectors GROUP BY vector_type`)
	if err != nil {
		return nil, fmt.Errorf("stats vectors: %w", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var vt string
		var count int
		if err := vrows.Scan(&vt, &count); err != nil {
			return nil, fmt.Errorf("scan vector stats: %w", err)
		}
		stats.VectorsByType[VectorType(vt)] = count
	}
	return stats, vrows.Err()
}

func (s *SQLiteMetadataStore) VectorIDsPresent(ctx context.Context) (map[VectorType]map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT vector_type, vector_id FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("query vector refs: %w", err)
	}
	defer rows.Close()

	out := map[VectorType]map[int64]struct{}{
		VectorTypeText:  {},
		VectorTypeImage: {},
	}
	for rows.Next() {
		var vt string
		var vid int64
		if err := rows.Scan(&vt, &vid); err != nil {
			return nil, fmt.Errorf("scan vector ref: %w", err)
		}
		if out[VectorType(vt)] == nil {
			out[VectorType(vt)] = map[int64]struct{}{}
		}
		out[VectorType(vt)][vid] = struct{}{}
	}
	return out, rows.Err()
}

func (s *SQLiteMetadataStore) DeleteOrphanVectorRefs(ctx context.Context, vt VectorType, liveIDs map[int64]struct{}) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT vector_id FROM vectors WHERE vector_type = ?`, string(vt))
	if err != nil {
		return 0, fmt.Errorf("query vector refs: %w", err)
	}
	var stale []int64
	for rows.Next() {
		var vid int64
		if err := rows.Scan(&vid); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan vector ref: %w", err)
		}
		if _, ok := liveIDs[vid]; !ok {
			stale = append(stale, vid)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, vid := range stale {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM vectors WHERE vector_type = ? AND vector_id = ?`, string(vt), vid); err != nil {
			return 0, fmt.Errorf("delete orphan vector ref: %w", err)
		}
	}
	return len(stale), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ MetadataStore = (*SQLiteMetadataStore)(nil)
