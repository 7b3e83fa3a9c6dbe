package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io/fs"
	"log/slog"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	// Pure Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

// SnapshotFormatVersion is the on-disk format written by SaveSnapshot.
// Files with any other version are rejected as corrupt.
const SnapshotFormatVersion = 1

// SnapshotFileName is the index file inside a knowledge base's index directory.
const SnapshotFileName = "index.db"

// ErrNoSnapshot is returned by LoadSnapshot when no index has been written yet.
var ErrNoSnapshot = errors.New("no index snapshot")

// CorruptSnapshotError reports a snapshot file that failed validation.
type CorruptSnapshotError struct {
	Path   string
	Reason string
	Cause  error
}

func (e *CorruptSnapshotError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("corrupt index %s: %s: %v", e.Path, e.Reason, e.Cause)
	}
	return fmt.Sprintf("corrupt index %s: %s", e.Path, e.Reason)
}

func (e *CorruptSnapshotError) Unwrap() error {
	return e.Cause
}

// IsCorrupt reports whether err is a CorruptSnapshotError.
func IsCorrupt(err error) bool {
	var ce *CorruptSnapshotError
	return errors.As(err, &ce)
}

const snapshotSchema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE documents (
	doc_id       INTEGER PRIMARY KEY,
	rel_path     TEXT NOT NULL UNIQUE,
	content_hash TEXT NOT NULL,
	mtime_ns     INTEGER NOT NULL,
	size         INTEGER NOT NULL,
	length       INTEGER NOT NULL,
	title        TEXT NOT NULL,
	content      TEXT NOT NULL
);

CREATE TABLE postings (
	term         TEXT NOT NULL,
	doc_id       INTEGER NOT NULL,
	tf           INTEGER NOT NULL,
	first_offset INTEGER NOT NULL,
	PRIMARY KEY (term, doc_id)
) WITHOUT ROWID;
`

// SnapshotPath returns the snapshot file inside dir.
func SnapshotPath(dir string) string {
	return filepath.Join(dir, SnapshotFileName)
}

// SaveSnapshot writes idx to path atomically: the snapshot is built in
// path+".tmp", synced, and renamed over path. A crash at any point leaves
// either the previous file or the new one, never a partial file.
func SaveSnapshot(ctx context.Context, idx *InvertedIndex, path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmpPath := path + ".tmp"
	_ = os.Remove(tmpPath)
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := writeSnapshotDB(ctx, idx, tmpPath); err != nil {
		return err
	}

	if err := syncFile(tmpPath); err != nil {
		return fmt.Errorf("failed to sync index: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace index: %w", err)
	}
	// Persist the rename itself. Not every platform supports syncing a directory.
	_ = syncFile(filepath.Dir(path))
	return nil
}

func writeSnapshotDB(ctx context.Context, idx *InvertedIndex, path string) (err error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close database: %w", cerr)
		}
	}()
	db.SetMaxOpenConns(1)

	return fillSnapshot(ctx, db, idx)
}

func fillSnapshot(ctx context.Context, db *sql.DB, idx *InvertedIndex) error {
	// The file is private until renamed, so journaling buys nothing.
	pragmas := []string{
		"PRAGMA journal_mode = OFF",
		"PRAGMA synchronous = OFF",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	docStmt, err := tx.PrepareContext(ctx, `INSERT INTO documents
		(doc_id, rel_path, content_hash, mtime_ns, size, length, title, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare document insert: %w", err)
	}
	defer docStmt.Close()

	for _, rec := range idx.Documents() {
		if _, err := docStmt.ExecContext(ctx, rec.DocID, rec.RelPath, rec.ContentHash,
			rec.ModTime.UnixNano(), rec.Size, rec.Length, rec.Title, rec.Content); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", rec.RelPath, err)
		}
	}

	postStmt, err := tx.PrepareContext(ctx, `INSERT INTO postings (term, doc_id, tf, first_offset) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare posting insert: %w", err)
	}
	defer postStmt.Close()

	for _, term := range idx.Terms() {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, p := range idx.Postings(term) {
			if _, err := postStmt.ExecContext(ctx, term, p.DocID, p.Freq, p.FirstOffset); err != nil {
				return fmt.Errorf("failed to insert posting: %w", err)
			}
		}
	}

	builtAt := idx.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now()
	}
	meta := map[string]string{
		"format_version":  strconv.Itoa(SnapshotFormatVersion),
		"total_documents": strconv.Itoa(idx.TotalDocuments()),
		"avg_doc_length":  strconv.FormatFloat(idx.AvgDocLength(), 'g', -1, 64),
		"next_doc_id":     strconv.FormatInt(idx.NextDocID(), 10),
		"built_at":        builtAt.UTC().Format(time.RFC3339Nano),
		"checksum":        Checksum(idx),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return nil
}

// LoadSnapshot reads the snapshot at path into memory. It returns
// ErrNoSnapshot when the file does not exist and *CorruptSnapshotError when
// the file fails the integrity check, has an unknown format version, or its
// contents do not match the recorded checksum.
func LoadSnapshot(ctx context.Context, path string) (*InvertedIndex, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to stat index: %w", err)
	}

	corrupt := func(reason string, cause error) error {
		slog.Warn("snapshot_corrupt",
			slog.String("path", path),
			slog.String("reason", reason))
		return &CorruptSnapshotError{Path: path, Reason: reason, Cause: cause}
	}

	db, err := sql.Open("sqlite", readOnlyDSN(path))
	if err != nil {
		return nil, corrupt("cannot open", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	var integrity string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, corrupt("integrity check failed", err)
	}
	if integrity != "ok" {
		return nil, corrupt("integrity check: "+integrity, nil)
	}

	meta, err := readMeta(ctx, db)
	if err != nil {
		return nil, corrupt("unreadable header", err)
	}
	if v := meta["format_version"]; v != strconv.Itoa(SnapshotFormatVersion) {
		return nil, corrupt(fmt.Sprintf("unrecognized format version %q", v), nil)
	}

	idx := NewInvertedIndex()
	if err := loadDocuments(ctx, db, idx); err != nil {
		return nil, corrupt("unreadable documents", err)
	}
	if err := loadPostings(ctx, db, idx); err != nil {
		return nil, corrupt("unreadable postings", err)
	}

	next, err := strconv.ParseInt(meta["next_doc_id"], 10, 64)
	if err != nil || next < idx.nextDocID {
		return nil, corrupt("invalid next_doc_id", err)
	}
	idx.nextDocID = next
	if n, err := strconv.Atoi(meta["total_documents"]); err != nil || n != idx.TotalDocuments() {
		return nil, corrupt("document count mismatch", err)
	}
	if avg, err := strconv.ParseFloat(meta["avg_doc_length"], 64); err != nil || math.Abs(avg-idx.AvgDocLength()) > 1e-9 {
		return nil, corrupt("average length mismatch", err)
	}
	if err := idx.Validate(); err != nil {
		return nil, corrupt("invariant violated", err)
	}
	if sum := Checksum(idx); sum != meta["checksum"] {
		return nil, corrupt("checksum mismatch", nil)
	}
	if t, err := time.Parse(time.RFC3339Nano, meta["built_at"]); err == nil {
		idx.BuiltAt = t
	}

	return idx, nil
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func loadDocuments(ctx context.Context, db *sql.DB, idx *InvertedIndex) error {
	rows, err := db.QueryContext(ctx, `SELECT doc_id, rel_path, content_hash, mtime_ns, size, length, title, content
		FROM documents ORDER BY doc_id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rec DocumentRecord
		var mtime int64
		if err := rows.Scan(&rec.DocID, &rec.RelPath, &rec.ContentHash, &mtime,
			&rec.Size, &rec.Length, &rec.Title, &rec.Content); err != nil {
			return err
		}
		rec.ModTime = time.Unix(0, mtime)
		if err := idx.AddDocument(rec, nil); err != nil {
			return err
		}
	}
	return rows.Err()
}

func loadPostings(ctx context.Context, db *sql.DB, idx *InvertedIndex) error {
	rows, err := db.QueryContext(ctx, `SELECT term, doc_id, tf, first_offset FROM postings ORDER BY term, doc_id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var term string
		var p Posting
		if err := rows.Scan(&term, &p.DocID, &p.Freq, &p.FirstOffset); err != nil {
			return err
		}
		if _, ok := idx.docs[p.DocID]; !ok {
			return fmt.Errorf("posting for %q references unknown docId %d", term, p.DocID)
		}
		idx.postings[term] = append(idx.postings[term], p)
		idx.docTerms[p.DocID] = append(idx.docTerms[p.DocID], term)
	}
	return rows.Err()
}

// Checksum returns a SHA-256 digest over the index contents in canonical
// order. It is independent of map iteration order and of BuiltAt.
func Checksum(idx *InvertedIndex) string {
	h := sha256.New()
	writeField := func(h hash.Hash, parts ...string) {
		for _, p := range parts {
			_, _ = h.Write([]byte(strconv.Itoa(len(p))))
			_, _ = h.Write([]byte{':'})
			_, _ = h.Write([]byte(p))
		}
		_, _ = h.Write([]byte{'\n'})
	}

	writeField(h, "next", strconv.FormatInt(idx.NextDocID(), 10))
	for _, rec := range idx.Documents() {
		writeField(h, "doc",
			strconv.FormatInt(rec.DocID, 10),
			rec.RelPath,
			rec.ContentHash,
			strconv.FormatInt(rec.ModTime.UnixNano(), 10),
			strconv.FormatInt(rec.Size, 10),
			strconv.Itoa(rec.Length),
			rec.Title,
			rec.Content,
		)
	}
	for _, term := range idx.Terms() {
		parts := []string{"term", term}
		for _, p := range idx.Postings(term) {
			parts = append(parts,
				strconv.FormatInt(p.DocID, 10),
				strconv.Itoa(p.Freq),
				strconv.Itoa(p.FirstOffset))
		}
		writeField(h, parts...)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// readOnlyDSN returns a SQLite URI opening path read-only. The query string
// is only honoured for "file:" URIs.
func readOnlyDSN(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: "mode=ro"}
	return u.String()
}

// RemoveSnapshot deletes the index directory dir and everything in it.
func RemoveSnapshot(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove index directory: %w", err)
	}
	return nil
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
