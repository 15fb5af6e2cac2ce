package shapeclust

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`,
	`CREATE TABLE items (
    idx   INTEGER PRIMARY KEY,
    name  TEXT NOT NULL UNIQUE,
    label INTEGER
)`,
	`CREATE TABLE matrix_rows (
    idx  INTEGER PRIMARY KEY,
    data BLOB NOT NULL
)`,
}

// writeSQLite builds a fresh database holding r in a temporary file next to
// path and renames it into place after the transaction commits, so a failed
// write leaves any previous artifact at path intact.
func writeSQLite(ctx context.Context, path string, r *Result) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".shapeclust-*.db")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if err = tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(name)
		}
	}()

	if err = fillSQLite(ctx, name, r); err != nil {
		return err
	}
	return os.Rename(name, path)
}

// fillSQLite writes r into the empty database file at path. Each matrix row
// is stored as an EncodeFloat64s blob keyed by item index.
func fillSQLite(ctx context.Context, path string, r *Result) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, ddl := range sqliteSchema {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	meta := map[string]string{
		"version": strconv.Itoa(snapshotVersion),
		"n":       strconv.Itoa(r.Matrix.N),
		"metric":  r.Metric.Code(),
		"method":  string(r.Method),
		"cutoff":  strconv.FormatFloat(r.Cutoff, 'g', -1, 64),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES(?, ?)`, k, v); err != nil {
			return err
		}
	}

	itemStmt, err := tx.PrepareContext(ctx, `INSERT INTO items(idx, name, label) VALUES(?, ?, ?)`)
	if err != nil {
		return err
	}
	defer itemStmt.Close()
	rowStmt, err := tx.PrepareContext(ctx, `INSERT INTO matrix_rows(idx, data) VALUES(?, ?)`)
	if err != nil {
		return err
	}
	defer rowStmt.Close()

	for i, name := range r.Names {
		var label sql.NullInt64
		if len(r.Labels) > 0 {
			label = sql.NullInt64{Int64: int64(r.Labels[i]), Valid: true}
		}
		if _, err := itemStmt.ExecContext(ctx, i, name, label); err != nil {
			return err
		}
		if _, err := rowStmt.ExecContext(ctx, i, EncodeFloat64s(r.Matrix.Row(i))); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func readSQLite(ctx context.Context, path string) (*Result, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	meta := make(map[string]string)
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, err
		}
		meta[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if meta["version"] != strconv.Itoa(snapshotVersion) {
		return nil, fmt.Errorf("unsupported artifact version %q", meta["version"])
	}
	n, err := strconv.Atoi(meta["n"])
	if err != nil {
		return nil, fmt.Errorf("meta n: %w", err)
	}
	cutoff, err := strconv.ParseFloat(meta["cutoff"], 64)
	if err != nil {
		return nil, fmt.Errorf("meta cutoff: %w", err)
	}
	metric, err := metricFromCode(meta["metric"])
	if err != nil {
		return nil, err
	}
	method, err := linkageFromName(meta["method"])
	if err != nil {
		return nil, err
	}

	r := &Result{Metric: metric, Method: method, Cutoff: cutoff, Matrix: NewMatrix(n)}

	items, err := db.QueryContext(ctx, `SELECT idx, name, label FROM items ORDER BY idx`)
	if err != nil {
		return nil, err
	}
	defer items.Close()
	for items.Next() {
		var (
			idx   int
			name  string
			label sql.NullInt64
		)
		if err := items.Scan(&idx, &name, &label); err != nil {
			return nil, err
		}
		if idx != len(r.Names) {
			return nil, fmt.Errorf("item index %d out of sequence", idx)
		}
		r.Names = append(r.Names, name)
		if label.Valid {
			r.Labels = append(r.Labels, int(label.Int64))
		}
	}
	if err := items.Err(); err != nil {
		return nil, err
	}

	mrows, err := db.QueryContext(ctx, `SELECT idx, data FROM matrix_rows ORDER BY idx`)
	if err != nil {
		return nil, err
	}
	defer mrows.Close()
	seen := 0
	for mrows.Next() {
		var (
			idx  int
			blob []byte
		)
		if err := mrows.Scan(&idx, &blob); err != nil {
			return nil, err
		}
		row, err := DecodeFloat64s(blob)
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= n || len(row) != n {
			return nil, fmt.Errorf("matrix row %d has %d values, want %d", idx, len(row), n)
		}
		copy(r.Matrix.Row(idx), row)
		seen++
	}
	if err := mrows.Err(); err != nil {
		return nil, err
	}
	if seen != n {
		return nil, fmt.Errorf("found %d matrix rows, want %d", seen, n)
	}
	return r, nil
}
