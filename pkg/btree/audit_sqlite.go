// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/cxbxmxcx/agenticbt/pkg/errors"
)

// SQLiteAuditStore persists node evaluation events in SQLite.
type SQLiteAuditStore struct {
	db *sql.DB
}

// OpenSQLiteAuditStore opens (or creates) the audit database at path and
// ensures the schema.
func OpenSQLiteAuditStore(path string) (*SQLiteAuditStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.New(errors.CodeConfig, "failed to open audit database", err).
			WithContext("path", path)
	}
	return NewSQLiteAuditStore(db)
}

// NewSQLiteAuditStore wraps an existing database handle and ensures schema.
func NewSQLiteAuditStore(db *sql.DB) (*SQLiteAuditStore, error) {
	if db == nil {
		return nil, errors.New(errors.CodeConfig, "audit db is nil", nil)
	}
	if err := ensureAuditSchema(db); err != nil {
		return nil, errors.New(errors.CodeConfig, "failed to ensure audit schema", err)
	}
	return &SQLiteAuditStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteAuditStore) Close() error {
	return s.db.Close()
}

// Record stores a single audit event.
func (s *SQLiteAuditStore) Record(ctx context.Context, event AuditEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO node_evaluations (
			tree_id, run_id, node, kind, status, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		event.TreeID,
		event.RunID,
		event.Node,
		event.Kind,
		event.Status,
		normalizeAuditTime(event.StartedAt),
		normalizeAuditTime(event.FinishedAt),
	)
	return err
}

// List returns audit events matching the filter in evaluation order.
func (s *SQLiteAuditStore) List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT tree_id, run_id, node, kind, status, started_at, finished_at
		FROM node_evaluations
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.TreeID != "" {
		addFilter("tree_id = ?", filter.TreeID)
	}
	if filter.RunID != "" {
		addFilter("run_id = ?", filter.RunID)
	}
	if filter.Node != "" {
		addFilter("node = ?", filter.Node)
	}
	if filter.Status != "" {
		addFilter("status = ?", filter.Status)
	}
	query += where + " ORDER BY started_at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var (
			event    AuditEvent
			started  sql.NullTime
			finished sql.NullTime
		)
		if err := rows.Scan(
			&event.TreeID,
			&event.RunID,
			&event.Node,
			&event.Kind,
			&event.Status,
			&started,
			&finished,
		); err != nil {
			return nil, err
		}
		if started.Valid {
			event.StartedAt = started.Time
		}
		if finished.Valid {
			event.FinishedAt = finished.Time
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func ensureAuditSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS node_evaluations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tree_id TEXT NOT NULL,
			run_id TEXT,
			node TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_node_evaluations_tree ON node_evaluations(tree_id);
		CREATE INDEX IF NOT EXISTS idx_node_evaluations_run ON node_evaluations(run_id);
		CREATE INDEX IF NOT EXISTS idx_node_evaluations_status ON node_evaluations(status);
	`)
	return err
}
