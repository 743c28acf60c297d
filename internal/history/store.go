// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package history provides an optional Postgres-backed audit log of
// completed briefing runs. It records what went out, never engine state:
// scoring always starts from scratch each run.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run summarises one completed briefing run.
type Run struct {
	ID            int64
	RunID         string // uuid assigned per invocation
	Mode          string
	Delivered     string // "mail", "queue", "dry-run" or "skipped"
	MailTotal     int
	CalendarTotal int
	Skipped       int
	Dropped       int
	Elapsed       time.Duration
	CreatedAt     time.Time
}

// Store provides insert and list operations for run records in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a run history store backed by the given Postgres pool.
// It ensures the briefing_runs table exists on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure run history schema: %w", err)
	}
	slog.Info("run history store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS briefing_runs (
			id             BIGSERIAL PRIMARY KEY,
			run_id         TEXT NOT NULL UNIQUE,
			mode           TEXT NOT NULL,
			delivered      TEXT NOT NULL,
			mail_total     INT NOT NULL DEFAULT 0,
			calendar_total INT NOT NULL DEFAULT 0,
			skipped        INT NOT NULL DEFAULT 0,
			dropped        INT NOT NULL DEFAULT 0,
			elapsed_ms     BIGINT NOT NULL DEFAULT 0,
			created_at     TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_runs_created ON briefing_runs(created_at);
	`)
	return err
}

// Record inserts one completed run.
func (s *Store) Record(ctx context.Context, r Run) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO briefing_runs
			(run_id, mode, delivered, mail_total, calendar_total, skipped, dropped, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.RunID, r.Mode, r.Delivered, r.MailTotal, r.CalendarTotal, r.Skipped, r.Dropped,
		r.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert briefing run: %w", err)
	}
	return nil
}

// ListRecent returns the most recent runs, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, run_id, mode, delivered, mail_total, calendar_total,
		       skipped, dropped, elapsed_ms, created_at
		FROM briefing_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// scanRun scans a single row into a Run.
func scanRun(row pgx.Row) (*Run, error) {
	var r Run
	var elapsedMS int64
	err := row.Scan(
		&r.ID, &r.RunID, &r.Mode, &r.Delivered, &r.MailTotal, &r.CalendarTotal,
		&r.Skipped, &r.Dropped, &elapsedMS, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return &r, nil
}
