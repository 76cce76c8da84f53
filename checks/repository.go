package checks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/alovak/cardcheck/checks/models"
	"github.com/alovak/cardcheck/internal/cardgen"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"
)

var (
	ErrNotFound = fmt.Errorf("not found")
	ErrConflict = fmt.Errorf("conflict")
)

// Repository stores checks in memory, or in Postgres when built with NewPGRepository.
type Repository struct {
	mu     sync.RWMutex
	checks []*models.Check
	byID   map[string]*models.Check

	db      *sql.DB
	hashKey []byte
}

func NewRepository() *Repository {
	return &Repository{
		checks: make([]*models.Check, 0),
		byID:   make(map[string]*models.Check),
	}
}

// NewPGRepository constructs a db-backed repository.
func NewPGRepository(db *sql.DB, hashKey []byte) *Repository {
	return &Repository{db: db, hashKey: hashKey}
}

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS cardcheck;
CREATE TABLE IF NOT EXISTS cardcheck.checks (
    check_id    uuid PRIMARY KEY,
    masked      text        NOT NULL,
    number_hash bytea       NOT NULL,
    valid       boolean     NOT NULL,
    reason      text        NOT NULL DEFAULT '',
    luhn        boolean     NOT NULL,
    checked_at  timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS checks_checked_at_idx ON cardcheck.checks (checked_at);
`

// EnsureSchema creates the checks table. No-op for the memory backend.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Record implements checker.Recorder.
func (r *Repository) Record(ctx context.Context, check models.Check) error {
	return r.SaveCheck(ctx, &check)
}

func (r *Repository) SaveCheck(ctx context.Context, check *models.Check) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.byID[check.ID]; ok {
			return fmt.Errorf("check %s exists: %w", check.ID, ErrConflict)
		}
		c := *check
		r.checks = append(r.checks, &c)
		r.byID[c.ID] = &c
		return nil
	}

	hash := cardgen.HashPANHMAC(check.Number, r.hashKey)
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO cardcheck.checks(check_id, masked, number_hash, valid, reason, luhn, checked_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, check.ID, check.Masked, hash, check.Valid, check.Reason, check.Luhn, check.CheckedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("check %s exists: %w", check.ID, ErrConflict)
	}
	return err
}

func (r *Repository) GetCheck(ctx context.Context, id string) (*models.Check, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		c, ok := r.byID[id]
		if !ok {
			return nil, ErrNotFound
		}
		out := *c
		out.Number = ""
		return &out, nil
	}

	row := r.db.QueryRowContext(ctx, `
        SELECT check_id, masked, valid, reason, luhn, checked_at
          FROM cardcheck.checks WHERE check_id=$1
    `, id)
	var c models.Check
	if err := row.Scan(&c.ID, &c.Masked, &c.Valid, &c.Reason, &c.Luhn, &c.CheckedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListChecks returns stored checks oldest first. Clear numbers are never returned.
func (r *Repository) ListChecks(ctx context.Context) ([]*models.Check, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		out := make([]*models.Check, 0, len(r.checks))
		for _, c := range r.checks {
			cp := *c
			cp.Number = ""
			out = append(out, &cp)
		}
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT check_id, masked, valid, reason, luhn, checked_at
          FROM cardcheck.checks ORDER BY checked_at ASC, check_id ASC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*models.Check, 0)
	for rows.Next() {
		var c models.Check
		if err := rows.Scan(&c.ID, &c.Masked, &c.Valid, &c.Reason, &c.Luhn, &c.CheckedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Ping returns DB readiness
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == "23505" {
		return true
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		return true
	}
	return false
}
