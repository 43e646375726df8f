// internal/adapters/out/db/tokenAction_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	tadom "github.com/PraiseTechzw/solana-token-manager/internal/domain/tokenAction"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/workflow"
)

const DefaultTokenActionTable = "token_actions"

var _ tadom.RepositoryPort = (*TokenActionRepositoryPG)(nil)

type TokenActionRepositoryPG struct {
	DB    *sql.DB
	name  string
	table string // quoted identifier
}

// NewTokenActionRepositoryPG uses table (DefaultTokenActionTable when empty).
func NewTokenActionRepositoryPG(db *sql.DB, table string) *TokenActionRepositoryPG {
	table = strings.TrimSpace(table)
	if table == "" {
		table = DefaultTokenActionTable
	}
	return &TokenActionRepositoryPG{DB: db, name: table, table: pq.QuoteIdentifier(table)}
}

// EnsureSchema creates the journal table and its owner index if missing.
func (r *TokenActionRepositoryPG) EnsureSchema(ctx context.Context) error {
	if r.DB == nil {
		return errors.New("db is nil")
	}
	table := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id          TEXT PRIMARY KEY,
  action      TEXT NOT NULL,
  owner       TEXT NOT NULL DEFAULT '',
  mint        TEXT NOT NULL DEFAULT '',
  outcome     TEXT NOT NULL,
  reference   TEXT NOT NULL DEFAULT '',
  signature   TEXT NOT NULL DEFAULT '',
  warning     TEXT NOT NULL DEFAULT '',
  reason      TEXT NOT NULL DEFAULT '',
  message     TEXT NOT NULL DEFAULT '',
  started_at  TIMESTAMPTZ,
  finished_at TIMESTAMPTZ NOT NULL
)`, r.table)
	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (owner, finished_at DESC)`,
		pq.QuoteIdentifier(r.name+"_owner_idx"), r.table)

	for _, q := range []string{table, index} {
		if _, err := r.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("tokenAction pg: ensure schema: %w", err)
		}
	}
	return nil
}

func (r *TokenActionRepositoryPG) Save(ctx context.Context, rec tadom.Record) error {
	if r.DB == nil {
		return errors.New("db is nil")
	}
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return tadom.ErrInvalidID
	}

	q := fmt.Sprintf(`
INSERT INTO %s (id, action, owner, mint, outcome, reference, signature, warning, reason, message, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, r.table)

	_, err := r.DB.ExecContext(ctx, q,
		id,
		string(rec.Action),
		strings.TrimSpace(rec.Owner),
		strings.TrimSpace(rec.Mint),
		string(rec.Outcome),
		rec.Reference,
		rec.Signature,
		rec.Warning,
		string(rec.Reason),
		rec.Message,
		nullTime(rec.StartedAt),
		rec.FinishedAt.UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return tadom.ErrConflict
		}
		return err
	}
	return nil
}

func (r *TokenActionRepositoryPG) GetByID(ctx context.Context, id string) (tadom.Record, error) {
	if r.DB == nil {
		return tadom.Record{}, errors.New("db is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return tadom.Record{}, tadom.ErrNotFound
	}
	q := fmt.Sprintf(`
SELECT id, action, owner, mint, outcome, reference, signature, warning, reason, message, started_at, finished_at
FROM %s
WHERE id = $1`, r.table)

	rec, err := scanTokenAction(r.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tadom.Record{}, tadom.ErrNotFound
		}
		return tadom.Record{}, err
	}
	return rec, nil
}

func (r *TokenActionRepositoryPG) ListByOwner(ctx context.Context, owner string, limit int) ([]tadom.Record, error) {
	if r.DB == nil {
		return nil, errors.New("db is nil")
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return []tadom.Record{}, nil
	}
	q := fmt.Sprintf(`
SELECT id, action, owner, mint, outcome, reference, signature, warning, reason, message, started_at, finished_at
FROM %s
WHERE owner = $1
ORDER BY finished_at DESC, id DESC
LIMIT $2`, r.table)

	rows, err := r.DB.QueryContext(ctx, q, owner, tadom.NormalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]tadom.Record, 0)
	for rows.Next() {
		rec, err := scanTokenAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTokenAction(s rowScanner) (tadom.Record, error) {
	var (
		rec                     tadom.Record
		action, outcome, reason string
		started                 sql.NullTime
		finished                time.Time
	)
	if err := s.Scan(
		&rec.ID, &action, &rec.Owner, &rec.Mint, &outcome,
		&rec.Reference, &rec.Signature, &rec.Warning, &reason, &rec.Message,
		&started, &finished,
	); err != nil {
		return tadom.Record{}, err
	}
	rec.Action = workflow.Action(action)
	rec.Outcome = workflow.Outcome(outcome)
	rec.Reason = workflow.ErrorKind(reason)
	if started.Valid {
		rec.StartedAt = started.Time.UTC()
	}
	rec.FinishedAt = finished.UTC()
	return rec, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
