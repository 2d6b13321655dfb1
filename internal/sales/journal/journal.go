// Package journal keeps an audit trail of submission attempts in Postgres.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bayala/bayala-stock/internal/platform/db"
	"github.com/bayala/bayala-stock/internal/sales/draft"
)

// Schema creates the journal tables.
const Schema = `
CREATE TABLE IF NOT EXISTS order_submissions (
	id            UUID PRIMARY KEY,
	draft_id      UUID NOT NULL,
	mode          TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	order_id      TEXT,
	detail        TEXT NOT NULL DEFAULT '',
	client_name   TEXT NOT NULL DEFAULT '',
	client_tax_id TEXT NOT NULL DEFAULT '',
	client_phone  TEXT NOT NULL DEFAULT '',
	subtotal      NUMERIC(18,2) NOT NULL,
	tax           NUMERIC(18,2) NOT NULL,
	total         NUMERIC(18,2) NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS order_submissions_order_uq
	ON order_submissions (mode, order_id) WHERE order_id IS NOT NULL;
CREATE TABLE IF NOT EXISTS order_submission_lines (
	submission_id UUID NOT NULL REFERENCES order_submissions (id) ON DELETE CASCADE,
	line_no       INT NOT NULL,
	product_id    BIGINT NOT NULL,
	quantity      INT NOT NULL,
	type          TEXT NOT NULL,
	PRIMARY KEY (submission_id, line_no)
);`

const (
	insertSubmission = `INSERT INTO order_submissions
	(id, draft_id, mode, outcome, order_id, detail, client_name, client_tax_id, client_phone, subtotal, tax, total, started_at, duration_ms)
	VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	insertLine  = `INSERT INTO order_submission_lines (submission_id, line_no, product_id, quantity, type) VALUES ($1, $2, $3, $4, $5)`
	purgeBefore = `DELETE FROM order_submissions WHERE started_at < $1`
)

// Execer is the statement surface used inside a transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Journal records draft.Attempt values. A nil *Journal records nothing.
type Journal struct {
	withTx func(ctx context.Context, fn func(Execer) error) error
	exec   Execer
	logger *slog.Logger
	newID  func() uuid.UUID
}

// New returns a journal backed by pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Journal {
	return newJournal(pool, func(ctx context.Context, fn func(Execer) error) error {
		return db.WithTx(ctx, pool, func(tx pgx.Tx) error { return fn(tx) })
	}, logger)
}

func newJournal(exec Execer, withTx func(context.Context, func(Execer) error) error, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{withTx: withTx, exec: exec, logger: logger, newID: uuid.New}
}

// EnsureSchema creates the tables when missing.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	if j == nil {
		return nil
	}
	if _, err := j.exec.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("journal: ensure schema: %w", err)
	}
	return nil
}

// Record writes the attempt and its lines in one transaction. Recording the
// same accepted order twice is ignored.
func (j *Journal) Record(ctx context.Context, a draft.Attempt) error {
	if j == nil {
		return nil
	}
	id := j.newID()
	err := j.withTx(ctx, func(q Execer) error {
		if _, err := q.Exec(ctx, insertSubmission,
			id, a.DraftID, string(a.Mode), string(a.Outcome), a.OrderID, a.Detail,
			a.Client.Name, a.Client.TaxID, a.Client.Phone,
			a.Totals.Subtotal.Round(2), a.Totals.Tax.Round(2), a.Totals.Total.Round(2),
			a.StartedAt, a.Duration.Milliseconds(),
		); err != nil {
			return err
		}
		for i, line := range a.Lines {
			if _, err := q.Exec(ctx, insertLine, id, i+1, line.ProductID, line.Quantity, string(line.Type)); err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		j.logger.Debug("submission already journaled",
			slog.String("mode", string(a.Mode)),
			slog.String("order_id", a.OrderID))
		return nil
	}
	return fmt.Errorf("journal: record: %w", err)
}

// Purge removes attempts older than retention and returns how many went.
func (j *Journal) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if j == nil {
		return 0, nil
	}
	tag, err := j.exec.Exec(ctx, purgeBefore, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("journal: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}
