package journal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bayala/bayala-stock/internal/sales/draft"
	"github.com/bayala/bayala-stock/internal/sales/lineitems"
	"github.com/bayala/bayala-stock/internal/sales/orders"
	"github.com/bayala/bayala-stock/internal/sales/pricing"
)

type statement struct {
	sql  string
	args []any
}

type stubExec struct {
	statements []statement
	failOn     string
	err        error
	tag        pgconn.CommandTag
}

func (s *stubExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.statements = append(s.statements, statement{sql: sql, args: args})
	if s.failOn != "" && strings.Contains(sql, s.failOn) {
		return pgconn.CommandTag{}, s.err
	}
	return s.tag, nil
}

func newTestJournal(exec *stubExec) (*Journal, *int) {
	commits := 0
	j := newJournal(exec, func(ctx context.Context, fn func(Execer) error) error {
		if err := fn(exec); err != nil {
			return err
		}
		commits++
		return nil
	}, nil)
	return j, &commits
}

func sampleAttempt() draft.Attempt {
	return draft.Attempt{
		DraftID: uuid.New(),
		Mode:    orders.KindTransaction,
		Outcome: draft.OutcomeSubmitted,
		OrderID: "42",
		Client:  orders.ClientInfo{Name: "Ana"},
		Lines: []orders.OrderLine{
			{ProductID: 1, Quantity: 2, Type: lineitems.TypeSale},
			{ProductID: 2, Quantity: 1, Type: lineitems.TypeRental},
		},
		Totals:    pricing.FromSubtotal(decimal.NewFromInt(260)),
		StartedAt: time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
	}
}

func TestRecordWritesSubmissionAndLines(t *testing.T) {
	exec := &stubExec{}
	j, commits := newTestJournal(exec)
	fixed := uuid.New()
	j.newID = func() uuid.UUID { return fixed }

	require.NoError(t, j.Record(context.Background(), sampleAttempt()))
	assert.Equal(t, 1, *commits)
	require.Len(t, exec.statements, 3)

	head := exec.statements[0]
	assert.Equal(t, insertSubmission, head.sql)
	assert.Equal(t, fixed, head.args[0])
	assert.Equal(t, "transaction", head.args[2])
	assert.Equal(t, "submitted", head.args[3])
	assert.Equal(t, "42", head.args[4])
	assert.True(t, head.args[11].(decimal.Decimal).Equal(decimal.RequireFromString("301.6")))
	assert.Equal(t, int64(1500), head.args[13])

	line := exec.statements[2]
	assert.Equal(t, insertLine, line.sql)
	assert.Equal(t, []any{fixed, 2, int64(2), 1, "rental"}, line.args)
}

func TestRecordIgnoresDuplicateOrder(t *testing.T) {
	exec := &stubExec{failOn: "order_submissions", err: &pgconn.PgError{Code: "23505"}}
	j, commits := newTestJournal(exec)

	assert.NoError(t, j.Record(context.Background(), sampleAttempt()))
	assert.Zero(t, *commits)
}

func TestRecordWrapsOtherErrors(t *testing.T) {
	exec := &stubExec{failOn: "order_submission_lines", err: errors.New("disk full")}
	j, commits := newTestJournal(exec)

	err := j.Record(context.Background(), sampleAttempt())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1: disk full")
	assert.Zero(t, *commits)
}

func TestNilJournalIsNoop(t *testing.T) {
	var j *Journal
	assert.NoError(t, j.Record(context.Background(), sampleAttempt()))
	assert.NoError(t, j.EnsureSchema(context.Background()))
	n, err := j.Purge(context.Background(), time.Hour)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestPurgeReportsRowsAffected(t *testing.T) {
	exec := &stubExec{tag: pgconn.NewCommandTag("DELETE 3")}
	j, _ := newTestJournal(exec)

	n, err := j.Purge(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.Len(t, exec.statements, 1)
	assert.Equal(t, purgeBefore, exec.statements[0].sql)
}

func TestEnsureSchema(t *testing.T) {
	exec := &stubExec{}
	j, _ := newTestJournal(exec)

	require.NoError(t, j.EnsureSchema(context.Background()))
	assert.Contains(t, exec.statements[0].sql, "CREATE TABLE IF NOT EXISTS order_submissions")
}
