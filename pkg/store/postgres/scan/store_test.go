package scan

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/loxe-ai/evidence-tracer/pkg/models/store"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scanColumns = []string{"id", "account_id", "status", "score", "findings", "error", "created_at", "updated_at"}

func setupFixture(t *testing.T) (Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(sqlx.NewDb(db, "postgres"))
	require.NoError(t, err)
	return s, mock
}

func TestStore_Create(t *testing.T) {
	s, mock := setupFixture(t)
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO scans (id, account_id, status, score, findings)")).
		WithArgs("scan-1", "acct-1", "RUNNING").
		WillReturnRows(sqlmock.NewRows(scanColumns).
			AddRow("scan-1", "acct-1", "RUNNING", 0, []byte("[]"), nil, now, now))

	res, err := s.Create(context.Background(), "scan-1", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", res.Status)
	assert.Equal(t, "[]", string(res.Findings))
	assert.False(t, res.Error.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("FROM scans")

	t.Run("found", func(t *testing.T) {
		s, mock := setupFixture(t)
		now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
		mock.ExpectQuery(query).WithArgs("scan-1").
			WillReturnRows(sqlmock.NewRows(scanColumns).
				AddRow("scan-1", "acct-1", "FAILED", 0, []byte("[]"), "Invalid External ID", now, now))

		res, err := s.Get(ctx, "scan-1")
		require.NoError(t, err)
		assert.Equal(t, sql.NullString{String: "Invalid External ID", Valid: true}, res.Error)
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := setupFixture(t)
		mock.ExpectQuery(query).WithArgs("nope").WillReturnError(sql.ErrNoRows)

		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, postgres.ErrScanNotFound)
	})
}

func TestStore_Finalize(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("SET status = $1, score = $2, findings = $3, error = $4, updated_at = now()")

	t.Run("completed", func(t *testing.T) {
		s, mock := setupFixture(t)
		mock.ExpectExec(query).
			WithArgs("COMPLETED", 33, `[{"control_id":"CC6.1"}]`, sql.NullString{}, "scan-1", "RUNNING").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.Finalize(ctx, store.ScanUpdate{
			ID: "scan-1", Status: "COMPLETED", Score: 33, Findings: []byte(`[{"control_id":"CC6.1"}]`),
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed with reason and no findings", func(t *testing.T) {
		s, mock := setupFixture(t)
		reason := "Backend Misconfigured"
		mock.ExpectExec(query).
			WithArgs("FAILED", 0, "[]", sql.NullString{String: reason, Valid: true}, "scan-1", "RUNNING").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.Finalize(ctx, store.ScanUpdate{ID: "scan-1", Status: "FAILED", Error: &reason})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("terminal scan is immutable", func(t *testing.T) {
		s, mock := setupFixture(t)
		mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.Finalize(ctx, store.ScanUpdate{ID: "scan-1", Status: "COMPLETED", Score: 100})
		assert.ErrorIs(t, err, postgres.ErrScanNotRunning)
	})
}

func TestStore_Create_Duplicate(t *testing.T) {
	s, mock := setupFixture(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO scans")).
		WithArgs("scan-1", "acct-1", "RUNNING").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := s.Create(context.Background(), "scan-1", "acct-1")
	assert.ErrorIs(t, err, postgres.ErrScanExists)
}
