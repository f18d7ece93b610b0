package asset

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/loxe-ai/evidence-tracer/pkg/models/store"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	mock  sqlmock.Sqlmock
	store Store
}

func setupFixture(t *testing.T) *fixture {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	s, err := NewStore(sqlx.NewDb(db, "postgres"))
	require.NoError(t, err)

	return &fixture{mock: mock, store: s}
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(nil)
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestStore_Upsert(t *testing.T) {
	ctx := context.Background()
	updated := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

	t.Run("generates ids for new assets and keeps existing ones", func(t *testing.T) {
		f := setupFixture(t)

		prep := f.mock.ExpectPrepare(regexp.QuoteMeta("ON CONFLICT (account_id, resource_id) DO UPDATE SET"))
		prep.ExpectExec().
			WithArgs(sqlmock.AnyArg(), "acct-1", "arn:aws:s3:::logs", "logs", "S3_BUCKET", "AWS",
				"us-east-1", "UNKNOWN", `{"owner_id":"o"}`, updated).
			WillReturnResult(sqlmock.NewResult(0, 1))
		prep.ExpectExec().
			WithArgs("known-id", "acct-1", "arn:aws:s3:::data", "data", "S3_BUCKET", "AWS",
				"unknown", "UNKNOWN", "{}", updated).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := f.store.Upsert(ctx, "acct-1", []store.Asset{
			{
				ResourceID: "arn:aws:s3:::logs", Name: "logs", Type: "S3_BUCKET", Provider: "AWS",
				Region: "us-east-1", Status: "UNKNOWN", Metadata: []byte(`{"owner_id":"o"}`), UpdatedAt: updated,
			},
			{
				ID: "known-id", ResourceID: "arn:aws:s3:::data", Name: "data", Type: "S3_BUCKET", Provider: "AWS",
				Region: "unknown", Status: "UNKNOWN", UpdatedAt: updated,
			},
		})
		require.NoError(t, err)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("upsert never overwrites id or status", func(t *testing.T) {
		f := setupFixture(t)

		prep := f.mock.ExpectPrepare(`DO UPDATE SET\s+name = EXCLUDED.name,\s+type = EXCLUDED.type,\s+provider = EXCLUDED.provider,\s+region = EXCLUDED.region,\s+metadata = EXCLUDED.metadata,\s+updated_at = EXCLUDED.updated_at$`)
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))

		err := f.store.Upsert(ctx, "acct-1", []store.Asset{{ResourceID: "arn:aws:s3:::logs", Name: "logs"}})
		require.NoError(t, err)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("empty input", func(t *testing.T) {
		f := setupFixture(t)
		require.NoError(t, f.store.Upsert(ctx, "acct-1", nil))
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("exec error", func(t *testing.T) {
		f := setupFixture(t)

		prep := f.mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO assets"))
		prep.ExpectExec().WillReturnError(errors.New("connection reset"))

		err := f.store.Upsert(ctx, "acct-1", []store.Asset{{ResourceID: "arn:aws:s3:::logs"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "arn:aws:s3:::logs")
	})
}

func TestStore_GetAssetMap(t *testing.T) {
	f := setupFixture(t)

	rows := sqlmock.NewRows([]string{"id", "resource_id"}).
		AddRow("id-1", "arn:aws:s3:::logs").
		AddRow("id-2", "arn:aws:s3:::data")
	f.mock.ExpectQuery(regexp.QuoteMeta("SELECT id, resource_id FROM assets WHERE account_id = $1")).
		WithArgs("acct-1").
		WillReturnRows(rows)

	m, err := f.store.GetAssetMap(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"arn:aws:s3:::logs": "id-1",
		"arn:aws:s3:::data": "id-2",
	}, m)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta("UPDATE assets SET status = $1, updated_at = $2 WHERE account_id = $3 AND resource_id = $4")

	t.Run("success", func(t *testing.T) {
		f := setupFixture(t)
		f.mock.ExpectExec(query).
			WithArgs("FAIL", now, "acct-1", "arn:aws:s3:::logs").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, f.store.UpdateStatus(ctx, "acct-1", "arn:aws:s3:::logs", "FAIL", now))
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("unknown asset", func(t *testing.T) {
		f := setupFixture(t)
		f.mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 0))

		err := f.store.UpdateStatus(ctx, "acct-1", "arn:aws:s3:::gone", "PASS", now)
		assert.ErrorIs(t, err, postgres.ErrAssetNotFound)
	})
}

func TestStore_List(t *testing.T) {
	f := setupFixture(t)
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "account_id", "resource_id", "name", "type", "provider", "region", "status", "metadata", "updated_at",
	}).AddRow("id-1", "acct-1", "arn:aws:s3:::logs", "logs", "S3_BUCKET", "AWS", "us-east-1", "PASS", []byte(`{}`), now)
	f.mock.ExpectQuery(regexp.QuoteMeta("FROM assets")).WithArgs("acct-1").WillReturnRows(rows)

	assets, err := f.store.List(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "PASS", assets[0].Status)
	assert.Equal(t, now, assets[0].UpdatedAt)
}
