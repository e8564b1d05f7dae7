package zone_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/zone"
)

func newMockStore(t *testing.T) (*zone.SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for i := 0; i < 4; i++ {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	store, err := zone.NewSQLStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestSQLStoreGetMapsMissingRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, name").WithArgs(uint64(7)).WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), 7)
	assert.ErrorIs(t, err, contracts.ErrZoneNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreGetScansZone(t *testing.T) {
	store, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "name", "max_decibel", "current_usage", "is_quiet_zone", "premium_multiplier"}).
		AddRow(3, "library district", 50, 0, true, 200)
	mock.ExpectQuery("SELECT id, name").WithArgs(uint64(3)).WillReturnRows(rows)

	z, err := store.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "library district", z.Name)
	assert.True(t, z.IsQuietZone)
	assert.Equal(t, uint64(200), z.PremiumMultiplier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreNextIDIsFetchAndIncrement(t *testing.T) {
	store, mock := newMockStore(t)
	query := regexp.QuoteMeta(`UPDATE counters SET value = value + 1 WHERE name = 'zone_id' RETURNING value`)
	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(1))
	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(2))

	ctx := context.Background()
	first, err := store.NextID(ctx)
	require.NoError(t, err)
	second, err := store.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorePutUpserts(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO zones").
		WithArgs(uint64(1), "harbor", uint64(80), uint64(0), false, uint64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Put(context.Background(), zone.Zone{
		ID: 1, Name: "harbor", MaxDecibel: 80, PremiumMultiplier: 100,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
