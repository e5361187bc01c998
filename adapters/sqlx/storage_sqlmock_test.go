package sqlx_test

import (
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "achievekit/adapters/sqlx"
)

func newMockStore(t *testing.T, driver storage.Driver) (*storage.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewWithDB(libsqlx.NewDb(db, string(driver)), driver), mock
}

func TestSQLMock_Get(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)

	mock.ExpectQuery(`SELECT store_value FROM achievement_kv WHERE store_key = \$1`).
		WithArgs("unlocked").
		WillReturnRows(sqlmock.NewRows([]string{"store_value"}).AddRow(`["basic"]`))

	v, ok := store.Get("unlocked")
	require.True(t, ok)
	assert.Equal(t, `["basic"]`, v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_GetMissing(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)

	mock.ExpectQuery(`SELECT store_value FROM achievement_kv`).
		WithArgs("unlocked:hash").
		WillReturnError(sql.ErrNoRows)

	_, ok := store.Get("unlocked:hash")
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_GetErrorReadsAsAbsent(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)

	mock.ExpectQuery(`SELECT store_value FROM achievement_kv`).
		WithArgs("progress").
		WillReturnError(errors.New("connection reset"))

	_, ok := store.Get("progress")
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SetPostgresUpsert(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)

	mock.ExpectExec(`INSERT INTO achievement_kv \(store_key, store_value\) VALUES \(\$1, \$2\) ON CONFLICT \(store_key\) DO UPDATE`).
		WithArgs("progress", `{"a":1}`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store.Set("progress", `{"a":1}`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SetMySQLUpsert(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverMySQL)

	mock.ExpectExec(`INSERT INTO achievement_kv \(store_key, store_value\) VALUES \(\?, \?\) ON DUPLICATE KEY UPDATE`).
		WithArgs("items", `{}`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store.Set("items", `{}`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SetErrorIsSwallowed(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)

	mock.ExpectExec(`INSERT INTO achievement_kv`).
		WithArgs("items", `{}`).
		WillReturnError(errors.New("disk full"))

	assert.NotPanics(t, func() { store.Set("items", `{}`) })
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Remove(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)

	mock.ExpectExec(`DELETE FROM achievement_kv WHERE store_key = \$1`).
		WithArgs("unlocked").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store.Remove("unlocked")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Migrate(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS achievement_kv`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(t.Context()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigValidate(t *testing.T) {
	cfg := storage.DefaultConfig(storage.DriverPostgres)
	require.Error(t, cfg.Validate(), "dsn required")

	cfg.DSN = "postgres://localhost/achievements"
	require.NoError(t, cfg.Validate())

	cfg.Table = "kv; DROP TABLE users"
	require.Error(t, cfg.Validate())

	cfg = storage.DefaultConfig("oracle")
	cfg.DSN = "x"
	require.Error(t, cfg.Validate())
}
