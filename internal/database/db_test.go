package database

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNCountsMatchedRows(t *testing.T) {
	dsn := Options{User: "golf", Pass: "pw", Host: "db", Port: "3306", Name: "golf_ops"}.DSN()

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.True(t, cfg.ClientFoundRows)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "golf_ops", cfg.DBName)
	assert.Equal(t, "UTC", cfg.Loc.String())
}

func TestStatementsCoverEveryTable(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, 7)
	joined := strings.Join(stmts, "\n")
	for _, table := range []string{"users", "refresh_tokens", "assets", "bookings", "booking_caddies", "booking_assets", "audit_log"} {
		assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	for _, s := range stmts {
		assert.NotContains(t, s, "--")
	}
}

func TestMigrateStopsAtFirstFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS refresh_tokens")).WillReturnError(assert.AnError)

	err = Migrate(context.Background(), db)
	assert.ErrorContains(t, err, "schema statement 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}
