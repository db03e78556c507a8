package clientdata

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCleanupJob(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	assert.NotNil(t, job)
}

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	assert.Equal(t, "cache_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	now := time.Now()
	expiredAt := now.Add(-time.Hour).Unix()
	freshAt := now.Add(time.Hour).Unix()

	insertExpiredAndFresh(t, db, "yahoo_daily", expiredAt, freshAt)
	insertExpiredAndFresh(t, db, "alphavantage_daily", expiredAt, freshAt)

	var countBefore int
	db.QueryRow("SELECT (SELECT COUNT(*) FROM yahoo_daily) + (SELECT COUNT(*) FROM alphavantage_daily)").Scan(&countBefore)
	assert.Equal(t, 4, countBefore)

	err := job.Run()
	require.NoError(t, err)

	// Only the fresh entries survive
	var countAfter int
	db.QueryRow("SELECT (SELECT COUNT(*) FROM yahoo_daily) + (SELECT COUNT(*) FROM alphavantage_daily)").Scan(&countAfter)
	assert.Equal(t, 2, countAfter)
}

func TestCleanupJobRunEmptyTables(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	err := job.Run()
	require.NoError(t, err)
}

func TestCleanupJobRunAllExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	expiredAt := time.Now().Add(-time.Hour).Unix()

	_, err := db.Exec("INSERT INTO yahoo_daily (cache_key, data, expires_at) VALUES (?, ?, ?)", "AAPL:a", []byte{0x90}, expiredAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO yahoo_daily (cache_key, data, expires_at) VALUES (?, ?, ?)", "AAPL:b", []byte{0x90}, expiredAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO alphavantage_daily (cache_key, data, expires_at) VALUES (?, ?, ?)", "MSFT:a", []byte{0x90}, expiredAt)
	require.NoError(t, err)

	err = job.Run()
	require.NoError(t, err)

	var count int
	db.QueryRow("SELECT COUNT(*) FROM yahoo_daily").Scan(&count)
	assert.Equal(t, 0, count)
	db.QueryRow("SELECT COUNT(*) FROM alphavantage_daily").Scan(&count)
	assert.Equal(t, 0, count)
}

func TestCleanupJobRunAllFresh(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	freshAt := time.Now().Add(time.Hour).Unix()

	_, err := db.Exec("INSERT INTO yahoo_daily (cache_key, data, expires_at) VALUES (?, ?, ?)", "AAPL:a", []byte{0x90}, freshAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO yahoo_daily (cache_key, data, expires_at) VALUES (?, ?, ?)", "AAPL:b", []byte{0x90}, freshAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO alphavantage_daily (cache_key, data, expires_at) VALUES (?, ?, ?)", "MSFT:a", []byte{0x90}, freshAt)
	require.NoError(t, err)

	err = job.Run()
	require.NoError(t, err)

	var count int
	db.QueryRow("SELECT COUNT(*) FROM yahoo_daily").Scan(&count)
	assert.Equal(t, 2, count)
	db.QueryRow("SELECT COUNT(*) FROM alphavantage_daily").Scan(&count)
	assert.Equal(t, 1, count)
}

// Helper function to insert one expired and one fresh entry per table
func insertExpiredAndFresh(t *testing.T, db *sql.DB, table string, expiredAt, freshAt int64) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO "+table+" (cache_key, data, expires_at) VALUES (?, ?, ?)",
		"EXPIRED:"+table, []byte{0x90}, expiredAt,
	)
	require.NoError(t, err)

	_, err = db.Exec(
		"INSERT INTO "+table+" (cache_key, data, expires_at) VALUES (?, ?, ?)",
		"FRESH:"+table, []byte{0x90}, freshAt,
	)
	require.NoError(t, err)
}
