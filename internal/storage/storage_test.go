package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	prev := DB
	DB = db
	t.Cleanup(func() {
		DB = prev
		db.Close()
	})

	return mock
}

func TestRedeemOrderSuccess(t *testing.T) {
	mock := withMockDB(t)
	orderID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs("REDEEMED", orderID, "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE monthly_redemptions SET twenty = twenty").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := RedeemOrder(context.Background(), orderID, "twenty")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemOrderAlreadyRedeemed(t *testing.T) {
	mock := withMockDB(t)
	orderID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs("REDEEMED", orderID, "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT status FROM orders").
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("REDEEMED"))

	err := RedeemOrder(context.Background(), orderID, "five")

	// The counter must never move for an already-redeemed order.
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemOrderNotFound(t *testing.T) {
	mock := withMockDB(t)
	orderID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs("REDEEMED", orderID, "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT status FROM orders").
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	err := RedeemOrder(context.Background(), orderID, "five")

	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemOrderUnknownBucket(t *testing.T) {
	withMockDB(t)

	err := RedeemOrder(context.Background(), uuid.New(), "fifty")

	assert.ErrorIs(t, err, ErrUnknownBucket)
}

func TestCreateOrderInsufficientPoints(t *testing.T) {
	mock := withMockDB(t)
	orderID := uuid.New()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET points = points -").
		WithArgs(50, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := CreateOrder(context.Background(), orderID, userID, "$5 School Store Card", 50)

	// Refused before any order row is inserted.
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderSuccess(t *testing.T) {
	mock := withMockDB(t)
	orderID := uuid.New()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET points = points -").
		WithArgs(50, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(orderID, userID, "$5 School Store Card", 50, "PENDING").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := CreateOrder(context.Background(), orderID, userID, "$5 School Store Card", 50)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimMission(t *testing.T) {
	mock := withMockDB(t)
	userID := uuid.New()

	mock.ExpectExec("UPDATE users").
		WithArgs(userID, "scan-10", 50).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := ClaimMission(context.Background(), userID, "scan-10", 50)

	require.NoError(t, err)
	assert.True(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimMissionAlreadyClaimed(t *testing.T) {
	mock := withMockDB(t)
	userID := uuid.New()

	mock.ExpectExec("UPDATE users").
		WithArgs(userID, "scan-10", 50).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := ClaimMission(context.Background(), userID, "scan-10", 50)

	// No second credit: the guarded update matched no row.
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyScanAward(t *testing.T) {
	mock := withMockDB(t)
	userID := uuid.New()
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	photo := []byte("jpeg-bytes")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users").
		WithArgs(20, now, photo, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO scan_days").
		WithArgs(userID, "2025-03-03").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := ApplyScanAward(context.Background(), userID, 20, photo, now, now)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLastTrashPhoto(t *testing.T) {
	mock := withMockDB(t)
	userID := uuid.New()

	mock.ExpectQuery("SELECT last_trash_photo FROM users").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"last_trash_photo"}).AddRow([]byte("jpeg-bytes")))

	photo, err := GetLastTrashPhoto(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), photo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLastTrashPhotoUnknownUser(t *testing.T) {
	mock := withMockDB(t)
	userID := uuid.New()

	mock.ExpectQuery("SELECT last_trash_photo FROM users").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"last_trash_photo"}))

	_, err := GetLastTrashPhoto(context.Background(), userID)

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestResetMonthlyRedemptions(t *testing.T) {
	mock := withMockDB(t)

	mock.ExpectExec("UPDATE monthly_redemptions SET one = 0").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ResetMonthlyRedemptions(context.Background())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
