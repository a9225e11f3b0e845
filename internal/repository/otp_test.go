// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/microloan/internal/models"
	"codeberg.org/oliverandrich/microloan/internal/repository"
	"codeberg.org/oliverandrich/microloan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var otpBase = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func insertOTP(t *testing.T, repo *repository.Repository, identifier, code string, issued time.Time) *models.OTPCode {
	t.Helper()
	otp := &models.OTPCode{
		Identifier: identifier,
		Code:       code,
		IssuedAt:   issued,
		ExpiresAt:  issued.Add(time.Minute),
	}
	require.NoError(t, repo.InsertOTP(context.Background(), otp))
	return otp
}

func TestInsertOTP(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	otp := insertOTP(t, repo, "+84912345678", "1234", otpBase)

	assert.NotZero(t, otp.ID)
	got, err := repo.GetOTP(ctx, otp.ID)
	require.NoError(t, err)
	assert.Equal(t, "+84912345678", got.Identifier)
	assert.Equal(t, "1234", got.Code)
	assert.True(t, otpBase.Equal(got.IssuedAt))
	assert.True(t, otpBase.Add(time.Minute).Equal(got.ExpiresAt))
	assert.False(t, got.Consumed)
	assert.Equal(t, 0, got.Attempts)
	assert.Equal(t, models.OTPStatusIssued, got.Status)
}

func TestGetOTP_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetOTP(context.Background(), 42)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFindLatestUnconsumedOTP(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	insertOTP(t, repo, "a@example.com", "1111", otpBase)
	second := insertOTP(t, repo, "a@example.com", "2222", otpBase.Add(2*time.Minute))
	insertOTP(t, repo, "b@example.com", "3333", otpBase.Add(5*time.Minute))

	got, err := repo.FindLatestUnconsumedOTP(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	require.NoError(t, repo.ConsumeOTP(ctx, second.ID, models.OTPStatusVerified))

	got, err = repo.FindLatestUnconsumedOTP(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "1111", got.Code)

	latest, err := repo.FindLatestOTP(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, models.OTPStatusVerified, latest.Status)
}

func TestFindLatestOTP_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.FindLatestOTP(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.FindLatestUnconsumedOTP(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFindActiveOTPByCode(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	otp := insertOTP(t, repo, "+84912345678", "4321", otpBase)

	got, err := repo.FindActiveOTPByCode(ctx, "+84912345678", "4321", otpBase.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, otp.ID, got.ID)

	_, err = repo.FindActiveOTPByCode(ctx, "+84912345678", "0000", otpBase)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.FindActiveOTPByCode(ctx, "+84912345678", "4321", otpBase.Add(time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotFound, "expiry boundary is exclusive")

	require.NoError(t, repo.ConsumeOTP(ctx, otp.ID, models.OTPStatusVerified))
	_, err = repo.FindActiveOTPByCode(ctx, "+84912345678", "4321", otpBase)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListActiveOTPs(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	old := insertOTP(t, repo, "+84912345678", "1111", otpBase)
	recent := insertOTP(t, repo, "+84912345678", "2222", otpBase.Add(50*time.Second))

	codes, err := repo.ListActiveOTPs(ctx, "+84912345678", otpBase.Add(55*time.Second))
	require.NoError(t, err)
	require.Len(t, codes, 2)
	assert.Equal(t, recent.ID, codes[0].ID)
	assert.Equal(t, old.ID, codes[1].ID)

	codes, err = repo.ListActiveOTPs(ctx, "+84912345678", otpBase.Add(70*time.Second))
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, recent.ID, codes[0].ID)
}

func TestConsumeOTP_OnlyOnce(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	otp := insertOTP(t, repo, "+84912345678", "1111", otpBase)
	require.NoError(t, repo.ConsumeOTP(ctx, otp.ID, models.OTPStatusVerified))
	require.NoError(t, repo.ConsumeOTP(ctx, otp.ID, models.OTPStatusInvalidated))

	got, err := repo.GetOTP(ctx, otp.ID)
	require.NoError(t, err)
	assert.True(t, got.Consumed)
	assert.Equal(t, models.OTPStatusVerified, got.Status)
}

func TestInvalidateUnconsumedOTPs(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	insertOTP(t, repo, "+84912345678", "1111", otpBase)
	insertOTP(t, repo, "+84912345678", "2222", otpBase.Add(time.Minute))
	other := insertOTP(t, repo, "user@example.com", "3333", otpBase)

	n, err := repo.InvalidateUnconsumedOTPs(ctx, "+84912345678", models.OTPStatusInvalidated)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := repo.CountUnconsumedOTPs(ctx, "+84912345678")
	require.NoError(t, err)
	assert.Zero(t, count)

	got, err := repo.GetOTP(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, got.Consumed)
}

func TestIncrementOTPAttempts(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	otp := insertOTP(t, repo, "+84912345678", "1111", otpBase)
	require.NoError(t, repo.IncrementOTPAttempts(ctx, otp.ID))
	require.NoError(t, repo.IncrementOTPAttempts(ctx, otp.ID))

	got, err := repo.GetOTP(ctx, otp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
}

func TestDeleteExpiredOTPs(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	insertOTP(t, repo, "+84912345678", "1111", otpBase)
	insertOTP(t, repo, "+84912345678", "2222", otpBase.Add(10*time.Minute))

	n, err := repo.DeleteExpiredOTPs(ctx, otpBase.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	latest, err := repo.FindLatestOTP(ctx, "+84912345678")
	require.NoError(t, err)
	assert.Equal(t, "2222", latest.Code)
}
