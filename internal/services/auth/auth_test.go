// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/microloan/internal/repository"
	"codeberg.org/oliverandrich/microloan/internal/services/auth"
	"codeberg.org/oliverandrich/microloan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const strongPassword = "violet-harbor-lantern-42"

func newService(t *testing.T, hasher auth.Hasher) (*auth.Service, *repository.Repository) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	return auth.NewService(repo, hasher), repo
}

func TestCreateAdmin(t *testing.T) {
	svc, repo := newService(t, auth.NewBcryptHasher(bcrypt.MinCost))
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, "ops@example.com", strongPassword)

	require.NoError(t, err)
	assert.NotZero(t, admin.ID)
	stored, err := repo.GetAdminByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, strongPassword, stored.PasswordHash)
	assert.True(t, auth.NewBcryptHasher(bcrypt.MinCost).Owns(stored.PasswordHash))
}

func TestCreateAdmin_Validation(t *testing.T) {
	svc, _ := newService(t, auth.NewBcryptHasher(bcrypt.MinCost))
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, "not-an-email", strongPassword)
	assert.ErrorIs(t, err, auth.ErrInvalidEmail)

	_, err = svc.CreateAdmin(ctx, "ops@example.com", "short")
	var pwErr *auth.PasswordValidationError
	require.ErrorAs(t, err, &pwErr)
	assert.NotEmpty(t, pwErr.Messages())
}

func TestCreateAdmin_Duplicate(t *testing.T) {
	svc, _ := newService(t, auth.NewBcryptHasher(bcrypt.MinCost))
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, "ops@example.com", strongPassword)
	require.NoError(t, err)

	_, err = svc.CreateAdmin(ctx, "OPS@example.com", strongPassword)
	assert.ErrorIs(t, err, auth.ErrAdminExists)
}

func TestLogin(t *testing.T) {
	for _, hasher := range []auth.Hasher{auth.NewBcryptHasher(bcrypt.MinCost), auth.NewPBKDF2Hasher(1000)} {
		t.Run(hasher.Scheme(), func(t *testing.T) {
			svc, _ := newService(t, hasher)
			ctx := context.Background()
			created, err := svc.CreateAdmin(ctx, "ops@example.com", strongPassword)
			require.NoError(t, err)

			admin, err := svc.Login(ctx, "ops@example.com", strongPassword)

			require.NoError(t, err)
			assert.Equal(t, created.ID, admin.ID)
		})
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newService(t, auth.NewBcryptHasher(bcrypt.MinCost))
	ctx := context.Background()
	_, err := svc.CreateAdmin(ctx, "ops@example.com", strongPassword)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ops@example.com", "wrong-password-entirely")

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogin_UnknownAdmin(t *testing.T) {
	svc, _ := newService(t, auth.NewBcryptHasher(bcrypt.MinCost))

	_, err := svc.Login(context.Background(), "nobody@example.com", strongPassword)

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogin_UpgradesHashScheme(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	legacy, err := auth.NewBcryptHasher(bcrypt.MinCost).Hash(strongPassword)
	require.NoError(t, err)
	created, err := repo.CreateAdmin(ctx, "ops@example.com", legacy)
	require.NoError(t, err)

	pbkdf2 := auth.NewPBKDF2Hasher(1000)
	svc := auth.NewService(repo, pbkdf2)

	_, err = svc.Login(ctx, "ops@example.com", strongPassword)
	require.NoError(t, err)

	stored, err := repo.GetAdminByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, pbkdf2.Owns(stored.PasswordHash))

	_, err = svc.Login(ctx, "ops@example.com", strongPassword)
	assert.NoError(t, err)
}

func TestLogin_UnknownHashFormat(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	_, err := repo.CreateAdmin(ctx, "ops@example.com", "plaintext")
	require.NoError(t, err)
	svc := auth.NewService(repo, auth.NewBcryptHasher(bcrypt.MinCost))

	_, err = svc.Login(ctx, "ops@example.com", "plaintext")

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestEnsureAdmin(t *testing.T) {
	svc, repo := newService(t, auth.NewBcryptHasher(bcrypt.MinCost))
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "ops@example.com", strongPassword))
	require.NoError(t, svc.EnsureAdmin(ctx, "other@example.com", strongPassword))

	count, err := repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEnsureAdmin_NoCredentials(t *testing.T) {
	svc, repo := newService(t, auth.NewBcryptHasher(bcrypt.MinCost))
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))

	count, err := repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEnsureAdmin_WeakPassword(t *testing.T) {
	svc, _ := newService(t, auth.NewBcryptHasher(bcrypt.MinCost))

	err := svc.EnsureAdmin(context.Background(), "ops@example.com", "123")

	assert.Error(t, err)
}
