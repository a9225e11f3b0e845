// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"codeberg.org/oliverandrich/microloan/internal/models"
	"codeberg.org/oliverandrich/microloan/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAdminExists        = errors.New("admin already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email format")
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

type Service struct {
	repo              *repository.Repository
	hasher            Hasher
	known             []Hasher
	passwordValidator *PasswordValidator
}

// NewService creates the admin auth service. New passwords are hashed with
// hasher; stored hashes of any supported scheme are accepted on login.
func NewService(repo *repository.Repository, hasher Hasher) *Service {
	known := []Hasher{hasher}
	for _, h := range []Hasher{NewBcryptHasher(bcrypt.DefaultCost), NewPBKDF2Hasher(DefaultPBKDF2Iterations)} {
		if h.Scheme() != hasher.Scheme() {
			known = append(known, h)
		}
	}
	return &Service{
		repo:              repo,
		hasher:            hasher,
		known:             known,
		passwordValidator: DefaultPasswordValidator(),
	}
}

// PasswordValidator returns the password validator for use in commands
func (s *Service) PasswordValidator() *PasswordValidator {
	return s.passwordValidator
}

// CreateAdmin creates a new admin account
func (s *Service) CreateAdmin(ctx context.Context, email, password string) (*models.Admin, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}

	validation := s.passwordValidator.Validate(password, email)
	if !validation.Valid {
		return nil, &PasswordValidationError{Errors: validation.Errors}
	}

	_, err := s.repo.GetAdminByEmail(ctx, email)
	if err == nil {
		return nil, ErrAdminExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing admin: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	admin, err := s.repo.CreateAdmin(ctx, email, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	slog.Info("admin_created", "admin_id", admin.ID, "email", admin.Email, "scheme", s.hasher.Scheme())
	return admin, nil
}

// Login authenticates an admin and returns it if successful. Hashes of a
// scheme other than the configured one are upgraded on success.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Admin, error) {
	admin, err := s.repo.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "email", email, "reason", "admin_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	ok, err := verifyAny(admin.PasswordHash, password, s.known...)
	if err != nil {
		slog.Error("login_failed", "email", email, "reason", "bad_hash", "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		slog.Warn("login_failed", "email", email, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Owns(admin.PasswordHash) {
		s.rehash(ctx, admin, password)
	}

	slog.Info("login_success", "admin_id", admin.ID, "email", admin.Email)
	return admin, nil
}

func (s *Service) rehash(ctx context.Context, admin *models.Admin, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		slog.Warn("password_rehash_failed", "admin_id", admin.ID, "error", err)
		return
	}
	if err := s.repo.UpdateAdminPassword(ctx, admin.ID, hash); err != nil {
		slog.Warn("password_rehash_failed", "admin_id", admin.ID, "error", err)
		return
	}
	admin.PasswordHash = hash
	slog.Info("password_rehashed", "admin_id", admin.ID, "scheme", s.hasher.Scheme())
}

// EnsureAdmin ensures at least one admin exists, creating one from the
// given credentials if needed. Empty credentials are skipped.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	count, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	if email == "" || password == "" {
		slog.Warn("no admin account exists; set auth-admin-email and auth-admin-password or run create-admin")
		return nil
	}

	if _, err := s.CreateAdmin(ctx, email, password); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}
