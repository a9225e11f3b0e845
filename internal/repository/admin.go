// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"strings"
	"time"

	"codeberg.org/oliverandrich/microloan/internal/models"
)

// CreateAdmin creates a new admin account.
func (r *Repository) CreateAdmin(ctx context.Context, email, passwordHash string) (*models.Admin, error) {
	now := time.Now().UTC()
	admin := &models.Admin{
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		admin.Email, admin.PasswordHash, admin.CreatedAt, admin.UpdatedAt)
	if err != nil {
		return nil, err
	}
	admin.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return admin, nil
}

// GetAdminByID retrieves an admin by ID.
func (r *Repository) GetAdminByID(ctx context.Context, id int64) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, `SELECT * FROM admins WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &admin, nil
}

// GetAdminByEmail retrieves an admin by email, case-insensitively.
func (r *Repository) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, `SELECT * FROM admins WHERE email = ?`, normalizeEmail(email)); err != nil {
		return nil, wrapError(err)
	}
	return &admin, nil
}

// UpdateAdminPassword replaces the stored password hash.
func (r *Repository) UpdateAdminPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE admins SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountAdmins returns the number of admin accounts.
func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM admins`)
	return count, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
