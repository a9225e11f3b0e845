// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/microloan/internal/models"
)

// InsertOTP stores a new code and sets its ID.
func (r *Repository) InsertOTP(ctx context.Context, otp *models.OTPCode) error {
	if otp.Status == "" {
		otp.Status = models.OTPStatusIssued
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO otp_codes (identifier, code, issued_at, expires_at, consumed, attempts, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		otp.Identifier, otp.Code, otp.IssuedAt.UTC(), otp.ExpiresAt.UTC(), otp.Consumed, otp.Attempts, otp.Status)
	if err != nil {
		return err
	}
	otp.ID, err = res.LastInsertId()
	return err
}

// GetOTP retrieves a code by ID.
func (r *Repository) GetOTP(ctx context.Context, id int64) (*models.OTPCode, error) {
	var otp models.OTPCode
	if err := r.db.GetContext(ctx, &otp, `SELECT * FROM otp_codes WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &otp, nil
}

// FindLatestOTP returns the most recently issued code for an identifier,
// consumed or not.
func (r *Repository) FindLatestOTP(ctx context.Context, identifier string) (*models.OTPCode, error) {
	var otp models.OTPCode
	err := r.db.GetContext(ctx, &otp,
		`SELECT * FROM otp_codes WHERE identifier = ?
		 ORDER BY issued_at DESC, id DESC LIMIT 1`, identifier)
	if err != nil {
		return nil, wrapError(err)
	}
	return &otp, nil
}

// FindLatestUnconsumedOTP returns the most recently issued unconsumed code,
// expired or not.
func (r *Repository) FindLatestUnconsumedOTP(ctx context.Context, identifier string) (*models.OTPCode, error) {
	var otp models.OTPCode
	err := r.db.GetContext(ctx, &otp,
		`SELECT * FROM otp_codes WHERE identifier = ? AND consumed = 0
		 ORDER BY issued_at DESC, id DESC LIMIT 1`, identifier)
	if err != nil {
		return nil, wrapError(err)
	}
	return &otp, nil
}

// FindActiveOTPByCode returns the unconsumed, unexpired code matching value.
func (r *Repository) FindActiveOTPByCode(ctx context.Context, identifier, code string, now time.Time) (*models.OTPCode, error) {
	var otp models.OTPCode
	err := r.db.GetContext(ctx, &otp,
		`SELECT * FROM otp_codes
		 WHERE identifier = ? AND code = ? AND consumed = 0 AND expires_at > ?
		 ORDER BY issued_at DESC, id DESC LIMIT 1`, identifier, code, now.UTC())
	if err != nil {
		return nil, wrapError(err)
	}
	return &otp, nil
}

// ListActiveOTPs returns the unconsumed, unexpired codes of an identifier,
// newest first.
func (r *Repository) ListActiveOTPs(ctx context.Context, identifier string, now time.Time) ([]models.OTPCode, error) {
	var codes []models.OTPCode
	err := r.db.SelectContext(ctx, &codes,
		`SELECT * FROM otp_codes
		 WHERE identifier = ? AND consumed = 0 AND expires_at > ?
		 ORDER BY issued_at DESC, id DESC`, identifier, now.UTC())
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// ConsumeOTP marks a single code consumed with the given status.
func (r *Repository) ConsumeOTP(ctx context.Context, id int64, status models.OTPStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE otp_codes SET consumed = 1, status = ? WHERE id = ? AND consumed = 0`, status, id)
	return err
}

// InvalidateUnconsumedOTPs consumes every unconsumed code of an identifier
// and returns how many were affected.
func (r *Repository) InvalidateUnconsumedOTPs(ctx context.Context, identifier string, status models.OTPStatus) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otp_codes SET consumed = 1, status = ? WHERE identifier = ? AND consumed = 0`, status, identifier)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// IncrementOTPAttempts records one failed verification against a code.
func (r *Repository) IncrementOTPAttempts(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE otp_codes SET attempts = attempts + 1 WHERE id = ?`, id)
	return err
}

// DeleteExpiredOTPs removes codes that expired before the given time.
func (r *Repository) DeleteExpiredOTPs(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE expires_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountUnconsumedOTPs returns the number of unconsumed codes of an identifier.
func (r *Repository) CountUnconsumedOTPs(ctx context.Context, identifier string) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM otp_codes WHERE identifier = ? AND consumed = 0`, identifier)
	return count, err
}
