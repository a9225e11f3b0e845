// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"strings"
	"time"

	"codeberg.org/oliverandrich/microloan/internal/models"
)

// CreateApplication stores a new loan application. CreatedAt and UpdatedAt
// default to now when unset.
func (r *Repository) CreateApplication(ctx context.Context, app *models.LoanApplication) error {
	if app.Status == "" {
		app.Status = models.ApplicationPending
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	if app.UpdatedAt.IsZero() {
		app.UpdatedAt = app.CreatedAt
	}

	res, err := r.db.NamedExecContext(ctx,
		`INSERT INTO loan_applications
		 (reference, full_name, phone, email, national_id, amount, term_months,
		  monthly_income, purpose, status, admin_note, created_at, updated_at)
		 VALUES
		 (:reference, :full_name, :phone, :email, :national_id, :amount, :term_months,
		  :monthly_income, :purpose, :status, :admin_note, :created_at, :updated_at)`, app)
	if err != nil {
		return err
	}
	app.ID, err = res.LastInsertId()
	return err
}

// GetApplicationByReference retrieves an application by its public reference.
func (r *Repository) GetApplicationByReference(ctx context.Context, reference string) (*models.LoanApplication, error) {
	var app models.LoanApplication
	err := r.db.GetContext(ctx, &app, `SELECT * FROM loan_applications WHERE reference = ?`, reference)
	if err != nil {
		return nil, wrapError(err)
	}
	return &app, nil
}

// ListApplications returns one page of applications matching the filter,
// newest first.
func (r *Repository) ListApplications(ctx context.Context, filter models.ApplicationFilter) (*models.ApplicationPage, error) {
	filter.Normalize()

	where, args := applicationWhere(filter)

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM loan_applications`+where, args...); err != nil {
		return nil, err
	}

	items := []models.LoanApplication{}
	query := `SELECT * FROM loan_applications` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &items, query, append(args, filter.PerPage, filter.Offset())...); err != nil {
		return nil, err
	}

	return &models.ApplicationPage{
		Items:   items,
		Total:   total,
		Page:    filter.Page,
		PerPage: filter.PerPage,
	}, nil
}

func applicationWhere(filter models.ApplicationFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + escapeLike(q) + "%"
		clauses = append(clauses, `(full_name LIKE ? ESCAPE '\' OR phone LIKE ? ESCAPE '\' OR reference LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	if filter.CreatedFrom != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		clauses = append(clauses, "created_at < ?")
		args = append(args, filter.CreatedTo.UTC())
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// UpdateApplicationStatus sets the status and reviewer note of an application.
func (r *Repository) UpdateApplicationStatus(ctx context.Context, reference string, status models.ApplicationStatus, note string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE loan_applications SET status = ?, admin_note = ?, updated_at = ? WHERE reference = ?`,
		status, note, now.UTC(), reference)
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

// CountApplicationsByStatus returns the number of applications per status.
// Every known status is present in the result, with zero when unused.
func (r *Repository) CountApplicationsByStatus(ctx context.Context) (map[models.ApplicationStatus]int64, error) {
	var rows []struct {
		Status models.ApplicationStatus `db:"status"`
		Count  int64                    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS count FROM loan_applications GROUP BY status`); err != nil {
		return nil, err
	}

	counts := make(map[models.ApplicationStatus]int64, len(models.ApplicationStatuses))
	for _, s := range models.ApplicationStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
