// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"slices"
	"time"
)

// ApplicationStatus is the review state of a loan application.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationApproved  ApplicationStatus = "approved"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationDisbursed ApplicationStatus = "disbursed"
)

// ApplicationStatuses lists every status in review order.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationPending,
	ApplicationApproved,
	ApplicationRejected,
	ApplicationDisbursed,
}

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	return slices.Contains(ApplicationStatuses, s)
}

// CanTransitionTo reports whether a reviewer may move an application from s to next.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	switch s {
	case ApplicationPending:
		return next == ApplicationApproved || next == ApplicationRejected
	case ApplicationApproved:
		return next == ApplicationDisbursed || next == ApplicationRejected
	default:
		return false
	}
}

// LoanApplication is a submitted loan request.
type LoanApplication struct { //nolint:govet // fieldalignment: readability over optimization
	ID            int64             `db:"id" json:"id"`
	Reference     string            `db:"reference" json:"reference"`
	FullName      string            `db:"full_name" json:"full_name"`
	Phone         string            `db:"phone" json:"phone"`
	Email         string            `db:"email" json:"email,omitempty"`
	NationalID    string            `db:"national_id" json:"national_id,omitempty"`
	Amount        int64             `db:"amount" json:"amount"`
	TermMonths    int               `db:"term_months" json:"term_months"`
	MonthlyIncome int64             `db:"monthly_income" json:"monthly_income"`
	Purpose       string            `db:"purpose" json:"purpose,omitempty"`
	Status        ApplicationStatus `db:"status" json:"status"`
	AdminNote     string            `db:"admin_note" json:"admin_note,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplicationFilter narrows the admin application listing.
type ApplicationFilter struct { //nolint:govet // fieldalignment not critical
	Status      ApplicationStatus
	Query       string // matched against name, phone and reference
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PerPage     int
}

// Pagination defaults and limits.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Normalize clamps paging values into their allowed ranges.
func (f *ApplicationFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
}

// Offset returns the row offset of the current page.
func (f *ApplicationFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

// ApplicationPage is one page of a filtered listing.
type ApplicationPage struct {
	Items   []LoanApplication `json:"items"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
}

// ApplicationSummary is the part of an application shown in notifications.
type ApplicationSummary struct {
	SubmittedAt time.Time `json:"submitted_at"`
	Reference   string    `json:"reference"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone"`
	Amount      int64     `json:"amount"`
	TermMonths  int       `json:"term_months"`
}

// Summary returns the notification view of the application.
func (a *LoanApplication) Summary() ApplicationSummary {
	return ApplicationSummary{
		SubmittedAt: a.CreatedAt,
		Reference:   a.Reference,
		FullName:    a.FullName,
		Phone:       a.Phone,
		Amount:      a.Amount,
		TermMonths:  a.TermMonths,
	}
}
