// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"codeberg.org/oliverandrich/microloan/internal/auth"
	"codeberg.org/oliverandrich/microloan/internal/models"
	"codeberg.org/oliverandrich/microloan/internal/repository"
	"codeberg.org/oliverandrich/microloan/internal/services/loancalc"
	"codeberg.org/oliverandrich/microloan/internal/sse"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// EventApplicationUpdated is the dashboard event sent after a status change.
const EventApplicationUpdated = "application_updated"

// ApplicationRequest is the body of POST /api/applications.
type ApplicationRequest struct {
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	NationalID    string `json:"national_id"`
	Purpose       string `json:"purpose"`
	Amount        int64  `json:"amount"`
	TermMonths    int    `json:"term_months"`
	MonthlyIncome int64  `json:"monthly_income"`
}

func (r *ApplicationRequest) valid() bool {
	if strings.TrimSpace(r.FullName) == "" || r.MonthlyIncome < 0 {
		return false
	}
	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			return false
		}
	}
	return true
}

// ApplicationDetail is an application together with its loan quote.
type ApplicationDetail struct {
	*models.LoanApplication
	Quote *loancalc.Quote `json:"quote,omitempty"`
}

// StatusUpdateRequest is the body of PATCH /admin/applications/:reference/status.
type StatusUpdateRequest struct {
	Status models.ApplicationStatus `json:"status"`
	Note   string                   `json:"note"`
}

// CreateApplication stores a loan application for a phone number that
// passed OTP verification and notifies the back office.
func (h *Handlers) CreateApplication(c echo.Context) error {
	var req ApplicationRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c)
	}

	phone := h.normalizeIdentifier(req.Phone)
	ctx := c.Request().Context()
	verified, ok := auth.GetVerified(ctx)
	if !ok || phone == "" || verified != phone {
		return fail(c, http.StatusUnauthorized, "error_not_verified")
	}

	if !req.valid() {
		return fail(c, http.StatusUnprocessableEntity, "error_invalid_application")
	}
	if _, err := loancalc.Calculate(req.Amount, req.TermMonths); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "error_out_of_range")
	}

	now := h.now().UTC()
	app := &models.LoanApplication{
		Reference:     uuid.NewString(),
		FullName:      strings.TrimSpace(req.FullName),
		Phone:         phone,
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		NationalID:    strings.TrimSpace(req.NationalID),
		Purpose:       strings.TrimSpace(req.Purpose),
		Amount:        req.Amount,
		TermMonths:    req.TermMonths,
		MonthlyIncome: req.MonthlyIncome,
		Status:        models.ApplicationPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.repo.CreateApplication(ctx, app); err != nil {
		return InternalServerError(c, "failed to create application", err)
	}
	slog.Info("application_submitted", "reference", app.Reference, "amount", app.Amount, "term", app.TermMonths)

	// One verification authorizes one submission.
	c.SetCookie(h.sessions.ClearVerified())

	h.notifier.NotifyNewApplication(context.WithoutCancel(ctx), app.Summary())

	return c.JSON(http.StatusCreated, map[string]string{
		"reference": app.Reference,
		"status":    string(app.Status),
	})
}

// ListApplications returns one page of applications matching the query filter.
func (h *Handlers) ListApplications(c echo.Context) error {
	filter, ok := parseFilter(c)
	if !ok {
		if s := c.QueryParam("status"); s != "" && !models.ApplicationStatus(s).Valid() {
			return fail(c, http.StatusBadRequest, "error_invalid_status")
		}
		return BadRequest(c)
	}

	page, err := h.repo.ListApplications(c.Request().Context(), filter)
	if err != nil {
		return InternalServerError(c, "failed to list applications", err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetApplication returns one application with its quote.
func (h *Handlers) GetApplication(c echo.Context) error {
	app, err := h.repo.GetApplicationByReference(c.Request().Context(), c.Param("reference"))
	if errors.Is(err, repository.ErrNotFound) {
		return NotFound(c)
	}
	if err != nil {
		return InternalServerError(c, "failed to load application", err)
	}
	return c.JSON(http.StatusOK, detail(app))
}

// UpdateApplicationStatus moves an application to a new review status.
func (h *Handlers) UpdateApplicationStatus(c echo.Context) error {
	var req StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c)
	}
	if !req.Status.Valid() {
		return fail(c, http.StatusBadRequest, "error_invalid_status")
	}

	ctx := c.Request().Context()
	reference := c.Param("reference")
	app, err := h.repo.GetApplicationByReference(ctx, reference)
	if errors.Is(err, repository.ErrNotFound) {
		return NotFound(c)
	}
	if err != nil {
		return InternalServerError(c, "failed to load application", err)
	}

	if !app.Status.CanTransitionTo(req.Status) {
		return failData(c, http.StatusConflict, "error_invalid_transition", map[string]any{
			"From": app.Status,
			"To":   req.Status,
		})
	}

	note := strings.TrimSpace(req.Note)
	if err := h.repo.UpdateApplicationStatus(ctx, reference, req.Status, note, h.now().UTC()); err != nil {
		return InternalServerError(c, "failed to update application", err)
	}

	app, err = h.repo.GetApplicationByReference(ctx, reference)
	if err != nil {
		return InternalServerError(c, "failed to reload application", err)
	}

	var adminID int64
	if admin := auth.GetAdmin(ctx); admin != nil {
		adminID = admin.ID
	}
	slog.Info("application_status_changed",
		"reference", reference,
		"status", app.Status,
		"admin_id", adminID,
	)
	h.publishUpdate(app)

	return c.JSON(http.StatusOK, detail(app))
}

// Stats returns the number of applications per status.
func (h *Handlers) Stats(c echo.Context) error {
	counts, err := h.repo.CountApplicationsByStatus(c.Request().Context())
	if err != nil {
		return InternalServerError(c, "failed to count applications", err)
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return c.JSON(http.StatusOK, map[string]any{
		"by_status": counts,
		"total":     total,
	})
}

func (h *Handlers) publishUpdate(app *models.LoanApplication) {
	if h.hub == nil {
		return
	}
	data, err := json.Marshal(app)
	if err != nil {
		slog.Error("failed to encode dashboard event", "reference", app.Reference, "error", err)
		return
	}
	h.hub.Broadcast(sse.Message{Event: EventApplicationUpdated, Data: string(data)})
}

func detail(app *models.LoanApplication) ApplicationDetail {
	d := ApplicationDetail{LoanApplication: app}
	if q, err := loancalc.Calculate(app.Amount, app.TermMonths); err == nil {
		d.Quote = q
	}
	return d
}
