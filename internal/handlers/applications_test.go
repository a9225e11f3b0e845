// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"codeberg.org/oliverandrich/microloan/internal/auth"
	"codeberg.org/oliverandrich/microloan/internal/handlers"
	"codeberg.org/oliverandrich/microloan/internal/models"
	"codeberg.org/oliverandrich/microloan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const applicationBody = `{
	"full_name": "Nguyen Van An",
	"phone": "0912 345 678",
	"email": "An@Example.com",
	"national_id": "001090012345",
	"purpose": "motorbike repair",
	"amount": 5000000,
	"term_months": 6,
	"monthly_income": 12000000
}`

func submit(t *testing.T, env *testEnv, body, verified string) *testHTTPResult {
	t.Helper()
	req := jsonRequest(http.MethodPost, "/api/applications", body)
	if verified != "" {
		req = req.WithContext(auth.WithVerified(req.Context(), verified))
	}
	rec := call(t, env.h.CreateApplication, req)
	return &testHTTPResult{code: rec.Code, body: rec.Body.Bytes(), cookie: cookieNamed(rec, env.sessions.VerifiedCookieName())}
}

type testHTTPResult struct {
	cookie *http.Cookie
	body   []byte
	code   int
}

func asAdmin(req *http.Request, admin *models.Admin) *http.Request {
	return req.WithContext(auth.WithAdmin(req.Context(), admin))
}

func TestCreateApplication(t *testing.T) {
	env := newEnv(t)

	res := submit(t, env, applicationBody, "+84912345678")

	require.Equal(t, http.StatusCreated, res.code, string(res.body))
	var body map[string]string
	require.NoError(t, json.Unmarshal(res.body, &body))
	assert.Equal(t, "pending", body["status"])

	app, err := env.repo.GetApplicationByReference(context.Background(), body["reference"])
	require.NoError(t, err)
	assert.Equal(t, "+84912345678", app.Phone)
	assert.Equal(t, "an@example.com", app.Email)
	assert.Equal(t, int64(5_000_000), app.Amount)
	assert.True(t, env.clock.Now().Equal(app.CreatedAt))

	require.Len(t, env.notifier.apps, 1)
	assert.Equal(t, app.Reference, env.notifier.apps[0].Reference)
	assert.Equal(t, "Nguyen Van An", env.notifier.apps[0].FullName)

	require.NotNil(t, res.cookie, "verified cookie is cleared")
	assert.Negative(t, res.cookie.MaxAge)
}

func TestCreateApplication_RequiresVerifiedPhone(t *testing.T) {
	env := newEnv(t)

	tests := []struct {
		name     string
		verified string
	}{
		{"not verified", ""},
		{"other phone", "+84987654321"},
		{"email instead of phone", "an@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := submit(t, env, applicationBody, tt.verified)
			assert.Equal(t, http.StatusUnauthorized, res.code)
		})
	}
	assert.Empty(t, env.notifier.apps)
}

func TestCreateApplication_Invalid(t *testing.T) {
	env := newEnv(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"full_name":`, http.StatusBadRequest},
		{"missing name", `{"phone":"0912345678","amount":5000000,"term_months":6}`, http.StatusUnprocessableEntity},
		{"bad email", `{"full_name":"An","phone":"0912345678","email":"nope","amount":5000000,"term_months":6}`, http.StatusUnprocessableEntity},
		{"amount too high", `{"full_name":"An","phone":"0912345678","amount":50000000,"term_months":6}`, http.StatusUnprocessableEntity},
		{"term too long", `{"full_name":"An","phone":"0912345678","amount":5000000,"term_months":24}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := submit(t, env, tt.body, "+84912345678")
			assert.Equal(t, tt.code, res.code, string(res.body))
		})
	}
	assert.Empty(t, env.notifier.apps)
}

func TestListApplications(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	first := testutil.NewTestApplication(t, env.repo, "Nguyen Van An", "+84912345678")
	testutil.NewTestApplication(t, env.repo, "Tran Thi Binh", "+84987654321")
	testutil.NewTestApplication(t, env.repo, "Le Van Cuong", "+84911111111")
	require.NoError(t, env.repo.UpdateApplicationStatus(ctx, first.Reference, models.ApplicationApproved, "", time.Now()))

	list := func(query string) (int, models.ApplicationPage) {
		rec := call(t, env.h.ListApplications, jsonRequest(http.MethodGet, "/admin/applications"+query, ""))
		var page models.ApplicationPage
		if rec.Code == http.StatusOK {
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		}
		return rec.Code, page
	}

	t.Run("all", func(t *testing.T) {
		code, page := list("")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, int64(3), page.Total)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, models.DefaultPerPage, page.PerPage)
	})

	t.Run("by status", func(t *testing.T) {
		code, page := list("?status=approved")
		require.Equal(t, http.StatusOK, code)
		require.Len(t, page.Items, 1)
		assert.Equal(t, first.Reference, page.Items[0].Reference)
	})

	t.Run("query", func(t *testing.T) {
		code, page := list("?q=binh")
		require.Equal(t, http.StatusOK, code)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Tran Thi Binh", page.Items[0].FullName)
	})

	t.Run("pagination", func(t *testing.T) {
		code, page := list("?page=2&per_page=2")
		require.Equal(t, http.StatusOK, code)
		assert.Len(t, page.Items, 1)
		assert.Equal(t, int64(3), page.Total)
	})

	t.Run("date range", func(t *testing.T) {
		code, page := list("?from=2000-01-01&to=2000-01-31")
		require.Equal(t, http.StatusOK, code)
		assert.Empty(t, page.Items)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		code, _ := list("?status=lost")
		assert.Equal(t, http.StatusBadRequest, code)
		code, _ = list("?page=two")
		assert.Equal(t, http.StatusBadRequest, code)
		code, _ = list("?from=yesterday")
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestGetApplication(t *testing.T) {
	env := newEnv(t)
	app := testutil.NewTestApplication(t, env.repo, "Nguyen Van An", "+84912345678")

	rec := call(t, env.h.GetApplication, jsonRequest(http.MethodGet, "/admin/applications/"+app.Reference, ""), "reference", app.Reference)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, app.Reference, body["reference"])
	quote, ok := body["quote"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 943333, quote["monthly_payment"], 0)

	rec = call(t, env.h.GetApplication, jsonRequest(http.MethodGet, "/admin/applications/nope", ""), "reference", "nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateApplicationStatus(t *testing.T) {
	env := newEnv(t)
	app := testutil.NewTestApplication(t, env.repo, "Nguyen Van An", "+84912345678")
	admin := testutil.NewTestAdmin(t, env.repo, "reviewer@example.com")
	observer := env.hub.Register(99)

	patch := func(reference, body string) int {
		req := asAdmin(jsonRequest(http.MethodPatch, "/admin/applications/"+reference+"/status", body), admin)
		return call(t, env.h.UpdateApplicationStatus, req, "reference", reference).Code
	}

	require.Equal(t, http.StatusOK, patch(app.Reference, `{"status":"approved","note":" income checked "}`))

	stored, err := env.repo.GetApplicationByReference(context.Background(), app.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApproved, stored.Status)
	assert.Equal(t, "income checked", stored.AdminNote)

	select {
	case msg := <-observer:
		assert.Equal(t, handlers.EventApplicationUpdated, msg.Event)
		assert.Contains(t, msg.Data, app.Reference)
	case <-time.After(time.Second):
		t.Fatal("dashboard was not notified")
	}

	assert.Equal(t, http.StatusConflict, patch(app.Reference, `{"status":"pending"}`))
	assert.Equal(t, http.StatusBadRequest, patch(app.Reference, `{"status":"archived"}`))
	assert.Equal(t, http.StatusNotFound, patch("missing", `{"status":"approved"}`))
}

func TestStats(t *testing.T) {
	env := newEnv(t)
	app := testutil.NewTestApplication(t, env.repo, "Nguyen Van An", "+84912345678")
	testutil.NewTestApplication(t, env.repo, "Tran Thi Binh", "+84987654321")
	require.NoError(t, env.repo.UpdateApplicationStatus(context.Background(), app.Reference, models.ApplicationRejected, "", time.Now()))

	rec := call(t, env.h.Stats, jsonRequest(http.MethodGet, "/admin/stats", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"by_status": {"pending": 1, "approved": 0, "rejected": 1, "disbursed": 0},
		"total": 2
	}`, rec.Body.String())
}
