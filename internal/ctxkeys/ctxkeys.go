// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ctxkeys defines typed context keys used across packages.
package ctxkeys

// Admin is the context key for the authenticated admin.
type Admin struct{}

// Verified is the context key for the OTP-verified identifier.
type Verified struct{}
