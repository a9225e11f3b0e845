// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strconv"

	"codeberg.org/oliverandrich/microloan/internal/services/loancalc"
	"github.com/labstack/echo/v4"
)

// Calculator quotes a loan for the amount and term query parameters.
func (h *Handlers) Calculator(c echo.Context) error {
	amount, err := strconv.ParseInt(c.QueryParam("amount"), 10, 64)
	if err != nil {
		return BadRequest(c)
	}
	term, err := strconv.Atoi(c.QueryParam("term"))
	if err != nil {
		return BadRequest(c)
	}

	quote, err := loancalc.Calculate(amount, term)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "error_out_of_range")
	}
	return c.JSON(http.StatusOK, quote)
}
