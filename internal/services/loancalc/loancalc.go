// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package loancalc quotes flat-rate instalment loans.
package loancalc

import (
	"errors"
	"math"
)

// Allowed loan ranges. Amounts are in VND.
const (
	MinAmount = 1_000_000
	MaxAmount = 20_000_000
	MinTerm   = 1
	MaxTerm   = 12
)

// ErrOutOfRange is returned for amounts or terms outside the allowed ranges.
var ErrOutOfRange = errors.New("loancalc: amount or term out of range")

type anchor struct {
	amount int64
	rate   float64 // monthly flat rate
}

// Monthly rates fall as the amount grows; amounts between two anchors are
// interpolated linearly.
var anchors = []anchor{
	{1_000_000, 0.030},
	{3_000_000, 0.025},
	{5_000_000, 0.022},
	{10_000_000, 0.018},
	{20_000_000, 0.015},
}

// Quote is the cost breakdown of a loan.
type Quote struct {
	Amount         int64   `json:"amount"`
	TermMonths     int     `json:"term_months"`
	MonthlyRate    float64 `json:"monthly_rate"`
	MonthlyPayment int64   `json:"monthly_payment"`
	TotalInterest  int64   `json:"total_interest"`
	TotalRepayment int64   `json:"total_repayment"`
}

// Rate returns the monthly flat rate for amount.
func Rate(amount int64) (float64, error) {
	if amount < MinAmount || amount > MaxAmount {
		return 0, ErrOutOfRange
	}
	for i := 1; i < len(anchors); i++ {
		lo, hi := anchors[i-1], anchors[i]
		if amount <= hi.amount {
			frac := float64(amount-lo.amount) / float64(hi.amount-lo.amount)
			return round(lo.rate+frac*(hi.rate-lo.rate), 6), nil
		}
	}
	return anchors[len(anchors)-1].rate, nil
}

// Calculate quotes a loan of amount repaid over termMonths.
func Calculate(amount int64, termMonths int) (*Quote, error) {
	if termMonths < MinTerm || termMonths > MaxTerm {
		return nil, ErrOutOfRange
	}
	rate, err := Rate(amount)
	if err != nil {
		return nil, err
	}

	interest := int64(math.Round(float64(amount) * rate * float64(termMonths)))
	total := amount + interest

	return &Quote{
		Amount:         amount,
		TermMonths:     termMonths,
		MonthlyRate:    rate,
		MonthlyPayment: int64(math.Round(float64(total) / float64(termMonths))),
		TotalInterest:  interest,
		TotalRepayment: total,
	}, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
