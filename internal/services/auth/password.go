// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
	"unicode"
)

//go:embed common_passwords.txt
var commonPasswordsFS embed.FS

var commonPasswords map[string]struct{}

func init() {
	commonPasswords = make(map[string]struct{})
	file, err := commonPasswordsFS.Open("common_passwords.txt")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		password := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if password != "" {
			commonPasswords[password] = struct{}{}
		}
	}
}

// PasswordValidator validates admin passwords
type PasswordValidator struct {
	MinLength            int
	CheckCommonPasswords bool
	CheckUserSimilarity  bool
}

// DefaultPasswordValidator returns a validator with sensible defaults
func DefaultPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		MinLength:            12,
		CheckCommonPasswords: true,
		CheckUserSimilarity:  true,
	}
}

// ValidationError represents a single password validation error
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// PasswordValidationError wraps multiple validation errors
type PasswordValidationError struct {
	Errors []ValidationError
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return e.Errors[0].Message
}

// Messages returns all error messages
func (e *PasswordValidationError) Messages() []string {
	messages := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		messages[i] = err.Message
	}
	return messages
}

// ValidationResult holds all validation errors
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Validate checks a password against all configured rules
func (v *PasswordValidator) Validate(password string, userAttributes ...string) ValidationResult {
	var errs []ValidationError
	add := func(code, msg string) {
		errs = append(errs, ValidationError{Code: code, Message: msg})
	}

	if len(password) < v.MinLength {
		add("min_length", fmt.Sprintf("Password must be at least %d characters long.", v.MinLength))
	}
	if isEntirelyNumeric(password) {
		add("entirely_numeric", "Password cannot be entirely numeric.")
	}
	if v.CheckCommonPasswords && isCommonPassword(password) {
		add("common_password", "This password is too common.")
	}
	if v.CheckUserSimilarity && isSimilarToUserAttributes(password, userAttributes) {
		add("too_similar", "Password is too similar to the account email.")
	}

	return ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}

func isEntirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(password) > 0
}

func isCommonPassword(password string) bool {
	_, exists := commonPasswords[strings.ToLower(password)]
	return exists
}

// isSimilarToUserAttributes compares against each attribute and, for
// email addresses, against the local part.
func isSimilarToUserAttributes(password string, attributes []string) bool {
	p := strings.ToLower(password)

	for _, attr := range attributes {
		candidates := []string{strings.ToLower(attr)}
		if local, _, ok := strings.Cut(candidates[0], "@"); ok {
			candidates = append(candidates, local)
		}
		for _, a := range candidates {
			if len(a) < 3 {
				continue
			}
			if strings.Contains(p, a) || strings.Contains(a, p) || similarity(p, a) > 0.7 {
				return true
			}
		}
	}

	return false
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	return float64(longestCommonSubsequence(a, b)) / float64(max(len(a), len(b)))
}

func longestCommonSubsequence(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
