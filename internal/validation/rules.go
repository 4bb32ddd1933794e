// Package validation provides custom validation rules shared by DTOs and domain types.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/eventledger/internal/errors"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// discriminatorRegex matches dotted lowercase names such as "user.registered".
	discriminatorRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z0-9_]+)*$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// PasswordStrength validates a password against a minimum policy.
type PasswordStrength struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

// Validate implements validation.Rule.
func (p PasswordStrength) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_password_strength", "password must be a string")
	}

	if len(s) < p.MinLength {
		return validation.NewError(
			"validation_password_min_length",
			fmt.Sprintf("password must be at least %d characters", p.MinLength),
		)
	}

	checks := []struct {
		enabled bool
		match   func(rune) bool
		code    string
		message string
	}{
		{p.RequireUpper, unicode.IsUpper, "validation_password_uppercase", "password must contain at least one uppercase letter"},
		{p.RequireLower, unicode.IsLower, "validation_password_lowercase", "password must contain at least one lowercase letter"},
		{p.RequireNumber, unicode.IsNumber, "validation_password_number", "password must contain at least one number"},
		{p.RequireSpecial, isSpecial, "validation_password_special", "password must contain at least one special character"},
	}
	for _, c := range checks {
		if c.enabled && !strings.ContainsFunc(s, c.match) {
			return validation.NewError(c.code, c.message)
		}
	}

	return nil
}

func isSpecial(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// Email validates email format.
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// NotBlank validates that a string is not empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// Discriminator validates routing keys like event and aggregate type names.
var Discriminator = validation.NewStringRuleWithError(
	func(s string) bool {
		return discriminatorRegex.MatchString(s)
	},
	validation.NewError(
		"validation_discriminator",
		"must be lowercase words separated by dots (e.g. user.registered)",
	),
)
