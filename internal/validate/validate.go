// Package validate checks request fields against declarative rules and
// accumulates human-readable failures instead of failing fast.
package validate

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// FieldError describes a single constraint failure on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Rule evaluates a field value and returns a failure message, or "" when
// the value satisfies the constraint.
type Rule func(value string) string

// Result accumulates field failures across one payload. The zero value is
// ready to use and reports valid until a rule fails.
type Result struct {
	errs []FieldError
}

// Field runs every rule against value, recording a FieldError per failure.
func (r *Result) Field(name, value string, rules ...Rule) {
	for _, rule := range rules {
		if msg := rule(value); msg != "" {
			r.errs = append(r.errs, FieldError{Field: name, Message: msg})
		}
	}
}

// OK reports whether no rule has failed.
func (r *Result) OK() bool {
	return len(r.errs) == 0
}

// Errors returns the accumulated failures in evaluation order.
func (r *Result) Errors() []FieldError {
	return r.errs
}

// Required fails when the value is empty or whitespace.
func Required(msg string) Rule {
	return func(value string) string {
		if strings.TrimSpace(value) == "" {
			return msg
		}
		return ""
	}
}

// Email fails unless the value is a syntactically valid email address.
func Email(msg string) Rule {
	return func(value string) string {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return msg
		}
		addr, err := mail.ParseAddress(trimmed)
		// Reject addresses with display names ("A <a@b.com>") and bare
		// domains without a dot, which mail.ParseAddress accepts.
		if err != nil || addr.Address != trimmed {
			return msg
		}
		at := strings.LastIndex(trimmed, "@")
		if at < 0 || !strings.Contains(trimmed[at+1:], ".") {
			return msg
		}
		return ""
	}
}

// MinLength fails when the value is shorter than n characters.
func MinLength(n int, msg string) Rule {
	return func(value string) string {
		if utf8.RuneCountInString(value) < n {
			return msg
		}
		return ""
	}
}

// NormalizeEmail canonicalizes an email for storage and lookup: surrounding
// whitespace removed, lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
