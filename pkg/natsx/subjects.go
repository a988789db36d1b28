// Package natsx enforces the NATS subject naming convention used across
// cs2-link services.
package natsx

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidToken = errors.New("invalid subject token")
	ErrInvalidClass = errors.New("invalid subject class")
)

// Standard NATS classes allowed in subject naming convention.
var AllowedClasses = map[string]struct{}{
	"events":   {},
	"commands": {},
	"audit":    {},
	"metrics":  {},
	"logs":     {},
}

// IsValidToken checks if a given string is a valid NATS subject token
// (lowercase alphanumeric and underscores, no dots).
func IsValidToken(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '_' {
			return false
		}
	}
	return true
}

// SanitizeToken lowers a free-form identifier into a valid subject
// token, mapping every disallowed rune to an underscore. Rule ids are
// uuids or user-chosen keys, so they pass through here before ending up
// in a subject.
func SanitizeToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// BuildSubject constructs a NATS subject string according to the defined convention.
// It validates tokens and returns an error if any token is invalid.
func BuildSubject(source, class, typ, id, action string) (string, error) {
	if !IsValidToken(source) {
		return "", fmt.Errorf("invalid source token: %w", ErrInvalidToken)
	}
	if !IsValidToken(class) {
		return "", fmt.Errorf("invalid class token: %w", ErrInvalidToken)
	}
	if _, ok := AllowedClasses[class]; !ok {
		return "", fmt.Errorf("class %q is not allowed: %w", class, ErrInvalidClass)
	}
	if !IsValidToken(typ) {
		return "", fmt.Errorf("invalid type token: %w", ErrInvalidToken)
	}

	subject := source + "." + class + "." + typ

	if id != "" {
		if !IsValidToken(id) {
			return "", fmt.Errorf("invalid id token: %w", ErrInvalidToken)
		}
		subject += "." + id
	}

	if action != "" {
		if !IsValidToken(action) {
			return "", fmt.Errorf("invalid action token: %w", ErrInvalidToken)
		}
		subject += "." + action
	}

	return subject, nil
}

// FiredSubject builds the subject a fired rule is published on:
// cs2_link.events.game.<rule_id>.fired. The rule id is sanitized, never
// rejected, so every configured rule can be published.
func FiredSubject(ruleID string) (string, error) {
	return BuildSubject("cs2_link", "events", "game", SanitizeToken(ruleID), "fired")
}
