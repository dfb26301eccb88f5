// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// Normalize formats a phone number to the canonical E.164 form used as the
// primary lead matching key: digits only, leading country code, "+" prefix.
// A US 10-digit number gets a "1" country code. Input with no digits returns "".
// Every read and write path must go through this one routine; normalization is
// idempotent, so already-normalized numbers pass through unchanged.
func Normalize(input string) string {
	digits := stripNonDigits(input)
	if digits == "" {
		return ""
	}
	if len(digits) == 10 {
		digits = "1" + digits
	}
	return "+" + digits
}

// Candidates returns the lookup variants for matching a phone against stored
// values: the canonical form plus raw digits with and without the leading "1"
// and "+". The canonical form comes first; variants are deduplicated.
func Candidates(input string) []string {
	digits := stripNonDigits(input)
	if digits == "" {
		return nil
	}

	variants := []string{Normalize(input), "+" + digits, digits}
	if strings.HasPrefix(digits, "1") && len(digits) == 11 {
		variants = append(variants, "+"+digits[1:], digits[1:])
	}

	seen := make(map[string]bool, len(variants))
	results := make([]string, 0, len(variants))
	for _, v := range variants {
		if !seen[v] {
			seen[v] = true
			results = append(results, v)
		}
	}
	return results
}

// IsPlausible reports whether the input parses as a possible phone number.
// Used at form intake only; normalization and matching never depend on it.
func IsPlausible(input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return false
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return false
	}

	return phonenumbers.IsPossibleNumber(number)
}

func stripNonDigits(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
