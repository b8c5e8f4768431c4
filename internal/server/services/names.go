package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/opacity/internal/common"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeName collapses every run of whitespace into one space.
func NormalizeName(name string) string {
	return whitespaceRun.ReplaceAllString(name, " ")
}

// ValidateName normalizes raw and checks it against max runes. domain names
// the field in the error message, e.g. "client name".
func ValidateName(raw *string, domain string, max int) (string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return "", common.Errorf(common.ErrorValidation, "Missing %s.", domain)
	}
	name := NormalizeName(*raw)
	if utf8.RuneCountInString(name) > max {
		return "", common.Errorf(common.ErrorValidation, "Bad %s.", domain)
	}
	return name, nil
}
