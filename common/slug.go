package common

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrEmptySlug = errors.New("slug cannot be empty")
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify lowercases input and collapses every run of non-alphanumerics into a hyphen.
// The fallback is slugified the same way when input yields nothing.
func Slugify(input, fallback string) (string, error) {
	slug := slugify(input)
	if slug == "" {
		slug = slugify(fallback)
	}
	if slug == "" {
		return "", ErrEmptySlug
	}
	return slug, nil
}

// WithSuffix appends a numeric suffix used when a slug is already taken.
func WithSuffix(base string, n int) string {
	if n <= 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

func slugify(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	slug := nonSlugChars.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}
