// Package validation holds the pure input checks applied before a profile is
// created or renamed. Nothing here touches the store.
package validation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MinSlugLength  = 3
	MaxSlugLength  = 20
	MaxTitleLength = 50

	maxSuggestionAttempts = 100
)

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9]*$`)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// reservedSlugs collide with application routes or the system default profile.
var reservedSlugs = map[string]struct{}{
	"about": {}, "account": {}, "admin": {}, "api": {}, "auth": {}, "callback": {},
	"contact": {}, "create": {}, "dashboard": {}, "default": {}, "delete": {},
	"edit": {}, "health": {}, "help": {}, "login": {}, "logout": {}, "new": {},
	"privacy": {}, "profile": {}, "profiles": {}, "register": {}, "settings": {},
	"signin": {}, "signup": {}, "static": {}, "terms": {}, "update": {}, "user": {},
	"users": {},
}

const (
	msgSlugRequired = "Slug is required"
	msgSlugLength   = "Slug must be between 3 and 20 characters"
	msgSlugPattern  = "Slug must start with a letter and contain only lowercase letters and numbers"
	msgSlugReserved = "This slug is a reserved word and cannot be used"
	msgSlugTaken    = "This URL slug is already in use"
	msgTitleEmpty   = "Title is required"
	msgTitleLength  = "Title must be 50 characters or less"
)

// SlugResult is the outcome of ValidateSlug. IsUnique is only meaningful when
// IsValid is true.
type SlugResult struct {
	IsValid  bool   `json:"isValid"`
	IsUnique bool   `json:"isUnique"`
	Error    string `json:"error,omitempty"`
}

type TitleResult struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

// IsReserved reports whether slug is a reserved word.
func IsReserved(slug string) bool {
	_, ok := reservedSlugs[strings.ToLower(slug)]
	return ok
}

// ValidateSlug checks format, reserved words and uniqueness against existing.
func ValidateSlug(slug string, existing []string) SlugResult {
	if slug == "" {
		return SlugResult{Error: msgSlugRequired}
	}
	if n := len(slug); n < MinSlugLength || n > MaxSlugLength {
		return SlugResult{Error: msgSlugLength}
	}
	if !slugPattern.MatchString(slug) {
		return SlugResult{Error: msgSlugPattern}
	}
	if IsReserved(slug) {
		return SlugResult{Error: msgSlugReserved}
	}
	if contains(existing, slug) {
		return SlugResult{IsValid: true, Error: msgSlugTaken}
	}
	return SlugResult{IsValid: true, IsUnique: true}
}

// ValidateTitle requires a non-blank title of at most MaxTitleLength characters.
func ValidateTitle(title string) TitleResult {
	if strings.TrimSpace(title) == "" {
		return TitleResult{Error: msgTitleEmpty}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return TitleResult{Error: msgTitleLength}
	}
	return TitleResult{IsValid: true}
}

// GenerateSlugSuggestion derives a valid, unused slug from a title. The result
// is always 3-20 characters, starts with a lowercase letter and is not in
// existing or the reserved set.
func GenerateSlugSuggestion(title string, existing []string) string {
	base := nonSlugChars.ReplaceAllString(strings.ToLower(title), "")
	base = truncate(base, MaxSlugLength)
	if base == "" || base[0] < 'a' || base[0] > 'z' {
		base = truncate("p"+base, MaxSlugLength)
	}
	for len(base) < MinSlugLength {
		base += "0"
	}

	if available(base, existing) {
		return base
	}
	for i := 1; i <= maxSuggestionAttempts; i++ {
		suffix := strconv.Itoa(i)
		candidate := truncate(base, MaxSlugLength-len(suffix)) + suffix
		if available(candidate, existing) {
			return candidate
		}
	}

	// Every numeric suffix is taken; fall back to random hex. The last
	// candidate is returned unchecked and the store rejects it if it collides.
	var candidate string
	for i := 0; i < maxSuggestionAttempts; i++ {
		suffix := randomSuffix()
		candidate = truncate(base, MaxSlugLength-len(suffix)) + suffix
		if available(candidate, existing) {
			return candidate
		}
	}
	return candidate
}

var randomSuffix = func() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// NormalizeEmail trims and lowercases an address and reports whether it is a
// bare, well-formed email.
func NormalizeEmail(email string) (string, bool) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" || len(e) > 254 {
		return e, false
	}
	if !isBareAddress(e) {
		return e, false
	}
	return e, true
}

func available(slug string, existing []string) bool {
	return !IsReserved(slug) && !contains(existing, slug)
}

func contains(existing []string, slug string) bool {
	for _, s := range existing {
		if strings.EqualFold(s, slug) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
