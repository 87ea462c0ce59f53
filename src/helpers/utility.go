package helpers

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var validNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// GenerateUUID returns a new random identifier for databases and tables.
func GenerateUUID() string {
	return uuid.New().String()
}

// IsValidName reports whether name can be used as a database or collection name.
// Names must start with a letter and may contain letters, digits, underscores and hyphens.
// They are also used as on-disk file names, so nothing else is allowed.
func IsValidName(name string) bool {
	return validNamePattern.MatchString(name)
}

// Helper function to properly remove quotes from strings
func StripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
