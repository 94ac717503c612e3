package database

import (
	"fmt"
	"regexp"
)

// identifierPattern is the allow-list for SQL identifiers that must be
// interpolated into statement text (generated staging relation names).
// Value data never goes through this path; it is always parameterized.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const maxIdentifierLength = 64 // MySQL identifier limit

// ValidateIdentifier checks a table or column name against the allow-list
// pattern before it is interpolated into SQL text.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("empty identifier")
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("identifier %q exceeds %d characters", name, maxIdentifierLength)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("identifier %q contains disallowed characters", name)
	}
	return nil
}
