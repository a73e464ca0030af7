package errors

import (
	"strings"
	"unicode"
)

// maxIdentifierLen bounds metric and algorithm identifiers.
const maxIdentifierLen = 128

// ValidateIdentifier checks a registry identifier (metric ID, algorithm name).
//
// Identifiers key caches and registries, so they must be stable strings:
//   - Not empty
//   - At most 128 characters
//   - No whitespace or control characters
func ValidateIdentifier(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "%s identifier cannot be empty", kind)
	}
	if len(id) > maxIdentifierLen {
		return New(ErrCodeInvalidID, "%s identifier too long (max %d characters)", kind, maxIdentifierLen)
	}
	if strings.IndexFunc(id, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return New(ErrCodeInvalidID, "%s identifier %q contains whitespace or control characters", kind, id)
	}
	return nil
}
