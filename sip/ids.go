package sip

import (
	"strings"

	"github.com/google/uuid"
)

// RFC3261BranchMagicCookie identifies RFC 3261-compliant Via branch values
// (RFC 3261 §8.1.1.7); transaction matching relies on its presence.
const RFC3261BranchMagicCookie = "z9hG4bK"

// GenerateBranch returns a new top-Via branch parameter, unique per
// transaction, carrying the RFC 3261 magic cookie prefix (spec.md §6).
func GenerateBranch() string {
	return RFC3261BranchMagicCookie + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateCallID returns a new globally-unique Call-ID value of the form
// "<random>@<host>", per spec.md §6's Application contract. If host is
// empty, only the random part is returned.
func GenerateCallID(host string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	if host == "" {
		return random
	}
	return random + "@" + host
}

// GenerateTag returns a new From/To tag value, at least 32 bits of entropy
// per spec.md Invariant 4.
func GenerateTag() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
