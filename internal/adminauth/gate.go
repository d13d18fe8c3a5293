// Package adminauth guards license issuance behind a server-held secret.
package adminauth

import (
	"crypto/subtle"
	"errors"
)

// HeaderName carries the admin secret; it wins over the body field.
const HeaderName = "X-Admin-Secret"

var (
	// ErrMissingAdminSecret means the server has no secret configured.
	// Issuance is refused outright rather than treated as a caller error.
	ErrMissingAdminSecret = errors.New("admin secret not configured")
	// ErrUnauthorized means the candidate did not match.
	ErrUnauthorized = errors.New("unauthorized")
)

// swapped in tests to observe the equal-length path
var constantTimeCompare = subtle.ConstantTimeCompare

type Gate struct {
	secret []byte
}

func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Configured reports whether a non-empty secret was provided.
func (g *Gate) Configured() bool {
	return len(g.secret) > 0
}

// Authorize compares candidate against the configured secret. Only the
// length check may exit early; equal-length inputs are compared in full.
func (g *Gate) Authorize(candidate string) error {
	if !g.Configured() {
		return ErrMissingAdminSecret
	}

	c := []byte(candidate)
	if len(c) != len(g.secret) {
		return ErrUnauthorized
	}
	if constantTimeCompare(g.secret, c) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// CandidateFromRequest picks the header value when present, else the body field.
func CandidateFromRequest(header, bodyField string) string {
	if header != "" {
		return header
	}
	return bodyField
}
