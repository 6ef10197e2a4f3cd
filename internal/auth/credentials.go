package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

// Role names the two fixed identities the dashboard knows about.
const (
	RoleAdmin = "admin"
	RoleGuest = "guest"
)

// Capabilities gate individual dashboard features.
const (
	CapAdmin      = "admin"
	CapGuest      = "guest"
	CapMLAdvanced = "ml_advanced"
	CapMLBasic    = "ml_basic"
)

// Credentials holds the closed set of username→secret mappings. It is built
// once at startup and immutable afterwards.
type Credentials struct {
	secrets map[string][32]byte
	// decoy is compared against when the username is unknown, so a lookup
	// miss costs the same as a secret mismatch and does not leak which
	// usernames exist through response timing.
	decoy [32]byte
}

// NewCredentials builds the credential store. Both secrets are required; the
// component cannot operate with unknown secrets.
func NewCredentials(adminSecret, guestSecret string) (*Credentials, error) {
	if adminSecret == "" {
		return nil, errors.New("admin secret is not configured")
	}
	if guestSecret == "" {
		return nil, errors.New("guest secret is not configured")
	}
	return &Credentials{
		secrets: map[string][32]byte{
			RoleAdmin: sha256.Sum256([]byte(adminSecret)),
			RoleGuest: sha256.Sum256([]byte(guestSecret)),
		},
		decoy: sha256.Sum256([]byte("decoy")),
	}, nil
}

// Check reports whether username names a known identity and secret matches
// its stored secret. Secrets are hashed before comparison so inputs of any
// length compare in constant time, and unknown usernames still pay for a
// full comparison against a decoy.
func (c *Credentials) Check(username, secret string) bool {
	if secret == "" {
		return false
	}

	stored, known := c.secrets[username]
	if !known {
		stored = c.decoy
	}

	submitted := sha256.Sum256([]byte(secret))
	match := subtle.ConstantTimeCompare(submitted[:], stored[:]) == 1
	return match && known
}

// permissions maps each role to its fixed capability set.
var permissions = map[string][]string{
	RoleAdmin: {CapAdmin, CapMLAdvanced, CapMLBasic},
	RoleGuest: {CapGuest, CapMLBasic},
}

// PermissionsFor returns the capability set for a role. Unknown roles have none.
func PermissionsFor(role string) []string {
	return permissions[role]
}
