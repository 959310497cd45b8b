package model

import (
	"time"

	"github.com/google/uuid"
)

// AccessCredential is one issued QR/access-code pair for an incident. At most
// one credential per incident may be active with validUntil in the future;
// regeneration deactivates the old one without discarding its personnel
// history.
type AccessCredential struct {
	ID           uuid.UUID `db:"id" json:"id"`
	IncidentID   string    `db:"incident_id" json:"incident_id"`
	AccessCode   string    `db:"access_code" json:"access_code"`
	QRPayload    string    `db:"-" json:"qr_payload"`
	ValidUntil   time.Time `db:"valid_until" json:"valid_until"`
	MaxPersonnel *int      `db:"max_personnel" json:"max_personnel,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	CreatedBy    uuid.UUID `db:"created_by" json:"created_by"`

	// Loaded separately, append-only from the credential's perspective.
	RegisteredPersonnel []*PersonRecord `db:"-" json:"registered_personnel,omitempty"`
}

// Expired reports whether the credential validity window has passed.
func (c *AccessCredential) Expired(now time.Time) bool {
	return !c.ValidUntil.After(now)
}

// CredentialConfig is the issuance configuration. ValidHours defaults to one
// year, which in practice means "until explicitly regenerated".
type CredentialConfig struct {
	ValidHours   int  `json:"valid_hours"`
	MaxPersonnel *int `json:"max_personnel,omitempty"`
}

const DefaultValidHours = 24 * 365

// Validity returns the configured window, or fallback when ValidHours is
// unset.
func (c *CredentialConfig) Validity(fallback time.Duration) time.Duration {
	if c.ValidHours > 0 {
		return time.Duration(c.ValidHours) * time.Hour
	}
	return fallback
}
