package domain

import "time"

// TokenStatus is derived from stored timestamps, never persisted.
type TokenStatus string

const (
	TokenStatusValid   TokenStatus = "valid"
	TokenStatusExpired TokenStatus = "expired"
	TokenStatusUsed    TokenStatus = "used"
)

// SigningToken authorizes a guardian to sign a player's contract exactly once.
// Only the hash of the raw token is ever stored.
type SigningToken struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TokenHash   string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	PlayerRut   int64      `gorm:"index;not null" json:"player_rut"`
	GuardianRut int64      `gorm:"index;not null" json:"guardian_rut"`
	NotifyEmail string     `gorm:"size:256" json:"notify_email,omitempty"`
	ExpiresAt   time.Time  `gorm:"index;not null" json:"expires_at"`
	UsedAt      *time.Time `gorm:"index" json:"used_at,omitempty"`
	CreatedByIP string     `gorm:"size:64" json:"-"`
	UsedByIP    string     `gorm:"size:64" json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Status derives the token's effective state from its timestamps. A used
// token reports used even after its expiry passes.
func (t *SigningToken) Status(now time.Time) TokenStatus {
	if t.UsedAt != nil {
		return TokenStatusUsed
	}
	if !now.Before(t.ExpiresAt) {
		return TokenStatusExpired
	}
	return TokenStatusValid
}
