package domain

import "time"

// SignedContract is the finalized document produced by consuming a signing
// token. Rows are append-only; the RUTs are copied from the token at the
// moment of signing.
type SignedContract struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PlayerRut   int64     `gorm:"index;not null" json:"player_rut"`
	GuardianRut int64     `gorm:"index;not null" json:"guardian_rut"`
	GeneratedAt time.Time `gorm:"index;not null" json:"generated_at"`
	Document    []byte    `gorm:"type:bytes;not null" json:"-"`
	ArchiveKey  string    `gorm:"size:256" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
