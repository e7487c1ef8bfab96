package domain

import "time"

// Player is a club member a contract can be issued for. Only the fields the
// signing subsystem needs are modeled here.
type Player struct {
	Rut       int64     `gorm:"primaryKey;autoIncrement:false" json:"rut"`
	FirstName string    `gorm:"size:128" json:"first_name"`
	LastName  string    `gorm:"size:128" json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Guardian is the adult who signs on a player's behalf.
type Guardian struct {
	Rut       int64     `gorm:"primaryKey;autoIncrement:false" json:"rut"`
	FirstName string    `gorm:"size:128" json:"first_name"`
	LastName  string    `gorm:"size:128" json:"last_name"`
	Email     string    `gorm:"size:256" json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
