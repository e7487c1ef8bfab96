package database

import (
	"gorm.io/gorm"

	"github.com/rlagosf/rafc-go-backend/internal/domain"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Player{},
		&domain.Guardian{},
		&domain.SigningToken{},
		&domain.SignedContract{},
	)
}
