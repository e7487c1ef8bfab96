package database

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rlagosf/rafc-go-backend/internal/config"
	"github.com/rlagosf/rafc-go-backend/internal/domain"
)

func TestMigrateCreatesSigningTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, model := range []any{
		&domain.Player{},
		&domain.Guardian{},
		&domain.SigningToken{},
		&domain.SignedContract{},
	} {
		if !db.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T", model)
		}
	}
}

func TestOpenInvalidDSN(t *testing.T) {
	cfg := &config.Config{DatabaseURL: "%"}
	if _, err := Open(cfg); err == nil {
		t.Fatal("expected postgres open error for invalid DSN")
	}
}
