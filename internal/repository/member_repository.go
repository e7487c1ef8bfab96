package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rlagosf/rafc-go-backend/internal/domain"
	"github.com/rlagosf/rafc-go-backend/internal/observability"
)

var (
	ErrPlayerNotFound   = errors.New("player not found")
	ErrGuardianNotFound = errors.New("guardian not found")
)

// MemberRepository is the identity collaborator: it confirms that the RUTs a
// token binds actually exist.
type MemberRepository interface {
	PlayerExists(rut int64) (bool, error)
	FindGuardianByRut(rut int64) (*domain.Guardian, error)
}

type GormMemberRepository struct{ db *gorm.DB }

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &GormMemberRepository{db: db}
}

func (r *GormMemberRepository) PlayerExists(rut int64) (bool, error) {
	var count int64
	if err := r.db.Model(&domain.Player{}).Where("rut = ?", rut).Count(&count).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "player", "exists", "error")
		return false, err
	}
	observability.RecordRepositoryOperation(context.Background(), "player", "exists", "success")
	return count > 0, nil
}

func (r *GormMemberRepository) FindGuardianByRut(rut int64) (*domain.Guardian, error) {
	var guardian domain.Guardian
	if err := r.db.Where("rut = ?", rut).First(&guardian).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "guardian", "find_by_rut", "not_found")
			return nil, ErrGuardianNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "guardian", "find_by_rut", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "guardian", "find_by_rut", "success")
	return &guardian, nil
}
