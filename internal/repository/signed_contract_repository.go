package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rlagosf/rafc-go-backend/internal/domain"
	"github.com/rlagosf/rafc-go-backend/internal/observability"
)

var (
	ErrSignedContractNotFound  = errors.New("signed contract not found")
	ErrReferencedEntityInvalid = errors.New("referenced entity invalid")
)

// SignedContractRepository appends finalized contracts. Create takes the
// consumer's transaction handle so the contract insert and the token flip
// commit together.
type SignedContractRepository interface {
	Create(tx *gorm.DB, contract *domain.SignedContract) error
	FindByID(id uint) (*domain.SignedContract, error)
	CountByRuts(playerRut, guardianRut int64) (int64, error)
}

type GormSignedContractRepository struct{ db *gorm.DB }

func NewSignedContractRepository(db *gorm.DB) SignedContractRepository {
	return &GormSignedContractRepository{db: db}
}

func (r *GormSignedContractRepository) Create(tx *gorm.DB, contract *domain.SignedContract) error {
	if err := tx.Create(contract).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			observability.RecordRepositoryOperation(context.Background(), "signed_contract", "create", "fk_violation")
			return ErrReferencedEntityInvalid
		}
		observability.RecordRepositoryOperation(context.Background(), "signed_contract", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "signed_contract", "create", "success")
	return nil
}

func (r *GormSignedContractRepository) FindByID(id uint) (*domain.SignedContract, error) {
	var contract domain.SignedContract
	if err := r.db.First(&contract, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "signed_contract", "find_by_id", "not_found")
			return nil, ErrSignedContractNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "signed_contract", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "signed_contract", "find_by_id", "success")
	return &contract, nil
}

func (r *GormSignedContractRepository) CountByRuts(playerRut, guardianRut int64) (int64, error) {
	var count int64
	err := r.db.Model(&domain.SignedContract{}).
		Where("player_rut = ? AND guardian_rut = ?", playerRut, guardianRut).
		Count(&count).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "signed_contract", "count_by_ruts", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(context.Background(), "signed_contract", "count_by_ruts", "success")
	return count, nil
}
