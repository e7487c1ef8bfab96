package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rlagosf/rafc-go-backend/internal/domain"
	"github.com/rlagosf/rafc-go-backend/internal/observability"
)

var (
	ErrSigningTokenNotFound    = errors.New("signing token not found")
	ErrSigningTokenAlreadyUsed = errors.New("signing token already used")
	ErrDuplicateTokenHash      = errors.New("signing token hash already exists")
)

// SigningTokenRepository persists signing-token records. The ForUpdate and
// MarkUsed variants take the caller's transaction handle; they are only
// meaningful inside one.
type SigningTokenRepository interface {
	Create(token *domain.SigningToken) error
	FindByHash(hash string) (*domain.SigningToken, error)
	FindByHashForUpdate(tx *gorm.DB, hash string) (*domain.SigningToken, error)
	MarkUsed(tx *gorm.DB, tokenID uint, usedAt time.Time, usedByIP string) error
}

type GormSigningTokenRepository struct{ db *gorm.DB }

func NewSigningTokenRepository(db *gorm.DB) SigningTokenRepository {
	return &GormSigningTokenRepository{db: db}
}

func (r *GormSigningTokenRepository) Create(token *domain.SigningToken) error {
	if err := r.db.Create(token).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.RecordRepositoryOperation(context.Background(), "signing_token", "create", "duplicate")
			return ErrDuplicateTokenHash
		}
		observability.RecordRepositoryOperation(context.Background(), "signing_token", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "signing_token", "create", "success")
	return nil
}

func (r *GormSigningTokenRepository) FindByHash(hash string) (*domain.SigningToken, error) {
	var token domain.SigningToken
	err := r.db.Where("token_hash = ?", hash).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "signing_token", "find_by_hash", "not_found")
			return nil, ErrSigningTokenNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "signing_token", "find_by_hash", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "signing_token", "find_by_hash", "success")
	return &token, nil
}

// FindByHashForUpdate locks the token row for the remainder of the enclosing
// transaction. Concurrent consumers of the same token serialize here. SQLite
// has no FOR UPDATE; its writers already serialize and the guarded MarkUsed
// update still picks a single winner.
func (r *GormSigningTokenRepository) FindByHashForUpdate(tx *gorm.DB, hash string) (*domain.SigningToken, error) {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var token domain.SigningToken
	err := q.Where("token_hash = ?", hash).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "signing_token", "lock_by_hash", "not_found")
			return nil, ErrSigningTokenNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "signing_token", "lock_by_hash", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "signing_token", "lock_by_hash", "success")
	return &token, nil
}

// MarkUsed flips used_at exactly once. The guard on used_at IS NULL makes the
// write safe even if a caller ever reaches it without the row lock.
func (r *GormSigningTokenRepository) MarkUsed(tx *gorm.DB, tokenID uint, usedAt time.Time, usedByIP string) error {
	res := tx.Model(&domain.SigningToken{}).
		Where("id = ? AND used_at IS NULL", tokenID).
		Updates(map[string]any{
			"used_at":    usedAt,
			"used_by_ip": usedByIP,
		})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "signing_token", "mark_used", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "signing_token", "mark_used", "already_used")
		return ErrSigningTokenAlreadyUsed
	}
	observability.RecordRepositoryOperation(context.Background(), "signing_token", "mark_used", "success")
	return nil
}
