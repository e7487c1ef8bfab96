package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/rlagosf/rafc-go-backend/internal/config"
	"github.com/rlagosf/rafc-go-backend/internal/domain"
	"github.com/rlagosf/rafc-go-backend/internal/observability"
	"github.com/rlagosf/rafc-go-backend/internal/repository"
	"github.com/rlagosf/rafc-go-backend/internal/security"
)

var (
	ErrInvalidRut       = errors.New("rut must be a positive identifier")
	ErrTTLOutOfRange    = errors.New("token ttl out of range")
	ErrTokenExpired     = errors.New("signing token expired")
	ErrTokenAlreadyUsed = errors.New("signing token already used")
	ErrTermsNotAccepted = errors.New("terms must be accepted before signing")
	ErrTokenGeneration  = errors.New("could not generate a unique signing token")
	ErrConsumeBusy      = errors.New("signing token is being consumed, retry")
)

const maxHashCollisionRetries = 3

type IssueTokenInput struct {
	PlayerRut   int64
	GuardianRut int64
	NotifyEmail string
	TTL         time.Duration
	RequestIP   string
}

// IssuedToken carries the raw secret back to the caller. This is the only
// place the raw value ever appears; afterwards only its hash exists.
type IssuedToken struct {
	RawToken    string
	ExpiresAt   time.Time
	PlayerRut   int64
	GuardianRut int64
	NotifyEmail string
}

// TokenMetadata is the non-secret view a guardian sees before signing.
type TokenMetadata struct {
	Status      domain.TokenStatus
	PlayerRut   int64
	GuardianRut int64
	NotifyEmail string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

type ConsumeInput struct {
	RawToken       string
	DocumentBase64 string
	TermsAccepted  bool
	RequestIP      string
}

type SigningServiceInterface interface {
	IssueToken(ctx context.Context, input IssueTokenInput) (*IssuedToken, error)
	ValidateToken(ctx context.Context, rawToken string) (*TokenMetadata, error)
	ConsumeAndSign(ctx context.Context, input ConsumeInput) (*domain.SignedContract, error)
}

type SigningService struct {
	db        *gorm.DB
	tokens    repository.SigningTokenRepository
	contracts repository.SignedContractRepository
	members   repository.MemberRepository
	archive   ContractArchive
	notifier  SigningLinkNotifier
	cfg       *config.Config
	logger    *slog.Logger
}

func NewSigningService(
	db *gorm.DB,
	tokens repository.SigningTokenRepository,
	contracts repository.SignedContractRepository,
	members repository.MemberRepository,
	archive ContractArchive,
	notifier SigningLinkNotifier,
	cfg *config.Config,
	logger *slog.Logger,
) *SigningService {
	return &SigningService{
		db:        db,
		tokens:    tokens,
		contracts: contracts,
		members:   members,
		archive:   archive,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
	}
}

var _ SigningServiceInterface = (*SigningService)(nil)

// IssueToken creates a single-use signing token for a player/guardian pair
// and returns the raw value exactly once.
func (s *SigningService) IssueToken(ctx context.Context, input IssueTokenInput) (*IssuedToken, error) {
	if input.PlayerRut <= 0 || input.GuardianRut <= 0 {
		observability.RecordSigningEvent(ctx, "issue", "invalid_rut")
		return nil, ErrInvalidRut
	}

	ttl := input.TTL
	if ttl == 0 {
		ttl = s.cfg.SigningTokenTTL
	}
	if ttl < 0 || ttl > s.cfg.SigningTokenMax {
		observability.RecordSigningEvent(ctx, "issue", "ttl_out_of_range")
		return nil, ErrTTLOutOfRange
	}

	exists, err := s.members.PlayerExists(input.PlayerRut)
	if err != nil {
		return nil, fmt.Errorf("check player rut: %w", err)
	}
	if !exists {
		observability.RecordSigningEvent(ctx, "issue", "player_not_found")
		return nil, repository.ErrPlayerNotFound
	}
	guardian, err := s.members.FindGuardianByRut(input.GuardianRut)
	if err != nil {
		if errors.Is(err, repository.ErrGuardianNotFound) {
			observability.RecordSigningEvent(ctx, "issue", "guardian_not_found")
		}
		return nil, err
	}

	notifyEmail := input.NotifyEmail
	if notifyEmail == "" {
		notifyEmail = guardian.Email
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	var raw string
	for attempt := 0; attempt < maxHashCollisionRetries; attempt++ {
		raw, err = security.NewRawSigningToken()
		if err != nil {
			return nil, fmt.Errorf("draw signing token: %w", err)
		}
		token := &domain.SigningToken{
			TokenHash:   security.HashSigningToken(raw, s.cfg.TokenPepper),
			PlayerRut:   input.PlayerRut,
			GuardianRut: input.GuardianRut,
			NotifyEmail: notifyEmail,
			ExpiresAt:   expiresAt,
			CreatedByIP: input.RequestIP,
		}
		err = s.tokens.Create(token)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateTokenHash) {
			return nil, fmt.Errorf("store signing token: %w", err)
		}
		s.logger.WarnContext(ctx, "signing token hash collision, redrawing", "attempt", attempt+1)
	}
	if err != nil {
		observability.RecordSigningEvent(ctx, "issue", "generation_exhausted")
		return nil, ErrTokenGeneration
	}

	issued := &IssuedToken{
		RawToken:    raw,
		ExpiresAt:   expiresAt,
		PlayerRut:   input.PlayerRut,
		GuardianRut: input.GuardianRut,
		NotifyEmail: notifyEmail,
	}

	if s.notifier != nil && notifyEmail != "" {
		if err := s.notifier.SendSigningLink(ctx, SigningLinkNotification{
			GuardianRut: input.GuardianRut,
			Email:       notifyEmail,
			Token:       raw,
			ExpiresAt:   expiresAt,
			SigningURL:  fmt.Sprintf("%s/api/v1/firma-tokens/%s", s.cfg.PublicBaseURL, raw),
		}); err != nil {
			// Delivery is best effort; the staff caller still holds the raw token.
			s.logger.ErrorContext(ctx, "signing link notification failed", "error", err)
		}
	}

	observability.RecordSigningEvent(ctx, "issue", "success")
	s.logger.InfoContext(ctx, "signing token issued",
		"player_rut", input.PlayerRut,
		"guardian_rut", input.GuardianRut,
		"expires_at", expiresAt,
	)
	return issued, nil
}

// ValidateToken reports the current state of a presented token without
// mutating anything. A valid answer is advisory only; the consume path
// re-checks under lock.
func (s *SigningService) ValidateToken(ctx context.Context, rawToken string) (*TokenMetadata, error) {
	if err := security.ValidateRawTokenFormat(rawToken); err != nil {
		observability.RecordSigningEvent(ctx, "validate", "malformed")
		return nil, err
	}

	token, err := s.tokens.FindByHash(security.HashSigningToken(rawToken, s.cfg.TokenPepper))
	if err != nil {
		if errors.Is(err, repository.ErrSigningTokenNotFound) {
			observability.RecordSigningEvent(ctx, "validate", "not_found")
		}
		return nil, err
	}

	meta := &TokenMetadata{
		Status:      token.Status(time.Now().UTC()),
		PlayerRut:   token.PlayerRut,
		GuardianRut: token.GuardianRut,
		NotifyEmail: token.NotifyEmail,
		ExpiresAt:   token.ExpiresAt,
		CreatedAt:   token.CreatedAt,
	}
	switch meta.Status {
	case domain.TokenStatusUsed:
		observability.RecordSigningEvent(ctx, "validate", "already_used")
		return meta, ErrTokenAlreadyUsed
	case domain.TokenStatusExpired:
		observability.RecordSigningEvent(ctx, "validate", "expired")
		return meta, ErrTokenExpired
	}
	observability.RecordSigningEvent(ctx, "validate", "valid")
	return meta, nil
}

// ConsumeAndSign stores the signed contract and spends the token in one
// transaction. Of N concurrent calls with the same token exactly one returns
// a contract; the rest observe the terminal state.
func (s *SigningService) ConsumeAndSign(ctx context.Context, input ConsumeInput) (*domain.SignedContract, error) {
	if !input.TermsAccepted {
		observability.RecordSigningEvent(ctx, "consume", "terms_not_accepted")
		return nil, ErrTermsNotAccepted
	}
	if err := security.ValidateRawTokenFormat(input.RawToken); err != nil {
		observability.RecordSigningEvent(ctx, "consume", "malformed")
		return nil, err
	}
	doc, err := DecodeContractDocument(input.DocumentBase64, s.cfg.MaxDocumentBytes)
	if err != nil {
		observability.RecordSigningEvent(ctx, "consume", "bad_document")
		return nil, err
	}

	hash := security.HashSigningToken(input.RawToken, s.cfg.TokenPepper)

	// The row lock must not be waited on forever; a stuck competing
	// transaction surfaces as a retryable busy error instead.
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.ConsumeLockWait)
	defer cancel()

	var contract *domain.SignedContract
	err = s.db.WithContext(lockCtx).Transaction(func(tx *gorm.DB) error {
		token, err := s.tokens.FindByHashForUpdate(tx, hash)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		switch token.Status(now) {
		case domain.TokenStatusUsed:
			return ErrTokenAlreadyUsed
		case domain.TokenStatusExpired:
			return ErrTokenExpired
		}

		contract = &domain.SignedContract{
			PlayerRut:   token.PlayerRut,
			GuardianRut: token.GuardianRut,
			GeneratedAt: now,
			Document:    doc,
		}
		if err := s.contracts.Create(tx, contract); err != nil {
			return err
		}
		return s.tokens.MarkUsed(tx, token.ID, now, input.RequestIP)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(lockCtx.Err(), context.DeadlineExceeded) {
			observability.RecordSigningEvent(ctx, "consume", "busy")
			return nil, ErrConsumeBusy
		}
		switch {
		case errors.Is(err, repository.ErrSigningTokenNotFound):
			observability.RecordSigningEvent(ctx, "consume", "not_found")
		case errors.Is(err, ErrTokenAlreadyUsed), errors.Is(err, repository.ErrSigningTokenAlreadyUsed):
			observability.RecordSigningEvent(ctx, "consume", "already_used")
			return nil, ErrTokenAlreadyUsed
		case errors.Is(err, ErrTokenExpired):
			observability.RecordSigningEvent(ctx, "consume", "expired")
		default:
			observability.RecordSigningEvent(ctx, "consume", "error")
		}
		return nil, err
	}

	s.archiveContract(ctx, contract)

	observability.RecordSigningEvent(ctx, "consume", "success")
	s.logger.InfoContext(ctx, "contract signed",
		"contract_id", contract.ID,
		"player_rut", contract.PlayerRut,
		"guardian_rut", contract.GuardianRut,
	)
	return contract, nil
}

// archiveContract copies the signed document to object storage. The contract
// is already durable; archive failures are logged, never surfaced.
func (s *SigningService) archiveContract(ctx context.Context, contract *domain.SignedContract) {
	if s.archive == nil {
		return
	}
	key, err := s.archive.Store(ctx, contract)
	if err != nil {
		s.logger.ErrorContext(ctx, "contract archive failed", "contract_id", contract.ID, "error", err)
		return
	}
	contract.ArchiveKey = key
	if err := s.db.Model(&domain.SignedContract{}).
		Where("id = ?", contract.ID).
		Update("archive_key", key).Error; err != nil {
		s.logger.ErrorContext(ctx, "archive key persist failed", "contract_id", contract.ID, "error", err)
	}
}
