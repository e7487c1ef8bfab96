package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rlagosf/rafc-go-backend/internal/config"
	"github.com/rlagosf/rafc-go-backend/internal/domain"
	"github.com/rlagosf/rafc-go-backend/internal/repository"
	"github.com/rlagosf/rafc-go-backend/internal/security"
)

func newSigningServiceForTest(t *testing.T) (*SigningService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.Player{},
		&domain.Guardian{},
		&domain.SigningToken{},
		&domain.SignedContract{},
	); err != nil {
		t.Fatalf("migrate db: %v", err)
	}

	if err := db.Create(&domain.Player{Rut: 12345678, FirstName: "Benjamín", LastName: "Soto"}).Error; err != nil {
		t.Fatalf("seed player: %v", err)
	}
	if err := db.Create(&domain.Guardian{Rut: 98765432, FirstName: "Carolina", LastName: "Muñoz", Email: "carolina@example.cl"}).Error; err != nil {
		t.Fatalf("seed guardian: %v", err)
	}

	cfg := &config.Config{
		TokenPepper:      "test-pepper-0123456789",
		SigningTokenTTL:  72 * time.Hour,
		SigningTokenMax:  14 * 24 * time.Hour,
		MaxDocumentBytes: 12 << 20,
		ConsumeLockWait:  5 * time.Second,
		PublicBaseURL:    "http://localhost:8080",
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewSigningService(
		db,
		repository.NewSigningTokenRepository(db),
		repository.NewSignedContractRepository(db),
		repository.NewMemberRepository(db),
		nil,
		NewDevSigningLinkNotifier(log),
		cfg,
		log,
	)
	return svc, db
}

func encodeDoc(payload string) string {
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

func TestIssueTokenReturnsRawTokenOnce(t *testing.T) {
	svc, db := newSigningServiceForTest(t)
	ctx := context.Background()

	issued, err := svc.IssueToken(ctx, IssueTokenInput{PlayerRut: 12345678, GuardianRut: 98765432, TTL: 72 * time.Hour})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if len(issued.RawToken) < 43 {
		t.Fatalf("expected >=43 char raw token, got %d", len(issued.RawToken))
	}
	if issued.NotifyEmail != "carolina@example.cl" {
		t.Fatalf("expected notify email fallback to guardian email, got %q", issued.NotifyEmail)
	}
	if until := time.Until(issued.ExpiresAt); until < 71*time.Hour || until > 73*time.Hour {
		t.Fatalf("expected expiry ~72h out, got %v", until)
	}

	var stored domain.SigningToken
	if err := db.First(&stored).Error; err != nil {
		t.Fatalf("load stored token: %v", err)
	}
	if stored.TokenHash == issued.RawToken {
		t.Fatal("raw token must never be persisted")
	}
	if stored.TokenHash != security.HashSigningToken(issued.RawToken, "test-pepper-0123456789") {
		t.Fatal("stored hash must match the hash of the issued raw token")
	}
	if stored.UsedAt != nil {
		t.Fatal("fresh token must be unconsumed")
	}
}

func TestIssueTokenValidatesInputs(t *testing.T) {
	svc, _ := newSigningServiceForTest(t)
	ctx := context.Background()

	if _, err := svc.IssueToken(ctx, IssueTokenInput{PlayerRut: 0, GuardianRut: 98765432}); !errors.Is(err, ErrInvalidRut) {
		t.Fatalf("expected ErrInvalidRut for zero player rut, got %v", err)
	}
	if _, err := svc.IssueToken(ctx, IssueTokenInput{PlayerRut: 12345678, GuardianRut: -5}); !errors.Is(err, ErrInvalidRut) {
		t.Fatalf("expected ErrInvalidRut for negative guardian rut, got %v", err)
	}
	if _, err := svc.IssueToken(ctx, IssueTokenInput{PlayerRut: 12345678, GuardianRut: 98765432, TTL: 15 * 24 * time.Hour}); !errors.Is(err, ErrTTLOutOfRange) {
		t.Fatalf("expected ErrTTLOutOfRange beyond max ttl, got %v", err)
	}
	if _, err := svc.IssueToken(ctx, IssueTokenInput{PlayerRut: 99999999, GuardianRut: 98765432}); !errors.Is(err, repository.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	if _, err := svc.IssueToken(ctx, IssueTokenInput{PlayerRut: 12345678, GuardianRut: 11111111}); !errors.Is(err, repository.ErrGuardianNotFound) {
		t.Fatalf("expected ErrGuardianNotFound, got %v", err)
	}
}

func TestValidateTokenLifecycle(t *testing.T) {
	svc, db := newSigningServiceForTest(t)
	ctx := context.Background()

	issued, err := svc.IssueToken(ctx, IssueTokenInput{PlayerRut: 12345678, GuardianRut: 98765432})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	meta, err := svc.ValidateToken(ctx, issued.RawToken)
	if err != nil {
		t.Fatalf("validate fresh token: %v", err)
	}
	if meta.Status != domain.TokenStatusValid {
		t.Fatalf("expected valid status, got %q", meta.Status)
	}
	if meta.PlayerRut != 12345678 || meta.GuardianRut != 98765432 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	unknown, _ := security.NewRawSigningToken()
	if _, err := svc.ValidateToken(ctx, unknown); !errors.Is(err, repository.ErrSigningTokenNotFound) {
		t.Fatalf("expected not found for unknown token, got %v", err)
	}

	if _, err := svc.ValidateToken(ctx, "short"); !errors.Is(err, security.ErrInvalidTokenFormat) {
		t.Fatalf("expected format error before lookup, got %v", err)
	}

	// Force expiry and re-validate.
	if err := db.Model(&domain.SigningToken{}).
		Where("player_rut = ?", 12345678).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("force expiry: %v", err)
	}
	meta, err = svc.ValidateToken(ctx, issued.RawToken)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if meta == nil || meta.Status != domain.TokenStatusExpired {
		t.Fatalf("expected expired metadata, got %+v", meta)
	}
}

func TestConsumeAndSignHappyPath(t *testing.T) {
	svc, db := newSigningServiceForTest(t)
	ctx := context.Background()

	issued, err := svc.IssueToken(ctx, IssueTokenInput{PlayerRut: 12345678, GuardianRut: 98765432})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	contract, err := svc.ConsumeAndSign(ctx, ConsumeInput{
		RawToken:       issued.RawToken,
		DocumentBase64: "data:application/pdf;base64," + encodeDoc("%PDF-1.4 contrato firmado"),
		TermsAccepted:  true,
		RequestIP:      "200.1.2.3",
	})
	if err != nil {
		t.Fatalf("consume and sign: %v", err)
	}
	if contract.ID == 0 {
		t.Fatal("expected persisted contract id")
	}
	if contract.PlayerRut != 12345678 || contract.GuardianRut != 98765432 {
		t.Fatalf("contract must copy token ruts, got %+v", contract)
	}
	if string(contract.Document) != "%PDF-1.4 contrato firmado" {
		t.Fatal("decoded document bytes mismatch")
	}

	var token domain.SigningToken
	if err := db.First(&token).Error; err != nil {
		t.Fatalf("load token: %v", err)
	}
	if token.UsedAt == nil {
		t.Fatal("token must be marked used after consumption")
	}
	if token.UsedByIP != "200.1.2.3" {
		t.Fatalf("expected consumption ip recorded, got %q", token.UsedByIP)
	}

	if _, err := svc.ValidateToken(ctx, issued.RawToken); !errors.Is(err, ErrTokenAlreadyUsed) {
		t.Fatalf("expected ErrTokenAlreadyUsed after consumption, got %v", err)
	}
}

func TestConsumeAndSignSequentialDoubleSpend(t *testing.T) {
	svc, db := newSigningServiceForTest(t)
	ctx := context.Background()

	issued, err := svc.IssueToken(ctx, IssueTokenInput{PlayerRut: 12345678, GuardianRut: 98765432})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	input := ConsumeInput{RawToken: issued.RawToken, DocumentBase64: encodeDoc("doc"), TermsAccepted: true}

	if _, err := svc.ConsumeAndSign(ctx, input); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if _, err := svc.ConsumeAndSign(ctx, input); !errors.Is(err, ErrTokenAlreadyUsed) {
		t.Fatalf("expected ErrTokenAlreadyUsed on second consume, got %v", err)
	}

	var contracts int64
	if err := db.Model(&domain.SignedContract{}).Count(&contracts).Error; err != nil {
		t.Fatalf("count contracts: %v", err)
	}
	if contracts != 1 {
		t.Fatalf("expected exactly one contract, got %d", contracts)
	}
}

func TestConsumeAndSignConcurrentSingleWinner(t *testing.T) {
	svc, db := newSigningServiceForTest(t)
	ctx := context.Background()

	issued, err := svc.IssueToken(ctx, IssueTokenInput{PlayerRut: 12345678, GuardianRut: 98765432})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	input := ConsumeInput{RawToken: issued.RawToken, DocumentBase64: encodeDoc("doc"), TermsAccepted: true}

	var wg sync.WaitGroup
	wg.Add(2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		idx := i
		go func() {
			defer wg.Done()
			_, errs[idx] = svc.ConsumeAndSign(ctx, input)
		}()
	}
	wg.Wait()

	success, alreadyUsed := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrTokenAlreadyUsed):
			alreadyUsed++
		default:
			t.Fatalf("unexpected consume error: %v", err)
		}
	}
	if success != 1 || alreadyUsed != 1 {
		t.Fatalf("expected one winner and one already-used, got success=%d alreadyUsed=%d", success, alreadyUsed)
	}

	var contracts int64
	if err := db.Model(&domain.SignedContract{}).Count(&contracts).Error; err != nil {
		t.Fatalf("count contracts: %v", err)
	}
	if contracts != 1 {
		t.Fatalf("expected exactly one contract after concurrent consumes, got %d", contracts)
	}
}

func TestConsumeAndSignExpiredToken(t *testing.T) {
	svc, db := newSigningServiceForTest(t)
	ctx := context.Background()

	issued, err := svc.IssueToken(ctx, IssueTokenInput{PlayerRut: 12345678, GuardianRut: 98765432})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if err := db.Model(&domain.SigningToken{}).
		Where("player_rut = ?", 12345678).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("force expiry: %v", err)
	}

	_, err = svc.ConsumeAndSign(ctx, ConsumeInput{RawToken: issued.RawToken, DocumentBase64: encodeDoc("doc"), TermsAccepted: true})
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	var token domain.SigningToken
	if err := db.First(&token).Error; err != nil {
		t.Fatalf("load token: %v", err)
	}
	if token.UsedAt != nil {
		t.Fatal("expired consume attempt must not mark the token used")
	}
}

func TestConsumeAndSignPreconditionsLeaveTokenUnspent(t *testing.T) {
	svc, db := newSigningServiceForTest(t)
	ctx := context.Background()

	issued, err := svc.IssueToken(ctx, IssueTokenInput{PlayerRut: 12345678, GuardianRut: 98765432})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	// Terms not accepted.
	_, err = svc.ConsumeAndSign(ctx, ConsumeInput{RawToken: issued.RawToken, DocumentBase64: encodeDoc("doc")})
	if !errors.Is(err, ErrTermsNotAccepted) {
		t.Fatalf("expected ErrTermsNotAccepted, got %v", err)
	}

	// Oversized document: an encoded payload well past the 12MiB limit.
	oversized := strings.Repeat("A", 20<<20)
	_, err = svc.ConsumeAndSign(ctx, ConsumeInput{RawToken: issued.RawToken, DocumentBase64: oversized, TermsAccepted: true})
	if !errors.Is(err, ErrDocumentTooLarge) {
		t.Fatalf("expected ErrDocumentTooLarge, got %v", err)
	}

	var token domain.SigningToken
	if err := db.First(&token).Error; err != nil {
		t.Fatalf("load token: %v", err)
	}
	if token.UsedAt != nil {
		t.Fatal("failed preconditions must leave the token unconsumed")
	}

	// The same token still works with a valid payload afterwards.
	if _, err := svc.ConsumeAndSign(ctx, ConsumeInput{RawToken: issued.RawToken, DocumentBase64: encodeDoc("doc"), TermsAccepted: true}); err != nil {
		t.Fatalf("follow-up consume should succeed: %v", err)
	}
}

func TestConsumeAndSignUnknownToken(t *testing.T) {
	svc, _ := newSigningServiceForTest(t)
	ctx := context.Background()

	unknown, _ := security.NewRawSigningToken()
	_, err := svc.ConsumeAndSign(ctx, ConsumeInput{RawToken: unknown, DocumentBase64: encodeDoc("doc"), TermsAccepted: true})
	if !errors.Is(err, repository.ErrSigningTokenNotFound) {
		t.Fatalf("expected ErrSigningTokenNotFound, got %v", err)
	}
}
