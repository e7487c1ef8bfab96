package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rlagosf/rafc-go-backend/internal/app"
	"github.com/rlagosf/rafc-go-backend/internal/config"
	"github.com/rlagosf/rafc-go-backend/internal/database"
	"github.com/rlagosf/rafc-go-backend/internal/domain"
	"github.com/rlagosf/rafc-go-backend/internal/http/handler"
	"github.com/rlagosf/rafc-go-backend/internal/http/middleware"
	"github.com/rlagosf/rafc-go-backend/internal/http/router"
	"github.com/rlagosf/rafc-go-backend/internal/observability"
	"github.com/rlagosf/rafc-go-backend/internal/repository"
	"github.com/rlagosf/rafc-go-backend/internal/security"
	"github.com/rlagosf/rafc-go-backend/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	observability.NewLogger,
	provideObservabilityRuntime,
)

var RuntimeInfraSet = wire.NewSet(
	provideOpenDB,
	provideRedisClient,
)

var RepositorySet = wire.NewSet(
	repository.NewSigningTokenRepository,
	repository.NewSignedContractRepository,
	repository.NewMemberRepository,
)

var SecuritySet = wire.NewSet(provideJWTManager)

var ServiceSet = wire.NewSet(
	provideContractArchive,
	provideNotifier,
	provideSigningService,
)

var HTTPSet = wire.NewSet(
	handler.NewSigningHandler,
	middleware.NewAuthenticator,
	provideLimiter,
	provideRouterDependencies,
	router.New,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

func provideObservabilityRuntime(cfg *config.Config, logger *slog.Logger) (*observability.Runtime, error) {
	return observability.InitRuntime(context.Background(), cfg, logger)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRedisClient(cfg *config.Config) redis.UniversalClient {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret)
}

func provideContractArchive(cfg *config.Config, logger *slog.Logger) (service.ContractArchive, error) {
	if !cfg.ArchiveEnabled {
		logger.Info("contract archive disabled, signed documents stay database-only")
		return nil, nil
	}
	return service.NewMinIOContractArchive(
		cfg.ArchiveEndpoint,
		cfg.ArchiveAccessKey,
		cfg.ArchiveSecretKey,
		cfg.ArchiveBucket,
		cfg.ArchiveUseSSL,
	)
}

func provideNotifier(logger *slog.Logger) service.SigningLinkNotifier {
	return service.NewDevSigningLinkNotifier(logger)
}

func provideSigningService(
	db *gorm.DB,
	tokens repository.SigningTokenRepository,
	contracts repository.SignedContractRepository,
	members repository.MemberRepository,
	archive service.ContractArchive,
	notifier service.SigningLinkNotifier,
	cfg *config.Config,
	logger *slog.Logger,
) service.SigningServiceInterface {
	return service.NewSigningService(db, tokens, contracts, members, archive, notifier, cfg, logger)
}

func provideLimiter(cfg *config.Config, client redis.UniversalClient) middleware.Limiter {
	if client == nil {
		return middleware.NewLocalFixedWindowLimiter()
	}
	return middleware.NewRedisFixedWindowLimiter(client, "rafc:rl")
}

func provideRouterDependencies(
	signingHandler *handler.SigningHandler,
	authenticator *middleware.Authenticator,
	limiter middleware.Limiter,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		SigningHandler:     signingHandler,
		Authenticator:      authenticator,
		PublicLimiter:      limiter,
		PublicRateLimitRPM: cfg.PublicRateLimitPerMin,
		RateLimitFailMode:  middleware.FailureMode(cfg.RateLimitFailMode),
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// MigrationRunner applies the schema without starting the HTTP server.
type MigrationRunner struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewMigrationRunner(db *gorm.DB, logger *slog.Logger) *MigrationRunner {
	return &MigrationRunner{db: db, logger: logger}
}

func (r *MigrationRunner) Run() error {
	if err := database.Migrate(r.db); err != nil {
		return err
	}
	r.logger.Info("database schema migrated")
	return nil
}

// Seed upserts development fixtures. Existing rows win.
func (r *MigrationRunner) Seed(players []domain.Player, guardians []domain.Guardian) error {
	for i := range players {
		if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&players[i]).Error; err != nil {
			return err
		}
	}
	for i := range guardians {
		if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&guardians[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
