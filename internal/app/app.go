package app

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/aryan0dhankhar/teamspace/internal/repository"
	"github.com/aryan0dhankhar/teamspace/internal/security"
	"github.com/aryan0dhankhar/teamspace/internal/security/auth"
	"github.com/aryan0dhankhar/teamspace/internal/service"
	"github.com/aryan0dhankhar/teamspace/pkg/config"
	"github.com/aryan0dhankhar/teamspace/pkg/database"
)

// Services is the assembled domain layer shared by the server and the CLI.
type Services struct {
	Repos   service.Repositories
	Store   *repository.Store
	Teams   *service.MembershipService
	Dialogs *service.DialogService
	Auth    *service.AuthService
	Tokens  *auth.TokenManager
}

// OpenDatabase connects to Postgres using the loaded configuration.
func OpenDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*database.ConnectionPool, error) {
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		URL:          cfg.Database.URL,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Name,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return pool, nil
}

// NewRepositories builds the GORM-backed repositories over db.
func NewRepositories(db *gorm.DB, logger *slog.Logger) service.Repositories {
	return service.Repositories{
		Users:          repository.NewPostgresUserRepository(db, logger),
		Tenants:        repository.NewPostgresTenantRepository(db, logger),
		Members:        repository.NewPostgresMembershipRepository(db, logger),
		Dialogs:        repository.NewPostgresDialogRepository(db, logger),
		Knowledgebases: repository.NewPostgresKnowledgebaseRepository(db),
		Catalog:        repository.NewPostgresLLMRepository(db),
		TenantLLMs:     repository.NewPostgresTenantLLMRepository(db),
	}
}

// NewServices wires repositories and services on top of db.
func NewServices(db *gorm.DB, cfg *config.Config, logger *slog.Logger) *Services {
	repos := NewRepositories(db, logger)
	store := repository.NewStore(db, logger)
	authz := security.NewAuthorizationService(logger)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	teams := service.NewMembershipService(repos, store, authz, cfg.CatalogCacheTTL, logger)
	return &Services{
		Repos:   repos,
		Store:   store,
		Teams:   teams,
		Dialogs: service.NewDialogService(repos, teams, logger),
		Auth:    service.NewAuthService(repos.Users, tokens, logger),
		Tokens:  tokens,
	}
}

// TeamDefaults maps the configured defaults onto the service type.
func TeamDefaults(d config.TeamDefaults) service.TeamDefaults {
	return service.TeamDefaults{
		ChatModel:       d.ChatModel,
		EmbeddingModel:  d.EmbeddingModel,
		ASRModel:        d.ASRModel,
		Image2TextModel: d.Image2TextModel,
		RerankModel:     d.RerankModel,
		Parsers:         d.Parsers,
		LLMFactory:      d.LLMFactory,
		APIKey:          d.APIKey,
		BaseURL:         d.BaseURL,
	}
}
