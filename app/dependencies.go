package app

import (
	"context"
	"fmt"

	"github.com/loomhq/tenantgate/authn"
	"github.com/loomhq/tenantgate/config"
	"github.com/loomhq/tenantgate/middleware"
	"github.com/loomhq/tenantgate/repositories"
	"github.com/loomhq/tenantgate/repositories/postgres"
	"github.com/loomhq/tenantgate/tenant"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	Memberships   repositories.MembershipRepository
	Users         repositories.UserRepository
	Organizations repositories.OrganizationRepository
	TxManager     repositories.TransactionManager

	// Auth pipeline. The JWKS cache is one explicit instance per
	// process, injected into the verifier; nothing depends on ambient
	// package state.
	JWKSCache        *authn.JWKSCache
	Verifier         authn.Verifier
	AuthMiddleware   *middleware.AuthMiddleware
	TenantMiddleware *middleware.TenantMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initAuth(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize auth pipeline: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection pool
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	d.DB = db
	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	d.Memberships = postgres.NewMembershipRepository(d.DB, d.Logger)
	d.Users = postgres.NewUserRepository(d.DB, d.Logger)
	d.Organizations = postgres.NewOrganizationRepository(d.DB, d.Logger)
	d.TxManager = postgres.NewTransactionManager(d.DB, d.Logger)
	d.Logger.Info("repositories initialized")
}

// initAuth builds the verification strategy and the two pipeline
// stages. Strategy selection happens once here, from configuration.
func (d *Dependencies) initAuth(cfg *config.Config) error {
	d.JWKSCache = authn.NewJWKSCache()

	verifier, err := authn.NewVerifier(authn.Config{
		Provider:     cfg.Auth.Provider,
		BaseURL:      cfg.Auth.BaseURL,
		Issuer:       cfg.Auth.Issuer,
		Algorithm:    cfg.Auth.Algorithm,
		PublicKeyPEM: cfg.Auth.PublicKeyPEM,
	}, d.JWKSCache, d.Logger)
	if err != nil {
		return err
	}
	d.Verifier = verifier

	disabled := cfg.Auth.Provider == authn.ProviderNone
	if disabled {
		d.Logger.Warn("auth provider not configured, authentication disabled")
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(verifier, disabled, cfg.Auth.TrustHeaders, d.Logger)

	resolver := tenant.NewResolver(d.Logger)
	validator := tenant.NewMembershipValidator(d.Memberships, d.Logger)
	d.TenantMiddleware = middleware.NewTenantMiddleware(
		d.AuthMiddleware,
		resolver,
		validator,
		cfg.Auth.EnforceTenant,
		d.Logger,
	)

	d.Logger.Info("auth pipeline initialized",
		zap.String("provider", cfg.Auth.Provider),
		zap.Bool("tenant_enforcement", cfg.Auth.EnforceTenant))
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
