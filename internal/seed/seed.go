// Package seed installs the bootstrap client, admin account and welcome text
// a fresh deployment needs before the UI can sign in.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	authmodels "lokal/internal/auth/models"
	oidcmodels "lokal/internal/oidc/models"
	"lokal/internal/oidc/server"
	"lokal/internal/platform/config"
	"lokal/internal/translation/models"
	"lokal/internal/translation/store"
	dErrors "lokal/pkg/domain-errors"
	"lokal/pkg/platform/sentinel"
	"lokal/pkg/secrets"
)

// WelcomeSid is the resource seeded into an empty store.
const WelcomeSid = "WELCOME_MSG"

var welcomeTranslations = []struct{ langID, text string }{
	{"en-US", "Welcome"},
	{"de-DE", "Willkommen"},
}

type ClientRegistry interface {
	Create(ctx context.Context, client *oidcmodels.Client) error
}

type AccountRegistrar interface {
	Register(ctx context.Context, username, email, password string) (*authmodels.User, error)
}

// Seeder is safe to run on every start; existing rows are left alone.
type Seeder struct {
	cfg       config.SeedConfig
	clients   ClientRegistry
	accounts  AccountRegistrar
	resources store.Store
	logger    *slog.Logger
}

func New(cfg config.SeedConfig, clients ClientRegistry, accounts AccountRegistrar, resources store.Store, logger *slog.Logger) *Seeder {
	return &Seeder{cfg: cfg, clients: clients, accounts: accounts, resources: resources, logger: logger}
}

func (s *Seeder) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	if err := s.seedClient(ctx); err != nil {
		return err
	}
	if err := s.seedAdmin(ctx); err != nil {
		return err
	}
	return s.seedWelcome(ctx)
}

func (s *Seeder) seedClient(ctx context.Context) error {
	hash, err := secrets.Hash(s.cfg.ClientSecret)
	if err != nil {
		return fmt.Errorf("hash client secret: %w", err)
	}
	client := &oidcmodels.Client{
		ClientID:      s.cfg.ClientID,
		SecretHash:    hash,
		DisplayName:   "Lokal UI",
		RedirectURIs:  s.cfg.ClientRedirectURI,
		AllowedScopes: server.RegisteredScopes,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return fmt.Errorf("seed client %s: %w", s.cfg.ClientID, err)
	}
	s.logger.InfoContext(ctx, "seeded client", "client_id", s.cfg.ClientID)
	return nil
}

func (s *Seeder) seedAdmin(ctx context.Context) error {
	_, err := s.accounts.Register(ctx, s.cfg.AdminEmail, s.cfg.AdminEmail, s.cfg.AdminPassword)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil
		}
		return fmt.Errorf("seed admin user: %w", err)
	}
	s.logger.InfoContext(ctx, "seeded admin user", "username", s.cfg.AdminEmail)
	return nil
}

func (s *Seeder) seedWelcome(ctx context.Context) error {
	repo := s.resources.Begin()
	sids, err := repo.ListSids(ctx)
	if err != nil {
		return fmt.Errorf("list sids: %w", err)
	}
	if len(sids) > 0 {
		return nil
	}

	res, err := models.New(WelcomeSid)
	if err != nil {
		return err
	}
	for _, t := range welcomeTranslations {
		if err := res.AddOrUpdateTranslation(t.langID, t.text); err != nil {
			return err
		}
	}
	if err := repo.Add(ctx, res); err != nil {
		return fmt.Errorf("add %s: %w", WelcomeSid, err)
	}
	if err := repo.Save(ctx); err != nil {
		// another instance seeded first
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return fmt.Errorf("save %s: %w", WelcomeSid, err)
	}
	s.logger.InfoContext(ctx, "seeded text resource", "sid", WelcomeSid)
	return nil
}
