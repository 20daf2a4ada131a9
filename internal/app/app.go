// Package app wires configuration into the store, caches and services shared
// by the server and the command line tools.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/salesledger/internal/api"
	"github.com/andresuchdata/salesledger/internal/cache"
	"github.com/andresuchdata/salesledger/internal/config"
	"github.com/andresuchdata/salesledger/internal/repository/postgres"
	"github.com/andresuchdata/salesledger/internal/service"
	"github.com/andresuchdata/salesledger/internal/storage"
	"github.com/andresuchdata/salesledger/internal/store"
)

// App holds every long-lived dependency of a process.
type App struct {
	Config    *config.Config
	DB        *postgres.DB
	Documents *postgres.DocumentRepository
	Redis     *redis.Client
	Store     *store.Store
	Services  *api.Services
}

// Options overrides parts of the wiring. A non-nil DB is used instead of
// connecting with the configured DSN.
type Options struct {
	DB *postgres.DB
}

// New connects the optional backends and builds the services. Postgres,
// redis and object storage are optional; failures to reach redis or storage
// only disable them.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg, DB: opts.DB}

	if a.DB == nil && cfg.Database.Enabled {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.DB = db
	}

	local, err := store.NewFileLocal(cfg.App.StoreDir())
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	storeOpts := store.Options{
		Local:  local,
		Policy: store.PolicyFromConfig(cfg.Store),
	}
	if a.DB != nil {
		a.Documents = postgres.NewDocumentRepository(a.DB)
		if err := a.Documents.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate documents: %w", err)
		}
		storeOpts.Remote = a.Documents
	} else {
		log.Warn().Msg("database disabled, records are kept in the local store only")
	}

	reports := cache.NewNoopReportCache()
	if cfg.Cache.Enabled {
		client, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, report cache disabled")
		} else {
			a.Redis = client
			reports = cache.NewReportCache(client, cache.ReportTTL(cfg.Cache))
			if cfg.Cache.DistributedLocks {
				if locker := cache.NewLocker(client, cache.LockTTL(cfg.Cache)); locker != nil {
					storeOpts.Locker = locker
				}
			}
		}
	}

	a.Store = store.New(storeOpts)

	var objects storage.ObjectStorage
	if cfg.Storage.Enabled {
		client, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			log.Warn().Err(err).Msg("object storage unavailable, uploads disabled")
		} else {
			objects = client
		}
	}

	sales := service.NewSalesService(a.Store, reports)
	reportService := service.NewReportService(a.Store, reports)
	recon := service.NewReconciliationService(a.Store)
	a.Services = &api.Services{
		Sales:          sales,
		Catalog:        service.NewCatalogService(a.Store, reports),
		Reconciliation: recon,
		Reports:        reportService,
		Users:          service.NewUserService(a.Store, service.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())),
		Exports:        service.NewExportService(sales, reportService, recon, objects, cfg.Storage.Prefix),
		Backup:         service.NewBackupService(a.Store, reports),
	}
	return a, nil
}

// SeedAdmin creates the configured default admin when no account exists.
func (a *App) SeedAdmin(ctx context.Context) error {
	created, res, err := a.Services.Users.EnsureAdmin(ctx, a.Config.Auth.DefaultAdminUsername, a.Config.Auth.DefaultAdminPassword)
	if err != nil {
		return err
	}
	if created && !res.Saved() {
		return fmt.Errorf("default admin was not persisted: %w", errors.Join(res.RemoteErr, res.LocalErr))
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
