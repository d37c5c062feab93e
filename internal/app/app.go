package app

import (
	"time"

	"github.com/galeria-market/galeria-client/internal/cart"
	"github.com/galeria-market/galeria-client/internal/catalog"
	"github.com/galeria-market/galeria-client/internal/client"
	"github.com/galeria-market/galeria-client/internal/common"
	"github.com/galeria-market/galeria-client/internal/config"
	"github.com/galeria-market/galeria-client/internal/interfaces"
	"github.com/galeria-market/galeria-client/internal/sales"
	"github.com/galeria-market/galeria-client/internal/session"
	"github.com/galeria-market/galeria-client/internal/storage"
)

// App holds all application components and dependencies. Session and cart
// state are owned here and injected into consumers; nothing is a
// module-level singleton.
type App struct {
	Config  *config.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager

	Client  *client.Client
	Session *session.Manager
	Cart    *cart.Synchronizer
	Catalog *catalog.Service
	Sales   *sales.Service
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	store, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, err
	}

	apiClient := client.New(cfg.API.URL, time.Duration(cfg.API.TimeoutSeconds)*time.Second, logger)
	kv := store.KeyValueStorage()

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Storage: store,
		Client:  apiClient,
		Session: session.NewManager(apiClient, kv, logger),
		Cart:    cart.NewSynchronizer(apiClient, kv, logger),
		Catalog: catalog.NewService(apiClient, logger),
		Sales:   sales.NewService(apiClient, logger),
	}

	logger.Debug().Str("api_url", cfg.API.URL).Msg("application initialization complete")

	return a, nil
}

// Close releases held resources.
func (a *App) Close() error {
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
