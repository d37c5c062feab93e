package storage

import (
	"github.com/galeria-market/galeria-client/internal/common"
	"github.com/galeria-market/galeria-client/internal/config"
	"github.com/galeria-market/galeria-client/internal/interfaces"
	"github.com/galeria-market/galeria-client/internal/storage/badger"
	"github.com/galeria-market/galeria-client/internal/storage/memory"
)

// NewStorageManager creates a storage manager based on config. An empty
// badger path selects in-memory storage, so nothing survives the process.
func NewStorageManager(logger *common.Logger, cfg *config.Config) (interfaces.StorageManager, error) {
	if cfg.Storage.Badger.Path == "" {
		return memory.NewManager(), nil
	}
	return badger.NewManager(logger, &cfg.Storage.Badger)
}
