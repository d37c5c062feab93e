// Package catalog exposes the NFT listings: browsing and client-side
// filtering for everyone, create/update/delete for artists.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/galeria-market/galeria-client/internal/cache"
	"github.com/galeria-market/galeria-client/internal/client"
	"github.com/galeria-market/galeria-client/internal/common"
	"github.com/galeria-market/galeria-client/internal/models"
)

const (
	cacheTTL        = 30 * time.Second
	cacheMaxEntries = 128

	cacheKeyList = "nfts:list"
)

// Service provides catalog operations backed by the storefront API, with a
// short-lived read cache in front of listing and detail calls.
type Service struct {
	api    *client.Client
	cache  *cache.Cache
	logger *common.Logger
}

// NewService creates a catalog service.
func NewService(api *client.Client, logger *common.Logger) *Service {
	return &Service{
		api:    api,
		cache:  cache.New(cacheTTL, cacheMaxEntries),
		logger: logger,
	}
}

// List fetches all catalog entries. Results are cached briefly; any catalog
// mutation invalidates the cache.
func (s *Service) List(ctx context.Context) ([]models.NFT, error) {
	if cached, ok := s.cache.Get(cacheKeyList); ok {
		return cached.([]models.NFT), nil
	}

	nfts, err := s.api.ListNFTs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list nfts: %w", err)
	}
	s.cache.Set(cacheKeyList, nfts)
	return nfts, nil
}

// Get fetches a single catalog entry.
func (s *Service) Get(ctx context.Context, id int64) (*models.NFT, error) {
	key := "nfts:" + strconv.FormatInt(id, 10)
	if cached, ok := s.cache.Get(key); ok {
		nft := cached.(models.NFT)
		return &nft, nil
	}

	nft, err := s.api.GetNFT(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nft %d: %w", id, err)
	}
	s.cache.Set(key, *nft)
	return nft, nil
}

// Create lists a new piece (artist only).
func (s *Service) Create(ctx context.Context, nft models.NFT) (*models.NFT, error) {
	created, err := s.api.CreateNFT(ctx, nft)
	if err != nil {
		return nil, fmt.Errorf("failed to create nft: %w", err)
	}
	s.cache.InvalidatePrefix("nfts:")
	s.logger.Info().Str("title", created.Title).Msg("nft created")
	return created, nil
}

// Update replaces a catalog entry (artist only).
func (s *Service) Update(ctx context.Context, id int64, nft models.NFT) (*models.NFT, error) {
	updated, err := s.api.UpdateNFT(ctx, id, nft)
	if err != nil {
		return nil, fmt.Errorf("failed to update nft %d: %w", id, err)
	}
	s.cache.InvalidatePrefix("nfts:")
	return updated, nil
}

// Delete removes a catalog entry (artist only).
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteNFT(ctx, id); err != nil {
		return fmt.Errorf("failed to delete nft %d: %w", id, err)
	}
	s.cache.InvalidatePrefix("nfts:")
	return nil
}

// Filter narrows a catalog listing client-side. The zero value matches
// everything.
type Filter struct {
	Title    string  // substring match, case-insensitive
	MinPrice float64 // inclusive lower bound; <= 0 means no bound
	MaxPrice float64 // inclusive upper bound; <= 0 means no bound
}

// Apply returns the entries matching the filter, preserving order.
func (f Filter) Apply(nfts []models.NFT) []models.NFT {
	title := strings.ToLower(strings.TrimSpace(f.Title))

	var matched []models.NFT
	for _, nft := range nfts {
		if title != "" && !strings.Contains(strings.ToLower(nft.Title), title) {
			continue
		}
		if f.MinPrice > 0 && nft.Price < f.MinPrice {
			continue
		}
		if f.MaxPrice > 0 && nft.Price > f.MaxPrice {
			continue
		}
		matched = append(matched, nft)
	}
	return matched
}
