// Package sales exposes the sales-history projection: records produced by
// checkout, listed read-only, never mutated client-side.
package sales

import (
	"context"
	"fmt"

	"github.com/galeria-market/galeria-client/internal/client"
	"github.com/galeria-market/galeria-client/internal/common"
	"github.com/galeria-market/galeria-client/internal/models"
)

// Service provides sales-history operations.
type Service struct {
	api    *client.Client
	logger *common.Logger
}

// NewService creates a sales service.
func NewService(api *client.Client, logger *common.Logger) *Service {
	return &Service{api: api, logger: logger}
}

// History fetches the sales records visible to the authenticated user:
// purchases for buyers, sales for artists. The server decides which.
func (s *Service) History(ctx context.Context) ([]models.SaleRecord, error) {
	records, err := s.api.ListSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sales history: %w", err)
	}
	return records, nil
}

// Record persists a sale produced by checkout.
func (s *Service) Record(ctx context.Context, record models.SaleRecord) (*models.SaleRecord, error) {
	created, err := s.api.CreateSale(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}
	s.logger.Info().Str("cart_id", created.CartID).Msg("sale recorded")
	return created, nil
}

// HistoryTitle names the history view for the given role. The switch is
// exhaustive over the closed Role set.
func HistoryTitle(role models.Role) string {
	switch role {
	case models.RoleBuyer:
		return "Purchase history"
	case models.RoleArtist:
		return "Sales history"
	default:
		return "History"
	}
}
