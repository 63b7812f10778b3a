package catalog

import (
	"fmt"
	"log/slog"

	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/catalog"
)

// RepositoryAPI is the data access surface for products and sellers.
type RepositoryAPI interface {
	GetProduct(id int64) (*catalog.Product, error)
	GetSeller(id int64) (*catalog.Seller, error)
}

// Service resolves product and seller references for the fulfillment
// pipeline. It is a collaborator, not part of the pipeline's state machine.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ResolveSellerID maps a product reference to its owning seller.
func (s *Service) ResolveSellerID(productID int64) (int64, error) {
	product, err := s.repo.GetProduct(productID)
	if err != nil {
		return 0, fmt.Errorf("product %d lookup failed: %w", productID, err)
	}
	return product.SellerID, nil
}

// PickupLocation returns the seller's registered pickup point, or empty when
// the seller has none configured; callers fall back to the configured default.
func (s *Service) PickupLocation(sellerID int64) (string, error) {
	seller, err := s.repo.GetSeller(sellerID)
	if err != nil {
		return "", fmt.Errorf("seller %d lookup failed: %w", sellerID, err)
	}
	return seller.PickupLocation, nil
}
