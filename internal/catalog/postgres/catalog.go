package postgres

import (
	catalogpkg "github.com/frahmantamala/order-fulfillment/internal/catalog"
	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/catalog"
	"gorm.io/gorm"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) catalogpkg.RepositoryAPI {
	return &CatalogRepository{
		db: db,
	}
}

func (r *CatalogRepository) GetProduct(id int64) (*catalog.Product, error) {
	var p catalog.Product
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *CatalogRepository) GetSeller(id int64) (*catalog.Seller, error) {
	var s catalog.Seller
	err := r.db.First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
