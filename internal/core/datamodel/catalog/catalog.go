package catalog

import "time"

// Seller owns products and a registered pickup point with the logistics
// provider.
type Seller struct {
	ID             int64     `gorm:"primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	Email          string    `gorm:"column:email"`
	Phone          string    `gorm:"column:phone"`
	PickupLocation string    `gorm:"column:pickup_location"`
	CreatedAt      time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt      time.Time `gorm:"column:updated_at;default:now()"`
}

type Product struct {
	ID         int64     `gorm:"primaryKey"`
	SellerID   int64     `gorm:"column:seller_id;not null"`
	Name       string    `gorm:"column:name;not null"`
	SKU        string    `gorm:"column:sku;uniqueIndex"`
	PriceMinor int64     `gorm:"column:price_minor"`
	WeightKg   float64   `gorm:"column:weight_kg"`
	CreatedAt  time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt  time.Time `gorm:"column:updated_at;default:now()"`
}
