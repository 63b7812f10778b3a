package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample sellers and products for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"products", "sellers"} {
				if err := gormDB.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing catalog data")
		}

		sellers := []struct {
			Name   string
			Pickup string
		}{
			{"Artisan Crafts Co", "warehouse-south"},
			{"Velocity Electronics", "warehouse-north"},
			{"Homestead Goods", ""},
		}

		sellerIDs := map[string]int64{}
		for _, s := range sellers {
			var id int64
			row := gormDB.Raw("SELECT id FROM sellers WHERE name = ?", s.Name).Row()
			if err := row.Scan(&id); err == nil {
				sellerIDs[s.Name] = id
				continue
			}
			if err := gormDB.Raw(
				"INSERT INTO sellers (name, pickup_location, created_at, updated_at) VALUES (?, ?, now(), now()) RETURNING id",
				s.Name, s.Pickup,
			).Row().Scan(&id); err != nil {
				log.Fatalf("failed to insert seller %s: %v", s.Name, err)
			}
			sellerIDs[s.Name] = id
			fmt.Println("Seeded seller:", s.Name)
		}

		products := []struct {
			Seller     string
			SKU        string
			Name       string
			PriceMinor int64
			WeightKg   float64
		}{
			{"Artisan Crafts Co", "ACC-MUG-01", "Stoneware Mug", 49900, 0.4},
			{"Artisan Crafts Co", "ACC-THR-02", "Woven Throw", 189900, 1.2},
			{"Velocity Electronics", "VEL-EAR-01", "Wireless Earbuds", 269900, 0.1},
			{"Velocity Electronics", "VEL-CHG-02", "65W Charger", 99900, 0.25},
			{"Homestead Goods", "HSG-CND-01", "Soy Candle Set", 75000, 0.6},
		}

		for _, p := range products {
			var exists int
			if err := gormDB.Raw("SELECT 1 FROM products WHERE sku = ?", p.SKU).Row().Scan(&exists); err == nil {
				continue
			}
			if err := gormDB.Exec(
				"INSERT INTO products (seller_id, sku, name, price_minor, weight_kg, created_at, updated_at) VALUES (?, ?, ?, ?, ?, now(), now())",
				sellerIDs[p.Seller], p.SKU, p.Name, p.PriceMinor, p.WeightKg,
			).Error; err != nil {
				log.Fatalf("failed to insert product %s: %v", p.SKU, err)
			}
			fmt.Println("Seeded product:", p.SKU)
		}

		fmt.Println("Catalog seeded successfully")
	},
}
