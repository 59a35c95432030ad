package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-pricing/internal/catalog"
	"github.com/noah-isme/backend-pricing/internal/db"
	"github.com/noah-isme/backend-pricing/internal/discount"
	"github.com/noah-isme/backend-pricing/internal/pricing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := db.Migrate(dbURL); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedProducts(ctx, &catalog.Store{Pool: pool})
	seedDiscounts(ctx, &discount.Store{Pool: pool})

	log.Println("Seeding completed successfully!")
}

func seedProducts(ctx context.Context, store *catalog.Store) {
	log.Println("Seeding products...")
	products := []catalog.Product{
		{Handle: "switch-mario-kart", Title: "Mario Kart 8 Deluxe", Price: 59.90, Collections: []string{"games", "switch"}, Tags: []string{"racing", "family"}, Enabled: true},
		{Handle: "switch-zelda", Title: "The Legend of Zelda: Tears of the Kingdom", Price: 69.90, Collections: []string{"games", "switch"}, Tags: []string{"adventure"}, Enabled: true},
		{Handle: "switch-joycon-pair", Title: "Joy-Con Pair", Price: 79.00, Collections: []string{"accessories", "switch"}, Tags: []string{"controller"}, Enabled: true},
		{Handle: "switch-pro-controller", Title: "Pro Controller", Price: 69.00, Collections: []string{"accessories", "switch"}, Tags: []string{"controller"}, Enabled: true},
		{Handle: "ps5-spiderman", Title: "Marvel's Spider-Man 2", Price: 69.90, Collections: []string{"games", "ps5"}, Tags: []string{"action"}, Enabled: true},
		{Handle: "ps5-dualsense", Title: "DualSense Controller", Price: 74.90, Collections: []string{"accessories", "ps5"}, Tags: []string{"controller"}, Enabled: true},
		{Handle: "gift-card-50", Title: "Gift Card 50", Price: 50.00, Collections: []string{"gift-cards"}, Enabled: true},
		{Handle: "legacy-console", Title: "Legacy Console", Price: 129.00, Collections: []string{"consoles"}, Enabled: false},
	}
	for _, p := range products {
		if err := store.Upsert(ctx, p); err != nil {
			log.Fatalf("Failed to seed product %s: %v", p.Handle, err)
		}
	}
}

func seedDiscounts(ctx context.Context, store *discount.Store) {
	log.Println("Seeding discounts...")
	fifty := 50.0
	definitions := []pricing.Discount{
		{
			Code: "GAMES10", Title: "10% off all games", Enabled: true,
			Application: pricing.ApplicationAutomatic, Priority: 10, Kind: pricing.KindRegular,
			Filters: []pricing.Filter{{Op: pricing.OpProductInCollections, Values: []string{"games"}}},
			Params:  pricing.Params{Percent: 10},
		},
		{
			Code: "CTRL3FOR2", Title: "Controller 3 for 2", Enabled: true,
			Application: pricing.ApplicationAutomatic, Priority: 20, Kind: pricing.KindBulk,
			Filters: []pricing.Filter{{Op: pricing.OpProductInTags, Values: []string{"controller"}}},
			Params:  pricing.Params{Qty: 3, Percent: 33.34, Recursive: true},
		},
		{
			Code: "BUYGAMEGETCTRL", Title: "Buy 2 games, 50% off a controller", Enabled: true,
			Application: pricing.ApplicationManual, Priority: 30, Kind: pricing.KindBuyXGetY,
			Filters: []pricing.Filter{{Op: pricing.OpProductInCollections, Values: []string{"games"}}},
			Params: pricing.Params{
				QtyX: 2, QtyY: 1, Percent: 50,
				FiltersY: []pricing.Filter{{Op: pricing.OpProductInTags, Values: []string{"controller"}}},
			},
		},
		{
			Code: "SWITCHBUNDLE", Title: "Switch game + controller bundle", Enabled: true,
			Application: pricing.ApplicationAutomatic, Priority: 40, Kind: pricing.KindBundle,
			Filters: []pricing.Filter{
				{Op: pricing.OpProductInCollections, Values: []string{"games"}},
				{Op: pricing.OpProductInTags, Values: []string{"controller"}},
			},
			Params: pricing.Params{Percent: 15},
		},
		{
			Code: "FREESHIP50", Title: "Free shipping over 50", Enabled: true,
			Application: pricing.ApplicationAutomatic, Priority: 90, Kind: pricing.KindOrder,
			Filters: []pricing.Filter{{Op: pricing.OpOrderSubtotalInRange, From: &fifty}},
			Params:  pricing.Params{FreeShipping: true},
		},
	}
	for _, d := range definitions {
		if err := store.Create(ctx, d); err != nil {
			if updateErr := store.Update(ctx, d); updateErr != nil {
				log.Fatalf("Failed to seed discount %s: %v", d.Code, err)
			}
		}
	}
}
