package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/kasirku/backend-pos/internal/settlement"
	"github.com/kasirku/backend-pos/internal/store"
	storepg "github.com/kasirku/backend-pos/internal/store/postgres"
)

// Seeds a demo store: two register accounts, a small catalog, and a handful
// of customers with varied ledger balances. Safe to run repeatedly.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
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

	db := storepg.New(pool)

	seedUsers(ctx, db)
	seedCatalog(ctx, db)
	seedCustomers(ctx, db)

	log.Println("Seeding completed successfully!")
}

func seedUsers(ctx context.Context, db store.Store) {
	users := []struct {
		Name  string
		Email string
		Roles []string
	}{
		{"Admin Toko", "admin@kasirku.id", []string{"admin", "cashier"}},
		{"Budi Santoso", "budi@kasirku.id", []string{"cashier"}},
		{"Siti Aminah", "siti@kasirku.id", []string{"cashier"}},
	}

	log.Println("Seeding users...")
	for _, u := range users {
		hash, err := argon2id.CreateHash("password123", argon2id.DefaultParams)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		_, err = db.CreateUser(ctx, store.User{
			Name:         u.Name,
			Email:        u.Email,
			PasswordHash: hash,
			Roles:        u.Roles,
		})
		if err != nil && !errors.Is(err, store.ErrConflict) {
			log.Printf("Failed to seed user %s: %v", u.Email, err)
		}
	}
}

func seedCatalog(ctx context.Context, db store.Store) {
	categories := []struct {
		Name string
		Icon string
	}{
		{"Sembako", "rice"},
		{"Minuman", "cup"},
		{"Makanan Ringan", "cookie"},
		{"Rokok", "smoke"},
		{"Perawatan", "soap"},
	}

	log.Println("Seeding categories...")
	existing, err := db.ListCategories(ctx)
	if err != nil {
		log.Fatalf("Failed to list categories: %v", err)
	}
	catIDs := make(map[string]string)
	for _, c := range existing {
		catIDs[c.Name] = c.ID
	}
	for _, c := range categories {
		if _, ok := catIDs[c.Name]; ok {
			continue
		}
		created, err := db.CreateCategory(ctx, store.Category{Name: c.Name, Icon: c.Icon})
		if err != nil {
			log.Printf("Failed to seed category %s: %v", c.Name, err)
			continue
		}
		catIDs[c.Name] = created.ID
	}

	products := []struct {
		Name     string
		Category string
		Price    int64
		Stock    int64
	}{
		{"Beras Premium 5kg", "Sembako", 78000, 40},
		{"Minyak Goreng 2L", "Sembako", 38000, 60},
		{"Gula Pasir 1kg", "Sembako", 17500, 80},
		{"Telur Ayam 1kg", "Sembako", 28000, 50},
		{"Air Mineral 600ml", "Minuman", 4000, 200},
		{"Teh Botol 450ml", "Minuman", 6000, 150},
		{"Kopi Sachet", "Minuman", 2000, 300},
		{"Keripik Kentang", "Makanan Ringan", 12000, 70},
		{"Biskuit Kaleng", "Makanan Ringan", 35000, 30},
		{"Sabun Mandi", "Perawatan", 5500, 90},
		{"Shampo Sachet", "Perawatan", 1500, 250},
		{"Pasta Gigi", "Perawatan", 14000, 60},
	}

	log.Println("Seeding products...")
	current, err := db.ListProducts(ctx, "", "")
	if err != nil {
		log.Fatalf("Failed to list products: %v", err)
	}
	have := make(map[string]bool)
	for _, p := range current {
		have[p.Name] = true
	}
	for _, p := range products {
		if have[p.Name] {
			continue
		}
		_, err := db.CreateProduct(ctx, store.Product{
			Name:              p.Name,
			Price:             p.Price,
			CategoryID:        catIDs[p.Category],
			Stock:             p.Stock,
			LowStockThreshold: 10,
		})
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
		}
	}
}

func seedCustomers(ctx context.Context, db store.Store) {
	customers := []struct {
		Name  string
		Phone string
		Debt  int64
		Pts   int64
	}{
		{"Andi Pratama", "081234567001", 0, 120},
		{"Dewi Lestari", "081234567002", 45000, 30},
		{"Eko Kurniawan", "081234567003", 0, 760},
		{"Gita Pertiwi", "081234567004", 15000, 1250},
	}

	log.Println("Seeding customers...")
	existing, _, err := db.ListCustomers(ctx, "", 500, 0)
	if err != nil {
		log.Fatalf("Failed to list customers: %v", err)
	}
	have := make(map[string]bool)
	for _, c := range existing {
		have[c.Phone] = true
	}
	for _, c := range customers {
		if have[c.Phone] {
			continue
		}
		created, err := db.CreateCustomer(ctx, store.Customer{Name: c.Name, Phone: c.Phone})
		if err != nil {
			log.Printf("Failed to seed customer %s: %v", c.Name, err)
			continue
		}
		if c.Debt == 0 && c.Pts == 0 {
			continue
		}
		// New customers start with a clean ledger; write the demo balances
		// through the same path the services use.
		_, err = db.MutateLedger(ctx, created.ID, func(l settlement.Ledger) (settlement.Ledger, error) {
			l.OutstandingDebt = c.Debt
			l.LoyaltyPoints = c.Pts
			return l, nil
		})
		if err != nil {
			log.Printf("Failed to seed ledger for %s: %v", c.Name, err)
		}
	}
}
