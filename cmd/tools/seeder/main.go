package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/isastore/backend/internal/obs"
)

type category struct {
	Name     string
	Position int
}

type product struct {
	Category string
	Name     string
	Price    int64
	WeightKg string
	Stock    int
	Image    string
}

var categories = []category{
	{"Cerámica", 1},
	{"Textiles", 2},
	{"Decoración", 3},
}

var products = []product{
	{"Cerámica", "Taza de barro", 10000, "0.35", 40, "/img/taza.jpg"},
	{"Cerámica", "Bowl pintado a mano", 15000, "0.6", 25, "/img/bowl.jpg"},
	{"Cerámica", "Plato llano", 12500, "0.8", 30, "/img/plato.jpg"},
	{"Textiles", "Bolso tejido", 22000, "0.4", 12, "/img/bolso.jpg"},
	{"Textiles", "Cojín bordado", 18000, "", 15, "/img/cojin.jpg"},
	{"Decoración", "Macetero colgante", 9500, "1.2", 20, "/img/macetero.jpg"},
	{"Decoración", "Vela aromática", 6000, "0.25", 60, "/img/vela.jpg"},
}

// Default tiers: 5% from 3 items, 10% from 5, 15% from 10.
var tiers = []struct {
	MinQuantity int
	PercentOff  string
}{
	{3, "5"},
	{5, "10"},
	{10, "15"},
}

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger(os.Getenv("LOG_FORMAT"), "info").With().Str("component", "seeder").Logger()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	if err := seed(ctx, db, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
	logger.Info().Msg("seeding completed")
}

func seed(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	categoryIDs := make(map[string]string, len(categories))
	for _, c := range categories {
		var id string
		err := tx.QueryRowContext(ctx, `
			INSERT INTO categories (name, position) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET position = EXCLUDED.position, updated_at = now()
			RETURNING id`, c.Name, c.Position).Scan(&id)
		if err != nil {
			return err
		}
		categoryIDs[c.Name] = id
	}
	logger.Info().Int("count", len(categories)).Msg("categories seeded")

	inserted := 0
	for _, p := range products {
		weight := p.WeightKg
		if weight == "" {
			weight = "0"
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO products (category_id, name, price, weight_kg, stock, image)
			SELECT $1::uuid, $2::text, $3::bigint, $4::numeric, $5::integer, $6::text
			WHERE NOT EXISTS (SELECT 1 FROM products WHERE name = $2::text)`,
			categoryIDs[p.Category], p.Name, p.Price, weight, p.Stock, p.Image)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	logger.Info().Int("inserted", inserted).Int("total", len(products)).Msg("products seeded")

	for i, t := range tiers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO discount_tiers (min_quantity, percent_off, active, position)
			VALUES ($1, $2::numeric, true, $3)
			ON CONFLICT ON CONSTRAINT discount_tiers_min_quantity_key DO NOTHING`,
			t.MinQuantity, t.PercentOff, i)
		if err != nil {
			return err
		}
	}
	logger.Info().Int("count", len(tiers)).Msg("discount tiers seeded")

	return tx.Commit()
}
