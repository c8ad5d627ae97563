package output

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"placewatch/internal/core/domain"
)

// PostgresConfig holds sink connection configuration.
type PostgresConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether the sink is configured.
func (c PostgresConfig) Enabled() bool {
	return c.URL != ""
}

const createPlacesTable = `
CREATE TABLE IF NOT EXISTS places (
	id              BIGSERIAL PRIMARY KEY,
	name            TEXT NOT NULL,
	address         TEXT,
	latitude        DOUBLE PRECISION,
	longitude       DOUBLE PRECISION,
	phone           TEXT,
	email           TEXT,
	website         TEXT,
	category        TEXT,
	rating          DOUBLE PRECISION,
	hours           TEXT,
	price_level     TEXT,
	business_status TEXT,
	scraped_at      TIMESTAMPTZ NOT NULL
)`

const insertPlace = `
INSERT INTO places (
	name, address, latitude, longitude, phone, email, website,
	category, rating, hours, price_level, business_status, scraped_at
) VALUES (
	:name, :address, :latitude, :longitude, :phone, :email, :website,
	:category, :rating, :hours, :price_level, :business_status, :scraped_at
)`

// placeRow maps a record onto the places table.
type placeRow struct {
	Name           string    `db:"name"`
	Address        string    `db:"address"`
	Latitude       float64   `db:"latitude"`
	Longitude      float64   `db:"longitude"`
	Phone          string    `db:"phone"`
	Email          string    `db:"email"`
	Website        string    `db:"website"`
	Category       string    `db:"category"`
	Rating         float64   `db:"rating"`
	Hours          string    `db:"hours"`
	PriceLevel     string    `db:"price_level"`
	BusinessStatus string    `db:"business_status"`
	ScrapedAt      time.Time `db:"scraped_at"`
}

// PostgresWriter inserts admitted records into Postgres.
type PostgresWriter struct {
	db *sqlx.DB
}

// NewPostgresWriter connects, tunes the pool, and ensures the table
// exists.
func NewPostgresWriter(ctx context.Context, cfg PostgresConfig) (*PostgresWriter, error) {
	db, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createPlacesTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create places table: %w", err)
	}

	return &PostgresWriter{db: db}, nil
}

// Write inserts one record.
func (w *PostgresWriter) Write(p *domain.Place) error {
	row := placeRow{
		Name:           p.Name,
		Address:        p.Address,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		Phone:          p.Phone,
		Email:          p.EmailColumn(),
		Website:        p.Website,
		Category:       p.Category,
		Rating:         p.Rating,
		Hours:          p.Hours,
		PriceLevel:     p.PriceLevel,
		BusinessStatus: p.BusinessStatus,
		ScrapedAt:      p.ScrapedAt,
	}
	if _, err := w.db.NamedExec(insertPlace, row); err != nil {
		return fmt.Errorf("failed to insert place: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (w *PostgresWriter) Close() error {
	return w.db.Close()
}
