package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Wardenfar/parkingsystem/internal/domain"
)

// PostgresSpotRepository reads and seeds the parking table
type PostgresSpotRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSpotRepository creates a new PostgresSpotRepository
func NewPostgresSpotRepository(pool *pgxpool.Pool) *PostgresSpotRepository {
	return &PostgresSpotRepository{pool: pool}
}

// LoadInventory returns every spot ordered by number
func (r *PostgresSpotRepository) LoadInventory(ctx context.Context) ([]domain.ParkingSpot, error) {
	rows, err := r.pool.Query(ctx, `SELECT number, type, available FROM parking ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("failed to load parking inventory: %w", err)
	}

	spots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ParkingSpot, error) {
		var (
			s        domain.ParkingSpot
			category string
		)
		err := row.Scan(&s.ID, &category, &s.Available)
		s.Category = domain.VehicleCategory(category)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan parking inventory: %w", err)
	}
	return spots, nil
}

// SeedInventory inserts missing spots in one batch
func (r *PostgresSpotRepository) SeedInventory(ctx context.Context, spots []domain.ParkingSpot) error {
	batch := &pgx.Batch{}
	for _, s := range spots {
		batch.Queue(`
			INSERT INTO parking (number, type, available)
			VALUES ($1, $2, $3)
			ON CONFLICT (number) DO NOTHING
		`, s.ID, s.Category.String(), s.Available)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed parking inventory: %w", err)
	}
	return nil
}
