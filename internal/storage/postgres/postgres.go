package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/storage"
	"github.com/avstrong/hotelbooking/internal/storage/postgres/migrations"
)

const (
	selectSlot = `SELECT payload FROM booking_slots WHERE name = $1`
	upsertSlot = `INSERT INTO booking_slots (name, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
)

type Config struct {
	L    *logger.Logger
	DSN  string
	Slot string
}

type Store struct {
	l    *logger.Logger
	pool *pgxpool.Pool
	slot string
}

// New connects, applies pending schema migrations and returns a ready store.
func New(ctx context.Context, conf Config) (*Store, error) {
	pool, err := pgxpool.New(ctx, conf.DSN)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := migrate(ctx, conf.L, pool); err != nil {
		pool.Close()

		return nil, err
	}

	return &Store{
		l:    conf.L,
		pool: pool,
		slot: conf.Slot,
	}, nil
}

func migrate(ctx context.Context, l *logger.Logger, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, r := range results {
		l.LogInfo("Applied migration %s in %s", r.Source.Path, r.Duration)
	}

	return nil
}

func (s *Store) Load(ctx context.Context) ([]booking.Booking, error) {
	var payload []byte

	err := s.pool.QueryRow(ctx, selectSlot, s.slot).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("select slot %q: %w", s.slot, err)
	}

	bookings, err := storage.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("slot %q: %w", s.slot, err)
	}

	return bookings, nil
}

func (s *Store) Save(ctx context.Context, bookings []booking.Booking) error {
	raw, err := storage.Encode(bookings)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if _, err := s.pool.Exec(ctx, upsertSlot, s.slot, raw); err != nil {
		return fmt.Errorf("upsert slot %q: %w", s.slot, err)
	}

	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}
