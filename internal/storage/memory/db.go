package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/storage"
)

type Config struct {
	L    *logger.Logger
	Slot string
}

// DB keeps serialized slots in process memory. Payloads are stored encoded, so
// callers never share backing arrays with the DB.
type DB struct {
	mu    sync.Mutex
	l     *logger.Logger
	slot  string
	slots map[string][]byte
}

func New(conf Config) *DB {
	//nolint:exhaustruct
	return &DB{
		l:     conf.L,
		slot:  conf.Slot,
		slots: make(map[string][]byte),
	}
}

func (db *DB) Load(_ context.Context) ([]booking.Booking, error) {
	db.mu.Lock()
	raw, ok := db.slots[db.slot]
	db.mu.Unlock()

	if !ok {
		return nil, nil
	}

	bookings, err := storage.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("load slot %q: %w", db.slot, err)
	}

	return bookings, nil
}

func (db *DB) Save(_ context.Context, bookings []booking.Booking) error {
	raw, err := storage.Encode(bookings)
	if err != nil {
		return fmt.Errorf("save slot %q: %w", db.slot, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.slots[db.slot] = raw

	db.l.LogDebugf("Slot %q saved with %d bookings", db.slot, len(bookings))

	return nil
}

// Put replaces a slot with a raw payload.
func (db *DB) Put(slot string, raw []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.slots[slot] = slices.Clone(raw)
}

func (db *DB) Raw(slot string) ([]byte, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()

	raw, ok := db.slots[slot]

	return slices.Clone(raw), ok
}
