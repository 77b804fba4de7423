package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/storage"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

type Config struct {
	L    *logger.Logger
	Path string
}

// Store keeps the booking slot in a single JSON file. Writes go to a temporary
// file in the same directory that is renamed over the slot, so a reader never
// sees a half-written payload.
type Store struct {
	mu   sync.Mutex
	l    *logger.Logger
	path string
}

func New(conf Config) (*Store, error) {
	if conf.Path == "" {
		return nil, errors.New("file store requires a path")
	}

	return &Store{
		l:    conf.L,
		path: conf.Path,
	}, nil
}

func (s *Store) Load(_ context.Context) ([]booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	bookings, err := storage.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}

	return bookings, nil
}

func (s *Store) Save(ctx context.Context, bookings []booking.Booking) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}

	raw, err := storage.Encode(bookings)
	if err != nil {
		return err //nolint:wrapcheck
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeAtomic(raw); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}

	s.l.LogDebugf("Saved %d bookings to %s", len(bookings), s.path)

	return nil
}

func (s *Store) writeAtomic(raw []byte) (err error) {
	dir := filepath.Dir(s.path)

	if err = os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(raw); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err = tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace slot file: %w", err)
	}

	return nil
}
