// Package storage holds the serialized layout shared by every booking backend:
// one named slot containing the ordered list of bookings as a JSON array.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avstrong/hotelbooking/internal/booking"
)

var ErrCorrupt = errors.New("corrupt bookings payload")

func Encode(bookings []booking.Booking) ([]byte, error) {
	if bookings == nil {
		bookings = []booking.Booking{}
	}

	data, err := json.Marshal(bookings)
	if err != nil {
		return nil, fmt.Errorf("encode %d bookings: %w", len(bookings), err)
	}

	return data, nil
}

// Decode parses a slot payload. An empty payload or JSON null means no bookings.
func Decode(data []byte) ([]booking.Booking, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var bookings []booking.Booking
	if err := json.Unmarshal(data, &bookings); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	for i, b := range bookings {
		switch b.Status {
		case booking.StatusConfirmed, booking.StatusCancelled:
		default:
			return nil, fmt.Errorf("%w: booking #%d (id %d) has unknown status %q", ErrCorrupt, i, b.ID, b.Status)
		}
	}

	return bookings, nil
}
