package booking

import (
	"fmt"

	"github.com/avstrong/hotelbooking/internal/catalog"
)

const secondsPerDay = 24 * 60 * 60

// Price computes the stay length and the total for a hotel. Nights are rounded up,
// so a range that is a fraction of a day short (time zone or DST skew) never
// undercounts. Days are counted on Unix seconds; time.Duration saturates after
// about 292 years.
func Price(hotel catalog.Hotel, checkIn, checkOut Date) (Quote, error) {
	if checkIn.IsZero() || checkOut.IsZero() || !checkIn.Before(checkOut) {
		return Quote{}, fmt.Errorf("price stay %v..%v: %w", checkIn, checkOut, ErrInvalidDateRange)
	}

	nights := int((checkOut.Time().Unix() - checkIn.Time().Unix() + secondsPerDay - 1) / secondsPerDay)

	return Quote{
		HotelID:       hotel.ID,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Nights:        nights,
		PricePerNight: hotel.PricePerNight,
		TotalPrice:    float64(nights) * hotel.PricePerNight,
	}, nil
}

// ValidateStay checks a requested date range: both dates present, check-in not
// before today and strictly before check-out. A reversed or empty range unwraps
// to ErrInvalidDateRange.
func ValidateStay(checkIn, checkOut, today Date) error {
	inputErr := NewValidationError()

	if checkIn.IsZero() {
		inputErr.Add("checkin", "provide check-in date")
	}

	if checkOut.IsZero() {
		inputErr.Add("checkout", "provide check-out date")
	}

	if inputErr.fieldsCount() > 0 {
		return inputErr
	}

	if !today.IsZero() && checkIn.Before(today) {
		inputErr.Add("checkin", "check-in must not be in the past")
	}

	if !checkIn.Before(checkOut) {
		inputErr.Add("checkout", "check-out must be after check-in")
		inputErr.cause = ErrInvalidDateRange
	}

	return inputErr.orNil()
}
