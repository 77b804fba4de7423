package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/avstrong/hotelbooking/internal/catalog"
)

const DateLayout = "2006-01-02"

// Date is a calendar day without time of day, held as midnight UTC.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf takes the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()

	return NewDate(y, m, d)
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}

	return Date{t: t}, nil
}

func (d Date) Time() time.Time { return d.t }

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}

	return d.t.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}

	if s == "" {
		*d = Date{}

		return nil
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}

// GuestCount decodes from a JSON number or a numeric string.
type GuestCount int

func (g *GuestCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode guests: %w", err)
		}

		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("guests %q is not a number: %w", s, err)
		}

		*g = GuestCount(n)

		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode guests: %w", err)
	}

	*g = GuestCount(n)

	return nil
}

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Booking is a reservation with a frozen snapshot of the hotel and its price.
// The JSON field names are the persisted layout.
type Booking struct {
	ID            int        `json:"id"`
	HotelID       int        `json:"hotelId"`
	HotelName     string     `json:"hotelName"`
	HotelLocation string     `json:"hotelLocation"`
	GuestName     string     `json:"guestName"`
	GuestEmail    string     `json:"guestEmail"`
	GuestPhone    string     `json:"guestPhone"`
	RoomType      string     `json:"roomType"`
	CheckIn       Date       `json:"checkin"`
	CheckOut      Date       `json:"checkout"`
	Guests        GuestCount `json:"guests"`
	CreatedAt     time.Time  `json:"bookingDate"`
	Status        Status     `json:"status"`
	TotalPrice    float64    `json:"totalPrice"`
	Nights        int        `json:"nights"`
}

type Guest struct {
	Name  string `json:"guestName"`
	Email string `json:"guestEmail"`
	Phone string `json:"guestPhone"`
}

type CreateInput struct {
	Hotel    catalog.Hotel
	Guest    Guest
	RoomType string
	CheckIn  Date
	CheckOut Date
	Guests   int
}

type Quote struct {
	HotelID       int     `json:"hotelId"`
	CheckIn       Date    `json:"checkin"`
	CheckOut      Date    `json:"checkout"`
	Nights        int     `json:"nights"`
	PricePerNight float64 `json:"pricePerNight"`
	TotalPrice    float64 `json:"totalPrice"`
}

type EventType string

const (
	EventCreated   EventType = "booking.created"
	EventCancelled EventType = "booking.cancelled"
)

type Event struct {
	Type       EventType `json:"type"`
	BookingID  int       `json:"bookingId"`
	OccurredAt time.Time `json:"occurredAt"`
	Booking    Booking   `json:"booking"`
}
