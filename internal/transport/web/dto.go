package web

import (
	"encoding/json"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/catalog"
)

type createBookingRequest struct {
	HotelID    int             `json:"hotelId"`
	GuestName  string          `json:"guestName"`
	GuestEmail string          `json:"guestEmail"`
	GuestPhone string          `json:"guestPhone"`
	RoomType   string          `json:"roomType"`
	CheckIn    json.RawMessage `json:"checkin"`
	CheckOut   json.RawMessage `json:"checkout"`
	Guests     json.RawMessage `json:"guests"`
}

// input decodes the stay fields separately so a malformed value is reported
// against the field it came from.
func (req createBookingRequest) input(hotel catalog.Hotel) (booking.CreateInput, error) {
	inputErr := booking.NewValidationError()

	var (
		checkIn, checkOut booking.Date
		guests            booking.GuestCount
	)

	decodeField := func(field string, raw json.RawMessage, dst any, msg string) {
		if len(raw) == 0 {
			return
		}

		if err := json.Unmarshal(raw, dst); err != nil {
			inputErr.Add(field, msg)
		}
	}

	decodeField("checkin", req.CheckIn, &checkIn, "use the YYYY-MM-DD format")
	decodeField("checkout", req.CheckOut, &checkOut, "use the YYYY-MM-DD format")
	decodeField("guests", req.Guests, &guests, "must be a whole number")

	if len(inputErr.Fields()) > 0 {
		return booking.CreateInput{}, inputErr
	}

	return booking.CreateInput{
		Hotel: hotel,
		Guest: booking.Guest{
			Name:  req.GuestName,
			Email: req.GuestEmail,
			Phone: req.GuestPhone,
		},
		RoomType: req.RoomType,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   int(guests),
	}, nil
}

type searchResponse struct {
	Destination string          `json:"destination"`
	CheckIn     booking.Date    `json:"checkin"`
	CheckOut    booking.Date    `json:"checkout"`
	Hotels      []catalog.Hotel `json:"hotels"`
}
