package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/avstrong/hotelbooking/internal/booking"
)

const maxBodyBytes = 1 << 20

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.LogErrorf("Could not encode response: %v", err.Error())
	}
}

// fail maps domain errors onto status codes. Only unexpected errors are logged.
func (s *Server) fail(w http.ResponseWriter, action string, err error) {
	if inputErr := booking.IsValidationError(err); inputErr != nil {
		s.respond(w, http.StatusBadRequest, inputErr.Fields())

		return
	}

	if errors.Is(err, booking.ErrNotFound) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)

		return
	}

	s.l.LogErrorf("Could not %s: %v", action, err.Error())
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		inputErr := booking.NewValidationError()
		inputErr.Add("id", "must be a positive integer")

		return 0, inputErr
	}

	return id, nil
}

// parseStay reads the checkin and checkout query parameters. An absent parameter
// yields a zero date; the caller decides whether that is acceptable.
func parseStay(q url.Values) (booking.Date, booking.Date, error) {
	inputErr := booking.NewValidationError()

	parse := func(field string) booking.Date {
		raw := strings.TrimSpace(q.Get(field))
		if raw == "" {
			return booking.Date{}
		}

		d, err := booking.ParseDate(raw)
		if err != nil {
			inputErr.Add(field, "use the YYYY-MM-DD format")
		}

		return d
	}

	checkIn, checkOut := parse("checkin"), parse("checkout")

	if len(inputErr.Fields()) > 0 {
		return booking.Date{}, booking.Date{}, inputErr
	}

	return checkIn, checkOut, nil
}

func (s *Server) listHotelsHandler(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, s.catalog.All())
}

func (s *Server) searchHotelsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	checkIn, checkOut, err := parseStay(q)
	if err != nil {
		s.fail(w, "parse search dates", err)

		return
	}

	if err = s.bManager.ValidateStay(checkIn, checkOut); err != nil {
		s.fail(w, "validate search dates", err)

		return
	}

	destination := q.Get("destination")
	hotels := s.catalog.Search(destination)
	s.metrics.SearchServed(len(hotels))

	s.respond(w, http.StatusOK, searchResponse{
		Destination: destination,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Hotels:      hotels,
	})
}

func (s *Server) getHotelHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, "parse hotel id", err)

		return
	}

	hotel, ok := s.catalog.Get(id)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)

		return
	}

	s.respond(w, http.StatusOK, hotel)
}

func (s *Server) quoteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, "parse hotel id", err)

		return
	}

	hotel, ok := s.catalog.Get(id)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)

		return
	}

	checkIn, checkOut, err := parseStay(r.URL.Query())
	if err != nil {
		s.fail(w, "parse quote dates", err)

		return
	}

	quote, err := s.bManager.Quote(hotel, checkIn, checkOut)
	if err != nil {
		s.fail(w, fmt.Sprintf("quote hotel %d", id), err)

		return
	}

	s.respond(w, http.StatusOK, quote)
}

func (s *Server) createBookingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createBookingRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			inputErr := booking.NewValidationError()
			inputErr.Add(typeErr.Field, fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value))
			s.fail(w, "decode booking request", inputErr)

			return
		}

		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return
	}

	hotel, ok := s.catalog.Get(req.HotelID)
	if !ok {
		inputErr := booking.NewValidationError()
		inputErr.Add("hotelId", "unknown hotel")
		s.fail(w, "find hotel", inputErr)

		return
	}

	input, err := req.input(hotel)
	if err != nil {
		s.fail(w, "decode booking stay", err)

		return
	}

	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
		ctx = booking.NewContextWithIdempotencyKey(ctx, key)
	}

	out, err := s.bManager.Create(ctx, input)
	if err != nil {
		s.fail(w, "create a booking", err)

		return
	}

	s.respond(w, http.StatusCreated, out)
}

func (s *Server) listBookingsHandler(w http.ResponseWriter, r *http.Request) {
	bookings := s.bManager.List(r.Context())
	if bookings == nil {
		bookings = []booking.Booking{}
	}

	s.respond(w, http.StatusOK, bookings)
}

func (s *Server) getBookingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, "parse booking id", err)

		return
	}

	out, err := s.bManager.Get(r.Context(), id)
	if err != nil {
		s.fail(w, fmt.Sprintf("get booking %d", id), err)

		return
	}

	s.respond(w, http.StatusOK, out)
}

func (s *Server) cancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, "parse booking id", err)

		return
	}

	out, err := s.bManager.Cancel(r.Context(), id)
	if err != nil {
		s.fail(w, fmt.Sprintf("cancel booking %d", id), err)

		return
	}

	s.respond(w, http.StatusOK, out)
}

func (s *Server) livenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addRoutes(r *http.ServeMux) {
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"GET /api/hotels/v1", s.listHotelsHandler},
		{"GET /api/hotels/v1/search", s.searchHotelsHandler},
		{"GET /api/hotels/v1/{id}", s.getHotelHandler},
		{"GET /api/hotels/v1/{id}/quote", s.quoteHandler},
		{"POST /api/bookings/v1", s.createBookingHandler},
		{"GET /api/bookings/v1", s.listBookingsHandler},
		{"GET /api/bookings/v1/{id}", s.getBookingHandler},
		{"POST /api/bookings/v1/{id}/cancel", s.cancelBookingHandler},
		{fmt.Sprintf("GET %s", s.conf.LivenessEndpoint), s.livenessHandler},
	}

	for _, route := range routes {
		r.Handle(route.pattern, s.applyMiddlewares(route.handler, s.loggerMiddleware(), s.recoverMiddleware()))
	}

	r.Handle(fmt.Sprintf("GET %s", s.conf.MetricsEndpoint), s.metrics.Handler())
}
