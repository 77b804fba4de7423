package booking

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

type createRules struct {
	HotelID   int     `json:"hotelId"       validate:"gt=0"`
	Price     float64 `json:"pricePerNight" validate:"gt=0"`
	GuestName string  `json:"guestName"     validate:"required"`
	RoomType  string  `json:"roomType"      validate:"required,room_type"`
	Guests    int     `json:"guests"        validate:"gte=1"`
}

type inputValidator struct {
	validate  *validator.Validate
	roomTypes []string
}

func newInputValidator(roomTypes []string) (*inputValidator, error) {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")

		return name
	})

	iv := &inputValidator{
		validate:  v,
		roomTypes: slices.Clone(roomTypes),
	}

	if err := v.RegisterValidation("room_type", iv.validateRoomType); err != nil {
		return nil, fmt.Errorf("register room_type validation: %w", err)
	}

	return iv, nil
}

// validateRoomType accepts any non-empty value when no room types are configured.
func (iv *inputValidator) validateRoomType(fl validator.FieldLevel) bool {
	if len(iv.roomTypes) == 0 {
		return true
	}

	return slices.Contains(iv.roomTypes, fl.Field().String())
}

func (iv *inputValidator) check(input *CreateInput) error {
	rules := createRules{
		HotelID:   input.Hotel.ID,
		Price:     input.Hotel.PricePerNight,
		GuestName: input.Guest.Name,
		RoomType:  input.RoomType,
		Guests:    input.Guests,
	}

	err := iv.validate.Struct(rules)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("validate booking input: %w", err)
	}

	return iv.translate(validationErrs)
}

func (iv *inputValidator) translate(errs validator.ValidationErrors) *ValidationError {
	inputErr := NewValidationError()

	for _, err := range errs {
		msg := err.Error()

		switch err.Tag() {
		case "required":
			msg = fmt.Sprintf("provide %s", err.Field())
		case "gt":
			msg = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "gte":
			msg = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "room_type":
			msg = fmt.Sprintf("%s must be one of: %s", err.Field(), strings.Join(iv.roomTypes, ", "))
		}

		inputErr.Add(err.Field(), msg)
	}

	return inputErr
}
