package migration

import (
	"fmt"

	"github.com/avstrong/hotelbooking/internal/catalog"
	"github.com/avstrong/hotelbooking/internal/logger"
)

// Hotels is the seed set every process starts with.
func Hotels() []catalog.Hotel {
	return []catalog.Hotel{
		{
			ID:            1,
			Name:          "Grand Palace Hotel",
			Location:      "New York",
			Rating:        5,
			PricePerNight: 299,
			Image:         "🏨",
			Amenities:     []string{"WiFi", "Pool", "Spa", "Restaurant"},
		},
		{
			ID:            2,
			Name:          "Ocean View Resort",
			Location:      "Miami",
			Rating:        4,
			PricePerNight: 199,
			Image:         "🌊",
			Amenities:     []string{"WiFi", "Beach Access", "Pool", "Bar"},
		},
		{
			ID:            3,
			Name:          "Mountain Lodge",
			Location:      "Colorado",
			Rating:        4,
			PricePerNight: 159,
			Image:         "🏔️",
			Amenities:     []string{"WiFi", "Hiking", "Restaurant", "Fireplace"},
		},
		{
			ID:            4,
			Name:          "City Center Hotel",
			Location:      "Chicago",
			Rating:        4,
			PricePerNight: 179,
			Image:         "🏙️",
			Amenities:     []string{"WiFi", "Gym", "Business Center", "Restaurant"},
		},
		{
			ID:            5,
			Name:          "Beachside Inn",
			Location:      "California",
			Rating:        3,
			PricePerNight: 129,
			Image:         "🏖️",
			Amenities:     []string{"WiFi", "Beach Access", "Pool"},
		},
		{
			ID:            6,
			Name:          "Luxury Suites",
			Location:      "Las Vegas",
			Rating:        5,
			PricePerNight: 399,
			Image:         "✨",
			Amenities:     []string{"WiFi", "Casino", "Spa", "Fine Dining", "Pool"},
		},
	}
}

func Up(l *logger.Logger) (*catalog.Catalog, error) {
	c, err := catalog.New(Hotels())
	if err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	l.LogInfo("Catalog has been seeded with %d hotels", c.Len())

	return c, nil
}
