package catalog

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidHotel = errors.New("invalid hotel record")

type Hotel struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Location      string   `json:"location"`
	Rating        int      `json:"rating"`
	PricePerNight float64  `json:"pricePerNight"`
	Image         string   `json:"image,omitempty"`
	Amenities     []string `json:"amenities"`
}

func (h Hotel) clone() Hotel {
	h.Amenities = slices.Clone(h.Amenities)

	return h
}

// Catalog is the fixed set of bookable hotels. It is never mutated after New.
type Catalog struct {
	hotels []Hotel
	byID   map[int]int
}

func New(hotels []Hotel) (*Catalog, error) {
	c := &Catalog{
		hotels: make([]Hotel, 0, len(hotels)),
		byID:   make(map[int]int, len(hotels)),
	}

	for _, h := range hotels {
		switch {
		case h.ID <= 0:
			return nil, fmt.Errorf("hotel %q: id must be positive: %w", h.Name, ErrInvalidHotel)
		case h.Rating < 1 || h.Rating > 5:
			return nil, fmt.Errorf("hotel %d: rating %d out of 1..5: %w", h.ID, h.Rating, ErrInvalidHotel)
		case h.PricePerNight <= 0:
			return nil, fmt.Errorf("hotel %d: price per night must be positive: %w", h.ID, ErrInvalidHotel)
		}

		if _, dup := c.byID[h.ID]; dup {
			return nil, fmt.Errorf("hotel %d: duplicate id: %w", h.ID, ErrInvalidHotel)
		}

		c.byID[h.ID] = len(c.hotels)
		c.hotels = append(c.hotels, h.clone())
	}

	return c, nil
}

// All returns every hotel in seed order.
func (c *Catalog) All() []Hotel {
	return cloneAll(c.hotels)
}

func (c *Catalog) Get(id int) (Hotel, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Hotel{}, false
	}

	return c.hotels[idx].clone(), true
}

func (c *Catalog) Len() int {
	return len(c.hotels)
}

// Search filters the catalog by query, see Filter.
func (c *Catalog) Search(query string) []Hotel {
	return Filter(c.hotels, query)
}

func cloneAll(hotels []Hotel) []Hotel {
	out := make([]Hotel, 0, len(hotels))
	for _, h := range hotels {
		out = append(out, h.clone())
	}

	return out
}
