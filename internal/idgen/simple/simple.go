package simple

import (
	"context"
	"sync"
)

// Generator hands out increasing ids starting after the highest one it has seen.
type Generator struct {
	mu      sync.Mutex
	counter int
}

func New() *Generator {
	//nolint:exhaustruct
	return &Generator{}
}

func (g *Generator) GetID(_ context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counter++

	return g.counter, nil
}

// Advance makes sure the next id is greater than minID.
func (g *Generator) Advance(minID int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counter = max(g.counter, minID)
}
