package allocator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Wardenfar/parkingsystem/internal/domain"
)

// SpotAllocator owns the free/occupied partition of the spot inventory.
// Each category pool has its own lock, held only while its membership changes.
type SpotAllocator struct {
	pools map[domain.VehicleCategory]*pool
	// spotCategory is built once and never mutated
	spotCategory map[int]domain.VehicleCategory
}

type pool struct {
	mu       sync.Mutex
	ids      []int // ascending
	occupied map[int]bool
}

// New builds an allocator from the facility inventory. Spots flagged unavailable start occupied.
func New(spots []domain.ParkingSpot) (*SpotAllocator, error) {
	a := &SpotAllocator{
		pools:        make(map[domain.VehicleCategory]*pool, len(domain.Categories)),
		spotCategory: make(map[int]domain.VehicleCategory, len(spots)),
	}
	for _, c := range domain.Categories {
		a.pools[c] = &pool{occupied: make(map[int]bool)}
	}

	for _, s := range spots {
		if !s.Category.IsValid() {
			return nil, fmt.Errorf("%w: spot %d has category %q", domain.ErrUnknownCategory, s.ID, string(s.Category))
		}
		if s.ID <= 0 {
			return nil, fmt.Errorf("invalid spot id %d", s.ID)
		}
		if _, dup := a.spotCategory[s.ID]; dup {
			return nil, fmt.Errorf("duplicate spot id %d", s.ID)
		}
		a.spotCategory[s.ID] = s.Category

		p := a.pools[s.Category]
		p.ids = append(p.ids, s.ID)
		if !s.Available {
			p.occupied[s.ID] = true
		}
	}

	for _, p := range a.pools {
		sort.Ints(p.ids)
	}
	return a, nil
}

// Assign marks the lowest-numbered free spot of the category as occupied and returns it
func (a *SpotAllocator) Assign(category domain.VehicleCategory) (domain.ParkingSpot, error) {
	p, ok := a.pools[category]
	if !ok {
		return domain.ParkingSpot{}, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, string(category))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range p.ids {
		if !p.occupied[id] {
			p.occupied[id] = true
			return domain.ParkingSpot{ID: id, Category: category, Available: false}, nil
		}
	}
	return domain.ParkingSpot{}, fmt.Errorf("%w: %s", domain.ErrParkingFull, category)
}

// Release returns an occupied spot to its pool
func (a *SpotAllocator) Release(spotID int) error {
	p, err := a.poolOf(spotID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.occupied[spotID] {
		return fmt.Errorf("%w: spot %d", domain.ErrSpotAlreadyAvailable, spotID)
	}
	delete(p.occupied, spotID)
	return nil
}

// Occupy marks a specific spot as occupied, used to rebuild state from open tickets
func (a *SpotAllocator) Occupy(spotID int) error {
	p, err := a.poolOf(spotID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.occupied[spotID] {
		return fmt.Errorf("%w: spot %d", domain.ErrSpotAlreadyOccupied, spotID)
	}
	p.occupied[spotID] = true
	return nil
}

// Category returns the category a spot belongs to
func (a *SpotAllocator) Category(spotID int) (domain.VehicleCategory, error) {
	c, ok := a.spotCategory[spotID]
	if !ok {
		return "", fmt.Errorf("%w: spot %d", domain.ErrUnknownSpot, spotID)
	}
	return c, nil
}

// IsAvailable reports whether a spot is free
func (a *SpotAllocator) IsAvailable(spotID int) (bool, error) {
	p, err := a.poolOf(spotID)
	if err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.occupied[spotID], nil
}

// Capacity returns the number of spots in a category pool
func (a *SpotAllocator) Capacity(category domain.VehicleCategory) int {
	p, ok := a.pools[category]
	if !ok {
		return 0
	}
	return len(p.ids)
}

// Snapshot returns per-category totals in category order. Pools are read one at a time.
func (a *SpotAllocator) Snapshot() []domain.PoolStatus {
	out := make([]domain.PoolStatus, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		p := a.pools[c]
		p.mu.Lock()
		out = append(out, domain.PoolStatus{
			Category:  c,
			Total:     len(p.ids),
			Available: len(p.ids) - len(p.occupied),
		})
		p.mu.Unlock()
	}
	return out
}

// Spots lists the inventory with current availability, ordered by spot id
func (a *SpotAllocator) Spots() []domain.ParkingSpot {
	var out []domain.ParkingSpot
	for _, c := range domain.Categories {
		p := a.pools[c]
		p.mu.Lock()
		for _, id := range p.ids {
			out = append(out, domain.ParkingSpot{ID: id, Category: c, Available: !p.occupied[id]})
		}
		p.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (a *SpotAllocator) poolOf(spotID int) (*pool, error) {
	c, err := a.Category(spotID)
	if err != nil {
		return nil, err
	}
	return a.pools[c], nil
}
