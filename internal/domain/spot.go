package domain

// ParkingSpot is one numbered place in the facility. Its category never changes.
type ParkingSpot struct {
	ID        int             `json:"id"`
	Category  VehicleCategory `json:"category"`
	Available bool            `json:"available"`
}

// PoolStatus summarizes one category pool
type PoolStatus struct {
	Category  VehicleCategory `json:"category"`
	Total     int             `json:"total"`
	Available int             `json:"available"`
}

// Occupied returns the number of occupied spots in the pool
func (p PoolStatus) Occupied() int {
	return p.Total - p.Available
}

// BuildInventory numbers car spots first from 1, bike spots continue after them
func BuildInventory(carSpots, bikeSpots int) []ParkingSpot {
	spots := make([]ParkingSpot, 0, carSpots+bikeSpots)
	id := 1
	for i := 0; i < carSpots; i++ {
		spots = append(spots, ParkingSpot{ID: id, Category: CategoryCar, Available: true})
		id++
	}
	for i := 0; i < bikeSpots; i++ {
		spots = append(spots, ParkingSpot{ID: id, Category: CategoryBike, Available: true})
		id++
	}
	return spots
}
