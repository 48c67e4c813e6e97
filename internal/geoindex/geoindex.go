package geoindex

import (
	"math"
	"sync"
	"time"

	"github.com/example/trainer-marketplace/internal/models"
)

// Index is the minimal interface the discovery handler needs.
type Index interface {
	Nearby(lat, lon float64, limit int) []models.TrainerPresence
	Upsert(p models.TrainerPresence)
	Remove(id string)
}

// MemoryIndex keeps online-trainer positions in process memory.
type MemoryIndex struct {
	mu       sync.RWMutex
	trainers map[string]models.TrainerPresence
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{trainers: make(map[string]models.TrainerPresence)}
}

func (g *MemoryIndex) Upsert(p models.TrainerPresence) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p.Updated = time.Now()
	g.trainers[p.ID] = p
}

func (g *MemoryIndex) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.trainers, id)
}

// Nearby returns the closest online trainers whose service radius
// covers the query point. Naive scan; fine for a per-city index.
func (g *MemoryIndex) Nearby(lat, lon float64, limit int) []models.TrainerPresence {
	g.mu.RLock()
	defer g.mu.RUnlock()
	type pair struct {
		p    models.TrainerPresence
		dist float64
	}
	arr := make([]pair, 0, len(g.trainers))
	for _, p := range g.trainers {
		if !p.Online {
			continue
		}
		dist := Haversine(lat, lon, p.Loc.Lat, p.Loc.Lon)
		if p.ServiceRadius > 0 && dist > p.ServiceRadius {
			continue
		}
		arr = append(arr, pair{p, dist})
	}
	// partial selection sort for top-N
	n := limit
	if n > len(arr) {
		n = len(arr)
	}
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < len(arr); j++ {
			if arr[j].dist < arr[minIdx].dist {
				minIdx = j
			}
		}
		arr[i], arr[minIdx] = arr[minIdx], arr[i]
	}
	out := make([]models.TrainerPresence, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, arr[i].p)
	}
	return out
}

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
