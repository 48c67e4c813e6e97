package geoindex

import (
	"fmt"
	"math"
	"testing"

	"github.com/example/trainer-marketplace/internal/models"
)

func presence(id string, lat, lon float64) models.TrainerPresence {
	return models.TrainerPresence{
		ID:            id,
		Loc:           models.Coord{Lat: lat, Lon: lon},
		Online:        true,
		ServiceRadius: 16000,
	}
}

func TestHaversine(t *testing.T) {
	// SF downtown to SF airport, roughly 17.8km
	d := Haversine(37.7749, -122.4194, 37.6213, -122.3790)
	if d < 17000 || d > 18500 {
		t.Fatalf("unexpected distance: %.0f m", d)
	}
	if z := Haversine(37.7749, -122.4194, 37.7749, -122.4194); z != 0 {
		t.Fatalf("same point should be zero, got %f", z)
	}
}

func TestNearbyOrdersByDistance(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Upsert(presence("far", 37.80, -122.42))
	idx.Upsert(presence("near", 37.775, -122.419))
	idx.Upsert(presence("mid", 37.79, -122.42))

	got := idx.Nearby(37.7749, -122.4194, 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 trainers, got %d", len(got))
	}
	if got[0].ID != "near" || got[1].ID != "mid" || got[2].ID != "far" {
		t.Fatalf("wrong order: %s,%s,%s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestNearbyRespectsLimit(t *testing.T) {
	idx := NewMemoryIndex()
	for i := 0; i < 5; i++ {
		idx.Upsert(presence(fmt.Sprintf("t%d", i), 37.7749+float64(i)*0.001, -122.4194))
	}
	if got := idx.Nearby(37.7749, -122.4194, 2); len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
}

func TestNearbySkipsOfflineAndOutOfRadius(t *testing.T) {
	idx := NewMemoryIndex()

	off := presence("offline", 37.775, -122.419)
	off.Online = false
	idx.Upsert(off)

	tiny := presence("tiny-radius", 37.79, -122.42)
	tiny.ServiceRadius = 100 // query point is well beyond 100m
	idx.Upsert(tiny)

	idx.Upsert(presence("ok", 37.776, -122.419))

	got := idx.Nearby(37.7749, -122.4194, 10)
	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("expected only the online in-radius trainer, got %+v", got)
	}
}

func TestRemoveDropsTrainer(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Upsert(presence("t1", 37.775, -122.419))
	idx.Remove("t1")
	if got := idx.Nearby(37.7749, -122.4194, 10); len(got) != 0 {
		t.Fatalf("expected empty index, got %d entries", len(got))
	}
}

func TestUpsertReplacesPosition(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Upsert(presence("t1", 37.70, -122.40))
	idx.Upsert(presence("t1", 37.775, -122.419))

	got := idx.Nearby(37.7749, -122.4194, 1)
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	dist := Haversine(37.7749, -122.4194, got[0].Loc.Lat, got[0].Loc.Lon)
	if math.Abs(dist) > 200 {
		t.Fatalf("position not updated, %.0f m from query point", dist)
	}
}
