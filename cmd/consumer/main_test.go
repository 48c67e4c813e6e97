package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/trainer-marketplace/internal/models"
)

// fakeUpdater scripts per-call failures for the retry logic.
type fakeUpdater struct {
	geoFailures  int
	hsetFailures int
	geoCalls     int
	hsetCalls    int
	lastGeo      *redis.GeoLocation
	lastMeta     map[string]interface{}
	lastMetaKey  string
}

func (f *fakeUpdater) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	f.geoCalls++
	if f.geoFailures > 0 {
		f.geoFailures--
		return errors.New("geoadd failed")
	}
	f.lastGeo = loc
	return nil
}

func (f *fakeUpdater) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	f.hsetCalls++
	if f.hsetFailures > 0 {
		f.hsetFailures--
		return errors.New("hset failed")
	}
	f.lastMetaKey = key
	f.lastMeta = values
	return nil
}

func sample() *models.LocationSample {
	return &models.LocationSample{
		TrainerID: "t1",
		Loc:       models.Coord{Lat: 37.7749, Lon: -122.4194},
		TakenAt:   time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestUpdateRedisSuccess(t *testing.T) {
	f := &fakeUpdater{}
	if err := updateRedisWithRetry(context.Background(), f, "trainers_geo", sample(), 3, time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.geoCalls != 1 || f.hsetCalls != 1 {
		t.Fatalf("expected single geo and hset call, got %d/%d", f.geoCalls, f.hsetCalls)
	}
	if f.lastGeo.Name != "t1" || f.lastGeo.Latitude != 37.7749 {
		t.Fatalf("wrong geo entry: %+v", f.lastGeo)
	}
	if f.lastMetaKey != "trainer:meta:t1" {
		t.Fatalf("wrong meta key: %s", f.lastMetaKey)
	}
	if online, ok := f.lastMeta["online"].(bool); !ok || !online {
		t.Fatalf("meta should mark trainer online: %+v", f.lastMeta)
	}
}

func TestUpdateRedisRetriesTransientFailure(t *testing.T) {
	f := &fakeUpdater{geoFailures: 2}
	if err := updateRedisWithRetry(context.Background(), f, "trainers_geo", sample(), 3, time.Millisecond); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if f.geoCalls != 3 {
		t.Fatalf("expected 3 geo attempts, got %d", f.geoCalls)
	}
}

func TestUpdateRedisGivesUpAfterAttempts(t *testing.T) {
	f := &fakeUpdater{geoFailures: 5}
	err := updateRedisWithRetry(context.Background(), f, "trainers_geo", sample(), 3, time.Millisecond)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if f.geoCalls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", f.geoCalls)
	}
}

func TestUpdateRedisRetriesHSetFailure(t *testing.T) {
	f := &fakeUpdater{hsetFailures: 1}
	if err := updateRedisWithRetry(context.Background(), f, "trainers_geo", sample(), 3, time.Millisecond); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if f.hsetCalls != 2 {
		t.Fatalf("expected 2 hset attempts, got %d", f.hsetCalls)
	}
}
