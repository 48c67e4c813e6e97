package geoindex

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/trainer-marketplace/internal/models"
)

// RedisIndex implements Index on Redis GEO commands so multiple API
// instances share one view of who is online where.
type RedisIndex struct {
	client *redis.Client
	key    string
	ctx    context.Context
}

func NewRedisIndex(addr, password, key string) *RedisIndex {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisIndex{client: c, key: key, ctx: context.Background()}
}

func (r *RedisIndex) Upsert(p models.TrainerPresence) {
	// GEOADD for position, HSET for the metadata the radius filter needs
	_, _ = r.client.GeoAdd(r.ctx, r.key, &redis.GeoLocation{Longitude: p.Loc.Lon, Latitude: p.Loc.Lat, Name: p.ID}).Result()
	_ = r.client.HSet(r.ctx, metaKey(p.ID), map[string]interface{}{
		"rating":   fmt.Sprintf("%f", p.Rating),
		"online":   strconv.FormatBool(p.Online),
		"radius_m": fmt.Sprintf("%f", p.ServiceRadius),
		"updated":  time.Now().Format(time.RFC3339),
	}).Err()
}

func (r *RedisIndex) Remove(id string) {
	_, _ = r.client.ZRem(r.ctx, r.key, id).Result()
	_ = r.client.Del(r.ctx, metaKey(id)).Err()
}

func (r *RedisIndex) Nearby(lat, lon float64, limit int) []models.TrainerPresence {
	res, err := r.client.GeoRadius(r.ctx, r.key, lon, lat, &redis.GeoRadiusQuery{Radius: 50000, Unit: "m", WithCoord: true, WithDist: true, Count: limit * 4, Sort: "ASC"}).Result()
	if err != nil {
		return nil
	}
	out := make([]models.TrainerPresence, 0, limit)
	for _, g := range res {
		if len(out) == limit {
			break
		}
		p := models.TrainerPresence{ID: g.Name}
		p.Loc.Lat = g.Latitude
		p.Loc.Lon = g.Longitude
		if m, err := r.client.HGetAll(r.ctx, metaKey(g.Name)).Result(); err == nil {
			if v, ok := m["rating"]; ok {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					p.Rating = f
				}
			}
			if v, ok := m["online"]; ok {
				p.Online = (v == "true")
			}
			if v, ok := m["radius_m"]; ok {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					p.ServiceRadius = f
				}
			}
		}
		if !p.Online {
			continue
		}
		if p.ServiceRadius > 0 && g.Dist > p.ServiceRadius {
			continue
		}
		out = append(out, p)
	}
	return out
}

func metaKey(id string) string { return "trainer:meta:" + id }
