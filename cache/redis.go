package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"bikeshare-risk/config"
	"bikeshare-risk/raster"
)

// InitializeRedis connects to the configured Redis and checks it with a ping.
func InitializeRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("connected to redis", "addr", cfg.Addr)
	return rdb, nil
}

// RasterStore keeps published crash rasters in Redis for the pricing
// consumer. Each raster is a hash of cell -> crash count plus a JSON meta key
// with the grid geometry; both expire after ttl.
type RasterStore struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewRasterStore(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RasterStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RasterStore{client: client, ttl: ttl, logger: logger}
}

// Key is the hash holding the cells of a raster.
func Key(name string) string {
	return fmt.Sprintf("raster:%s", name)
}

func metaKey(name string) string {
	return Key(name) + ":meta"
}

// Field is the hash field of one cell.
func Field(xBin, yBin, timeBin int) string {
	return fmt.Sprintf("%d:%d:%d", xBin, yBin, timeBin)
}

// Meta is the grid geometry stored beside the cells.
type Meta struct {
	raster.Options
	MinX        float64   `json:"min_x"`
	MinY        float64   `json:"min_y"`
	XBinSize    float64   `json:"x_bin_size"`
	YBinSize    float64   `json:"y_bin_size"`
	Cells       int       `json:"cells"`
	Crashes     int       `json:"crashes"`
	PublishedAt time.Time `json:"published_at"`
}

func metaOf(r *raster.Raster, now time.Time) Meta {
	return Meta{
		Options:     r.Options,
		MinX:        r.MinX,
		MinY:        r.MinY,
		XBinSize:    r.XBinSize,
		YBinSize:    r.YBinSize,
		Cells:       len(r.Cells),
		Crashes:     r.Total(),
		PublishedAt: now.UTC(),
	}
}

func cellValues(r *raster.Raster) map[string]interface{} {
	values := make(map[string]interface{}, len(r.Cells))
	for _, c := range r.Cells {
		values[Field(c.XBin, c.YBin, c.TimeBin)] = c.CrashCount
	}
	return values
}

// Publish replaces the raster stored under name in one transaction. An
// empty raster is not published.
func (s *RasterStore) Publish(ctx context.Context, name string, r *raster.Raster) error {
	if len(r.Cells) == 0 {
		s.logger.Warn("raster is empty, nothing published", "name", name)
		return nil
	}
	meta, err := json.Marshal(metaOf(r, time.Now()))
	if err != nil {
		return fmt.Errorf("encoding raster meta: %w", err)
	}

	key := Key(name)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, cellValues(r))
		pipe.Expire(ctx, key, s.ttl)
		pipe.Set(ctx, metaKey(name), meta, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publishing raster %s: %w", name, err)
	}
	s.logger.Info("raster published", "key", key, "cells", len(r.Cells), "ttl", s.ttl)
	return nil
}

// Lookup returns the crash count of one cell. Cells that were never
// populated count zero.
func (s *RasterStore) Lookup(ctx context.Context, name string, xBin, yBin, timeBin int) (int, error) {
	n, err := s.client.HGet(ctx, Key(name), Field(xBin, yBin, timeBin)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("looking up raster %s: %w", name, err)
	}
	return n, nil
}

// Meta reads the geometry of a published raster.
func (s *RasterStore) Meta(ctx context.Context, name string) (*Meta, error) {
	raw, err := s.client.Get(ctx, metaKey(name)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("reading raster %s meta: %w", name, err)
	}
	var m Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding raster %s meta: %w", name, err)
	}
	return &m, nil
}
