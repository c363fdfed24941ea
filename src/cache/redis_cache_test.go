package cache

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"product-filter/src/logger"
	"product-filter/src/models"

	"github.com/redis/go-redis/v9"
)

// memoryRedis is an in-memory stand-in for the handful of commands used.
type memoryRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	readErr error
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *memoryRedis) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	if m.readErr != nil {
		return redis.NewSliceResult(nil, m.readErr)
	}
	vals := make([]interface{}, len(keys))
	for i, k := range keys {
		if v, ok := m.data[k]; ok {
			vals[i] = v
		}
	}
	return redis.NewSliceResult(vals, nil)
}

func (m *memoryRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = value.(string)
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

// Scan returns matching keys one per page to exercise the cursor loop.
func (m *memoryRedis) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return redis.NewScanCmdResult(nil, 0, nil)
	}
	next := uint64(1)
	if len(keys) == 1 {
		next = 0
	}
	return redis.NewScanCmdResult(keys[:1], next, nil)
}

func (m *memoryRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *memoryRedis) Close() error { return nil }

func newTestCache(rdb *memoryRedis) *PriceCache {
	return newPriceCache(rdb, time.Hour, nil, logger.NewLoggerTo(&bytes.Buffer{}, "DEBUG", "test"))
}

func cached(id string, price int64) models.MListing {
	return models.MListing{ID: id, Category: "videocards", Query: "RTX 5080", Price: price}
}

// -----------------------------------------------------------------------------

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		cached   int64
		found    bool
		wantKeep bool
		wantNew  bool
		wantDisc float64
		wantPrev int64
	}{
		{"new", 100000, 0, false, true, true, 0, 0},
		{"drop", 90000, 100000, true, true, false, 10, 100000},
		{"same", 100000, 100000, true, false, false, 0, 0},
		{"rise", 110000, 100000, true, false, false, 0, 0},
	}
	for _, tt := range tests {
		got, keep := Decide(cached("1", tt.price), tt.cached, tt.found)
		if keep != tt.wantKeep || got.IsNew != tt.wantNew || got.DiscountPercent != tt.wantDisc || got.PreviousPrice != tt.wantPrev {
			t.Errorf("%s: Decide = %+v, %v; want keep=%v new=%v discount=%v prev=%v",
				tt.name, got, keep, tt.wantKeep, tt.wantNew, tt.wantDisc, tt.wantPrev)
		}
	}
}

func TestFilterChangedAcrossRuns(t *testing.T) {
	rdb := newMemoryRedis()
	c := newTestCache(rdb)
	ctx := context.Background()

	first, err := c.FilterChanged(ctx, []models.MListing{cached("1", 100000), cached("2", 120000)})
	if err != nil || len(first) != 2 || !first[0].IsNew || !first[1].IsNew {
		t.Fatalf("first run = %+v, %v; want both new", first, err)
	}
	if rdb.data["product:videocards:RTX 5080:1"] != "100000" || rdb.ttls["product:videocards:RTX 5080:1"] != time.Hour {
		t.Errorf("cache not written: %v %v", rdb.data, rdb.ttls)
	}

	second, err := c.FilterChanged(ctx, []models.MListing{cached("1", 95000), cached("2", 125000)})
	if err != nil {
		t.Fatalf("second run returned %v", err)
	}
	if len(second) != 1 || second[0].ID != "1" || second[0].PreviousPrice != 100000 || second[0].IsNew {
		t.Fatalf("second run = %+v; want listing 1 as a price drop", second)
	}
	if rdb.data["product:videocards:RTX 5080:2"] != "120000" {
		t.Errorf("higher price overwrote the cache: %v", rdb.data)
	}
}

func TestFilterChangedFailsOpen(t *testing.T) {
	rdb := newMemoryRedis()
	rdb.readErr = errors.New("connection refused")
	in := []models.MListing{cached("1", 100000)}

	got, err := newTestCache(rdb).FilterChanged(context.Background(), in)
	if err == nil || len(got) != 1 {
		t.Errorf("FilterChanged = %v, %v; want listings passed through with an error", got, err)
	}
}

func TestClearCategory(t *testing.T) {
	rdb := newMemoryRedis()
	rdb.data["product:videocards:RTX 5080:1"] = "1"
	rdb.data["product:videocards:RTX 5090:2"] = "1"
	rdb.data["product:processors:7800X3D:3"] = "1"

	n, err := newTestCache(rdb).ClearCategory(context.Background(), "videocards")
	if err != nil || n != 2 {
		t.Fatalf("ClearCategory = %d, %v; want 2", n, err)
	}
	if len(rdb.data) != 1 {
		t.Errorf("remaining keys = %v", rdb.data)
	}
}
