package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"product-filter/src/analysis"
	"product-filter/src/grouping"
	"product-filter/src/helpers"
	"product-filter/src/interfaces"
	"product-filter/src/logger"
	"product-filter/src/models"
	"product-filter/src/validation"
)

func newTestLogger() *logger.Logger {
	return logger.NewLoggerTo(&bytes.Buffer{}, "DEBUG", "test")
}

type fakeFetcher struct {
	listings []models.MListing
	calls    int
}

func (f *fakeFetcher) FetchAllWithReport(ctx context.Context, queries []string, category string) ([]models.MListing, models.MFetchReport) {
	f.calls++
	wanted := map[string]bool{}
	for _, q := range queries {
		wanted[q] = true
	}
	var out []models.MListing
	for _, l := range f.listings {
		if wanted[l.Query] {
			l.Category = category
			out = append(out, l)
		}
	}
	return out, models.MFetchReport{Failures: map[string][]string{"RTX 5090": {"ozon"}}}
}

type memoryStore struct {
	mu          sync.Mutex
	upserts     map[string][]models.MListing
	stats       map[string]models.MMarketStatistics
	recommended map[string]float64
	history     map[string][]models.MPriceHistoryPoint
	readErr     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		upserts:     map[string][]models.MListing{},
		stats:       map[string]models.MMarketStatistics{},
		recommended: map[string]float64{},
		history:     map[string][]models.MPriceHistoryPoint{},
	}
}

func (m *memoryStore) Initialize() error { return nil }
func (m *memoryStore) Close() error      { return nil }

func (m *memoryStore) BatchUpsert(ctx context.Context, listings []models.MListing, stats *models.MMarketStatistics) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range listings {
		m.upserts[l.Query] = append(m.upserts[l.Query], l)
	}
	if stats != nil {
		m.stats[stats.QueryText] = *stats
	}
	return len(listings), nil
}

func (m *memoryStore) GetPriceHistory(ctx context.Context, query string, limit int) ([]models.MPriceHistoryPoint, error) {
	return m.history[query], nil
}

func (m *memoryStore) UpdateRecommendedPrice(ctx context.Context, category, query string, price float64) error {
	m.recommended[category+"/"+query] = price
	return nil
}

func (m *memoryStore) GetRecommendedPrice(ctx context.Context, category, query string) (float64, bool, error) {
	if m.readErr != nil {
		return 0, false, m.readErr
	}
	p, ok := m.recommended[category+"/"+query]
	return p, ok, nil
}

func (m *memoryStore) GetQueryStats(ctx context.Context, category string) ([]models.MQueryStats, error) {
	return nil, nil
}

type dropCache struct {
	drop map[string]bool
}

func (d *dropCache) FilterChanged(ctx context.Context, listings []models.MListing) ([]models.MListing, error) {
	var out []models.MListing
	for _, l := range listings {
		if !d.drop[l.ID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (d *dropCache) ClearCategory(ctx context.Context, category string) (int, error) { return 0, nil }

type recordingExchanger struct {
	events []*models.MPipelineEvent
}

func (r *recordingExchanger) Broadcast(e *models.MPipelineEvent) { r.events = append(r.events, e) }
func (r *recordingExchanger) Start() error                       { return nil }
func (r *recordingExchanger) Stop() error                        { return nil }

type failingClassifier struct{}

func (failingClassifier) Classify(ctx context.Context, items []models.MClassifierItem, category string) ([]models.MClassifierVerdict, error) {
	return nil, errors.New("llm unavailable")
}

// -----------------------------------------------------------------------------

func gpu(id, query, name, source string, price int64) models.MListing {
	return models.MListing{ID: id, Query: query, Name: name, Source: source, Price: price}
}

var marketListings = []models.MListing{
	gpu("a", "RTX 5080", "Видеокарта MSI GeForce RTX 5080 Gaming", "wb", 85000),
	gpu("b", "RTX 5080", "Видеокарта Palit RTX 5080 GamingPro", "ozon", 90000),
	gpu("c", "RTX 5080", "Видеокарта Gigabyte RTX 5080 Windforce", "wb", 15000),
	gpu("d", "RTX 5080", "Кабель питания 12VHPWR для RTX 5080", "ozon", 1500),
	gpu("e", "RTX 5080", "Видеокарта RTX 5090 Suprim", "wb", 250000),
	gpu("f", "RTX 5080", "Видеокарта RTX 5080 без цены", "wb", 0),
	gpu("h", "RTX 5080", "Видеокарта RTX 5080 коллекционная", "wb", 2000000),
	gpu("g", "RTX 5090", "Видеокарта ASUS RTX 5090 ROG Astral", "wb", 300000),
}

type testRig struct {
	orch      *Orchestrator
	fetcher   *fakeFetcher
	store     *memoryStore
	exchanger *recordingExchanger
}

func newRig(classifier interfaces.IExternalClassifier, cache interfaces.IPriceCache) *testRig {
	log := newTestLogger()
	registry := validation.NewRegistry()
	detector := analysis.NewAnomalyDetector(models.MAnomalyConfig{}, log)
	rig := &testRig{
		fetcher:   &fakeFetcher{listings: marketListings},
		store:     newMemoryStore(),
		exchanger: &recordingExchanger{},
	}
	rig.orch = NewOrchestrator(Dependencies{
		Fetcher:   rig.fetcher,
		Engine:    validation.NewEngine(registry, classifier, nil, log),
		Registry:  registry,
		Detector:  detector,
		Grouper:   grouping.NewGrouper(detector, registry, nil, log),
		Store:     rig.store,
		Cache:     cache,
		Exchanger: rig.exchanger,
		Settings:  models.MPipelineConfig{MinPrice: 1, MaxPrice: 1000000, ResultLimit: 100},
		Logger:    log,
	})
	return rig
}

// -----------------------------------------------------------------------------

func TestSearchSelectsOneListingPerModel(t *testing.T) {
	rig := newRig(nil, nil)

	resp, err := rig.orch.Search(context.Background(), models.MSearchRequest{Queries: []string{"RTX 5080", " RTX 5090 ", "RTX 5080"}, Category: "videocards"})
	if err != nil {
		t.Fatalf("Search returned %v", err)
	}
	if resp.TotalQueries != 2 || resp.TotalListings != 2 || len(resp.Listings) != 2 {
		t.Fatalf("response = %+v; want 2 queries, 2 listings", resp)
	}

	first, second := resp.Listings[0], resp.Listings[1]
	if first.ID != "c" || first.Price != 15000 || first.FlaggedAnomalous || !first.IsValid || first.ValidationReason == "" {
		t.Errorf("first listing = %+v; want validated price leader c", first)
	}
	if second.ID != "g" || second.Category != "videocards" {
		t.Errorf("second listing = %+v; want g", second)
	}

	st, ok := rig.store.stats["RTX 5080"]
	if !ok || st.Min != 15000 || st.Max != 90000 || st.SourceCount != 2 {
		t.Errorf("stored stats = %+v, %v", st, ok)
	}
	if n := len(rig.store.upserts["RTX 5080"]); n != 1 {
		t.Errorf("persisted %d RTX 5080 listings; want 1", n)
	}

	if got := rig.store.recommended["videocards/RTX 5080"]; got != 85000 {
		t.Errorf("seeded RTX 5080 recommended price = %v; want the median 85000", got)
	}
	if got := rig.store.recommended["videocards/RTX 5090"]; got != 300000 {
		t.Errorf("seeded RTX 5090 recommended price = %v; want 300000", got)
	}

	if len(rig.exchanger.events) != 1 {
		t.Fatalf("broadcast %d events; want 1", len(rig.exchanger.events))
	}
	ev := rig.exchanger.events[0]
	if ev.Category != "videocards" || len(ev.Listings) != 2 || ev.ProcessingMetrics.Fetched != 8 || ev.ProcessingMetrics.Validated != 4 {
		t.Errorf("event = %+v", ev)
	}
}

func TestSearchRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		req  models.MSearchRequest
	}{
		{"no queries", models.MSearchRequest{Category: "videocards"}},
		{"blank queries", models.MSearchRequest{Queries: []string{" ", ""}, Category: "videocards"}},
		{"unknown category", models.MSearchRequest{Queries: []string{"RTX 5080"}, Category: "laptops"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newRig(nil, nil)
			_, err := rig.orch.Search(context.Background(), tt.req)
			if !helpers.IsClientError(err) {
				t.Errorf("Search error = %v; want a client error", err)
			}
			if rig.fetcher.calls != 0 {
				t.Errorf("fetcher called %d times", rig.fetcher.calls)
			}
		})
	}
}

func TestSearchKeepsStoredRecommendedPrice(t *testing.T) {
	rig := newRig(nil, nil)
	rig.store.recommended["videocards/RTX 5080"] = 100000

	if _, err := rig.orch.Search(context.Background(), models.MSearchRequest{Queries: []string{"RTX 5080"}, Category: "videocards"}); err != nil {
		t.Fatalf("Search returned %v", err)
	}
	if got := rig.store.recommended["videocards/RTX 5080"]; got != 100000 {
		t.Errorf("recommended price = %v; want the stored 100000", got)
	}
}

func TestSearchAppliesLimit(t *testing.T) {
	resp, err := newRig(nil, nil).orch.Search(context.Background(), models.MSearchRequest{Queries: []string{"RTX 5080", "RTX 5090"}, Category: "videocards", Limit: 1})
	if err != nil {
		t.Fatalf("Search returned %v", err)
	}
	if len(resp.Listings) != 1 || resp.Listings[0].ID != "c" || resp.TotalListings != 1 {
		t.Errorf("response = %+v; want only the cheapest listing", resp)
	}
}

func TestSearchPriceCacheSuppression(t *testing.T) {
	rig := newRig(nil, &dropCache{drop: map[string]bool{"c": true}})

	resp, err := rig.orch.Search(context.Background(), models.MSearchRequest{Queries: []string{"RTX 5080", "RTX 5090"}, Category: "videocards"})
	if err != nil {
		t.Fatalf("Search returned %v", err)
	}
	if len(resp.Listings) != 1 || resp.Listings[0].ID != "g" {
		t.Errorf("listings = %+v; want only g", resp.Listings)
	}
	if n := len(rig.store.upserts["RTX 5080"]); n != 1 {
		t.Errorf("suppressed listing not persisted: %d", n)
	}
	if got := rig.exchanger.events[0].ProcessingMetrics.Suppressed; got != 1 {
		t.Errorf("suppressed = %d; want 1", got)
	}
}

func TestSearchClassifierFailureAbortsRun(t *testing.T) {
	rig := newRig(failingClassifier{}, nil)
	rig.fetcher.listings = append(append([]models.MListing(nil), marketListings...),
		gpu("u", "RTX 5080", "Игровая видеокарта нового поколения 16 ГБ", "ozon", 95000))

	_, err := rig.orch.Search(context.Background(), models.MSearchRequest{Queries: []string{"RTX 5080"}, Category: "videocards"})
	if err == nil {
		t.Fatalf("Search returned nil error")
	}
	var ce *helpers.ClassifierError
	if !errors.As(err, &ce) || helpers.IsClientError(err) {
		t.Errorf("Search error = %v; want a classifier error", err)
	}
	if len(rig.exchanger.events) != 0 || len(rig.store.upserts) != 0 {
		t.Errorf("aborted run produced output")
	}
}

func TestHintAnomalies(t *testing.T) {
	rig := newRig(nil, nil)
	in := []models.MListing{
		gpu("a", "RTX 5080", "x", "wb", 85000),
		gpu("b", "RTX 5080", "x", "wb", 90000),
		gpu("c", "RTX 5080", "x", "wb", 15000),
		gpu("g", "RTX 5090", "x", "wb", 300000),
	}
	got := rig.orch.hintAnomalies(in, "videocards")
	for _, l := range got {
		if want := l.ID == "c"; l.EscalationHint != want {
			t.Errorf("listing %s hinted = %v; want %v", l.ID, l.EscalationHint, want)
		}
	}
	if in[2].EscalationHint {
		t.Errorf("input listing modified")
	}
}

func TestCleanQueries(t *testing.T) {
	orch := newRig(nil, nil).orch
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{" RTX 5080", "", "RTX 5080 ", "rtx 5090"}, []string{"RTX 5080", "rtx 5090"}},
		{[]string{"RTX 5080", "rtx5080", "RTX  5080"}, []string{"RTX 5080"}},
		{[]string{"i9 14900K", "i9 14900KF", "i9 14900 KF"}, []string{"i9 14900K", "i9 14900KF"}},
	}
	for _, tt := range tests {
		got := orch.cleanQueries(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("cleanQueries(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
