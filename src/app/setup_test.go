package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"product-filter/src/config"
	"product-filter/src/logger"
	"product-filter/src/models"
)

const testConfig = `
name: product-filter
host: 127.0.0.1
port: 3005
storage:
  db_type: sqlite
  db_path: ":memory:"
network:
  timeout: 5
  concurrent_requests: 2
sources:
  - name: wb
    address: localhost:1
classifier:
  enabled: false
categories:
  - key: videocards
    platform_ids: {wb: "3274"}
    queries:
      - text: RTX 5080
        recommended_price: 120000
      - text: RTX 5090
  - key: laptops
    queries:
      - text: ThinkPad
`

func parse(t *testing.T, extra string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(testConfig + extra))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cfg
}

func newTestLogger() *logger.Logger {
	return logger.NewLoggerTo(&bytes.Buffer{}, "DEBUG", "test")
}

type nopExchanger struct{}

func (nopExchanger) Broadcast(*models.MPipelineEvent) {}
func (nopExchanger) Start() error                     { return nil }
func (nopExchanger) Stop() error                      { return nil }

// -----------------------------------------------------------------------------

func TestSetupWiresComponents(t *testing.T) {
	a, err := Setup(parse(t, ""), newTestLogger())
	if err != nil {
		t.Fatalf("Setup returned %v", err)
	}
	defer a.Close()

	if a.Orchestrator == nil || a.Prices == nil || a.Trends == nil || a.Aggregator == nil {
		t.Fatalf("missing components: %+v", a)
	}
	if a.Cache != nil {
		t.Errorf("cache built while disabled")
	}
	if len(a.Sources) != 1 || a.Sources[0].Name() != "wb" {
		t.Errorf("sources = %v", a.Sources)
	}
	if _, ok := a.Registry.Lookup("videocards"); !ok {
		t.Errorf("videocards rules missing")
	}

	before := a.Orchestrator
	a.AttachExchanger(nopExchanger{})
	if a.Orchestrator == before {
		t.Errorf("AttachExchanger kept the old orchestrator")
	}
}

func TestSetupRejectsBadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("categories:\n  videocards:\n    accessory_patterns: ['([']\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Setup(parse(t, "rules_override_path: "+path+"\n"), newTestLogger()); err == nil {
		t.Error("Setup accepted an invalid override pattern")
	}
}

func TestSetupMissingOverridesFile(t *testing.T) {
	if _, err := Setup(parse(t, "rules_override_path: /nonexistent/rules.yaml\n"), newTestLogger()); err == nil {
		t.Error("Setup accepted a missing overrides file")
	}
}

func TestSetupSeedsRecommendedPrices(t *testing.T) {
	a, err := Setup(parse(t, "price_update:\n  window_days: 14\n"), newTestLogger())
	if err != nil {
		t.Fatalf("Setup returned %v", err)
	}
	defer a.Close()
	ctx := context.Background()

	price, ok, err := a.Store.GetRecommendedPrice(ctx, "videocards", "RTX 5080")
	if err != nil || !ok || price != 120000 {
		t.Errorf("RTX 5080 recommended price = %v, %v, %v; want 120000", price, ok, err)
	}
	if _, ok, _ := a.Store.GetRecommendedPrice(ctx, "videocards", "RTX 5090"); ok {
		t.Errorf("RTX 5090 seeded without a configured price")
	}
	if a.Trends.WindowDays != 14 {
		t.Errorf("trend window = %d; want 14", a.Trends.WindowDays)
	}
}

func TestSeedKeepsStoredPrices(t *testing.T) {
	a, err := Setup(parse(t, ""), newTestLogger())
	if err != nil {
		t.Fatalf("Setup returned %v", err)
	}
	defer a.Close()
	ctx := context.Background()

	if err := a.Store.UpdateRecommendedPrice(ctx, "videocards", "RTX 5080", 131000); err != nil {
		t.Fatalf("UpdateRecommendedPrice returned %v", err)
	}
	if err := seedRecommendedPrices(ctx, a.Config, a.Store, newTestLogger()); err != nil {
		t.Fatalf("seedRecommendedPrices returned %v", err)
	}
	if price, _, _ := a.Store.GetRecommendedPrice(ctx, "videocards", "RTX 5080"); price != 131000 {
		t.Errorf("recommended price = %v; want the stored 131000", price)
	}
}
