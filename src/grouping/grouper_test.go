package grouping

import (
	"bytes"
	"strings"
	"testing"

	"product-filter/src/analysis"
	"product-filter/src/logger"
	"product-filter/src/models"
	"product-filter/src/validation"
)

func newTestGrouper() *Grouper {
	log := logger.NewLoggerTo(&bytes.Buffer{}, "DEBUG", "test")
	return NewGrouper(analysis.NewAnomalyDetector(models.MAnomalyConfig{}, log), validation.NewRegistry(), nil, log)
}

func byQuery(l models.MListing) string {
	return strings.ToLower(strings.ReplaceAll(l.Query, " ", ""))
}

func validated(id, query, name string, price int64, reason string) models.MListing {
	return models.MListing{ID: id, Query: query, Name: name, Price: price, IsValid: true, ValidationReason: reason, Confidence: 0.9}
}

// -----------------------------------------------------------------------------

func TestPriceLeaderKeptDespiteAnomaly(t *testing.T) {
	g := newTestGrouper()
	listings := []models.MListing{
		validated("1", "RTX 5080", "Видеокарта MSI RTX 5080", 85000, models.ReasonCodeValidated),
		validated("2", "RTX 5080", "Видеокарта Palit RTX 5080", 90000, models.ReasonCodeValidated),
		validated("3", "RTX 5080", "Видеокарта Gigabyte RTX 5080", 15000, models.ReasonCodeValidated),
	}

	got := g.GroupAndSelect(listings, byQuery, "videocards")
	if len(got) != 1 {
		t.Fatalf("GroupAndSelect returned %d listings; want 1", len(got))
	}
	if got[0].ID != "3" || got[0].Price != 15000 {
		t.Errorf("selected %s at %d; want 3 at 15000", got[0].ID, got[0].Price)
	}
	if got[0].FlaggedAnomalous || got[0].AnomalyReason != "" {
		t.Errorf("selected listing still flagged: %+v", got[0])
	}
}

func TestSelectionFallsBackToUnflagged(t *testing.T) {
	tests := []struct {
		name      string
		cheapName string
		reason    string
	}{
		{"no validation reason", "Видеокарта Gigabyte RTX 5080", ""},
		{"accessory", "Кабель питания для RTX 5080", models.ReasonCodeValidated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listings := []models.MListing{
				validated("1", "RTX 5080", "Видеокарта MSI RTX 5080", 85000, models.ReasonCodeValidated),
				validated("2", "RTX 5080", "Видеокарта Palit RTX 5080", 90000, models.ReasonCodeValidated),
				validated("3", "RTX 5080", tt.cheapName, 15000, tt.reason),
			}
			got := newTestGrouper().GroupAndSelect(listings, byQuery, "videocards")
			if len(got) != 1 || got[0].ID != "1" || got[0].Price != 85000 {
				t.Errorf("GroupAndSelect = %+v; want listing 1 at 85000", got)
			}
		})
	}
}

func TestAllFlaggedSelectsCheapest(t *testing.T) {
	listings := []models.MListing{
		validated("a", "RTX 5080", "RTX 5080", 1200, ""),
		validated("b", "RTX 5080", "RTX 5080", 1000, ""),
	}
	got := newTestGrouper().GroupAndSelect(listings, byQuery, "videocards")
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("GroupAndSelect = %+v; want listing b", got)
	}
	if !got[0].FlaggedAnomalous {
		t.Errorf("listing b not flagged: %+v", got[0])
	}
}

func TestOneListingPerKey(t *testing.T) {
	listings := []models.MListing{
		validated("1", "RTX 5080", "RTX 5080 A", 100000, models.ReasonCodeValidated),
		validated("2", "RTX 5090", "RTX 5090 A", 200000, models.ReasonCodeValidated),
		validated("3", "rtx5080", "RTX 5080 B", 98000, models.ReasonCodeValidated),
		validated("4", "RTX 5090", "RTX 5090 B", 210000, models.ReasonCodeValidated),
		validated("5", "", "orphan", 1, models.ReasonCodeValidated),
	}
	got := newTestGrouper().GroupAndSelect(listings, byQuery, "videocards")

	want := map[string]string{"rtx5080": "3", "rtx5090": "2"}
	if len(got) != len(want) {
		t.Fatalf("GroupAndSelect returned %d listings; want %d", len(got), len(want))
	}
	for _, l := range got {
		key := byQuery(l)
		if want[key] != l.ID {
			t.Errorf("key %s selected %s; want %s", key, l.ID, want[key])
		}
	}
}

func TestPartition(t *testing.T) {
	listings := []models.MListing{
		{ID: "1", Query: "B"}, {ID: "2", Query: "A"}, {ID: "3", Query: "b"}, {ID: "4", Query: ""},
	}
	groups := Partition(listings, byQuery)
	if len(groups) != 2 {
		t.Fatalf("Partition returned %d groups; want 2", len(groups))
	}
	if groups[0].Key != "b" || len(groups[0].Listings) != 2 || groups[1].Key != "a" {
		t.Errorf("Partition = %+v", groups)
	}
	for _, g := range groups {
		for _, l := range g.Listings {
			if byQuery(l) != g.Key {
				t.Errorf("listing %s in group %s", l.ID, g.Key)
			}
		}
	}
}
