package geo

import (
	"math"
	"testing"

	"github.com/hitoshi/ichiba/internal/model"
)

func TestDistanceKm_SamePoint_ReturnsZero(t *testing.T) {
	d := DistanceKm(5.4164, 100.3327, 5.4164, 100.3327)
	if d != 0 {
		t.Errorf("DistanceKm(same point) = %f, want 0", d)
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	// ジョージタウンとクアラルンプール
	d1 := DistanceKm(5.4164, 100.3327, 3.1390, 101.6869)
	d2 := DistanceKm(3.1390, 101.6869, 5.4164, 100.3327)
	if math.Abs(d1-d2) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", d1, d2)
	}
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// ジョージタウン-クアラルンプール間はおよそ290km
	d := DistanceKm(5.4164, 100.3327, 3.1390, 101.6869)
	if d < 280 || d > 300 {
		t.Errorf("DistanceKm(Penang, KL) = %f, want roughly 290", d)
	}
}

func TestDistanceKm_NonNegative(t *testing.T) {
	points := [][4]float64{
		{0, 0, 0, 0},
		{-90, 0, 90, 0},
		{5.4, 100.3, 5.5, 100.4},
		{45, -180, 45, 180},
	}
	for _, p := range points {
		if d := DistanceKm(p[0], p[1], p[2], p[3]); d < 0 {
			t.Errorf("DistanceKm(%v) = %f, want >= 0", p, d)
		}
	}
}

func TestWithinRadius_FiltersAndPreservesOrder(t *testing.T) {
	near1 := &model.Market{Name: "Near 1", Latitude: 5.4170, Longitude: 100.3330}
	far := &model.Market{Name: "Far", Latitude: 3.1390, Longitude: 101.6869}
	near2 := &model.Market{Name: "Near 2", Latitude: 5.4100, Longitude: 100.3300}

	got := WithinRadius(5.4164, 100.3327, 10.0, []*model.Market{near1, far, near2})

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "Near 1" || got[1].Name != "Near 2" {
		t.Errorf("order not preserved: got [%s, %s]", got[0].Name, got[1].Name)
	}
}

func TestWithinRadius_ZeroDistancePassesZeroRadius(t *testing.T) {
	same := &model.Market{Name: "Here", Latitude: 5.4164, Longitude: 100.3327}

	got := WithinRadius(5.4164, 100.3327, 0, []*model.Market{same})
	if len(got) != 1 {
		t.Errorf("expected market at origin to pass radius 0, got %d results", len(got))
	}
}

func TestWithinRadius_EmptyInput(t *testing.T) {
	got := WithinRadius(5.4164, 100.3327, 10.0, nil)
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestContainsFold(t *testing.T) {
	cases := []struct {
		field  string
		needle string
		want   bool
	}{
		{"Chowrasta Market", "chowrasta", true},
		{"Chowrasta Market", "MARKET", true},
		{"Chowrasta Market", "rasta", true},
		{"Chowrasta Market", "pasar", false},
		{"", "x", false},
		{"anything", "", true},
	}
	for _, tc := range cases {
		if got := ContainsFold(tc.field, tc.needle); got != tc.want {
			t.Errorf("ContainsFold(%q, %q) = %v, want %v", tc.field, tc.needle, got, tc.want)
		}
	}
}
