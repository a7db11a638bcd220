package gacha

import (
	"testing"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/events"
)

// scriptedRNG replays a fixed sequence of draws.
type scriptedRNG struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (s *scriptedRNG) Float64() float64 {
	if s.fi >= len(s.floats) {
		return 0.99
	}
	v := s.floats[s.fi]
	s.fi++
	return v
}

func (s *scriptedRNG) IntN(n int) int {
	if s.ii >= len(s.ints) {
		return 0
	}
	v := s.ints[s.ii]
	s.ii++
	if v >= n {
		v = n - 1
	}
	return v
}

func testEvent(bonus events.BonusKind) events.Event {
	return events.Event{
		Name:  "Test Event",
		Theme: "dragonball",
		Bonus: bonus,
		Start: time.Now().Add(-time.Hour),
		End:   time.Now().Add(time.Hour),
	}
}

func TestResolveBaseWeights(t *testing.T) {
	tests := []struct {
		name  string
		level int
		roll  int
		want  models.Rarity
	}{
		{"low level common band", 1, 0, models.RarityCommon},
		{"low level common upper edge", 1, 39, models.RarityCommon},
		{"low level rare band", 1, 40, models.RarityRare},
		{"low level epic band", 1, 70, models.RarityEpic},
		{"low level legendary band", 1, 90, models.RarityLegendary},
		{"high level common shrinks", 5, 34, models.RarityCommon},
		{"high level rare band", 5, 35, models.RarityRare},
		{"high level legendary grows", 5, 85, models.RarityLegendary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := &scriptedRNG{ints: []int{tt.roll}, floats: []float64{0.99}}
			r := NewResolver(WithRNG(rng))

			res := r.Resolve(tt.level, 0, nil, false)
			if res.Rarity != tt.want {
				t.Errorf("Resolve() rarity = %s, want %s", res.Rarity, tt.want)
			}
		})
	}
}

func TestResolvePityFloor(t *testing.T) {
	tests := []struct {
		name     string
		pity     int
		roll     int
		want     models.Rarity
		wantPity int
		forced   bool
	}{
		{"below threshold stays common", 49, 0, models.RarityCommon, 50, false},
		{"at threshold forces legendary", 50, 0, models.RarityLegendary, 0, true},
		{"above threshold forces legendary", 73, 0, models.RarityLegendary, 0, true},
		{"natural legendary at threshold not flagged", 50, 90, models.RarityLegendary, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := &scriptedRNG{ints: []int{tt.roll}, floats: []float64{0.99}}
			r := NewResolver(WithRNG(rng))

			res := r.Resolve(1, tt.pity, nil, false)
			if res.Rarity != tt.want {
				t.Errorf("Resolve() rarity = %s, want %s", res.Rarity, tt.want)
			}
			if res.PityAfter != tt.wantPity {
				t.Errorf("Resolve() pityAfter = %d, want %d", res.PityAfter, tt.wantPity)
			}
			if res.PityTriggered != tt.forced {
				t.Errorf("Resolve() pityTriggered = %v, want %v", res.PityTriggered, tt.forced)
			}
		})
	}
}

func TestResolvePityCounter(t *testing.T) {
	// A non-legendary pull increments, a legendary pull resets.
	rng := &scriptedRNG{ints: []int{0, 90}, floats: []float64{0.99, 0.99}}
	r := NewResolver(WithRNG(rng))

	res := r.Resolve(1, 7, nil, false)
	if res.PityBefore != 7 || res.PityAfter != 8 {
		t.Errorf("common pull pity = %d -> %d, want 7 -> 8", res.PityBefore, res.PityAfter)
	}

	res = r.Resolve(1, 8, nil, false)
	if res.Rarity != models.RarityLegendary {
		t.Fatalf("expected legendary roll, got %s", res.Rarity)
	}
	if res.PityAfter != 0 {
		t.Errorf("legendary pull pityAfter = %d, want 0", res.PityAfter)
	}
}

func TestResolveEventUpgrades(t *testing.T) {
	tests := []struct {
		name   string
		bonus  events.BonusKind
		roll   int
		chance float64
		want   models.Rarity
		wantUp bool
	}{
		{"epic boost upgrades common", events.EpicBoost, 0, 0.1, models.RarityEpic, true},
		{"epic boost misses", events.EpicBoost, 0, 0.9, models.RarityCommon, false},
		{"epic boost ignores rare", events.EpicBoost, 40, 0.1, models.RarityRare, false},
		{"legendary boost upgrades common", events.LegendaryBoost, 0, 0.1, models.RarityLegendary, true},
		{"legendary boost upgrades rare", events.LegendaryBoost, 40, 0.1, models.RarityLegendary, true},
		{"legendary boost ignores epic", events.LegendaryBoost, 70, 0.1, models.RarityEpic, false},
		{"rare boost upgrades common", events.RareBoost, 0, 0.2, models.RarityRare, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := &scriptedRNG{ints: []int{tt.roll}, floats: []float64{tt.chance}}
			r := NewResolver(WithRNG(rng))

			res := r.Resolve(1, 0, []events.Event{testEvent(tt.bonus)}, false)
			if res.Rarity != tt.want {
				t.Errorf("Resolve() rarity = %s, want %s", res.Rarity, tt.want)
			}
			if res.Upgraded != tt.wantUp {
				t.Errorf("Resolve() upgraded = %v, want %v", res.Upgraded, tt.wantUp)
			}
		})
	}
}

func TestResolveSingleUpgradePerPull(t *testing.T) {
	// Both events could fire; only the first matching one applies.
	rng := &scriptedRNG{ints: []int{0}, floats: []float64{0.01, 0.01}}
	r := NewResolver(WithRNG(rng))

	active := []events.Event{testEvent(events.RareBoost), testEvent(events.EpicBoost)}
	res := r.Resolve(1, 0, active, false)

	if res.Rarity != models.RarityRare {
		t.Errorf("Resolve() rarity = %s, want %s (first event wins)", res.Rarity, models.RarityRare)
	}
	if res.UpgradedBy != "Test Event" {
		t.Errorf("Resolve() upgradedBy = %q", res.UpgradedBy)
	}
}

func TestResolveBoostedDoublesChance(t *testing.T) {
	// 0.3 misses the 0.2 epic boost but hits the boosted 0.4.
	rng := &scriptedRNG{ints: []int{0}, floats: []float64{0.3}}
	r := NewResolver(WithRNG(rng))

	res := r.Resolve(1, 0, []events.Event{testEvent(events.EpicBoost)}, true)
	if res.Rarity != models.RarityEpic {
		t.Errorf("boosted Resolve() rarity = %s, want %s", res.Rarity, models.RarityEpic)
	}
}

func TestResolveEventThenPityStillWins(t *testing.T) {
	// An event upgrade to a non-legendary tier cannot bypass the floor.
	rng := &scriptedRNG{ints: []int{0}, floats: []float64{0.01}}
	r := NewResolver(WithRNG(rng))

	res := r.Resolve(1, 50, []events.Event{testEvent(events.RareBoost)}, false)
	if res.Rarity != models.RarityLegendary {
		t.Errorf("Resolve() rarity = %s, want Legendary (pity floor)", res.Rarity)
	}
	if !res.PityTriggered {
		t.Error("Resolve() pityTriggered = false, want true")
	}
}

func TestResolveCustomThreshold(t *testing.T) {
	rng := &scriptedRNG{ints: []int{0}, floats: []float64{0.99}}
	r := NewResolver(WithRNG(rng), WithPityThreshold(10))

	res := r.Resolve(1, 10, nil, false)
	if res.Rarity != models.RarityLegendary {
		t.Errorf("Resolve() rarity = %s, want Legendary at custom threshold", res.Rarity)
	}
}
