package gacha

import (
	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/events"
)

const (
	// DefaultPityThreshold is the hard floor: a pull at or past it is
	// forced to Legendary regardless of the base roll and events.
	DefaultPityThreshold = 50

	// LevelWeightBreak is the user level at which base weights shift
	// from Common toward Legendary.
	LevelWeightBreak = 5
)

// Upgrade probabilities for each event bonus kind.
const (
	epicBoostChance      = 0.2
	legendaryBoostChance = 0.15
	rareBoostChance      = 0.25
)

type weightedRarity struct {
	rarity models.Rarity
	weight int
}

var baseWeights = []weightedRarity{
	{models.RarityCommon, 40},
	{models.RarityRare, 30},
	{models.RarityEpic, 20},
	{models.RarityLegendary, 10},
}

var leveledWeights = []weightedRarity{
	{models.RarityCommon, 35},
	{models.RarityRare, 30},
	{models.RarityEpic, 20},
	{models.RarityLegendary, 15},
}

// Resolution carries the resolved rarity plus the pity side effect the
// caller must persist atomically with the pull.
type Resolution struct {
	Rarity        models.Rarity
	PityBefore    int
	PityAfter     int
	PityTriggered bool
	Upgraded      bool
	UpgradedBy    string
}

type Resolver struct {
	pityThreshold int
	rng           RandomSource
}

type ResolverOption func(*Resolver)

func WithRNG(rng RandomSource) ResolverOption {
	return func(r *Resolver) { r.rng = rng }
}

func WithPityThreshold(threshold int) ResolverOption {
	return func(r *Resolver) { r.pityThreshold = threshold }
}

func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		pityThreshold: DefaultPityThreshold,
		rng:           DefaultRNG(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve rolls a rarity for one pull. Order matters: base weighted draw,
// then at most one event upgrade, then the pity override on top of both.
// boosted doubles event upgrade odds (the store's event booster item).
func (r *Resolver) Resolve(userLevel, pityCount int, activeEvents []events.Event, boosted bool) Resolution {
	res := Resolution{PityBefore: pityCount}

	res.Rarity = r.drawBase(userLevel)

	for _, event := range activeEvents {
		chance, upgraded, ok := upgradeRule(event.Bonus, res.Rarity)
		if !ok {
			continue
		}
		if boosted {
			chance *= 2
		}
		if r.rng.Float64() < chance {
			res.Rarity = upgraded
			res.Upgraded = true
			res.UpgradedBy = event.Name
			break // first matching event wins
		}
	}

	if pityCount >= r.pityThreshold && res.Rarity != models.RarityLegendary {
		res.Rarity = models.RarityLegendary
		res.PityTriggered = true
	}

	if res.Rarity == models.RarityLegendary {
		res.PityAfter = 0
	} else {
		res.PityAfter = pityCount + 1
	}

	return res
}

func (r *Resolver) drawBase(userLevel int) models.Rarity {
	weights := baseWeights
	if userLevel >= LevelWeightBreak {
		weights = leveledWeights
	}

	total := 0
	for _, w := range weights {
		total += w.weight
	}

	roll := r.rng.IntN(total)
	for _, w := range weights {
		roll -= w.weight
		if roll < 0 {
			return w.rarity
		}
	}
	return weights[len(weights)-1].rarity
}

// upgradeRule maps an event bonus to its probability and target rarity
// given the rarity already rolled. ok is false when the rule does not
// apply to the rolled rarity.
func upgradeRule(bonus events.BonusKind, rolled models.Rarity) (chance float64, upgraded models.Rarity, ok bool) {
	switch bonus {
	case events.EpicBoost:
		if rolled == models.RarityCommon {
			return epicBoostChance, models.RarityEpic, true
		}
	case events.LegendaryBoost:
		if rolled == models.RarityCommon || rolled == models.RarityRare {
			return legendaryBoostChance, models.RarityLegendary, true
		}
	case events.RareBoost:
		if rolled == models.RarityCommon {
			return rareBoostChance, models.RarityRare, true
		}
	}
	return 0, rolled, false
}
