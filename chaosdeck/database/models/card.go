package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Rarity tiers, ordered from weakest to strongest.
type Rarity string

const (
	RarityCommon    Rarity = "Common"
	RarityRare      Rarity = "Rare"
	RarityEpic      Rarity = "Epic"
	RarityLegendary Rarity = "Legendary"
	RarityLimited   Rarity = "Limited"
)

var rarityOrder = map[Rarity]int{
	RarityCommon:    0,
	RarityRare:      1,
	RarityEpic:      2,
	RarityLegendary: 3,
	RarityLimited:   4,
}

// Rank returns the position of the rarity in the Common..Limited ordering,
// -1 for unknown values.
func (r Rarity) Rank() int {
	if rank, ok := rarityOrder[r]; ok {
		return rank
	}
	return -1
}

func (r Rarity) Valid() bool {
	return r.Rank() >= 0
}

// MaxRarity returns the higher-ranked of two rarities.
func MaxRarity(a, b Rarity) Rarity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

type Card struct {
	bun.BaseModel `bun:"table:cards,alias:c"`

	ID            string    `bun:"id,pk"`
	UserID        string    `bun:"user_id,notnull"`
	Rarity        Rarity    `bun:"rarity,notnull"`
	Name          string    `bun:"name,notnull"`
	Description   string    `bun:"description"`
	ImageURL      string    `bun:"image_url"`
	Power         int       `bun:"power,notnull"`
	SpecialEffect string    `bun:"special_effect"`
	Theme         string    `bun:"theme"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
