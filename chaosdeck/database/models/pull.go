package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Pull records a single gacha draw for history and event analytics.
type Pull struct {
	bun.BaseModel `bun:"table:pulls,alias:p"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	CardID    string    `bun:"card_id,notnull"`
	Rarity    Rarity    `bun:"rarity,notnull"`
	Theme     string    `bun:"theme"`
	PityAfter int       `bun:"pity_after,notnull"`
	Upgraded  bool      `bun:"upgraded,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
