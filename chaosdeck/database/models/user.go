package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            string    `bun:"id,pk"`
	Points        int64     `bun:"points,notnull,default:0"`
	Level         int       `bun:"level,notnull,default:1"`
	PityCount     int       `bun:"pity_count,notnull,default:0"`
	Streak        int       `bun:"streak,notnull,default:0"`
	LastDaily     time.Time `bun:"last_daily,nullzero"`
	FusionCount   int       `bun:"fusion_count,notnull,default:0"`
	DailyCount    int       `bun:"daily_count,notnull,default:0"`
	FusionCrystal bool      `bun:"fusion_crystal,notnull,default:false"`
	EventBooster  bool      `bun:"event_booster,notnull,default:false"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// ClaimedOn reports whether the user's last daily claim happened on the
// given calendar day (local time of the server).
func (u *User) ClaimedOn(day time.Time) bool {
	if u.LastDaily.IsZero() {
		return false
	}
	y1, m1, d1 := u.LastDaily.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
