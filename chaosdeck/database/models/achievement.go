package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RequirementType selects which user metric an achievement rule reads.
type RequirementType string

const (
	RequirementCards     RequirementType = "cards"
	RequirementLegendary RequirementType = "legendary"
	RequirementStreak    RequirementType = "streak"
	RequirementCampaigns RequirementType = "campaigns"
	RequirementFusions   RequirementType = "fusions"
	RequirementDailies   RequirementType = "dailies"
	RequirementPoints    RequirementType = "points"
)

type Achievement struct {
	bun.BaseModel `bun:"table:achievements,alias:a"`

	ID               string          `bun:"id,pk"`
	Name             string          `bun:"name,notnull"`
	Description      string          `bun:"description"`
	PointsReward     int64           `bun:"points_reward,notnull"`
	RequirementType  RequirementType `bun:"requirement_type,notnull"`
	RequirementValue int64           `bun:"requirement_value,notnull"`
}

type UserAchievement struct {
	bun.BaseModel `bun:"table:user_achievements,alias:ua"`

	UserID        string    `bun:"user_id,pk"`
	AchievementID string    `bun:"achievement_id,pk"`
	UnlockedAt    time.Time `bun:"unlocked_at,notnull"`
}

type Badge struct {
	bun.BaseModel `bun:"table:badges,alias:b"`

	UserID    string    `bun:"user_id,pk"`
	Name      string    `bun:"badge_name,pk"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
