package models

import (
	"time"

	"github.com/uptrace/bun"
)

type CampaignStatus string

const (
	CampaignActive CampaignStatus = "active"
	CampaignEnded  CampaignStatus = "ended"
)

type Campaign struct {
	bun.BaseModel `bun:"table:campaigns,alias:cp"`

	ID          string         `bun:"id,pk"`
	UserID      string         `bun:"user_id,notnull"`
	Theme       string         `bun:"theme,notnull"`
	CurrentTurn int            `bun:"current_turn,notnull,default:0"`
	Story       string         `bun:"story"`
	Status      CampaignStatus `bun:"status,notnull,default:'active'"`
	CreatedAt   time.Time      `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time      `bun:"updated_at,notnull"`
}
