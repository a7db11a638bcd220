package utils

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// NewID generates a time-ordered unique identifier for cards and
// campaigns. Snowflakes keep inserts roughly append-ordered, which the
// created_at indexes like.
func NewID() string {
	return snowflake.New(time.Now()).String()
}
