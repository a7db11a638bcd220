package events

import "time"

// BonusKind is the rarity-upgrade rule an event applies to themed pulls.
type BonusKind string

const (
	EpicBoost      BonusKind = "epic_boost"
	LegendaryBoost BonusKind = "legendary_boost"
	RareBoost      BonusKind = "rare_boost"
)

type Event struct {
	Name        string
	Theme       string
	Bonus       BonusKind
	Description string
	Start       time.Time
	End         time.Time
}

// Active reports whether the event window covers t. The end bound is
// exclusive so back-to-back windows never overlap.
func (e Event) Active(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

// Calendar is the static event schedule. It is a pure function of time;
// nothing here is persisted.
type Calendar struct {
	schedule []Event
}

func NewCalendar() *Calendar {
	return &Calendar{schedule: defaultSchedule}
}

func NewCalendarWithSchedule(schedule []Event) *Calendar {
	return &Calendar{schedule: schedule}
}

// ActiveAt returns every event whose window covers t.
func (c *Calendar) ActiveAt(t time.Time) []Event {
	var active []Event
	for _, e := range c.schedule {
		if e.Active(t) {
			active = append(active, e)
		}
	}
	return active
}

// ForTheme filters ActiveAt down to events matching the pull's theme.
func (c *Calendar) ForTheme(t time.Time, theme string) []Event {
	var matched []Event
	for _, e := range c.ActiveAt(t) {
		if e.Theme == theme {
			matched = append(matched, e)
		}
	}
	return matched
}

var defaultSchedule = []Event{
	{
		Name:        "Seven Deadly Sins Event",
		Theme:       "seven_deadly_sins",
		Bonus:       EpicBoost,
		Description: "Sinful power flows through the cards...",
		Start:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	},
	{
		Name:        "Dragon Ball Fusion Event",
		Theme:       "dragonball",
		Bonus:       LegendaryBoost,
		Description: "Fusion cards have increased power...",
		Start:       time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	},
	{
		Name:        "Evangelion Chaos Event",
		Theme:       "evangelion",
		Bonus:       RareBoost,
		Description: "The angels bring chaos to card pulls...",
		Start:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	},
}
