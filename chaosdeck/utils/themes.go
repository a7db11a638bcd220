package utils

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// ThemeRandom is used when the requested theme cannot be resolved.
const ThemeRandom = "random"

// Themes is the canonical theme list for pulls and campaigns.
var Themes = []string{
	"onepiece", "dragonball", "evangelion", "fromsoftware", "jrpg", "anime", "soulslike", "random",
	"seven_deadly_sins", "naruto", "my_hero_academia", "jujutsu_kaisen", "demon_slayer", "attack_on_titan",
	"bleach", "hunter_x_hunter", "fullmetal_alchemist", "death_note", "chainsaw_man", "spy_x_family",
	"black_clover", "tokyo_ghoul", "final_fantasy", "persona", "kingdom_hearts", "tales_of", "nier_automata",
	"dragon_quest", "chrono_trigger", "fire_emblem", "xenoblade", "bravely_default", "octopath_traveler",
	"shin_megami_tensei", "suikoden", "valkyria_chronicles",
}

// ResolveTheme maps free-form input to a canonical theme. Exact matches
// win; otherwise the closest fuzzy match is taken, and anything with no
// plausible match falls back to ThemeRandom.
func ResolveTheme(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return ThemeRandom
	}

	for _, theme := range Themes {
		if theme == input {
			return theme
		}
	}

	matches := fuzzy.Find(input, Themes)
	if len(matches) > 0 {
		return Themes[matches[0].Index]
	}

	return ThemeRandom
}
