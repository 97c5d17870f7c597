package raiderio

import (
	"strings"
	"time"
)

// profileResponse is the partial RaiderIO character profile; only the
// fields this client projects are unmarshaled.
type profileResponse struct {
	Name           string `json:"name"`
	Class          string `json:"class"`
	ActiveSpecName string `json:"active_spec_name"`
	ActiveSpecRole string `json:"active_spec_role"`
	ProfileURL     string `json:"profile_url"`

	MythicPlusBestRuns       []wireRun                       `json:"mythic_plus_best_runs"`
	MythicPlusRecentRuns     []wireRun                       `json:"mythic_plus_recent_runs"`
	MythicPlusScoresBySeason []wireSeason                    `json:"mythic_plus_scores_by_season"`
	Gear                     *wireGear                       `json:"gear"`
	RaidProgression          map[string]wireRaidProgression  `json:"raid_progression"`
}

type wireRun struct {
	Dungeon             string     `json:"dungeon"`
	MythicLevel         int        `json:"mythic_level"`
	CompletedAt         time.Time  `json:"completed_at"`
	ClearTimeMs         int64      `json:"clear_time_ms"`
	KeystoneRunID       int64      `json:"keystone_run_id"`
	NumKeystoneUpgrades int        `json:"num_keystone_upgrades"`
	Score               float64    `json:"score"`
	Affixes             []wireAffix `json:"affixes"`
}

type wireAffix struct {
	Name string `json:"name"`
}

type wireSeason struct {
	Season string `json:"season"`
	Scores struct {
		All    float64 `json:"all"`
		DPS    float64 `json:"dps"`
		Healer float64 `json:"healer"`
		Tank   float64 `json:"tank"`
	} `json:"scores"`
}

type wireGear struct {
	ItemLevelEquipped float64             `json:"item_level_equipped"`
	Items             map[string]wireItem `json:"items"`
}

type wireItem struct {
	Name        string `json:"name"`
	ItemLevel   int    `json:"item_level"`
	ItemQuality int    `json:"item_quality"`
}

type wireRaidProgression struct {
	Summary            string `json:"summary"`
	TotalBosses        int    `json:"total_bosses"`
	NormalBossesKilled int    `json:"normal_bosses_killed"`
	HeroicBossesKilled int    `json:"heroic_bosses_killed"`
	MythicBossesKilled int    `json:"mythic_bosses_killed"`
}

var qualityNames = map[int]string{
	0: "Poor",
	1: "Common",
	2: "Uncommon",
	3: "Rare",
	4: "Epic",
	5: "Legendary",
	6: "Artifact",
	7: "Heirloom",
}

func qualityName(q int) string {
	if name, ok := qualityNames[q]; ok {
		return name
	}
	return "Unknown"
}

// raidNameFromSlug turns "nerubar-palace" into "Nerubar Palace".
func raidNameFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
