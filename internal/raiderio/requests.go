package raiderio

import (
	"context"
	"encoding/json"
	"sort"

	"daebot/internal/domain"
)

// Field projections per operation. Each operation requests only what its
// parser consumes.
const (
	FieldsBestRuns   = "mythic_plus_best_runs,mythic_plus_scores_by_season:current"
	FieldsRecentRuns = "mythic_plus_recent_runs,mythic_plus_scores_by_season:current"
	FieldsGear       = "gear"
	FieldsRaid       = "raid_progression,mythic_plus_scores_by_season:current"
)

// BestRuns fetches each character's season-best runs and overall score.
func (c *Client) BestRuns(ctx context.Context, descs []domain.Descriptor) []Result[domain.CharacterView] {
	return fetchCharacters(ctx, c, descs, FieldsBestRuns, parseBestRuns)
}

// RecentRuns fetches each character's recent run history. The season score
// rides along so weekly aggregates have a real overall score.
func (c *Client) RecentRuns(ctx context.Context, descs []domain.Descriptor) []Result[domain.CharacterView] {
	return fetchCharacters(ctx, c, descs, FieldsRecentRuns, parseRecentRuns)
}

// Gear fetches each character's equipped item set.
func (c *Client) Gear(ctx context.Context, descs []domain.Descriptor) []Result[domain.GearView] {
	return fetchCharacters(ctx, c, descs, FieldsGear, parseGear)
}

// RaidProgression fetches each character's per-raid kill summaries.
func (c *Client) RaidProgression(ctx context.Context, descs []domain.Descriptor) []Result[domain.RaidView] {
	return fetchCharacters(ctx, c, descs, FieldsRaid, parseRaid)
}

func parseBestRuns(raw []byte, desc domain.Descriptor) (domain.CharacterView, error) {
	var p profileResponse
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.CharacterView{}, err
	}

	view := baseView(&p, desc)
	view.BestRuns = convertRuns(p.MythicPlusBestRuns)
	return view, nil
}

func parseRecentRuns(raw []byte, desc domain.Descriptor) (domain.CharacterView, error) {
	var p profileResponse
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.CharacterView{}, err
	}

	view := baseView(&p, desc)
	view.RecentRuns = convertRuns(p.MythicPlusRecentRuns)
	return view, nil
}

func parseGear(raw []byte, desc domain.Descriptor) (domain.GearView, error) {
	var p profileResponse
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.GearView{}, err
	}

	view := domain.GearView{
		Descriptor: desc,
		ClassName:  p.Class,
		Gear:       domain.GearSet{Items: map[string]domain.GearItem{}},
	}
	if p.Gear != nil {
		view.Gear.AverageItemLevel = p.Gear.ItemLevelEquipped
		for slot, item := range p.Gear.Items {
			view.Gear.Items[slot] = domain.GearItem{
				Name:      item.Name,
				ItemLevel: item.ItemLevel,
				Quality:   qualityName(item.ItemQuality),
			}
		}
	}
	return view, nil
}

func parseRaid(raw []byte, desc domain.Descriptor) (domain.RaidView, error) {
	var p profileResponse
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.RaidView{}, err
	}

	view := domain.RaidView{
		Descriptor:   desc,
		ClassName:    p.Class,
		OverallScore: seasonScore(&p),
	}

	slugs := make([]string, 0, len(p.RaidProgression))
	for slug := range p.RaidProgression {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	for _, slug := range slugs {
		view.Raids = append(view.Raids, domain.RaidProgress{
			RaidName: raidNameFromSlug(slug),
			Summary:  p.RaidProgression[slug].Summary,
		})
	}
	return view, nil
}

func baseView(p *profileResponse, desc domain.Descriptor) domain.CharacterView {
	role := domain.ParseRole(p.ActiveSpecRole)
	if p.ActiveSpecRole == "" {
		if r, ok := domain.RoleFor(p.ActiveSpecName, p.Class); ok {
			role = r
		}
	}
	return domain.CharacterView{
		Descriptor:   desc,
		ClassName:    p.Class,
		ActiveRole:   role,
		OverallScore: seasonScore(p),
	}
}

func seasonScore(p *profileResponse) float64 {
	if len(p.MythicPlusScoresBySeason) == 0 {
		return 0
	}
	return p.MythicPlusScoresBySeason[0].Scores.All
}

func convertRuns(wire []wireRun) []domain.Run {
	runs := make([]domain.Run, 0, len(wire))
	for _, w := range wire {
		upgrades := w.NumKeystoneUpgrades
		if upgrades < 0 {
			upgrades = 0
		}
		if upgrades > 3 {
			upgrades = 3
		}
		run := domain.Run{
			DungeonName:      w.Dungeon,
			MythicLevel:      w.MythicLevel,
			CompletedAt:      w.CompletedAt,
			DurationMs:       w.ClearTimeMs,
			KeystoneUpgrades: upgrades,
			Score:            w.Score,
			KeystoneRunID:    w.KeystoneRunID,
		}
		for _, a := range w.Affixes {
			run.Affixes = append(run.Affixes, a.Name)
		}
		runs = append(runs, run)
	}
	return runs
}
