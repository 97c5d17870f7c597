package server

import (
	"time"

	"daebot/internal/domain"
)

// Wire DTOs. Domain types stay tag-free; everything the surface returns
// goes through one of these.

type runDTO struct {
	Dungeon     string    `json:"dungeon"`
	Level       int       `json:"level"`
	Score       float64   `json:"score"`
	Timed       bool      `json:"timed"`
	Upgrades    int       `json:"upgrades"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Spec        string    `json:"spec,omitempty"`
	Affixes     []string  `json:"affixes,omitempty"`
}

type characterDTO struct {
	Name           string              `json:"name"`
	Realm          string              `json:"realm"`
	Region         string              `json:"region"`
	Class          string              `json:"class"`
	Role           string              `json:"role,omitempty"`
	OverallScore   float64             `json:"overall_score"`
	MythicRating   float64             `json:"mythic_rating,omitempty"`
	BestRuns       []runDTO            `json:"best_runs,omitempty"`
	RecentRuns     []runDTO            `json:"recent_runs,omitempty"`
	RunsBySpec     map[string][]runDTO `json:"runs_by_spec,omitempty"`
	AvailableSpecs []string            `json:"available_specs,omitempty"`
}

type raidDTO struct {
	Name         string            `json:"name"`
	Class        string            `json:"class"`
	OverallScore float64           `json:"overall_score"`
	Raids        []raidProgressDTO `json:"raids"`
}

type raidProgressDTO struct {
	Raid    string `json:"raid"`
	Summary string `json:"summary"`
}

type gearItemDTO struct {
	Name      string `json:"name"`
	ItemLevel int    `json:"item_level"`
	Quality   string `json:"quality"`
}

type gearDTO struct {
	Name             string                 `json:"name"`
	Class            string                 `json:"class"`
	AverageItemLevel float64                `json:"average_item_level"`
	Items            map[string]gearItemDTO `json:"items"`
}

type linksDTO struct {
	Name     string `json:"name"`
	RaiderIO string `json:"raider_io"`
	Armory   string `json:"armory"`
	Logs     string `json:"warcraft_logs"`
}

type specStatsDTO struct {
	Runs     []runDTO `json:"runs"`
	Total    int      `json:"total"`
	AvgLevel float64  `json:"avg_level"`
	Highest  int      `json:"highest"`
	Dungeons []string `json:"dungeons"`
}

type comparisonDTO struct {
	Specs   map[string]specStatsDTO `json:"specs"`
	Summary string                  `json:"summary"`
}

type syncRecordDTO struct {
	ID                  string    `json:"id"`
	Timestamp           time.Time `json:"timestamp"`
	SyncType            string    `json:"sync_type"`
	RunsAdded           int       `json:"runs_added"`
	CharactersProcessed int       `json:"characters_processed"`
	DurationMs          int64     `json:"duration_ms"`
	Success             bool      `json:"success"`
	Error               string    `json:"error,omitempty"`
}

func runsResponse(runs []domain.Run) []runDTO {
	out := make([]runDTO, 0, len(runs))
	for _, r := range runs {
		out = append(out, runDTO{
			Dungeon:     r.DungeonName,
			Level:       r.MythicLevel,
			Score:       r.Score,
			Timed:       r.Timed(),
			Upgrades:    r.KeystoneUpgrades,
			CompletedAt: r.CompletedAt,
			DurationMs:  r.DurationMs,
			Spec:        r.SpecName,
			Affixes:     r.Affixes,
		})
	}
	return out
}

func charactersResponse(views []domain.CharacterView) []characterDTO {
	out := make([]characterDTO, 0, len(views))
	for _, v := range views {
		dto := characterDTO{
			Name:           v.Descriptor.Name,
			Realm:          v.Descriptor.Realm,
			Region:         v.Descriptor.Region,
			Class:          v.ClassName,
			Role:           string(v.ActiveRole),
			OverallScore:   v.OverallScore,
			MythicRating:   v.MythicRating,
			AvailableSpecs: v.AvailableSpecs,
		}
		if len(v.BestRuns) > 0 {
			dto.BestRuns = runsResponse(v.BestRuns)
		}
		if len(v.RecentRuns) > 0 {
			dto.RecentRuns = runsResponse(v.RecentRuns)
		}
		if len(v.RunsBySpec) > 0 {
			dto.RunsBySpec = make(map[string][]runDTO, len(v.RunsBySpec))
			for spec, runs := range v.RunsBySpec {
				dto.RunsBySpec[spec] = runsResponse(runs)
			}
		}
		out = append(out, dto)
	}
	return out
}

func raidsResponse(views []domain.RaidView) []raidDTO {
	out := make([]raidDTO, 0, len(views))
	for _, v := range views {
		dto := raidDTO{
			Name:         v.Descriptor.Name,
			Class:        v.ClassName,
			OverallScore: v.OverallScore,
			Raids:        make([]raidProgressDTO, 0, len(v.Raids)),
		}
		for _, p := range v.Raids {
			dto.Raids = append(dto.Raids, raidProgressDTO{Raid: p.RaidName, Summary: p.Summary})
		}
		out = append(out, dto)
	}
	return out
}

func gearResponse(views []domain.GearView) []gearDTO {
	out := make([]gearDTO, 0, len(views))
	for _, v := range views {
		dto := gearDTO{
			Name:             v.Descriptor.Name,
			Class:            v.ClassName,
			AverageItemLevel: v.Gear.AverageItemLevel,
			Items:            make(map[string]gearItemDTO, len(v.Gear.Items)),
		}
		for slot, item := range v.Gear.Items {
			dto.Items[slot] = gearItemDTO{Name: item.Name, ItemLevel: item.ItemLevel, Quality: item.Quality}
		}
		out = append(out, dto)
	}
	return out
}

func linksResponse(links []domain.CharacterLinks) []linksDTO {
	out := make([]linksDTO, 0, len(links))
	for _, l := range links {
		out = append(out, linksDTO{
			Name:     l.Descriptor.Name,
			RaiderIO: l.RaiderIOURL,
			Armory:   l.ArmoryURL,
			Logs:     l.LogsURL,
		})
	}
	return out
}

func comparisonResponse(cmp domain.SpecComparison) comparisonDTO {
	dto := comparisonDTO{
		Specs:   make(map[string]specStatsDTO, len(cmp.Specs)),
		Summary: cmp.Summary,
	}
	for spec, stats := range cmp.Specs {
		dto.Specs[spec] = specStatsDTO{
			Runs:     runsResponse(stats.Runs),
			Total:    stats.Total,
			AvgLevel: stats.AvgLevel,
			Highest:  stats.Highest,
			Dungeons: stats.Dungeons,
		}
	}
	return dto
}

func syncHistoryResponse(records []domain.SyncRecord) []syncRecordDTO {
	out := make([]syncRecordDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, syncRecordDTO{
			ID:                  rec.ID,
			Timestamp:           rec.Timestamp,
			SyncType:            rec.SyncType,
			RunsAdded:           rec.RunsAdded,
			CharactersProcessed: rec.CharactersProcessed,
			DurationMs:          rec.DurationMs,
			Success:             rec.Success,
			Error:               rec.ErrorMessage,
		})
	}
	return out
}
