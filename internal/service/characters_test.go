package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"daebot/internal/blizzard"
	"daebot/internal/cache"
	"daebot/internal/config"
	"daebot/internal/csvlog"
	"daebot/internal/database"
	"daebot/internal/domain"
	"daebot/internal/repository"
	"daebot/internal/upstream"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor(t *testing.T, name string) domain.Descriptor {
	t.Helper()
	desc, err := domain.NewDescriptor(name, "thrall", "us")
	require.NoError(t, err)
	return desc
}

func newCacheOnlyService(t *testing.T, descs ...domain.Descriptor) *CharacterService {
	t.Helper()
	return &CharacterService{
		cache:  cache.New(zerolog.Nop()),
		cfg:    &config.Config{Characters: descs},
		logger: zerolog.Nop(),
	}
}

func TestGetCached_HitSkipsFetch(t *testing.T) {
	s := newCacheOnlyService(t)
	cached := []domain.CharacterView{{ClassName: "Death Knight"}}
	s.cache.Set("slot", cached, time.Hour)

	calls := 0
	views, fresh, err := getCached(context.Background(), s, "slot", time.Hour, false,
		func(context.Context) ([]domain.CharacterView, []*upstream.Error) {
			calls++
			return nil, nil
		})
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, 0, calls)
	assert.Equal(t, cached, views)
}

func TestGetCached_ForceRefreshBypassesCache(t *testing.T) {
	s := newCacheOnlyService(t)
	s.cache.Set("slot", []domain.CharacterView{{ClassName: "stale"}}, time.Hour)

	views, fresh, err := getCached(context.Background(), s, "slot", time.Hour, true,
		func(context.Context) ([]domain.CharacterView, []*upstream.Error) {
			return []domain.CharacterView{{ClassName: "Warrior"}}, nil
		})
	require.NoError(t, err)
	assert.True(t, fresh)
	require.Len(t, views, 1)
	assert.Equal(t, "Warrior", views[0].ClassName)

	// refreshed value replaced the cached one
	got, ok := s.cache.Get("slot")
	require.True(t, ok)
	assert.Equal(t, views, got)
}

func TestGetCached_StaleServedWhenRefreshFails(t *testing.T) {
	s := newCacheOnlyService(t)
	desc := testDescriptor(t, "Daemourne")

	stale := []domain.CharacterView{{Descriptor: desc, ClassName: "Death Knight"}}
	s.cache.Set("slot", stale, -time.Millisecond)

	views, fresh, err := getCached(context.Background(), s, "slot", time.Hour, false,
		func(context.Context) ([]domain.CharacterView, []*upstream.Error) {
			return nil, []*upstream.Error{{Kind: upstream.KindHTTP, Status: 503, Descriptor: desc}}
		})
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, stale, views)
}

func TestGetCached_TotalFailureWithoutStale(t *testing.T) {
	s := newCacheOnlyService(t)
	desc := testDescriptor(t, "Daemourne")

	_, _, err := getCached(context.Background(), s, "slot", time.Hour, false,
		func(context.Context) ([]domain.CharacterView, []*upstream.Error) {
			return nil, []*upstream.Error{{Kind: upstream.KindTimeout, Descriptor: desc}}
		})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 1 character fetches failed")
}

func TestGetCached_PartialSuccessIsCached(t *testing.T) {
	s := newCacheOnlyService(t)
	good := testDescriptor(t, "Daemourne")
	bad := testDescriptor(t, "Vexia")

	views, fresh, err := getCached(context.Background(), s, "slot", time.Hour, false,
		func(context.Context) ([]domain.CharacterView, []*upstream.Error) {
			return []domain.CharacterView{{Descriptor: good, ClassName: "Death Knight"}},
				[]*upstream.Error{{Kind: upstream.KindNotFound, Status: 404, Descriptor: bad}}
		})
	require.NoError(t, err)
	assert.True(t, fresh)
	require.Len(t, views, 1)

	got, ok := s.cache.Get("slot")
	require.True(t, ok)
	assert.Equal(t, views, got)
}

func TestGetLinks(t *testing.T) {
	desc := testDescriptor(t, "Daemourne")
	s := newCacheOnlyService(t, desc)

	links := s.GetLinks(false)
	require.Len(t, links, 1)
	assert.Equal(t, "https://raider.io/characters/us/thrall/Daemourne", links[0].RaiderIOURL)
	assert.Equal(t, "https://worldofwarcraft.blizzard.com/en-us/character/us/thrall/daemourne", links[0].ArmoryURL)
	assert.Equal(t, "https://www.warcraftlogs.com/character/us/thrall/daemourne", links[0].LogsURL)

	// second call comes from cache
	s.GetLinks(false)
	assert.EqualValues(t, 1, s.cache.Stats().Sets)
	assert.EqualValues(t, 1, s.cache.Stats().Hits)
}

func TestCompareSpecs_Unconfigured(t *testing.T) {
	s := newCacheOnlyService(t)
	s.bliz = blizzard.NewClient(&config.Config{}, zerolog.Nop())

	cmp, err := s.CompareSpecs(context.Background(), "Daemourne", false)
	require.NoError(t, err)
	assert.Empty(t, cmp.Specs)
	assert.Contains(t, cmp.Summary, "not configured")
}

func TestApplySeasonProfile(t *testing.T) {
	desc := testDescriptor(t, "Daemourne")
	view := domain.CharacterView{Descriptor: desc, ClassName: "Death Knight"}

	profile := &blizzard.SeasonProfile{
		CharacterName: "daemourne",
		MythicRating:  2480.2,
		Runs: []domain.Run{
			{DungeonName: "The Dawnbreaker", MythicLevel: 15, SpecName: "Blood", KeystoneUpgrades: 1},
			{DungeonName: "Ara-Kara, City of Echoes", MythicLevel: 12, SpecName: "Unholy"},
			{DungeonName: "The Dawnbreaker", MythicLevel: 10, SpecName: "Blood"},
			{DungeonName: "Mists of Tirna Scithe", MythicLevel: 8},
		},
	}
	applySeasonProfile(&view, profile)

	assert.Equal(t, 2480.2, view.MythicRating)
	assert.Len(t, view.SpecRuns, 4)
	assert.Equal(t, []string{"Blood", "Unholy"}, view.AvailableSpecs)
	assert.Len(t, view.RunsBySpec["Blood"], 2)
	assert.Len(t, view.RunsBySpec["Unholy"], 1)
}

func TestApplySeasonProfile_NameMismatchIgnored(t *testing.T) {
	view := domain.CharacterView{Descriptor: testDescriptor(t, "Daemourne")}
	applySeasonProfile(&view, &blizzard.SeasonProfile{CharacterName: "Vexia", MythicRating: 100})
	assert.Zero(t, view.MythicRating)
	assert.Nil(t, view.RunsBySpec)
}

func TestFilterSpecRuns_CaseInsensitive(t *testing.T) {
	view := domain.CharacterView{
		SpecRuns: []domain.Run{
			{DungeonName: "A", SpecName: "Blood"},
			{DungeonName: "B", SpecName: "Unholy"},
			{DungeonName: "C", SpecName: "Blood"},
		},
	}

	runs := filterSpecRuns(view, "blood")
	require.Len(t, runs, 2)
	assert.Equal(t, "A", runs[0].DungeonName)
	assert.Equal(t, "C", runs[1].DungeonName)

	assert.Empty(t, filterSpecRuns(view, "Frost"))
}

func TestCompareSpecsHelper(t *testing.T) {
	view := domain.CharacterView{
		Descriptor: testDescriptor(t, "Daemourne"),
		RunsBySpec: map[string][]domain.Run{
			"Blood": {
				{DungeonName: "The Dawnbreaker", MythicLevel: 15},
				{DungeonName: "Ara-Kara, City of Echoes", MythicLevel: 11},
				{DungeonName: "The Dawnbreaker", MythicLevel: 10},
			},
			"Unholy": {
				{DungeonName: "Mists of Tirna Scithe", MythicLevel: 12},
			},
		},
	}

	cmp := compareSpecs(view)
	require.Len(t, cmp.Specs, 2)

	blood := cmp.Specs["Blood"]
	assert.Equal(t, 3, blood.Total)
	assert.Equal(t, 15, blood.Highest)
	assert.InDelta(t, 12.0, blood.AvgLevel, 0.001)
	assert.Equal(t, []string{"Ara-Kara, City of Echoes", "The Dawnbreaker"}, blood.Dungeons)

	unholy := cmp.Specs["Unholy"]
	assert.Equal(t, 1, unholy.Total)
	assert.Equal(t, 12, unholy.Highest)

	assert.Contains(t, cmp.Summary, "2 spec(s)")
}

func TestCompareSpecsHelper_NoSpecRuns(t *testing.T) {
	cmp := compareSpecs(domain.CharacterView{Descriptor: testDescriptor(t, "Daemourne")})
	assert.Empty(t, cmp.Specs)
	assert.Contains(t, cmp.Summary, "no spec-tagged runs")
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		CurrentSeasonName: "season-tww-2",
		DBPath:            filepath.Join(dir, "runs.db"),
		CSVDir:            filepath.Join(dir, "weekly"),
	}

	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &CharacterService{
		cache:  cache.New(zerolog.Nop()),
		csv:    csvlog.New(cfg, zerolog.Nop()),
		runs:   repository.NewRunRepository(db, zerolog.Nop()),
		syncs:  repository.NewSyncRepository(db, zerolog.Nop()),
		cfg:    cfg,
		logger: zerolog.Nop(),
	}

	desc := testDescriptor(t, "Daemourne")
	views := []domain.CharacterView{{
		Descriptor: desc,
		ClassName:  "Death Knight",
		RecentRuns: []domain.Run{{
			DungeonName:      "The Dawnbreaker",
			MythicLevel:      15,
			CompletedAt:      time.Now().UTC(),
			DurationMs:       1833000,
			KeystoneUpgrades: 2,
			Score:            225.0,
		}},
	}}

	s.archive(context.Background(), views, 750*time.Millisecond)

	count, err := s.runs.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	history, err := s.syncs.History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
	assert.Equal(t, 1, history[0].RunsAdded)
	assert.Equal(t, 1, history[0].CharactersProcessed)
	assert.EqualValues(t, 750, history[0].DurationMs)

	entries, err := os.ReadDir(cfg.CSVDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "weekly-mplus-"))

	// archiving the same batch again adds nothing
	s.archive(context.Background(), views, time.Second)
	count, err = s.runs.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
