// Package service is the aggregation facade over the upstream clients.
// Every operation is cache-first with a configurable TTL, serves stale
// data when a refresh fails outright, and archives recent runs to the
// weekly CSV and the SQLite run archive as a side effect of fresh fetches.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"daebot/internal/blizzard"
	"daebot/internal/cache"
	"daebot/internal/config"
	"daebot/internal/constants"
	"daebot/internal/csvlog"
	"daebot/internal/domain"
	"daebot/internal/raiderio"
	"daebot/internal/repository"
	"daebot/internal/reset"
	"daebot/internal/upstream"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// ErrUnknownCharacter is returned when a per-character operation names a
// character outside the configured roster.
var ErrUnknownCharacter = errors.New("character not in roster")

type CharacterService struct {
	rio    *raiderio.Client
	bliz   *blizzard.Client
	cache  *cache.Cache
	csv    *csvlog.Log
	runs   *repository.RunRepository
	syncs  *repository.SyncRepository
	cfg    *config.Config
	logger zerolog.Logger
}

func NewCharacterService(
	rio *raiderio.Client,
	bliz *blizzard.Client,
	c *cache.Cache,
	csv *csvlog.Log,
	runs *repository.RunRepository,
	syncs *repository.SyncRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *CharacterService {
	return &CharacterService{
		rio:    rio,
		bliz:   bliz,
		cache:  c,
		csv:    csv,
		runs:   runs,
		syncs:  syncs,
		cfg:    cfg,
		logger: logger,
	}
}

// getCached runs the cache-first protocol for one facade slot. The bool
// result reports whether the returned views came from a fresh fetch rather
// than the cache or a stale fallback.
func getCached[T any](ctx context.Context, s *CharacterService, slot string, ttl time.Duration, forceRefresh bool, fetch func(context.Context) ([]T, []*upstream.Error)) ([]T, bool, error) {
	if !forceRefresh {
		if cached, ok := s.cache.Get(slot); ok {
			if views, ok := cached.([]T); ok {
				return views, false, nil
			}
		}
	}

	views, errs := fetch(ctx)
	if len(views) == 0 && len(errs) > 0 {
		if stale, ok := s.cache.PeekStale(slot); ok {
			if views, ok := stale.([]T); ok {
				s.logger.Warn().
					Str("slot", slot).
					Int("errors", len(errs)).
					Msg("refresh failed for every character, serving stale data")
				return views, false, nil
			}
		}
		return nil, false, fmt.Errorf("all %d character fetches failed: %w", len(errs), errs[0])
	}

	for _, uerr := range errs {
		s.logger.Warn().
			Str("slot", slot).
			Stringer("character", uerr.Descriptor).
			Str("kind", string(uerr.Kind)).
			Msg("character excluded from refresh")
	}

	s.cache.Set(slot, views, ttl)
	return views, true, nil
}

// GetBestMythicPlus returns each roster character's season-best runs,
// enriched with per-spec run data from the Blizzard API when configured.
func (s *CharacterService) GetBestMythicPlus(ctx context.Context, forceRefresh bool) ([]domain.CharacterView, error) {
	views, _, err := getCached(ctx, s, constants.SlotMythic, constants.MythicPlusTTL, forceRefresh, s.fetchEnhanced)
	return views, err
}

// GetRecentMythicPlus returns each roster character's recent run history.
// A fresh fetch also appends the current week's runs to the CSV log and
// the SQLite archive; archival failures are logged, never surfaced.
func (s *CharacterService) GetRecentMythicPlus(ctx context.Context, forceRefresh bool) ([]domain.CharacterView, error) {
	start := time.Now()

	views, fresh, err := getCached(ctx, s, constants.SlotCharacter, constants.CharacterCacheTTL, forceRefresh,
		func(ctx context.Context) ([]domain.CharacterView, []*upstream.Error) {
			results := s.rio.RecentRuns(ctx, s.cfg.Characters)
			return raiderio.Successes(results), raiderio.Failures(results)
		})
	if err != nil {
		return nil, err
	}

	if fresh {
		s.archive(ctx, views, time.Since(start))
	}
	return views, nil
}

// GetRaidProgress returns each roster character's raid kill summaries.
func (s *CharacterService) GetRaidProgress(ctx context.Context, forceRefresh bool) ([]domain.RaidView, error) {
	views, _, err := getCached(ctx, s, constants.SlotRaid, constants.RaidCacheTTL, forceRefresh,
		func(ctx context.Context) ([]domain.RaidView, []*upstream.Error) {
			results := s.rio.RaidProgression(ctx, s.cfg.Characters)
			return raiderio.Successes(results), raiderio.Failures(results)
		})
	return views, err
}

// GetGear returns each roster character's equipped item set.
func (s *CharacterService) GetGear(ctx context.Context, forceRefresh bool) ([]domain.GearView, error) {
	views, _, err := getCached(ctx, s, constants.SlotGear, constants.GearCacheTTL, forceRefresh,
		func(ctx context.Context) ([]domain.GearView, []*upstream.Error) {
			results := s.rio.Gear(ctx, s.cfg.Characters)
			return raiderio.Successes(results), raiderio.Failures(results)
		})
	return views, err
}

// GetLinks returns profile URLs for every roster character. Links are
// derived from the descriptors alone, so this never calls an upstream.
func (s *CharacterService) GetLinks(forceRefresh bool) []domain.CharacterLinks {
	if !forceRefresh {
		if cached, ok := s.cache.Get(constants.SlotLinks); ok {
			if links, ok := cached.([]domain.CharacterLinks); ok {
				return links
			}
		}
	}

	links := make([]domain.CharacterLinks, 0, len(s.cfg.Characters))
	for _, desc := range s.cfg.Characters {
		links = append(links, buildLinks(desc))
	}
	s.cache.Set(constants.SlotLinks, links, constants.LinksCacheTTL)
	return links
}

func buildLinks(desc domain.Descriptor) domain.CharacterLinks {
	return domain.CharacterLinks{
		Descriptor:  desc,
		RaiderIOURL: fmt.Sprintf("https://raider.io/characters/%s/%s/%s", desc.Region, desc.RealmSlug(), desc.Name),
		ArmoryURL:   fmt.Sprintf("https://worldofwarcraft.blizzard.com/en-us/character/%s/%s/%s", desc.Region, desc.RealmSlug(), desc.NameLower()),
		LogsURL:     fmt.Sprintf("https://www.warcraftlogs.com/character/%s/%s/%s", desc.Region, desc.RealmSlug(), desc.NameLower()),
	}
}

// SyncHistory returns the most recent archive passes, newest first.
func (s *CharacterService) SyncHistory(ctx context.Context, limit int) ([]domain.SyncRecord, error) {
	return s.syncs.History(ctx, limit)
}

// CacheStats exposes the shared cache counters.
func (s *CharacterService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// CSVStats exposes the weekly log's on-disk state.
func (s *CharacterService) CSVStats() (csvlog.Stats, error) {
	return s.csv.Stats()
}

// archive persists a fresh batch of recent runs. Every failure here is
// logged and recorded in sync history but never fails the fetch that
// triggered it.
func (s *CharacterService) archive(ctx context.Context, views []domain.CharacterView, elapsed time.Duration) {
	var firstErr error

	if err := s.csv.LogWeek(views); err != nil {
		s.logger.Error().Err(err).Msg("weekly csv append failed")
		firstErr = err
	}

	added := 0
	for _, view := range views {
		weekly := reset.FilterWeekly(view.RecentRuns)
		if len(weekly) == 0 {
			continue
		}
		n, err := s.runs.InsertRuns(ctx, view.Descriptor.Name, s.cfg.CurrentSeasonName, weekly)
		if err != nil {
			s.logger.Error().Err(err).Stringer("character", view.Descriptor).Msg("run archive insert failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		added += n
	}

	rec := domain.SyncRecord{
		SyncType:            "fetch",
		RunsAdded:           added,
		CharactersProcessed: len(views),
		DurationMs:          elapsed.Milliseconds(),
		Success:             firstErr == nil,
	}
	if firstErr != nil {
		rec.ErrorMessage = firstErr.Error()
	}
	if err := s.syncs.Record(ctx, rec); err != nil {
		s.logger.Error().Err(err).Msg("failed to record sync history")
		return
	}

	s.logger.Info().
		Int("runs_added", added).
		Int("characters", len(views)).
		Int64("duration_ms", rec.DurationMs).
		Bool("success", rec.Success).
		Msg("recent runs archived")
}

var Module = fx.Provide(NewCharacterService)
