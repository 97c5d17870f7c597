package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"daebot/internal/blizzard"
	"daebot/internal/constants"
	"daebot/internal/domain"
	"daebot/internal/raiderio"
	"daebot/internal/upstream"

	"golang.org/x/sync/errgroup"
)

// fetchEnhanced builds the combined best-runs view: RaiderIO supplies the
// base profile and season-best runs, the Blizzard season profile layers in
// spec-tagged runs and the mythic rating. Blizzard enrichment is
// best-effort; a missing or failing profile leaves the RaiderIO view as is.
func (s *CharacterService) fetchEnhanced(ctx context.Context) ([]domain.CharacterView, []*upstream.Error) {
	results := s.rio.BestRuns(ctx, s.cfg.Characters)
	views := raiderio.Successes(results)
	errs := raiderio.Failures(results)

	if !s.bliz.IsConfigured() || s.cfg.CurrentSeasonID == 0 || len(views) == 0 {
		return views, errs
	}

	profiles := make([]*blizzard.SeasonProfile, len(views))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.FetchConcurrency)
	for i, view := range views {
		g.Go(func() error {
			profile, err := s.bliz.MythicKeystoneProfile(gCtx, view.Descriptor, s.cfg.CurrentSeasonID)
			if err != nil {
				s.logger.Warn().Err(err).Stringer("character", view.Descriptor).Msg("spec enrichment skipped")
				return nil
			}
			profiles[i] = profile
			return nil
		})
	}
	_ = g.Wait()

	for i := range views {
		if profiles[i] != nil {
			applySeasonProfile(&views[i], profiles[i])
		}
	}
	return views, errs
}

// applySeasonProfile merges one Blizzard season profile into the matching
// RaiderIO view. The profile only applies when the character names agree
// ignoring case.
func applySeasonProfile(view *domain.CharacterView, profile *blizzard.SeasonProfile) {
	if !strings.EqualFold(profile.CharacterName, view.Descriptor.Name) {
		return
	}

	view.MythicRating = profile.MythicRating
	view.SpecRuns = profile.Runs
	view.RunsBySpec = make(map[string][]domain.Run)
	for _, run := range profile.Runs {
		if run.SpecName == "" {
			continue
		}
		view.RunsBySpec[run.SpecName] = append(view.RunsBySpec[run.SpecName], run)
	}

	view.AvailableSpecs = make([]string, 0, len(view.RunsBySpec))
	for spec := range view.RunsBySpec {
		view.AvailableSpecs = append(view.AvailableSpecs, spec)
	}
	sort.Strings(view.AvailableSpecs)
}

// findView locates a roster character's view by name, ignoring case.
func findView(views []domain.CharacterView, name string) (domain.CharacterView, bool) {
	for _, view := range views {
		if strings.EqualFold(view.Descriptor.Name, name) {
			return view, true
		}
	}
	return domain.CharacterView{}, false
}

// SpecificRuns returns the character's season runs played on one spec,
// matched ignoring case.
func (s *CharacterService) SpecificRuns(ctx context.Context, name, spec string, forceRefresh bool) ([]domain.Run, error) {
	views, err := s.GetBestMythicPlus(ctx, forceRefresh)
	if err != nil {
		return nil, err
	}
	view, ok := findView(views, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCharacter, name)
	}
	return filterSpecRuns(view, spec), nil
}

func filterSpecRuns(view domain.CharacterView, spec string) []domain.Run {
	var runs []domain.Run
	for _, run := range view.SpecRuns {
		if strings.EqualFold(run.SpecName, spec) {
			runs = append(runs, run)
		}
	}
	return runs
}

// AvailableSpecs returns the specs the character has spec-tagged runs on.
func (s *CharacterService) AvailableSpecs(ctx context.Context, name string, forceRefresh bool) ([]string, error) {
	views, err := s.GetBestMythicPlus(ctx, forceRefresh)
	if err != nil {
		return nil, err
	}
	view, ok := findView(views, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCharacter, name)
	}
	return view.AvailableSpecs, nil
}

// CompareSpecs summarizes the character's runs per spec. When the Blizzard
// client is unconfigured the comparison is empty with a diagnostic summary
// rather than an error.
func (s *CharacterService) CompareSpecs(ctx context.Context, name string, forceRefresh bool) (domain.SpecComparison, error) {
	if !s.bliz.IsConfigured() {
		return domain.SpecComparison{
			Specs:   map[string]domain.SpecStats{},
			Summary: "spec data unavailable: Blizzard API credentials not configured",
		}, nil
	}

	views, err := s.GetBestMythicPlus(ctx, forceRefresh)
	if err != nil {
		return domain.SpecComparison{}, err
	}
	view, ok := findView(views, name)
	if !ok {
		return domain.SpecComparison{}, fmt.Errorf("%w: %s", ErrUnknownCharacter, name)
	}
	return compareSpecs(view), nil
}

func compareSpecs(view domain.CharacterView) domain.SpecComparison {
	cmp := domain.SpecComparison{Specs: make(map[string]domain.SpecStats, len(view.RunsBySpec))}
	if len(view.RunsBySpec) == 0 {
		cmp.Summary = fmt.Sprintf("no spec-tagged runs for %s this season", view.Descriptor.Name)
		return cmp
	}

	for spec, runs := range view.RunsBySpec {
		stats := domain.SpecStats{Runs: runs, Total: len(runs)}

		levelSum := 0
		dungeons := make(map[string]bool)
		for _, run := range runs {
			levelSum += run.MythicLevel
			if run.MythicLevel > stats.Highest {
				stats.Highest = run.MythicLevel
			}
			dungeons[run.DungeonName] = true
		}
		stats.AvgLevel = float64(levelSum) / float64(len(runs))

		stats.Dungeons = make([]string, 0, len(dungeons))
		for d := range dungeons {
			stats.Dungeons = append(stats.Dungeons, d)
		}
		sort.Strings(stats.Dungeons)

		cmp.Specs[spec] = stats
	}

	cmp.Summary = fmt.Sprintf("%s has runs on %d spec(s)", view.Descriptor.Name, len(cmp.Specs))
	return cmp
}
