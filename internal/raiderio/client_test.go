package raiderio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"daebot/internal/domain"
	"daebot/internal/upstream"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bestRunsBody = `{
	"name": "Daemourne",
	"class": "Death Knight",
	"active_spec_name": "Blood",
	"active_spec_role": "TANK",
	"profile_url": "https://raider.io/characters/us/thrall/Daemourne",
	"mythic_plus_scores_by_season": [{"season": "season-tww-2", "scores": {"all": 2450.5}}],
	"mythic_plus_best_runs": [
		{
			"dungeon": "The Dawnbreaker",
			"mythic_level": 15,
			"completed_at": "2026-01-14T03:21:00Z",
			"clear_time_ms": 1833000,
			"keystone_run_id": 12345,
			"num_keystone_upgrades": 2,
			"score": 225.0,
			"affixes": [{"name": "Tyrannical"}, {"name": "Fortified"}]
		}
	]
}`

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(zerolog.Nop())
	c.baseURL = srv.URL
	return c, srv
}

func desc(name string) domain.Descriptor {
	return domain.Descriptor{Name: name, Realm: "Thrall", Region: "us"}
}

func TestBestRuns_Success(t *testing.T) {
	var gotQuery atomic.Value
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query().Encode())
		w.Write([]byte(bestRunsBody))
	}))

	results := c.BestRuns(context.Background(), []domain.Descriptor{desc("Daemourne")})
	require.Len(t, results, 1)
	require.Nil(t, results[0].Err)

	view := results[0].Value
	assert.Equal(t, "Death Knight", view.ClassName)
	assert.Equal(t, domain.RoleTank, view.ActiveRole)
	assert.Equal(t, 2450.5, view.OverallScore)
	require.Len(t, view.BestRuns, 1)

	run := view.BestRuns[0]
	assert.Equal(t, "The Dawnbreaker", run.DungeonName)
	assert.Equal(t, 15, run.MythicLevel)
	assert.Equal(t, 2, run.KeystoneUpgrades)
	assert.True(t, run.Timed())
	assert.Equal(t, 225.0, run.Score)
	assert.Equal(t, []string{"Tyrannical", "Fortified"}, run.Affixes)

	query := gotQuery.Load().(string)
	assert.Contains(t, query, "region=us")
	assert.Contains(t, query, "realm=thrall")
	assert.Contains(t, query, "name=Daemourne")
}

func TestBestRuns_NotFoundIsolated(t *testing.T) {
	var calls atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("name") == "Missing" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Write([]byte(bestRunsBody))
	}))

	results := c.BestRuns(context.Background(), []domain.Descriptor{desc("Missing"), desc("Daemourne")})
	require.Len(t, results, 2)

	require.NotNil(t, results[0].Err)
	assert.Equal(t, upstream.KindNotFound, results[0].Err.Kind)
	assert.Equal(t, http.StatusNotFound, results[0].Err.Status)

	require.Nil(t, results[1].Err)
	assert.Equal(t, "Daemourne", results[1].Value.Descriptor.Name)

	// 404 is terminal: no retries for the missing character
	assert.EqualValues(t, 2, calls.Load())

	views := Successes(results)
	require.Len(t, views, 1)
	require.Len(t, Failures(results), 1)
}

func TestBestRuns_ServerErrorRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	results := c.BestRuns(context.Background(), []domain.Descriptor{desc("Daemourne")})
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Err)
	assert.Equal(t, upstream.KindHTTP, results[0].Err.Kind)
	assert.EqualValues(t, 3, calls.Load())
}

func TestBestRuns_RateLimitedRetries(t *testing.T) {
	var calls atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(bestRunsBody))
	}))

	start := time.Now()
	results := c.BestRuns(context.Background(), []domain.Descriptor{desc("Daemourne")})
	require.Len(t, results, 1)
	require.Nil(t, results[0].Err)
	assert.EqualValues(t, 2, calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), time.Second, "backoff before the retry")
}

func TestBestRuns_ParseError(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))

	results := c.BestRuns(context.Background(), []domain.Descriptor{desc("Daemourne")})
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Err)
	assert.Equal(t, upstream.KindParse, results[0].Err.Kind)
}

func TestGear(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("fields"), "gear")
		w.Write([]byte(`{
			"name": "Daemourne",
			"class": "Death Knight",
			"gear": {
				"item_level_equipped": 639.5,
				"items": {
					"head": {"name": "Hardened Crown", "item_level": 645, "item_quality": 4}
				}
			}
		}`))
	}))

	results := c.Gear(context.Background(), []domain.Descriptor{desc("Daemourne")})
	require.Len(t, results, 1)
	require.Nil(t, results[0].Err)

	gear := results[0].Value.Gear
	assert.Equal(t, 639.5, gear.AverageItemLevel)
	require.Contains(t, gear.Items, "head")
	assert.Equal(t, "Hardened Crown", gear.Items["head"].Name)
	assert.Equal(t, 645, gear.Items["head"].ItemLevel)
	assert.Equal(t, "Epic", gear.Items["head"].Quality)
}

func TestRaidProgression(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"name": "Daemourne",
			"class": "Death Knight",
			"mythic_plus_scores_by_season": [{"season": "season-tww-2", "scores": {"all": 2450.5}}],
			"raid_progression": {
				"nerubar-palace": {"summary": "8/8 H", "total_bosses": 8, "heroic_bosses_killed": 8},
				"liberation-of-undermine": {"summary": "3/8 M", "total_bosses": 8, "mythic_bosses_killed": 3}
			}
		}`))
	}))

	results := c.RaidProgression(context.Background(), []domain.Descriptor{desc("Daemourne")})
	require.Len(t, results, 1)
	require.Nil(t, results[0].Err)

	view := results[0].Value
	assert.Equal(t, 2450.5, view.OverallScore)
	require.Len(t, view.Raids, 2)
	// sorted by slug
	assert.Equal(t, "Liberation Of Undermine", view.Raids[0].RaidName)
	assert.Equal(t, "3/8 M", view.Raids[0].Summary)
	assert.Equal(t, "Nerubar Palace", view.Raids[1].RaidName)
}
