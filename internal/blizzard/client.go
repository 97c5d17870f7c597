// Package blizzard is the OAuth-protected Blizzard profile API client used
// for mythic keystone season profiles. Missing credentials are not an
// error: the client reports itself unconfigured and callers treat its
// contribution as empty.
package blizzard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"daebot/internal/config"
	"daebot/internal/constants"
	"daebot/internal/domain"
	"daebot/internal/upstream"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
	"go.uber.org/fx"
)

const userAgent = "daebot (github.com/drizzyt77/daebot)"

// ErrNotConfigured is returned when the client has no OAuth credentials.
var ErrNotConfigured = errors.New("blizzard: client not configured")

type Client struct {
	clientID     string
	clientSecret string

	// apiBase overrides the regional host, used by tests.
	apiBase string

	http   *fasthttp.Client
	tokens *tokenSource
	logger zerolog.Logger
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	httpClient := upstream.NewHTTPClient()
	return &Client{
		clientID:     cfg.BlizzardClientID,
		clientSecret: cfg.BlizzardClientSecret,
		http:         httpClient,
		tokens:       newTokenSource(cfg.BlizzardClientID, cfg.BlizzardClientSecret, httpClient, logger),
		logger:       logger,
	}
}

// IsConfigured reports whether OAuth credentials are present.
func (c *Client) IsConfigured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// SeasonProfile is a character's mythic keystone season profile with each
// best run tagged with the spec the character played it on.
type SeasonProfile struct {
	CharacterName string
	MythicRating  float64
	Runs          []domain.Run
}

// MythicKeystoneProfile fetches the keystone season profile for one
// character. A 401 forces one token refresh and a single retry.
func (c *Client) MythicKeystoneProfile(ctx context.Context, desc domain.Descriptor, seasonID int) (*SeasonProfile, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	reqURL := fmt.Sprintf("%s/profile/wow/character/%s/%s/mythic-keystone-profile/season/%d?namespace=profile-%s&locale=en_US",
		c.regionBase(desc.Region), desc.RealmSlug(), desc.NameLower(), seasonID, desc.Region)

	body, err := c.get(ctx, reqURL, desc)
	if err != nil {
		return nil, err
	}

	profile, perr := parseSeasonProfile(body, desc)
	if perr != nil {
		return nil, &upstream.Error{Kind: upstream.KindParse, Descriptor: desc, Err: perr}
	}
	return profile, nil
}

func (c *Client) get(ctx context.Context, reqURL string, desc domain.Descriptor) ([]byte, error) {
	refreshed := false
	var body []byte

	backoff := retry.WithMaxRetries(constants.MaxRetries-1, retry.NewExponential(constants.RetryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
		defer cancel()

		status, respBody, err := upstream.Get(attemptCtx, c.http, reqURL, map[string]string{
			"Authorization": "Bearer " + token,
			"User-Agent":    userAgent,
		})
		if err != nil {
			return retry.RetryableError(&upstream.Error{Kind: upstream.Classify(err), Descriptor: desc, Err: err})
		}

		switch {
		case status == fasthttp.StatusOK:
			body = respBody
			return nil
		case status == fasthttp.StatusUnauthorized && !refreshed:
			// token may have expired in flight; refresh once
			refreshed = true
			c.tokens.Invalidate()
			c.logger.Debug().Stringer("character", desc).Msg("401 from profile API, refreshing token")
			return retry.RetryableError(&upstream.Error{Kind: upstream.KindHTTP, Status: status, Descriptor: desc})
		default:
			uerr := &upstream.Error{Kind: upstream.ClassifyStatus(status), Status: status, Descriptor: desc}
			if uerr.Retryable() {
				return retry.RetryableError(uerr)
			}
			return uerr
		}
	})
	if err != nil {
		var uerr *upstream.Error
		if errors.As(err, &uerr) {
			return nil, uerr
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) regionBase(region string) string {
	if c.apiBase != "" {
		return c.apiBase
	}
	return fmt.Sprintf("https://%s.api.blizzard.com", region)
}

func parseSeasonProfile(raw []byte, desc domain.Descriptor) (*SeasonProfile, error) {
	var resp seasonProfileResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}

	profile := &SeasonProfile{
		CharacterName: resp.Character.Name,
		MythicRating:  resp.MythicRating.Rating,
	}

	for _, w := range resp.BestRuns {
		run := domain.Run{
			DungeonName: w.Dungeon.Name,
			MythicLevel: w.KeystoneLevel,
			CompletedAt: w.CompletedTime(),
			DurationMs:  w.Duration,
			Score:       w.MythicRating.Rating,
		}
		if w.IsCompletedWithinTime {
			run.KeystoneUpgrades = 1
		}
		for _, a := range w.KeystoneAffixes {
			run.Affixes = append(run.Affixes, a.Name)
		}
		// spec comes from the member entry matching this character; a run
		// with no matching member is kept with an empty spec
		for _, m := range w.Members {
			if strings.EqualFold(m.Character.Name, desc.Name) {
				run.SpecName = m.Specialization.Name
				break
			}
		}
		profile.Runs = append(profile.Runs, run)
	}

	return profile, nil
}

var Module = fx.Provide(NewClient)
