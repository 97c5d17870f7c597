package blizzard

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"daebot/internal/constants"
	"daebot/internal/upstream"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// tokenSource caches a client-credentials access token. The token counts as
// expired refreshBuffer before its real expiry so a token never dies
// between the reuse decision and the outgoing request.
type tokenSource struct {
	mu           sync.Mutex
	clientID     string
	clientSecret string
	tokenURL     string

	accessToken string
	expiresAt   time.Time

	http   *fasthttp.Client
	now    func() time.Time
	logger zerolog.Logger
}

func newTokenSource(clientID, clientSecret string, httpClient *fasthttp.Client, logger zerolog.Logger) *tokenSource {
	return &tokenSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     constants.OAuthTokenURL,
		http:         httpClient,
		now:          time.Now,
		logger:       logger,
	}
}

// Token returns the cached access token, fetching a fresh one when absent
// or inside the refresh buffer.
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.accessToken != "" && t.now().Before(t.expiresAt.Add(-constants.TokenRefreshBuffer)) {
		return t.accessToken, nil
	}
	return t.fetchLocked(ctx)
}

// Invalidate drops the cached token so the next Token call refreshes.
func (t *tokenSource) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accessToken = ""
	t.expiresAt = time.Time{}
}

func (t *tokenSource) fetchLocked(ctx context.Context) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	basic := base64.StdEncoding.EncodeToString([]byte(t.clientID + ":" + t.clientSecret))
	status, body, err := upstream.PostForm(attemptCtx, t.http, t.tokenURL, "grant_type=client_credentials", map[string]string{
		"Authorization": "Basic " + basic,
	})
	if err != nil {
		t.logger.Error().Err(err).Msg("oauth token request failed")
		return "", fmt.Errorf("oauth token request: %w", err)
	}
	if status != fasthttp.StatusOK {
		t.logger.Error().Int("status", status).Msg("oauth token request rejected")
		return "", fmt.Errorf("oauth token request: status %d", status)
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("oauth token response: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("oauth token response: empty access_token")
	}

	t.accessToken = resp.AccessToken
	t.expiresAt = t.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	t.logger.Debug().Time("expires_at", t.expiresAt).Msg("oauth token refreshed")
	return t.accessToken, nil
}
