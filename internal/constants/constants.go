package constants

import "time"

// Cache TTLs per facade slot.
const (
	CharacterCacheTTL = 30 * time.Minute
	RaidCacheTTL      = 30 * time.Minute
	MythicPlusTTL     = 30 * time.Minute
	GearCacheTTL      = 30 * time.Minute
	LinksCacheTTL     = 1 * time.Hour
)

// Cache slot names.
const (
	SlotCharacter = "character"
	SlotRaid      = "raid"
	SlotMythic    = "mplus"
	SlotGear      = "gear"
	SlotLinks     = "links"
)

// Upstream HTTP discipline.
const (
	ExternalAPITimeout = 10 * time.Second
	RequestTimeout     = 30 * time.Second
	MaxRetries         = 3
	RetryBaseDelay     = 1 * time.Second
	FetchConcurrency   = 4
)

// Blizzard OAuth.
const (
	TokenRefreshBuffer = 5 * time.Minute
	OAuthTokenURL      = "https://oauth.battle.net/token"
)

const (
	DatabaseTimeout   = 5 * time.Second
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

// CSV log retention.
const (
	CSVWeeksToKeep = 12
)

const (
	ShutdownTimeout = 5 * time.Second
)
