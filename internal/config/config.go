package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"daebot/internal/domain"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	DefaultRegion = "us"
	DefaultRealm  = "thrall"
)

var seasonNameRe = regexp.MustCompile(`^season-[a-z]+-\d+$`)

type Config struct {
	Characters        []domain.Descriptor
	CurrentSeasonID   int
	CurrentSeasonName string
	DefaultRegion     string
	DefaultRealm      string
	ActiveDungeons    []string

	BlizzardClientID     string
	BlizzardClientSecret string

	DBPath     string
	CSVDir     string
	ServerPort string
	LogLevel   string
}

// characterEntry accepts either a bare name string (legacy) or a full
// {name, realm, region} object.
type characterEntry struct {
	Name   string
	Realm  string
	Region string
}

func (c *characterEntry) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		c.Name = name
		return nil
	}
	var obj struct {
		Name   string `json:"name"`
		Realm  string `json:"realm"`
		Region string `json:"region"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	c.Name = obj.Name
	c.Realm = obj.Realm
	c.Region = obj.Region
	return nil
}

type fileConfig struct {
	Characters           []characterEntry `json:"characters"`
	CurrentSeasonID      int              `json:"currentSeasonId"`
	CurrentSeasonName    string           `json:"currentSeasonName"`
	DefaultRegion        string           `json:"defaultRegion"`
	DefaultRealm         string           `json:"defaultRealm"`
	ActiveDungeons       []string         `json:"activeDungeons"`
	BlizzardClientID     string           `json:"blizzardClientId"`
	BlizzardClientSecret string           `json:"blizzardClientSecret"`
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	path := getEnv("CONFIG_PATH", "config.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.BlizzardClientID == "" {
		cfg.BlizzardClientID = os.Getenv("BLIZZARD_CLIENT_ID")
	}
	if cfg.BlizzardClientSecret == "" {
		cfg.BlizzardClientSecret = os.Getenv("BLIZZARD_CLIENT_SECRET")
	}

	cfg.DBPath = getEnv("DB_PATH", "data/mythic_runs.db")
	cfg.CSVDir = getEnv("CSV_DIR", "data/weekly")
	cfg.ServerPort = getEnv("SERVER_PORT", "8080")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	logger.Info().
		Int("characters", len(cfg.Characters)).
		Int("season_id", cfg.CurrentSeasonID).
		Str("season", cfg.CurrentSeasonName).
		Str("db_path", cfg.DBPath).
		Str("csv_dir", cfg.CSVDir).
		Bool("blizzard_configured", cfg.BlizzardClientID != "" && cfg.BlizzardClientSecret != "").
		Msg("configuration loaded")

	return cfg, nil
}

// Parse decodes the config document, widening legacy bare-string characters
// into full descriptors with the configured defaults.
func Parse(raw []byte) (*Config, error) {
	var fc fileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, err
	}

	if fc.DefaultRegion == "" {
		fc.DefaultRegion = DefaultRegion
	}
	if fc.DefaultRealm == "" {
		fc.DefaultRealm = DefaultRealm
	}

	if len(fc.Characters) == 0 {
		return nil, fmt.Errorf("no characters configured")
	}
	if fc.CurrentSeasonName != "" && !seasonNameRe.MatchString(fc.CurrentSeasonName) {
		return nil, fmt.Errorf("invalid season name %q, expected season-<slug>-<n>", fc.CurrentSeasonName)
	}

	cfg := &Config{
		CurrentSeasonID:      fc.CurrentSeasonID,
		CurrentSeasonName:    fc.CurrentSeasonName,
		DefaultRegion:        fc.DefaultRegion,
		DefaultRealm:         fc.DefaultRealm,
		ActiveDungeons:       fc.ActiveDungeons,
		BlizzardClientID:     fc.BlizzardClientID,
		BlizzardClientSecret: fc.BlizzardClientSecret,
	}

	for _, entry := range fc.Characters {
		realm := entry.Realm
		if realm == "" {
			realm = fc.DefaultRealm
		}
		region := entry.Region
		if region == "" {
			region = fc.DefaultRegion
		}
		desc, err := domain.NewDescriptor(entry.Name, realm, region)
		if err != nil {
			return nil, fmt.Errorf("invalid character %q: %w", entry.Name, err)
		}
		cfg.Characters = append(cfg.Characters, desc)
	}

	return cfg, nil
}

// BlizzardConfigured reports whether the OAuth credentials are present.
func (c *Config) BlizzardConfigured() bool {
	return c.BlizzardClientID != "" && c.BlizzardClientSecret != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
