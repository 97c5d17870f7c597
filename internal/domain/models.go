package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Descriptor uniquely identifies a character on the upstream APIs.
type Descriptor struct {
	Name   string
	Realm  string
	Region string
}

var ValidRegions = map[string]bool{
	"us": true,
	"eu": true,
	"kr": true,
	"tw": true,
	"cn": true,
}

// NewDescriptor normalizes raw config input into a Descriptor.
func NewDescriptor(name, realm, region string) (Descriptor, error) {
	region = strings.ToLower(strings.TrimSpace(region))
	if !ValidRegions[region] {
		return Descriptor{}, fmt.Errorf("invalid region %q", region)
	}
	name = NormalizeName(name)
	if name == "" {
		return Descriptor{}, fmt.Errorf("empty character name")
	}
	return Descriptor{
		Name:   name,
		Realm:  strings.TrimSpace(realm),
		Region: region,
	}, nil
}

// NormalizeName strips non-letters and uppercases the first letter.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return ""
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// RealmSlug is the wire form of the realm: lowercased, spaces as hyphens.
func (d Descriptor) RealmSlug() string {
	return strings.ToLower(strings.ReplaceAll(d.Realm, " ", "-"))
}

// NameLower is the wire form of the name used by the Blizzard profile API.
func (d Descriptor) NameLower() string {
	return strings.ToLower(d.Name)
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s-%s (%s)", d.Name, d.RealmSlug(), d.Region)
}

// Run is one Mythic+ completion attempt.
type Run struct {
	DungeonName      string
	MythicLevel      int
	CompletedAt      time.Time
	DurationMs       int64
	KeystoneUpgrades int
	Score            float64
	KeystoneRunID    int64
	SpecName         string
	Affixes          []string
}

// Timed reports whether the key was completed within the time allotment.
func (r Run) Timed() bool {
	return r.KeystoneUpgrades > 0
}

// GearItem is one equipped item.
type GearItem struct {
	Name      string
	ItemLevel int
	Quality   string
}

// GearSet is a character's equipped gear keyed by slot name.
type GearSet struct {
	AverageItemLevel float64
	Items            map[string]GearItem
}

// RaidProgress is one raid with its per-difficulty summary, e.g. "8/8 H".
type RaidProgress struct {
	RaidName string
	Summary  string
}

// CharacterView is the per-character aggregate produced by a facade call.
type CharacterView struct {
	Descriptor     Descriptor
	ClassName      string
	ActiveRole     Role
	BestRuns       []Run
	RecentRuns     []Run
	SpecRuns       []Run
	RunsBySpec     map[string][]Run
	AvailableSpecs []string
	OverallScore   float64
	MythicRating   float64
	Gear           *GearSet
}

// RaidView is the per-character result of a raid progression fetch.
type RaidView struct {
	Descriptor   Descriptor
	ClassName    string
	OverallScore float64
	Raids        []RaidProgress
}

// GearView is the per-character result of a gear fetch.
type GearView struct {
	Descriptor Descriptor
	ClassName  string
	Gear       GearSet
}

// CharacterLinks holds profile URLs derived from a descriptor.
type CharacterLinks struct {
	Descriptor  Descriptor
	RaiderIOURL string
	ArmoryURL   string
	LogsURL     string
}

// SpecStats are per-spec aggregates over a character's spec-tagged runs.
type SpecStats struct {
	Runs     []Run
	Total    int
	AvgLevel float64
	Highest  int
	Dungeons []string
}

// SpecComparison is the result of comparing a character's specs. Summary
// carries a diagnostic when spec data is unavailable.
type SpecComparison struct {
	Specs   map[string]SpecStats
	Summary string
}

// SyncRecord is one row of the sync-history ledger.
type SyncRecord struct {
	ID                  string
	Timestamp           time.Time
	SyncType            string
	RunsAdded           int
	CharactersProcessed int
	DurationMs          int64
	Success             bool
	ErrorMessage        string
}
