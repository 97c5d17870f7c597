// Package csvlog is the append-only weekly Mythic+ backup: one CSV file
// per weekly reset, deduplicated by run signature so repeated syncs of
// overlapping data never produce duplicate rows.
package csvlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"daebot/internal/config"
	"daebot/internal/domain"
	"daebot/internal/reset"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	filePrefix = "weekly-mplus-"
	fileSuffix = ".csv"
	dateLayout = "2006-01-02"
)

var header = []string{
	"Timestamp",
	"Character_Name",
	"Character_Class",
	"Character_Role",
	"Overall_Score",
	"Highest_Key_Level",
	"Total_Weekly_Runs",
	"Dungeon_Name",
	"Key_Level",
	"Run_Score",
	"Timed_Status",
	"Keystone_Upgrades",
	"Completion_Date",
	"Weekly_Reset_Date",
}

type Log struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time

	// lastReset tracks the reset the current file belongs to; when the
	// clock advances past it the target path is recomputed.
	lastReset time.Time
}

func New(cfg *config.Config, logger zerolog.Logger) *Log {
	return &Log{
		dir:    cfg.CSVDir,
		logger: logger,
		now:    time.Now,
	}
}

// Stats describes the on-disk state of the weekly log.
type Stats struct {
	TotalFiles  int    `json:"total_files"`
	CurrentFile string `json:"current_file"`
	Oldest      string `json:"oldest"`
	Newest      string `json:"newest"`
	CurrentSize int64  `json:"current_size"`
	CurrentRows int    `json:"current_rows"`
}

// LogWeek appends one row per weekly run of every view, plus a summary row
// for characters with no weekly runs. Rows whose signature already exists
// in the current file are dropped, so the call is idempotent.
func (l *Log) LogWeek(views []domain.CharacterView) error {
	now := l.now()
	l.rotate(now)

	path := l.currentPath()
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create csv dir: %w", err)
	}

	existing, hasFile, err := l.readSignatures(path)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, view := range views {
		for _, row := range l.characterRows(view, now) {
			sig := signatureOf(row)
			if existing[sig] {
				continue
			}
			existing[sig] = true
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		l.logger.Debug().Str("file", path).Msg("no new weekly rows")
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if !hasFile {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	l.logger.Info().Str("file", path).Int("rows", len(rows)).Msg("weekly csv updated")
	return nil
}

// Stats reports file counts and the size of the current week's file.
func (l *Log) Stats() (Stats, error) {
	l.rotate(l.now())

	files, err := l.listFiles()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalFiles:  len(files),
		CurrentFile: filepath.Base(l.currentPath()),
	}
	if len(files) > 0 {
		stats.Oldest = filepath.Base(files[0])
		stats.Newest = filepath.Base(files[len(files)-1])
	}

	if info, err := os.Stat(l.currentPath()); err == nil {
		stats.CurrentSize = info.Size()
		rows, err := l.countRows(l.currentPath())
		if err != nil {
			return Stats{}, err
		}
		stats.CurrentRows = rows
	}
	return stats, nil
}

// Cleanup removes weekly files older than the retention window and returns
// how many were deleted.
func (l *Log) Cleanup(weeksToKeep int) (int, error) {
	cutoff := reset.LastResetAt(l.now()).AddDate(0, 0, -7*weeksToKeep)

	files, err := l.listFiles()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range files {
		date, ok := fileDate(path)
		if !ok {
			continue
		}
		if date.Before(cutoff) {
			if err := os.Remove(path); err != nil {
				l.logger.Warn().Err(err).Str("file", path).Msg("failed to remove old weekly file")
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		l.logger.Info().Int("removed", removed).Int("weeks_kept", weeksToKeep).Msg("weekly csv cleanup")
	}
	return removed, nil
}

func (l *Log) rotate(now time.Time) {
	current := reset.LastResetAt(now)
	if !current.Equal(l.lastReset) {
		l.lastReset = current
	}
}

func (l *Log) currentPath() string {
	return filepath.Join(l.dir, filePrefix+l.lastReset.UTC().Format(dateLayout)+fileSuffix)
}

// characterRows builds the candidate rows for one character: one per
// weekly run, or a single zeroed summary row when none exist.
func (l *Log) characterRows(view domain.CharacterView, now time.Time) [][]string {
	weekly := reset.FilterWeeklyAt(view.RecentRuns, now)
	timestamp := now.UTC().Format(time.RFC3339)
	resetDate := l.lastReset.UTC().Format(dateLayout)

	if len(weekly) == 0 {
		return [][]string{{
			timestamp,
			view.Descriptor.Name,
			view.ClassName,
			string(view.ActiveRole),
			formatScore(view.OverallScore),
			"0",
			"0",
			"",
			"",
			"",
			"",
			"",
			"",
			resetDate,
		}}
	}

	highest := 0
	for _, r := range weekly {
		if r.MythicLevel > highest {
			highest = r.MythicLevel
		}
	}

	rows := make([][]string, 0, len(weekly))
	for _, r := range weekly {
		timed := "Depleted"
		if r.Timed() {
			timed = "Timed"
		}
		rows = append(rows, []string{
			timestamp,
			view.Descriptor.Name,
			view.ClassName,
			string(view.ActiveRole),
			formatScore(view.OverallScore),
			strconv.Itoa(highest),
			strconv.Itoa(len(weekly)),
			r.DungeonName,
			strconv.Itoa(r.MythicLevel),
			formatScore(r.Score),
			timed,
			strconv.Itoa(r.KeystoneUpgrades),
			r.CompletedAt.UTC().Format(dateLayout),
			resetDate,
		})
	}
	return rows
}

// readSignatures loads the dedup set from the current file. The bool result
// reports whether the file already exists.
func (l *Log) readSignatures(path string) (map[string]bool, bool, error) {
	sigs := make(map[string]bool)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return sigs, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	for i, rec := range records {
		if i == 0 || len(rec) < len(header) {
			continue
		}
		sigs[signatureOf(rec)] = true
	}
	return sigs, true, nil
}

func (l *Log) countRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return len(records) - 1, nil
}

func (l *Log) listFiles() ([]string, error) {
	pattern := filepath.Join(l.dir, filePrefix+"*"+fileSuffix)
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// signatureOf builds the dedup key from a row: character, dungeon, key
// level, completion date.
func signatureOf(row []string) string {
	return strings.Join([]string{row[1], row[7], row[8], row[12]}, "|")
}

func fileDate(path string) (time.Time, bool) {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, fileSuffix) {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(base, filePrefix), fileSuffix)
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}

var Module = fx.Provide(New)
