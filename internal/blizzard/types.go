package blizzard

import "time"

type seasonProfileResponse struct {
	Season struct {
		ID int `json:"id"`
	} `json:"season"`
	Character struct {
		Name string `json:"name"`
	} `json:"character"`
	MythicRating struct {
		Rating float64 `json:"rating"`
	} `json:"mythic_rating"`
	BestRuns []wireKeystoneRun `json:"best_runs"`
}

type wireKeystoneRun struct {
	CompletedTimestamp int64 `json:"completed_timestamp"` // unix millis
	Duration           int64 `json:"duration"`
	KeystoneLevel      int   `json:"keystone_level"`
	KeystoneAffixes    []struct {
		Name string `json:"name"`
	} `json:"keystone_affixes"`
	Members []struct {
		Character struct {
			Name string `json:"name"`
		} `json:"character"`
		Specialization struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"specialization"`
	} `json:"members"`
	MythicRating struct {
		Rating float64 `json:"rating"`
	} `json:"mythic_rating"`
	IsCompletedWithinTime bool `json:"is_completed_within_time"`
	Dungeon               struct {
		Name string `json:"name"`
	} `json:"dungeon"`
}

func (w wireKeystoneRun) CompletedTime() time.Time {
	return time.UnixMilli(w.CompletedTimestamp).UTC()
}
