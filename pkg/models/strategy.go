package models

import (
	"time"
)

// StrategyRecord is a reusable (style, tone) pairing with running
// performance statistics. Records are created lazily the first time a
// pairing is used and never deleted; low performers simply rank low.
type StrategyRecord struct {
	ID             string    `json:"id" db:"id"`
	CampaignID     string    `json:"campaign_id,omitempty" db:"campaign_id"`
	Style          string    `json:"style" db:"style"`
	Tone           string    `json:"tone" db:"tone"`
	SampleSize     int       `json:"sample_size" db:"sample_size"`
	AvgImpressions float64   `json:"avg_impressions" db:"avg_impressions"`
	AvgLikes       float64   `json:"avg_likes" db:"avg_likes"`
	// ImpressionsM2 is the Welford running sum of squared deviations of
	// observed impressions, kept so confidence can weigh outcome
	// consistency. Not exposed in API responses.
	ImpressionsM2 float64   `json:"-" db:"impressions_m2"`
	Confidence    float64   `json:"confidence" db:"confidence"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Key returns the stable identity of a (style, tone) pairing.
func (s StrategyRecord) Key() string {
	return StrategyKey(s.Style, s.Tone)
}

// StrategyKey builds the stable key for a (style, tone) pairing.
func StrategyKey(style, tone string) string {
	return style + "/" + tone
}
