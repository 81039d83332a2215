package model

import "strings"

type Compound string

const (
	CompoundSoft         Compound = "SOFT"
	CompoundMedium       Compound = "MEDIUM"
	CompoundHard         Compound = "HARD"
	CompoundIntermediate Compound = "INTERMEDIATE"
	CompoundWet          Compound = "WET"
	CompoundUnknown      Compound = "UNKNOWN"
)

// NormalizeCompound maps raw tyre names from upstream data to the known set.
// Raw values vary between data sources ("Soft", "SuperSoft", "Inter", ...).
func NormalizeCompound(raw string) Compound {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "SOFT"):
		return CompoundSoft
	case strings.Contains(s, "MED"):
		return CompoundMedium
	case strings.Contains(s, "HARD"):
		return CompoundHard
	case strings.Contains(s, "INTER"):
		return CompoundIntermediate
	case strings.Contains(s, "WET"):
		return CompoundWet
	default:
		return CompoundUnknown
	}
}

// LapRecord is one timed lap of a driver. Records are immutable once a
// session is ingested.
type LapRecord struct {
	Lap      int      `json:"lap"`
	LapTime  float64  `json:"lap_time_s"` // seconds
	Compound Compound `json:"compound"`
	PitIn    bool     `json:"pit_in"`  // driver entered the pits on this lap
	PitOut   bool     `json:"pit_out"` // lap started from the pit lane
}

// SessionKey identifies one session of a race weekend.
type SessionKey struct {
	Season  int    `json:"season"`
	Round   int    `json:"round"`
	Session string `json:"session"` // FP1..FP3, Q, R
}
