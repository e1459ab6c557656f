package model

import "time"

// Match is derived from a pair of mirrored LIKE records; it is never stored on its own.
type Match struct {
	ID            string    `json:"match_id"`
	RecordID      string    `json:"record_id"`
	CounterpartID string    `json:"counterpart_id"`
	MatchedAt     time.Time `json:"matched_at"`
}

type MatchStatus string

const (
	MatchStatusNoMatch MatchStatus = "NO_MATCH"
	MatchStatusMatched MatchStatus = "MATCHED"
)

type MatchResult struct {
	Status  MatchStatus
	MatchID string
	// Transitioned is true only for the call that flipped the pair to matched.
	Transitioned bool
}

func NoMatch() MatchResult {
	return MatchResult{Status: MatchStatusNoMatch}
}

func (r MatchResult) IsMatched() bool {
	return r.Status == MatchStatusMatched
}
