package dto

import "time"

type MatchItemResponse struct {
	MatchID       string    `json:"match_id"`
	RecordID      string    `json:"record_id"`
	CounterpartID string    `json:"counterpart_id"`
	MatchedAt     time.Time `json:"matched_at"`
}

type MatchesResponse struct {
	Items []MatchItemResponse `json:"items"`
}
