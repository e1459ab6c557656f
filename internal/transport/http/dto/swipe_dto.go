package dto

import "time"

type SwipeRequest struct {
	TargetID   string `json:"target_id" validate:"required,max=128"`
	TargetKind string `json:"target_kind,omitempty" validate:"omitempty,oneof=USER JOB user job"`
	Action     string `json:"action" validate:"required,oneof=LIKE PASS like pass"`
}

type SwipeResponse struct {
	Status     string `json:"status"`
	SwipeID    string `json:"swipe_id"`
	TargetID   string `json:"target_id"`
	TargetKind string `json:"target_kind"`
	Action     string `json:"action"`
	MatchID    string `json:"match_id,omitempty"`
}

type SwipeRecordResponse struct {
	ID         string     `json:"id"`
	ActorID    string     `json:"actor_id"`
	TargetID   string     `json:"target_id"`
	TargetKind string     `json:"target_kind"`
	Action     string     `json:"action"`
	CreatedAt  time.Time  `json:"created_at"`
	Matched    bool       `json:"matched"`
	MatchID    string     `json:"match_id,omitempty"`
	MatchedAt  *time.Time `json:"matched_at,omitempty"`
}

type SwipeListResponse struct {
	Items []SwipeRecordResponse `json:"items"`
}
