package model

import (
	"time"

	"github.com/jobswipe/backend/internal/domain/enums"
)

type SwipeRecord struct {
	ID         string            `json:"id"`
	ActorID    string            `json:"actor_id"`
	TargetID   string            `json:"target_id"`
	TargetKind enums.TargetKind  `json:"target_kind"`
	Action     enums.SwipeAction `json:"action"`
	CreatedAt  time.Time         `json:"created_at"`
	Matched    bool              `json:"matched"`
	MatchID    string            `json:"match_id,omitempty"`
	MatchedAt  *time.Time        `json:"matched_at,omitempty"`
}

type HistoryFilter struct {
	Action     enums.SwipeAction
	TargetKind enums.TargetKind
	Skip       int
	Limit      int
}
