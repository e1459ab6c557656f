package enums

import "strings"

// TargetKind tags what a swipe points at. Only USER targets can swipe back.
type TargetKind string

const (
	TargetKindUser TargetKind = "USER"
	TargetKindJob  TargetKind = "JOB"
)

// ParseTargetKind defaults an empty value to USER.
func ParseTargetKind(raw string) (TargetKind, bool) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	switch TargetKind(value) {
	case "", TargetKindUser:
		return TargetKindUser, true
	case TargetKindJob:
		return TargetKindJob, true
	default:
		return "", false
	}
}
