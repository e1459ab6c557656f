package enums

import "strings"

type SwipeAction string

const (
	SwipeActionLike SwipeAction = "LIKE"
	SwipeActionPass SwipeAction = "PASS"
)

// ParseSwipeAction accepts any casing and surrounding whitespace.
func ParseSwipeAction(raw string) (SwipeAction, bool) {
	switch SwipeAction(strings.ToUpper(strings.TrimSpace(raw))) {
	case SwipeActionLike:
		return SwipeActionLike, true
	case SwipeActionPass:
		return SwipeActionPass, true
	default:
		return "", false
	}
}
