package swipes

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOperation       = errors.New("invalid operation")
	ErrDuplicateSwipe         = errors.New("duplicate swipe")
	ErrNotFoundOrUnauthorized = errors.New("not found or unauthorized")
	ErrStorageUnavailable     = errors.New("storage unavailable")
)

type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return fmt.Sprintf("too many swipes, retry after %d seconds", e.RetryAfterSec)
}

func (e TooFastError) RetryAfter() int64 {
	return e.RetryAfterSec
}

func IsTooFast(err error) (TooFastError, bool) {
	var target TooFastError
	if errors.As(err, &target) {
		return target, true
	}
	return TooFastError{}, false
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, reason)
}
