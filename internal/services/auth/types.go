package auth

import (
	"errors"
	"time"
)

var ErrUnauthorized = errors.New("unauthorized")

const (
	RoleSeeker   = "seeker"
	RoleEmployer = "employer"
)

type AccessClaims struct {
	UserID    string
	Role      string
	ExpiresAt time.Time
}
