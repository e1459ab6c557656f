package model

import "time"

// JobPosting is the slice of a posting the swipe engine needs.
type JobPosting struct {
	ID         string
	EmployerID string
	IsActive   bool
	ExpiresAt  *time.Time
}

func (j JobPosting) Available(at time.Time) bool {
	if !j.IsActive {
		return false
	}
	return j.ExpiresAt == nil || j.ExpiresAt.After(at)
}
