package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jobswipe/backend/internal/domain/model"
)

var ErrJobNotFound = errors.New("job posting not found")

// JobRepo is a read-only view over the job catalogue's postings table.
type JobRepo struct {
	db Querier
}

func NewJobRepo(db Querier) *JobRepo {
	return &JobRepo{db: db}
}

func (r *JobRepo) GetPosting(ctx context.Context, jobID string) (model.JobPosting, error) {
	if strings.TrimSpace(jobID) == "" {
		return model.JobPosting{}, ErrJobNotFound
	}

	var (
		job       model.JobPosting
		expiresAt *time.Time
	)
	err := querierFromCtx(ctx, r.db).QueryRow(ctx, `
SELECT id, employer_id, is_active, expires_at
FROM job_postings
WHERE id = $1
`, jobID).Scan(&job.ID, &job.EmployerID, &job.IsActive, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.JobPosting{}, ErrJobNotFound
		}
		return model.JobPosting{}, fmt.Errorf("get job posting: %w", mapError(err))
	}
	if expiresAt != nil {
		t := expiresAt.UTC()
		job.ExpiresAt = &t
	}

	return job, nil
}
