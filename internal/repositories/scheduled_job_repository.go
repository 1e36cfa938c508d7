package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fotolio/internal/models/db_models"
)

type IScheduledJobRepository interface {
	// Upsert keeps at most one job per name, resetting it to pending with
	// the new run time.
	Upsert(ctx context.Context, name string, galleryID uuid.UUID, runAt int64) error
	// CancelByName is idempotent; a missing job is not an error.
	CancelByName(ctx context.Context, name string) error
	FindDue(ctx context.Context, now int64, limit int) ([]db_models.ScheduledJob, error)
	// Claim flips one pending job to done; zero rows means another worker
	// got there first.
	Claim(ctx context.Context, jobID uuid.UUID) (int64, error)
}

type ScheduledJobRepository struct {
	db *gorm.DB
}

func NewScheduledJobRepository(db *gorm.DB) IScheduledJobRepository {
	return &ScheduledJobRepository{db: db}
}

func (r *ScheduledJobRepository) Upsert(ctx context.Context, name string, galleryID uuid.UUID, runAt int64) error {
	job := db_models.ScheduledJob{
		Name:      name,
		GalleryID: galleryID,
		RunAt:     runAt,
		Status:    db_models.JobStatusPending,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"run_at": runAt,
				"status": db_models.JobStatusPending,
			}),
		}).
		Create(&job).Error
}

func (r *ScheduledJobRepository) CancelByName(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).
		Model(&db_models.ScheduledJob{}).
		Where("name = ? AND status = ?", name, db_models.JobStatusPending).
		Update("status", db_models.JobStatusCanceled).Error
}

func (r *ScheduledJobRepository) FindDue(ctx context.Context, now int64, limit int) ([]db_models.ScheduledJob, error) {
	var jobs []db_models.ScheduledJob
	err := r.db.WithContext(ctx).
		Where("status = ? AND run_at <= ?", db_models.JobStatusPending, now).
		Order("run_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *ScheduledJobRepository) Claim(ctx context.Context, jobID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&db_models.ScheduledJob{}).
		Where("id = ? AND status = ?", jobID, db_models.JobStatusPending).
		Update("status", db_models.JobStatusDone)
	return result.RowsAffected, result.Error
}
