package collate

import (
	"context"
	"errors"
	"time"

	"github.com/synaptica-ai/labcollate/pkg/ingestion"
	"gorm.io/gorm"
)

const (
	StatusAccepted  = "accepted"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var ErrNotFound = errors.New("collation run not found")

type RunRecord struct {
	ID          string     `json:"id" gorm:"primaryKey;column:id"`
	Source      string     `json:"source" gorm:"column:source"`
	Status      string     `json:"status" gorm:"column:status;index"`
	Patients    int        `json:"patients" gorm:"column:patients"`
	Rows        int        `json:"rows" gorm:"column:rows"`
	Skipped     int        `json:"skipped" gorm:"column:skipped"`
	Panels      int        `json:"panels" gorm:"column:panels"`
	Results     int        `json:"results" gorm:"column:results"`
	Error       string     `json:"error,omitempty" gorm:"column:error"`
	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"column:updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" gorm:"column:completed_at"`
}

func (RunRecord) TableName() string {
	return "collation_runs"
}

// RunStore records the lifecycle of collation runs.
type RunStore interface {
	Create(ctx context.Context, rec *RunRecord) error
	Finish(ctx context.Context, id, status string, patients int, stats ingestion.Stats, errMsg string) error
	Get(ctx context.Context, id string) (*RunRecord, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&RunRecord{})
}

func (r *Repository) Create(ctx context.Context, rec *RunRecord) error {
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *Repository) Finish(ctx context.Context, id, status string, patients int, stats ingestion.Stats, errMsg string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&RunRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"patients":     patients,
			"rows":         stats.Rows,
			"skipped":      stats.Skipped,
			"panels":       stats.Panels,
			"results":      stats.Results,
			"error":        errMsg,
			"updated_at":   now,
			"completed_at": now,
		}).Error
}

func (r *Repository) Get(ctx context.Context, id string) (*RunRecord, error) {
	var rec RunRecord
	result := r.db.WithContext(ctx).First(&rec, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &rec, nil
}
