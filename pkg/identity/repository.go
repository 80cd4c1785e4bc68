package identity

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type LinkModel struct {
	HospitalID string    `gorm:"primaryKey;column:hospital_id"`
	PatientID  string    `gorm:"column:patient_id;index"`
	RunID      string    `gorm:"column:run_id"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (LinkModel) TableName() string {
	return "patient_links"
}

// Repository persists the resolved hospital id links of the latest run.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&LinkModel{})
}

// Replace swaps the stored links for those of idx in one transaction.
func (r *Repository) Replace(ctx context.Context, runID string, idx *Index) error {
	now := time.Now().UTC()
	links := make([]LinkModel, 0, idx.Len())
	idx.Each(func(hospitalID, patientID string) {
		links = append(links, LinkModel{
			HospitalID: hospitalID,
			PatientID:  patientID,
			RunID:      runID,
			CreatedAt:  now,
		})
	})

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&LinkModel{}).Error; err != nil {
			return err
		}
		if len(links) == 0 {
			return nil
		}
		return tx.CreateInBatches(links, 500).Error
	})
}
