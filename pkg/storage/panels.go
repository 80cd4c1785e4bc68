package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/synaptica-ai/labcollate/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PanelRow struct {
	ID          uint           `gorm:"primaryKey;column:id"`
	RunID       string         `gorm:"column:run_id;index"`
	PatientID   string         `gorm:"column:patient_id;index"`
	Position    int            `gorm:"column:position"`
	Timestamp   string         `gorm:"column:timestamp"`
	ProfileName string         `gorm:"column:profile_name"`
	ProfileCode string         `gorm:"column:profile_code;index"`
	Results     datatypes.JSON `gorm:"column:results;type:jsonb"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
}

func (PanelRow) TableName() string {
	return "lab_panels"
}

// PanelStore keeps the panels of the latest run queryable per patient.
type PanelStore struct {
	db *gorm.DB
}

func NewPanelStore(db *gorm.DB) *PanelStore {
	return &PanelStore{db: db}
}

func (s *PanelStore) AutoMigrate() error {
	return s.db.AutoMigrate(&PanelRow{})
}

func (s *PanelStore) Name() string { return "postgres" }

// Write replaces every stored panel with those of doc.
func (s *PanelStore) Write(ctx context.Context, runID string, doc *models.Document) error {
	now := time.Now().UTC()
	rows, err := PanelRows(runID, doc, now)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&PanelRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

// PanelRows flattens doc into table rows, one per panel.
func PanelRows(runID string, doc *models.Document, createdAt time.Time) ([]PanelRow, error) {
	var rows []PanelRow
	for _, patient := range doc.Patients {
		for i, panel := range patient.LabResults {
			results, err := json.Marshal(panel.Results)
			if err != nil {
				return nil, err
			}
			rows = append(rows, PanelRow{
				RunID:       runID,
				PatientID:   patient.ID,
				Position:    i,
				Timestamp:   panel.Timestamp,
				ProfileName: panel.Profile.Name,
				ProfileCode: panel.Profile.Code,
				Results:     datatypes.JSON(results),
				CreatedAt:   createdAt,
			})
		}
	}
	return rows, nil
}
