package feed

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/synaptica-ai/labcollate/pkg/common/models"
)

// ReadPatients decodes the identity registry, a JSON array of patient records.
func ReadPatients(r io.Reader) ([]models.PatientRecord, error) {
	var records []models.PatientRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("patient registry: %w", err)
	}
	return records, nil
}
