package pipeline

import (
	"github.com/synaptica-ai/labcollate/pkg/common/models"
	"github.com/synaptica-ai/labcollate/pkg/registry"
)

// TimestampLayout renders panel times with millisecond precision and a
// literal UTC marker. The feed carries no zone, so none is converted.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Materialize flattens the registry into the output document. Patients keep
// registry order, panels first-seen order and results row order.
func Materialize(reg *registry.Registry) *models.Document {
	doc := &models.Document{Patients: make([]models.Patient, 0, reg.Len())}
	for _, entry := range reg.Entries() {
		patient := models.Patient{
			ID:         entry.ID,
			FirstName:  entry.FirstName,
			LastName:   entry.LastName,
			DOB:        entry.DOB,
			LabResults: make([]models.Panel, 0, len(entry.Panels)),
		}
		for _, p := range entry.Panels {
			results := make([]models.ResultItem, len(p.Results))
			copy(results, p.Results)
			patient.LabResults = append(patient.LabResults, models.Panel{
				Timestamp: p.Timestamp.Format(TimestampLayout),
				Profile:   p.Profile,
				Results:   results,
			})
		}
		doc.Patients = append(doc.Patients, patient)
	}
	return doc
}
