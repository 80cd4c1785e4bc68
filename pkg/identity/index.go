package identity

import (
	"fmt"

	"github.com/synaptica-ai/labcollate/pkg/common/models"
)

// ConflictingIdentityError is returned when one hospital identifier is
// claimed by two canonical patient identifiers.
type ConflictingIdentityError struct {
	HospitalID  string
	Existing    string
	Conflicting string
}

func (e *ConflictingIdentityError) Error() string {
	return fmt.Sprintf("patients with ids %s and %s share the hospital id %s", e.Conflicting, e.Existing, e.HospitalID)
}

// Index resolves hospital identifiers to canonical patient identifiers.
type Index struct {
	byHospital map[string]string
	order      []string
}

func NewIndex() *Index {
	return &Index{byHospital: make(map[string]string)}
}

// BuildIndex registers every hospital identifier of every record. Records
// without hospital identifiers never receive lab results and are skipped.
func BuildIndex(records []models.PatientRecord) (*Index, error) {
	idx := NewIndex()
	for _, rec := range records {
		for _, hospitalID := range rec.Identifiers {
			if err := idx.Register(hospitalID, rec.ID); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}

// Register binds hospitalID to patientID. Re-registering the same pair is a
// no-op.
func (i *Index) Register(hospitalID, patientID string) error {
	if existing, ok := i.byHospital[hospitalID]; ok {
		if existing != patientID {
			return &ConflictingIdentityError{HospitalID: hospitalID, Existing: existing, Conflicting: patientID}
		}
		return nil
	}
	i.byHospital[hospitalID] = patientID
	i.order = append(i.order, hospitalID)
	return nil
}

func (i *Index) Resolve(hospitalID string) (string, bool) {
	id, ok := i.byHospital[hospitalID]
	return id, ok
}

func (i *Index) Len() int {
	return len(i.order)
}

// Each visits links in registration order.
func (i *Index) Each(fn func(hospitalID, patientID string)) {
	for _, h := range i.order {
		fn(h, i.byHospital[h])
	}
}
