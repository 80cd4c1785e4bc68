// Package collate reconciles the patient identity registry with the
// lab-results feed into one patient-centric document.
//
// Collate is the pure core: it performs no I/O and is deterministic, so the
// same inputs always encode to the same bytes. Service wraps it with file
// loading, sinks, run bookkeeping and metrics.
package collate

import (
	"errors"

	"github.com/synaptica-ai/labcollate/pkg/common/models"
	"github.com/synaptica-ai/labcollate/pkg/feed"
	"github.com/synaptica-ai/labcollate/pkg/identity"
	"github.com/synaptica-ai/labcollate/pkg/ingestion"
	"github.com/synaptica-ai/labcollate/pkg/normalizer"
	"github.com/synaptica-ai/labcollate/pkg/pipeline"
	"github.com/synaptica-ai/labcollate/pkg/registry"
	"github.com/synaptica-ai/labcollate/pkg/terminology"
)

type Input struct {
	Patients   []models.PatientRecord
	Dictionary terminology.Dictionary
	Results    []feed.Row
}

type Result struct {
	Document *models.Document
	Stats    ingestion.Stats
	Links    *identity.Index
}

func Collate(in Input, opts ingestion.Options) (*Result, error) {
	idx, err := identity.BuildIndex(in.Patients)
	if err != nil {
		return nil, err
	}

	reg := registry.New(in.Patients)
	stats, err := ingestion.NewEngine(idx, in.Dictionary, opts).Ingest(in.Results, reg)
	if err != nil {
		return nil, err
	}

	return &Result{
		Document: pipeline.Materialize(reg),
		Stats:    stats,
		Links:    idx,
	}, nil
}

// IsDataError reports whether err was caused by the input data rather than
// by the environment.
func IsDataError(err error) bool {
	var (
		conflict *identity.ConflictingIdentityError
		unknown  *terminology.UnknownTestCodeError
		missing  *normalizer.ResultNotFoundError
	)
	return errors.As(err, &conflict) ||
		errors.As(err, &unknown) ||
		errors.As(err, &missing) ||
		errors.Is(err, ingestion.ErrInvalidDate) ||
		ingestion.IsValidationError(err) ||
		feed.IsFormatError(err)
}
