package ingestion

import (
	"errors"
	"fmt"

	"github.com/synaptica-ai/labcollate/pkg/feed"
)

var (
	errMissingColumn    = errors.New("missing column")
	errProfileCodeIndex = errors.New("profile-code column out of range")
)

// ValidationError reports a feed whose header cannot support the join.
type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// ValidateHeader checks that the columns the engine reads are present. Slot
// columns may be trailing-truncated; only Res1 is required.
func ValidateHeader(names []string, opts Options) error {
	present := make(map[string]struct{}, len(names))
	for _, n := range names {
		present[n] = struct{}{}
	}

	required := []string{
		feed.ColHospID,
		feed.ColDate,
		feed.ColProfileName,
		feed.ColTestName,
		feed.ColUnit,
		feed.ColLower,
		feed.ColUpper,
		feed.SlotColumn(0),
	}
	for _, col := range required {
		if _, ok := present[col]; !ok {
			return ValidationError{reason: fmt.Errorf("%w: %s", errMissingColumn, col)}
		}
	}

	if opts.ProfileCodeIndex < 0 || opts.ProfileCodeIndex >= len(names) {
		return ValidationError{reason: fmt.Errorf("%w: index %d, %d columns", errProfileCodeIndex, opts.ProfileCodeIndex, len(names))}
	}
	return nil
}
