package storage

import (
	"context"
	"encoding/json"
	"io"

	"github.com/synaptica-ai/labcollate/pkg/common/models"
)

// Sink receives the document of a successful run.
type Sink interface {
	Name() string
	Write(ctx context.Context, runID string, doc *models.Document) error
}

// Stager is implemented by sinks that can prepare their output without
// publishing it. Staged output becomes visible only on Commit.
type Stager interface {
	Stage(ctx context.Context, runID string, doc *models.Document) (Staged, error)
}

type Staged interface {
	Commit() error
	// Discard drops uncommitted output. It is a no-op after Commit.
	Discard()
}

// Encode writes v as two-space indented JSON without HTML escaping, so
// profile names such as "U&E" stay readable.
func Encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
