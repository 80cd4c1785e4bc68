package ingestion

import (
	"errors"
	"fmt"
	"time"

	"github.com/synaptica-ai/labcollate/pkg/common/models"
	"github.com/synaptica-ai/labcollate/pkg/feed"
	"github.com/synaptica-ai/labcollate/pkg/identity"
	"github.com/synaptica-ai/labcollate/pkg/normalizer"
	"github.com/synaptica-ai/labcollate/pkg/registry"
	"github.com/synaptica-ai/labcollate/pkg/terminology"
)

// DateLayout is the day/month/year format of the feed's Date column.
const DateLayout = "2/1/2006"

var ErrInvalidDate = errors.New("invalid result date")

type Options struct {
	// ProfileCodeIndex is the 0-based position of the profile-code column.
	ProfileCodeIndex int
}

func DefaultOptions() Options {
	return Options{ProfileCodeIndex: feed.DefaultProfileCodeIndex}
}

type Stats struct {
	Rows    int `json:"rows"`
	Skipped int `json:"skipped"`
	Panels  int `json:"panels"`
	Results int `json:"results"`
}

// Engine collates lab-result rows into the panels of registry entries. It is
// single-pass and not safe for concurrent use.
type Engine struct {
	index   *identity.Index
	decoder *normalizer.Decoder
	opts    Options
}

func NewEngine(index *identity.Index, dict terminology.Dictionary, opts Options) *Engine {
	return &Engine{
		index:   index,
		decoder: normalizer.NewDecoder(dict),
		opts:    opts,
	}
}

// Ingest processes rows in order, mutating reg. The first failing row aborts
// the run; reg must then be discarded.
func (e *Engine) Ingest(rows []feed.Row, reg *registry.Registry) (Stats, error) {
	var stats Stats
	for _, row := range rows {
		stats.Rows++

		patientID, ok := e.index.Resolve(row.Get(feed.ColHospID))
		if !ok {
			stats.Skipped++
			continue
		}
		entry, ok := reg.Get(patientID)
		if !ok {
			return stats, fmt.Errorf("row %d: patient %s resolved but not registered", row.Line(), patientID)
		}

		key := e.PanelKey(row)
		result, err := e.decoder.Decode(row)
		if err != nil {
			return stats, fmt.Errorf("row %d: %w", row.Line(), err)
		}

		if panel, exists := entry.Panel(key); exists {
			panel.Results = append(panel.Results, result)
			stats.Results++
			continue
		}

		timestamp, err := time.Parse(DateLayout, key.Date)
		if err != nil {
			return stats, fmt.Errorf("row %d: %w %q: %v", row.Line(), ErrInvalidDate, key.Date, err)
		}
		entry.AddPanel(key, &registry.Panel{
			Timestamp: timestamp,
			Profile: models.Profile{
				Name: row.Get(feed.ColProfileName),
				Code: e.profileCode(row),
			},
			Results: []models.ResultItem{result},
		})
		stats.Panels++
		stats.Results++
	}
	return stats, nil
}

// PanelKey derives the grouping key of row from field values, never from the
// raw row text.
func (e *Engine) PanelKey(row feed.Row) registry.PanelKey {
	return registry.PanelKey{
		HospitalID:  row.Get(feed.ColHospID),
		Date:        row.Get(feed.ColDate),
		ProfileCode: e.profileCode(row),
		Slots:       row.Slots(),
	}
}

// profileCode reads the profile-code column, disambiguated by position: its
// header duplicates the profile-name header.
func (e *Engine) profileCode(row feed.Row) string {
	return row.At(e.opts.ProfileCodeIndex)
}
