package registry

import (
	"time"

	"github.com/synaptica-ai/labcollate/pkg/common/models"
	"github.com/synaptica-ai/labcollate/pkg/feed"
)

// PanelKey groups raw result rows into one physical panel. Two rows belong to
// the same panel iff every field is equal.
type PanelKey struct {
	HospitalID  string
	Date        string
	ProfileCode string
	Slots       [feed.SlotCount]string
}

type Panel struct {
	Timestamp time.Time
	Profile   models.Profile
	Results   []models.ResultItem
}

// Entry is the mutable per-patient container filled during ingestion.
type Entry struct {
	ID        string
	FirstName string
	LastName  string
	DOB       string

	Panels []*Panel
	keys   map[PanelKey]int
}

// Panel returns the panel registered under key, if any.
func (e *Entry) Panel(key PanelKey) (*Panel, bool) {
	i, ok := e.keys[key]
	if !ok {
		return nil, false
	}
	return e.Panels[i], true
}

// AddPanel appends a panel under key. Callers check Panel first; a key is
// never registered twice.
func (e *Entry) AddPanel(key PanelKey, p *Panel) {
	e.keys[key] = len(e.Panels)
	e.Panels = append(e.Panels, p)
}

// Registry holds one entry per canonical patient id in input order.
type Registry struct {
	entries []*Entry
	byID    map[string]int
}

// New creates an entry with an empty panel collection for every record. A
// repeated canonical id replaces the earlier entry in its original position.
func New(records []models.PatientRecord) *Registry {
	reg := &Registry{byID: make(map[string]int, len(records))}
	for _, rec := range records {
		entry := &Entry{
			ID:        rec.ID,
			FirstName: rec.FirstName,
			LastName:  rec.LastName,
			DOB:       rec.DateOfBirth,
			keys:      make(map[PanelKey]int),
		}
		if i, ok := reg.byID[rec.ID]; ok {
			reg.entries[i] = entry
			continue
		}
		reg.byID[rec.ID] = len(reg.entries)
		reg.entries = append(reg.entries, entry)
	}
	return reg
}

func (r *Registry) Get(id string) (*Entry, bool) {
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return r.entries[i], true
}

func (r *Registry) Entries() []*Entry {
	return r.entries
}

func (r *Registry) Len() int {
	return len(r.entries)
}
