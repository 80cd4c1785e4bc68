package collate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/labcollate/pkg/common/logger"
	"github.com/synaptica-ai/labcollate/pkg/common/models"
	"github.com/synaptica-ai/labcollate/pkg/feed"
	"github.com/synaptica-ai/labcollate/pkg/identity"
	"github.com/synaptica-ai/labcollate/pkg/ingestion"
	"github.com/synaptica-ai/labcollate/pkg/observability/metrics"
	"github.com/synaptica-ai/labcollate/pkg/storage"
	"github.com/synaptica-ai/labcollate/pkg/terminology"
)

// Sources names the three input files of a batch run.
type Sources struct {
	PatientsPath string
	CodesPath    string
	ResultsPath  string
}

// Inline carries the inputs of a run submitted over HTTP.
type Inline struct {
	Patients   []models.PatientRecord `json:"patients"`
	CodesCSV   string                 `json:"codes_csv"`
	ResultsCSV string                 `json:"results_csv"`
}

type LinkStore interface {
	Replace(ctx context.Context, runID string, idx *identity.Index) error
}

type Service struct {
	opts     ingestion.Options
	encoding string
	sinks    []storage.Sink
	runs     RunStore
	links    LinkStore
}

// NewService wires the collation core to its outputs. runs and links may be
// nil when no database is configured.
func NewService(opts ingestion.Options, encoding string, sinks []storage.Sink, runs RunStore, links LinkStore) *Service {
	return &Service{
		opts:     opts,
		encoding: encoding,
		sinks:    sinks,
		runs:     runs,
		links:    links,
	}
}

// Execute runs one batch collation from files and hands the document to
// every configured sink. Staged sinks (the output file) are published last,
// after the link table and every other sink succeeded, so a failed run
// leaves the previous file in place. Writes already made by earlier
// unstaged sinks are not rolled back.
func (s *Service) Execute(ctx context.Context, src Sources) (*RunRecord, *models.Document, error) {
	return s.run(ctx, "file", func() (Input, error) {
		return s.loadFiles(src)
	}, true)
}

// CollateInline runs a collation over in-memory inputs. Sinks are not
// written; the document is only returned.
func (s *Service) CollateInline(ctx context.Context, req Inline) (*RunRecord, *models.Document, error) {
	return s.run(ctx, "inline", func() (Input, error) {
		return s.loadInline(req)
	}, false)
}

func (s *Service) Run(ctx context.Context, id string) (*RunRecord, error) {
	if s.runs == nil {
		return nil, ErrNotFound
	}
	return s.runs.Get(ctx, id)
}

func (s *Service) run(ctx context.Context, source string, load func() (Input, error), writeSinks bool) (*RunRecord, *models.Document, error) {
	started := time.Now()
	rec := &RunRecord{
		ID:     uuid.New().String(),
		Source: source,
		Status: StatusAccepted,
	}
	log := logger.WithFields(logrus.Fields{"run_id": rec.ID, "source": source})

	if s.runs != nil {
		if err := s.runs.Create(ctx, rec); err != nil {
			return nil, nil, fmt.Errorf("persisting run record: %w", err)
		}
	}

	result, err := s.collate(ctx, rec.ID, load, writeSinks)
	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
		metrics.ObserveFailure()
		log.WithError(err).Error("Collation run failed")
		s.finish(ctx, rec, 0, ingestion.Stats{})
		return rec, nil, err
	}

	rec.Status = StatusCompleted
	patients := len(result.Document.Patients)
	s.finish(ctx, rec, patients, result.Stats)
	metrics.ObserveRun(patients, result.Stats.Rows, result.Stats.Skipped, result.Stats.Panels, result.Stats.Results)

	log.WithFields(logrus.Fields{
		"patients": patients,
		"rows":     result.Stats.Rows,
		"skipped":  result.Stats.Skipped,
		"panels":   result.Stats.Panels,
		"results":  result.Stats.Results,
		"duration": time.Since(started).String(),
	}).Info("Collation run completed")

	return rec, result.Document, nil
}

func (s *Service) collate(ctx context.Context, runID string, load func() (Input, error), writeSinks bool) (*Result, error) {
	in, err := load()
	if err != nil {
		return nil, err
	}

	result, err := Collate(in, s.opts)
	if err != nil {
		return nil, err
	}
	if !writeSinks {
		return result, nil
	}

	if err := s.publish(ctx, runID, result); err != nil {
		return nil, err
	}
	return result, nil
}

// publish stages every stageable sink, writes the link table and the
// remaining sinks in configured order, then commits the staged output.
func (s *Service) publish(ctx context.Context, runID string, result *Result) error {
	var (
		staged []storage.Staged
		direct []storage.Sink
	)
	defer func() {
		for _, st := range staged {
			st.Discard()
		}
	}()

	for _, sink := range s.sinks {
		stager, ok := sink.(storage.Stager)
		if !ok {
			direct = append(direct, sink)
			continue
		}
		st, err := stager.Stage(ctx, runID, result.Document)
		if err != nil {
			return fmt.Errorf("sink %s: %w", sink.Name(), err)
		}
		staged = append(staged, st)
	}

	if s.links != nil {
		if err := s.links.Replace(ctx, runID, result.Links); err != nil {
			return fmt.Errorf("persisting hospital id links: %w", err)
		}
	}
	for _, sink := range direct {
		if err := sink.Write(ctx, runID, result.Document); err != nil {
			return fmt.Errorf("sink %s: %w", sink.Name(), err)
		}
	}

	for _, st := range staged {
		if err := st.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) finish(ctx context.Context, rec *RunRecord, patients int, stats ingestion.Stats) {
	rec.Patients = patients
	rec.Rows = stats.Rows
	rec.Skipped = stats.Skipped
	rec.Panels = stats.Panels
	rec.Results = stats.Results
	if s.runs == nil {
		return
	}
	if err := s.runs.Finish(ctx, rec.ID, rec.Status, patients, stats, rec.Error); err != nil {
		logger.Log.WithError(err).WithField("run_id", rec.ID).Warn("failed to update run record")
	}
}

func (s *Service) loadFiles(src Sources) (Input, error) {
	patients, err := readFile(src.PatientsPath, feed.ReadPatients)
	if err != nil {
		return Input{}, err
	}

	dict, err := terminology.LoadFile(src.CodesPath, s.encoding)
	if err != nil {
		return Input{}, fmt.Errorf("loading code dictionary: %w", err)
	}

	rows, err := readFile(src.ResultsPath, func(r io.Reader) ([]feed.Row, error) {
		return s.readResults(r, s.encoding)
	})
	if err != nil {
		return Input{}, err
	}

	return Input{Patients: patients, Dictionary: dict, Results: rows}, nil
}

func (s *Service) loadInline(req Inline) (Input, error) {
	codes, err := feed.ReadCodes(strings.NewReader(req.CodesCSV), "utf-8")
	if err != nil {
		return Input{}, err
	}
	rows, err := s.readResults(strings.NewReader(req.ResultsCSV), "utf-8")
	if err != nil {
		return Input{}, err
	}
	return Input{Patients: req.Patients, Dictionary: terminology.FromRows(codes), Results: rows}, nil
}

func (s *Service) readResults(r io.Reader, enc string) ([]feed.Row, error) {
	header, rows, err := feed.ReadRows(r, enc)
	if err != nil {
		return nil, fmt.Errorf("lab results: %w", err)
	}
	if err := ingestion.ValidateHeader(header.Names(), s.opts); err != nil {
		return nil, fmt.Errorf("lab results: %w", err)
	}
	return rows, nil
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return read(f)
}
