package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/synaptica-ai/labcollate/pkg/common/logger"
	"github.com/synaptica-ai/labcollate/pkg/common/models"
)

// FileSink writes the document to a single JSON file. The file is replaced
// atomically so readers never observe a partial document.
type FileSink struct {
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: filepath.Clean(path)}
}

func (f *FileSink) Name() string { return "file" }

func (f *FileSink) Write(ctx context.Context, runID string, doc *models.Document) error {
	staged, err := f.Stage(ctx, runID, doc)
	if err != nil {
		return err
	}
	defer staged.Discard()
	return staged.Commit()
}

// Stage encodes doc into a temp file next to the target. The target is not
// touched until Commit.
func (f *FileSink) Stage(ctx context.Context, runID string, doc *models.Document) (Staged, error) {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".collate-*.json")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	staged := &stagedFile{tmp: tmp.Name(), path: f.path, runID: runID, patients: len(doc.Patients)}

	if err := Encode(tmp, doc); err != nil {
		tmp.Close()
		staged.Discard()
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		staged.Discard()
		return nil, err
	}
	return staged, nil
}

type stagedFile struct {
	tmp       string
	path      string
	runID     string
	patients  int
	committed bool
}

func (s *stagedFile) Commit() error {
	if err := os.Rename(s.tmp, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	s.committed = true

	logger.Log.WithFields(map[string]interface{}{
		"run_id":   s.runID,
		"path":     s.path,
		"patients": s.patients,
	}).Info("Document written")
	return nil
}

func (s *stagedFile) Discard() {
	if !s.committed {
		os.Remove(s.tmp)
	}
}
