package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
)

var (
	runsCompleted  atomic.Int64
	runsFailed     atomic.Int64
	rowsRead       atomic.Int64
	rowsSkipped    atomic.Int64
	panelsBuilt    atomic.Int64
	resultsDecoded atomic.Int64
	lastPatients   atomic.Int64
)

func ObserveRun(patients, rows, skipped, panels, results int) {
	runsCompleted.Add(1)
	rowsRead.Add(int64(rows))
	rowsSkipped.Add(int64(skipped))
	panelsBuilt.Add(int64(panels))
	resultsDecoded.Add(int64(results))
	lastPatients.Store(int64(patients))
}

func ObserveFailure() {
	runsFailed.Add(1)
}

type Snapshot struct {
	RunsCompleted  int64
	RunsFailed     int64
	RowsRead       int64
	RowsSkipped    int64
	PanelsBuilt    int64
	ResultsDecoded int64
	LastPatients   int64
}

func Read() Snapshot {
	return Snapshot{
		RunsCompleted:  runsCompleted.Load(),
		RunsFailed:     runsFailed.Load(),
		RowsRead:       rowsRead.Load(),
		RowsSkipped:    rowsSkipped.Load(),
		PanelsBuilt:    panelsBuilt.Load(),
		ResultsDecoded: resultsDecoded.Load(),
		LastPatients:   lastPatients.Load(),
	}
}

func WritePrometheus(w io.Writer) {
	s := Read()
	write(w, "labcollate_runs_completed_total", "counter", "Collation runs that produced a document.", s.RunsCompleted)
	write(w, "labcollate_runs_failed_total", "counter", "Collation runs aborted by an error.", s.RunsFailed)
	write(w, "labcollate_rows_read_total", "counter", "Lab result rows read.", s.RowsRead)
	write(w, "labcollate_rows_skipped_total", "counter", "Lab result rows skipped for an unknown hospital id.", s.RowsSkipped)
	write(w, "labcollate_panels_built_total", "counter", "Panels created.", s.PanelsBuilt)
	write(w, "labcollate_results_decoded_total", "counter", "Result items decoded.", s.ResultsDecoded)
	write(w, "labcollate_last_run_patients", "gauge", "Patients in the latest completed run.", s.LastPatients)
}

func write(w io.Writer, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n", name, value)
}
