package collate

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/synaptica-ai/labcollate/pkg/common/models"
	"github.com/synaptica-ai/labcollate/pkg/feed"
	"github.com/synaptica-ai/labcollate/pkg/identity"
	"github.com/synaptica-ai/labcollate/pkg/ingestion"
	"github.com/synaptica-ai/labcollate/pkg/storage"
	"github.com/synaptica-ai/labcollate/pkg/terminology"
)

func resultsHeader() string {
	cols := []string{"HospID", "Date", "SampleID", "Profile Name", "Profile Name", "TestName", "Unit", "Lower", "Upper"}
	for i := 0; i < feed.SlotCount; i++ {
		cols = append(cols, feed.SlotColumn(i))
	}
	return strings.Join(cols, ",")
}

// resultsLine pads the slot columns so every line has the full width.
func resultsLine(fields ...string) string {
	for len(fields) < 9+feed.SlotCount {
		fields = append(fields, "")
	}
	return strings.Join(fields, ",")
}

func readResults(t *testing.T, lines ...string) []feed.Row {
	t.Helper()
	csv := resultsHeader() + "\n" + strings.Join(lines, "\n") + "\n"
	rows, err := feed.ReadResults(strings.NewReader(csv), "utf-8")
	if err != nil {
		t.Fatalf("reading results: %v", err)
	}
	return rows
}

func scenarioInput(t *testing.T) Input {
	return Input{
		Patients: []models.PatientRecord{
			{ID: "U1", Identifiers: []string{"H1"}, FirstName: "Jane", LastName: "Doe", DateOfBirth: "1980-05-04"},
		},
		Dictionary: terminology.FromRows([]models.CodeRow{{Key: "T1", Code: "S1", Description: "Label1"}}),
		Results: readResults(t,
			resultsLine("H1", "01/02/2020", "SMP1", "Chem", "P1", "T1", "mmol/L", "1", "9", "T1~5.5"),
		),
	}
}

func TestCollateFullScenario(t *testing.T) {
	result, err := Collate(scenarioInput(t), ingestion.DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := result.Document
	if len(doc.Patients) != 1 || doc.Patients[0].ID != "U1" {
		t.Fatalf("expected patient U1, got %+v", doc.Patients)
	}
	panels := doc.Patients[0].LabResults
	if len(panels) != 1 {
		t.Fatalf("expected one panel, got %d", len(panels))
	}
	panel := panels[0]
	if panel.Timestamp != "2020-02-01T00:00:00.000Z" {
		t.Fatalf("unexpected timestamp %s", panel.Timestamp)
	}
	if panel.Profile != (models.Profile{Name: "Chem", Code: "P1"}) {
		t.Fatalf("unexpected profile %+v", panel.Profile)
	}
	want := models.ResultItem{Code: "S1", Label: "Label1", Value: 5.5, Unit: "mmol/L", Lower: 1.0, Upper: 9.0}
	if len(panel.Results) != 1 || panel.Results[0] != want {
		t.Fatalf("unexpected results %+v", panel.Results)
	}
}

func TestCollateDocumentShape(t *testing.T) {
	result, err := Collate(scenarioInput(t), ingestion.DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := storage.Encode(&buf, result.Document); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		`"patients": [`,
		`"id": "U1"`,
		`"firstName": "Jane"`,
		`"dob": "1980-05-04"`,
		`"lab_results": [`,
		`"timestamp": "2020-02-01T00:00:00.000Z"`,
		`"panel": [`,
		`"value": 5.5`,
		`"lower": 1.0,`,
		`"upper": 9.0`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in:\n%s", want, out)
		}
	}
}

func TestCollateIsDeterministic(t *testing.T) {
	build := func() []byte {
		in := Input{
			Patients: []models.PatientRecord{
				{ID: "U3", Identifiers: []string{"H3"}},
				{ID: "U1", Identifiers: []string{"H1", "H1b"}},
				{ID: "U2"},
			},
			Dictionary: terminology.FromRows([]models.CodeRow{
				{Key: "NA", Code: "S-NA", Description: "Sodium"},
				{Key: "K", Code: "S-K", Description: "Potassium"},
			}),
			Results: readResults(t,
				resultsLine("H1", "01/02/2020", "A", "U&E", "UE", "NA", "mmol/L", "135", "145", "NA~140", "K~4.2"),
				resultsLine("H3", "03/02/2020", "B", "U&E", "UE", "K", "mmol/L", "3.5", "5.1", "K~3.9"),
				resultsLine("H1b", "01/02/2020", "A", "U&E", "UE", "K", "mmol/L", "3.5", "5.1", "NA~140", "K~4.2"),
				resultsLine("H1", "01/02/2020", "C", "U&E", "UE", "K", "mmol/L", "3.5", "5.1", "NA~140", "K~4.2"),
				resultsLine("HX", "01/02/2020", "D", "U&E", "UE", "??", "", "", ""),
			),
		}
		result, err := Collate(in, ingestion.DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var buf bytes.Buffer
		if err := storage.Encode(&buf, result.Document); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}

	first, second := build(), build()
	if !bytes.Equal(first, second) {
		t.Fatalf("output differs between runs:\n%s\n---\n%s", first, second)
	}
}

func TestCollatePatientBijection(t *testing.T) {
	in := scenarioInput(t)
	in.Patients = append(in.Patients,
		models.PatientRecord{ID: "U2"},
		models.PatientRecord{ID: "U3", Identifiers: []string{"H9"}},
	)

	result, err := Collate(in, ingestion.DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[string]int{}
	for _, p := range result.Document.Patients {
		seen[p.ID]++
	}
	if len(seen) != 3 || len(result.Document.Patients) != 3 {
		t.Fatalf("expected each input patient exactly once, got %v", seen)
	}
}

func TestCollateSeparatePanelsForDifferentSlots(t *testing.T) {
	in := scenarioInput(t)
	in.Results = readResults(t,
		resultsLine("H1", "01/02/2020", "S", "Chem", "P1", "T1", "", "", "", "T1~5.5"),
		resultsLine("H1", "01/02/2020", "S", "Chem", "P1", "T1", "", "", "", "T1~6.0"),
	)

	result, err := Collate(in, ingestion.DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(result.Document.Patients[0].LabResults); n != 2 {
		t.Fatalf("expected 2 panels, got %d", n)
	}
	if result.Stats.Panels != 2 || result.Stats.Results != 2 {
		t.Fatalf("unexpected stats %+v", result.Stats)
	}
}

func TestCollateConflictAbortsRun(t *testing.T) {
	in := scenarioInput(t)
	in.Patients = append(in.Patients, models.PatientRecord{ID: "U2", Identifiers: []string{"H1"}})

	result, err := Collate(in, ingestion.DefaultOptions())
	var conflict *identity.ConflictingIdentityError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictingIdentityError, got %v", err)
	}
	if result != nil {
		t.Fatal("no partial output on failure")
	}
	if !IsDataError(err) {
		t.Fatal("conflicts are data errors")
	}
}

func TestIsDataError(t *testing.T) {
	if IsDataError(errors.New("connection reset")) {
		t.Fatal("environment errors are not data errors")
	}
	if !IsDataError(&terminology.UnknownTestCodeError{Code: "X"}) {
		t.Fatal("unknown codes are data errors")
	}
	if !IsDataError(feed.ErrEmptySource) {
		t.Fatal("empty sources are data errors")
	}
}
