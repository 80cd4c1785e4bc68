package terminology

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/synaptica-ai/labcollate/pkg/common/models"
)

func TestLookupKnownCode(t *testing.T) {
	dict := FromRows([]models.CodeRow{
		{Key: "T1", Code: "S1", Description: "Label1"},
		{Key: "T2", Code: "S2", Description: "Label2"},
	})

	concept, err := dict.Lookup("T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if concept.Code != "S1" || concept.Label != "Label1" {
		t.Fatalf("unexpected concept %+v", concept)
	}
}

func TestLookupUnknownCode(t *testing.T) {
	dict := FromRows([]models.CodeRow{{Key: "T1", Code: "S1", Description: "Label1"}})

	_, err := dict.Lookup("t1")
	var unknown *UnknownTestCodeError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTestCodeError, got %v", err)
	}
	if unknown.Code != "t1" {
		t.Fatalf("expected code t1, got %q", unknown.Code)
	}
}

func TestLaterRowsOverwrite(t *testing.T) {
	dict := FromRows([]models.CodeRow{
		{Key: "T1", Code: "OLD", Description: "Old"},
		{Key: "T1", Code: "NEW", Description: "New"},
	})
	concept, _ := dict.Lookup("T1")
	if concept.Code != "NEW" {
		t.Fatalf("expected later row to win, got %+v", concept)
	}
}

func TestLoadFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.csv")
	content := "key,code,description\nNA,39972003,Sodium\nK,88480006,Potassium\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	dict, err := LoadFile(path, "utf-8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dict.Len() != 2 {
		t.Fatalf("expected 2 concepts, got %d", dict.Len())
	}
	if concept, _ := dict.Lookup("K"); concept.Label != "Potassium" {
		t.Fatalf("unexpected concept %+v", concept)
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.yaml")
	content := "concepts:\n  NA:\n    code: \"39972003\"\n    label: Sodium\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	dict, err := LoadFile(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if concept, _ := dict.Lookup("NA"); concept.Code != "39972003" {
		t.Fatalf("unexpected concept %+v", concept)
	}
}

func TestLoadFileYAMLEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.yml")
	if err := os.WriteFile(path, []byte("concepts: {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path, ""); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}
