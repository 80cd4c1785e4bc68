package identity

import (
	"errors"
	"strings"
	"testing"

	"github.com/synaptica-ai/labcollate/pkg/common/models"
)

func TestRegisterConflict(t *testing.T) {
	idx := NewIndex()
	if err := idx.Register("H1", "U1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := idx.Register("H1", "U2")
	var conflict *ConflictingIdentityError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictingIdentityError, got %v", err)
	}
	for _, want := range []string{"U1", "U2", "H1"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err.Error(), want)
		}
	}
	if conflict.Existing != "U1" || conflict.Conflicting != "U2" || conflict.HospitalID != "H1" {
		t.Fatalf("unexpected conflict fields %+v", conflict)
	}
}

func TestRegisterSamePairTwice(t *testing.T) {
	idx := NewIndex()
	if err := idx.Register("H1", "U1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := idx.Register("H1", "U1"); err != nil {
		t.Fatalf("re-registering the same pair should be a no-op, got %v", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("expected 1 link, got %d", idx.Len())
	}
}

func TestBuildIndex(t *testing.T) {
	records := []models.PatientRecord{
		{ID: "U1", Identifiers: []string{"H1", "H2"}},
		{ID: "U2"},
		{ID: "U3", Identifiers: []string{}},
		{ID: "U4", Identifiers: []string{"H4"}},
	}

	idx, err := BuildIndex(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("expected 3 links, got %d", idx.Len())
	}
	if id, ok := idx.Resolve("H2"); !ok || id != "U1" {
		t.Fatalf("expected H2 -> U1, got %q %v", id, ok)
	}
	if _, ok := idx.Resolve("H3"); ok {
		t.Fatal("expected H3 to be unresolved")
	}

	var order []string
	idx.Each(func(h, _ string) { order = append(order, h) })
	if strings.Join(order, ",") != "H1,H2,H4" {
		t.Fatalf("unexpected registration order %v", order)
	}
}

func TestBuildIndexConflictAcrossRecords(t *testing.T) {
	records := []models.PatientRecord{
		{ID: "U1", Identifiers: []string{"H1"}},
		{ID: "U2", Identifiers: []string{"H1"}},
	}
	if _, err := BuildIndex(records); err == nil {
		t.Fatal("expected conflict error")
	}
}
