package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Identity registry input
type PatientRecord struct {
	ID          string   `json:"id" yaml:"id"`
	Identifiers []string `json:"identifiers,omitempty" yaml:"identifiers,omitempty"` // hospital-assigned ids
	FirstName   string   `json:"firstName" yaml:"firstName"`
	LastName    string   `json:"lastName" yaml:"lastName"`
	DateOfBirth string   `json:"dateOfBirth" yaml:"dateOfBirth"`
}

// Code dictionary input (labresults-codes.csv)
type CodeRow struct {
	Key         string `json:"key"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Collated output
type Document struct {
	Patients []Patient `json:"patients"`
}

type Patient struct {
	ID         string  `json:"id"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	DOB        string  `json:"dob"`
	LabResults []Panel `json:"lab_results"`
}

type Panel struct {
	Timestamp string       `json:"timestamp"`
	Profile   Profile      `json:"profile"`
	Results   []ResultItem `json:"panel"`
}

type Profile struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type ResultItem struct {
	Code  string  `json:"code"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// MarshalJSON keeps a decimal point on every number, so 1 is written as 1.0
// and large or tiny magnitudes use the 1.0e+20 form.
func (r ResultItem) MarshalJSON() ([]byte, error) {
	out := struct {
		Code  string      `json:"code"`
		Label string      `json:"label"`
		Value json.Number `json:"value"`
		Unit  string      `json:"unit"`
		Lower json.Number `json:"lower"`
		Upper json.Number `json:"upper"`
	}{
		Code:  r.Code,
		Label: r.Label,
		Value: FormatDecimal(r.Value),
		Unit:  r.Unit,
		Lower: FormatDecimal(r.Lower),
		Upper: FormatDecimal(r.Upper),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// FormatDecimal renders v as a JSON number that always carries a fraction.
// Non-finite values have no JSON form and are written as 0.0.
func FormatDecimal(v float64) json.Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.0"
	}
	if abs := math.Abs(v); abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		mantissa, exp, _ := strings.Cut(strconv.FormatFloat(v, 'e', -1, 64), "e")
		if !strings.Contains(mantissa, ".") {
			mantissa += ".0"
		}
		return json.Number(mantissa + "e" + exp)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return json.Number(s)
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // collated
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
