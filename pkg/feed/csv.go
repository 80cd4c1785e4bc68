package feed

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/synaptica-ai/labcollate/pkg/common/models"
)

var ErrEmptySource = errors.New("source has no header row")

// IsFormatError reports whether err comes from malformed source text.
func IsFormatError(err error) bool {
	var parseErr *csv.ParseError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.Is(err, ErrEmptySource) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &parseErr) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr)
}

// ReadRows reads a header-first CSV source into rows.
func ReadRows(r io.Reader, enc string) (*Header, []Row, error) {
	decoded, err := Decode(r, enc)
	if err != nil {
		return nil, nil, err
	}

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	names, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptySource
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	header := NewHeader(names)

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading row %d: %w", len(rows)+2, err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, header.Row(record, line))
	}

	return header, rows, nil
}

// ReadResults reads the lab-results feed.
func ReadResults(r io.Reader, enc string) ([]Row, error) {
	_, rows, err := ReadRows(r, enc)
	if err != nil {
		return nil, fmt.Errorf("lab results: %w", err)
	}
	return rows, nil
}

// ReadCodes reads the code dictionary (key, code, description columns).
func ReadCodes(r io.Reader, enc string) ([]models.CodeRow, error) {
	_, rows, err := ReadRows(r, enc)
	if err != nil {
		return nil, fmt.Errorf("code dictionary: %w", err)
	}

	codes := make([]models.CodeRow, 0, len(rows))
	for _, row := range rows {
		codes = append(codes, models.CodeRow{
			Key:         row.Get("key"),
			Code:        row.Get("code"),
			Description: row.Get("description"),
		})
	}
	return codes, nil
}
