package terminology

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/synaptica-ai/labcollate/pkg/common/models"
	"github.com/synaptica-ai/labcollate/pkg/feed"
	"gopkg.in/yaml.v3"
)

// Concept is the standardized coding of a hospital-local test code.
type Concept struct {
	Code  string `yaml:"code" json:"code"`
	Label string `yaml:"label" json:"label"`
}

// UnknownTestCodeError reports a hospital-local code missing from the dictionary.
type UnknownTestCodeError struct {
	Code string
}

func (e *UnknownTestCodeError) Error() string {
	return fmt.Sprintf("test code %q is not in the code dictionary", e.Code)
}

// Dictionary maps hospital-local test codes to standardized concepts. It is
// read-only once built.
type Dictionary struct {
	Concepts map[string]Concept `yaml:"concepts" json:"concepts"`
}

func FromRows(rows []models.CodeRow) Dictionary {
	concepts := make(map[string]Concept, len(rows))
	for _, row := range rows {
		concepts[row.Key] = Concept{Code: row.Code, Label: row.Description}
	}
	return Dictionary{Concepts: concepts}
}

// LoadFile reads a dictionary from CSV (key, code, description) or from a
// YAML catalog, chosen by file extension.
func LoadFile(path, encoding string) (Dictionary, error) {
	path = filepath.Clean(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		content, err := os.ReadFile(path)
		if err != nil {
			return Dictionary{}, err
		}
		return parseYAML(content)
	default:
		f, err := os.Open(path)
		if err != nil {
			return Dictionary{}, err
		}
		defer f.Close()

		rows, err := feed.ReadCodes(f, encoding)
		if err != nil {
			return Dictionary{}, err
		}
		return FromRows(rows), nil
	}
}

func parseYAML(content []byte) (Dictionary, error) {
	var dict Dictionary
	if err := yaml.Unmarshal(content, &dict); err != nil {
		return Dictionary{}, err
	}
	if len(dict.Concepts) == 0 {
		return Dictionary{}, fmt.Errorf("code dictionary empty")
	}
	return dict, nil
}

// Lookup is exact-match; hospital codes are case sensitive in the feed.
func (d Dictionary) Lookup(key string) (Concept, error) {
	concept, ok := d.Concepts[key]
	if !ok {
		return Concept{}, &UnknownTestCodeError{Code: key}
	}
	return concept, nil
}

func (d Dictionary) Len() int {
	return len(d.Concepts)
}
