package normalizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/synaptica-ai/labcollate/pkg/common/models"
	"github.com/synaptica-ai/labcollate/pkg/feed"
	"github.com/synaptica-ai/labcollate/pkg/terminology"
)

const slotSeparator = "~"

// ResultNotFoundError reports a row whose result slots carry no reading for
// the row's own test code.
type ResultNotFoundError struct {
	Code string
	Line int
	Row  string
}

func (e *ResultNotFoundError) Error() string {
	return fmt.Sprintf("couldn't find result with code %s in row %d: %s", e.Code, e.Line, e.Row)
}

// Decoder turns one lab-results row into a standardized result item.
type Decoder struct {
	dict terminology.Dictionary
}

func NewDecoder(dict terminology.Dictionary) *Decoder {
	return &Decoder{dict: dict}
}

func (d *Decoder) Decode(row feed.Row) (models.ResultItem, error) {
	hospitalCode := row.Get(feed.ColTestName)

	concept, err := d.dict.Lookup(hospitalCode)
	if err != nil {
		return models.ResultItem{}, err
	}

	value, ok := ScanSlots(row.Slots(), hospitalCode)
	if !ok {
		return models.ResultItem{}, &ResultNotFoundError{Code: hospitalCode, Line: row.Line(), Row: row.String()}
	}

	return models.ResultItem{
		Code:  concept.Code,
		Label: concept.Label,
		Value: ParseFloat(value),
		Unit:  row.Get(feed.ColUnit),
		Lower: ParseFloat(row.Get(feed.ColLower)),
		Upper: ParseFloat(row.Get(feed.ColUpper)),
	}, nil
}

// ScanSlots walks the packed code~value slots in order and returns the raw
// value of the last slot whose code equals code. Slots are contiguous: the
// first empty slot ends the scan.
//
// TODO: confirm with the lab whether a code can legitimately repeat within
// one row; if not, first-match and an error on repeats would be stricter.
func ScanSlots(slots [feed.SlotCount]string, code string) (string, bool) {
	var (
		value string
		found bool
	)
	for _, raw := range slots {
		if raw == "" {
			break
		}
		slotCode, slotValue, _ := strings.Cut(raw, slotSeparator)
		if slotCode == code {
			value = slotValue
			found = true
		}
	}
	return value, found
}

// ParseFloat is deliberately lenient: the longest numeric prefix of s is
// parsed, and empty or non-numeric input yields 0.
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	end := numericPrefix(s)
	if end == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return v
}

// numericPrefix returns the length of the leading [+-]digits[.digits][e[+-]digits] run.
func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			exp++
		}
		if exp > 0 {
			i = j
		}
	}
	return i
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
