package feed

import "strconv"

// Lab-results feed columns.
const (
	ColHospID      = "HospID"
	ColDate        = "Date"
	ColProfileName = "Profile Name"
	ColTestName    = "TestName"
	ColUnit        = "Unit"
	ColLower       = "Lower"
	ColUpper       = "Upper"

	// The profile-code column carries the same header text as ColProfileName
	// and can only be read by position.
	DefaultProfileCodeIndex = 4

	SlotCount = 25
)

var slotColumns = func() [SlotCount]string {
	var cols [SlotCount]string
	for i := range cols {
		cols[i] = "Res" + strconv.Itoa(i+1)
	}
	return cols
}()

// SlotColumn returns the header of result slot i (0-based): Res1..Res25.
func SlotColumn(i int) string {
	return slotColumns[i]
}

// Slots returns the raw values of Res1..Res25 in order.
func (r Row) Slots() [SlotCount]string {
	var out [SlotCount]string
	for i := range out {
		out[i] = r.Get(slotColumns[i])
	}
	return out
}
