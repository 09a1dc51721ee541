package semester

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(month time.Month) time.Time {
	return time.Date(2025, month, 15, 12, 0, 0, 0, time.UTC)
}

func TestQuarterLabels(t *testing.T) {
	cases := map[time.Month]string{
		time.January:   "Winter 2025",
		time.March:     "Winter 2025",
		time.April:     "Spring 2025",
		time.June:      "Spring 2025",
		time.July:      "Summer 2025",
		time.September: "Summer 2025",
		time.October:   "Fall 2025",
		time.December:  "Fall 2025",
	}
	for month, want := range cases {
		assert.Equal(t, want, SchemeQuarters.Label(date(month)), month.String())
	}
}

func TestAcademicLabels(t *testing.T) {
	cases := map[time.Month]string{
		time.January: "Spring 2025",
		time.May:     "Spring 2025",
		time.June:    "Summer 2025",
		time.July:    "Summer 2025",
		time.August:  "Fall 2025",
		time.October: "Fall 2025",
	}
	for month, want := range cases {
		assert.Equal(t, want, SchemeAcademic.Label(date(month)), month.String())
	}
}

func TestParseScheme(t *testing.T) {
	s, err := ParseScheme("")
	require.NoError(t, err)
	assert.Equal(t, SchemeQuarters, s)

	s, err = ParseScheme(" Academic ")
	require.NoError(t, err)
	assert.Equal(t, SchemeAcademic, s)

	_, err = ParseScheme("trimester")
	assert.Error(t, err)
}

func TestDeriverUsesClock(t *testing.T) {
	d := NewDeriver(SchemeQuarters, func() time.Time { return date(time.November) })
	assert.Equal(t, "Fall 2025", d.Current())
}
