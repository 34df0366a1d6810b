package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDateRange_Overlaps(t *testing.T) {
	confirmed := DateRange{Start: day("2024-06-01"), End: day("2024-06-05")}

	tests := []struct {
		name  string
		other DateRange
		want  bool
	}{
		{"partial overlap at the tail", DateRange{day("2024-06-03"), day("2024-06-07")}, true},
		{"partial overlap at the head", DateRange{day("2024-05-28"), day("2024-06-02")}, true},
		{"contained", DateRange{day("2024-06-02"), day("2024-06-03")}, true},
		{"containing", DateRange{day("2024-05-01"), day("2024-07-01")}, true},
		{"identical", confirmed, true},
		{"starts the day it ends", DateRange{day("2024-06-05"), day("2024-06-07")}, false},
		{"ends the day it starts", DateRange{day("2024-05-30"), day("2024-06-01")}, false},
		{"far away", DateRange{day("2024-08-01"), day("2024-08-03")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, confirmed.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(confirmed))
		})
	}
}

func TestDateRange_DaysAndValid(t *testing.T) {
	r := NewDateRange(day("2024-06-05"), day("2024-06-07"))
	assert.True(t, r.Valid())
	assert.Equal(t, 2, r.Days())

	empty := NewDateRange(day("2024-06-05"), day("2024-06-05"))
	assert.False(t, empty.Valid())
	assert.Equal(t, 0, empty.Days())

	inverted := NewDateRange(day("2024-06-07"), day("2024-06-05"))
	assert.False(t, inverted.Valid())
}

func TestDate_TruncatesTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	in := time.Date(2024, 6, 5, 23, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), Date(in))
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := ParseDate("05/06/2024")
	assert.Error(t, err)
}
