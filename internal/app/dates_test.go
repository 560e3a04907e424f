package app

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSemesterKey(t *testing.T) {
	tests := []struct {
		key      string
		wantYear int
		wantTerm string
		wantErr  bool
	}{
		{key: "2024_fall", wantYear: 2024, wantTerm: "fall"},
		{key: "2025_Spring", wantYear: 2025, wantTerm: "Spring"},
		{key: "2024_introproofs_fall", wantYear: 2024, wantTerm: "introproofs_fall"},
		{key: "fall_2024", wantErr: true},
		{key: "2024fall", wantErr: true},
		{key: "../2024_fall", wantErr: true},
		{key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			year, term, err := ParseSemesterKey(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidKey))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantYear, year)
			assert.Equal(t, tt.wantTerm, term)
		})
	}
}

func TestSemesterYear(t *testing.T) {
	assert.Equal(t, "2024", SemesterYear("2024_fall"))
	assert.Equal(t, "2024", SemesterYear("2024_introproofs_fall"))
	assert.Equal(t, "2024", SemesterYear("2024"))
}

func TestParseEventDate(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		semester string
		wantOK   bool
		wantDate time.Time
		want     DateLabel
	}{
		{
			name:     "free-form takes semester year",
			raw:      "Sep 10",
			semester: "2024_fall",
			wantOK:   true,
			wantDate: time.Date(2024, time.September, 10, 0, 0, 0, 0, time.UTC),
			want:     DateLabel{MonthYear: "Sep 2024", Day: "10"},
		},
		{
			name:     "ordinal suffix",
			raw:      "October 2nd",
			semester: "2023_fall",
			wantOK:   true,
			wantDate: time.Date(2023, time.October, 2, 0, 0, 0, 0, time.UTC),
			want:     DateLabel{MonthYear: "Oct 2023", Day: "2"},
		},
		{
			name:     "weekday prefix and sept",
			raw:      "Tuesday, Sept 3",
			semester: "2024_fall",
			wantOK:   true,
			wantDate: time.Date(2024, time.September, 3, 0, 0, 0, 0, time.UTC),
			want:     DateLabel{MonthYear: "Sep 2024", Day: "3"},
		},
		{
			name:     "iso date keeps its own year",
			raw:      "2025-01-15",
			semester: "2024_fall",
			wantOK:   true,
			wantDate: time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
			want:     DateLabel{MonthYear: "Jan 2025", Day: "15"},
		},
		{
			name:     "iso date with time",
			raw:      "2024-02-14T18:30",
			semester: "2024_spring",
			wantOK:   true,
			wantDate: time.Date(2024, time.February, 14, 0, 0, 0, 0, time.UTC),
			want:     DateLabel{MonthYear: "Feb 2024", Day: "14"},
		},
		{
			name:     "unparseable falls back to raw text",
			raw:      "TBA",
			semester: "2024_fall",
			want:     DateLabel{MonthYear: "TBA 2024"},
		},
		{
			name:     "impossible day",
			raw:      "Feb 30",
			semester: "2024_spring",
			want:     DateLabel{MonthYear: "Feb 30 2024"},
		},
		{
			name:     "time before the date",
			raw:      "6:30 PM, Sep 10",
			semester: "2024_fall",
			wantOK:   true,
			wantDate: time.Date(2024, time.September, 10, 0, 0, 0, 0, time.UTC),
			want:     DateLabel{MonthYear: "Sep 2024", Day: "10"},
		},
		{
			name:     "time after the date",
			raw:      "Sep 17 at 6:30pm",
			semester: "2024_fall",
			wantOK:   true,
			wantDate: time.Date(2024, time.September, 17, 0, 0, 0, 0, time.UTC),
			want:     DateLabel{MonthYear: "Sep 2024", Day: "17"},
		},
		{
			name:     "day before month",
			raw:      "10 September",
			semester: "2024_fall",
			wantOK:   true,
			wantDate: time.Date(2024, time.September, 10, 0, 0, 0, 0, time.UTC),
			want:     DateLabel{MonthYear: "Sep 2024", Day: "10"},
		},
		{
			name:     "number not next to the month",
			raw:      "Sep, room 5",
			semester: "2024_fall",
			want:     DateLabel{MonthYear: "Sep, room 5 2024"},
		},
		{
			name:     "broken iso date",
			raw:      "2024-13-45",
			semester: "2024_fall",
			want:     DateLabel{MonthYear: "2024-13-45 2024"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, label, ok := ParseEventDate(tt.raw, tt.semester, time.UTC)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, label)
			if tt.wantOK {
				assert.True(t, tt.wantDate.Equal(got), "got %v, want %v", got, tt.wantDate)
			}
		})
	}
}

func TestLookupMonth(t *testing.T) {
	assert.Equal(t, 9, lookupMonth("Sep"))
	assert.Equal(t, 9, lookupMonth("SEPT"))
	assert.Equal(t, 9, lookupMonth("september"))
	assert.Equal(t, 5, lookupMonth("May"))
	assert.Equal(t, 0, lookupMonth("Ma"))
	assert.Equal(t, 0, lookupMonth("Tuesday"))
}

func TestStartOfDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:00 UTC is still the previous evening in New York
	got := startOfDay(time.Date(2024, time.September, 11, 2, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2024, time.September, 10, 0, 0, 0, 0, loc), got)
}
