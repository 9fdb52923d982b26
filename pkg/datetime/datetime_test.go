package datetime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateTripleJSON(t *testing.T) {
	d := DateTriple{Year: 2014, Month: time.March, Day: 3}
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, "[2014, 3, 3]", string(raw))

	var back DateTriple
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, d, back)
}

func TestDateTripleUnmarshalRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "object form", raw: `{"year": 2014}`},
		{name: "month out of range", raw: `[2014, 13, 1]`},
		{name: "day out of range", raw: `[2014, 1, 32]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d DateTriple
			assert.Error(t, json.Unmarshal([]byte(tt.raw), &d))
		})
	}
}

func TestDateTruncatesToMidnightUTC(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	stamp := time.Date(2020, time.June, 15, 23, 45, 0, 0, loc)

	got := Date(stamp)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 15, got.Day())
	assert.Equal(t, 0, got.Hour())
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 15, DaysBetween(NewDate(2020, time.February, 1), NewDate(2020, time.February, 16)))
	// 2020 is a leap year.
	assert.Equal(t, 29, DaysBetween(NewDate(2020, time.February, 1), NewDate(2020, time.March, 1)))
	assert.Equal(t, -1, DaysBetween(NewDate(2020, time.March, 2), NewDate(2020, time.March, 1)))
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2020, time.June, 15, 8, 0, 0, 0, time.UTC)
	night := time.Date(2020, time.June, 15, 23, 59, 0, 0, time.UTC)
	assert.True(t, SameDay(morning, night))
	assert.False(t, SameDay(morning, morning.AddDate(0, 0, 1)))
}

func TestFromTimeString(t *testing.T) {
	d := FromTime(NewDate(2014, time.March, 3))
	assert.Equal(t, "2014-03-03", d.String())
	assert.True(t, d.Time().Equal(NewDate(2014, time.March, 3)))
}
