package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsFresh_Boundary(t *testing.T) {
	now := time.Date(2026, time.March, 14, 20, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{name: "just written", age: 0, want: true},
		{name: "11h59m old", age: 12*time.Hour - time.Minute, want: true},
		{name: "exactly 12h old is stale", age: 12 * time.Hour, want: false},
		{name: "13h old", age: 13 * time.Hour, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := LocationSnapshot{Timestamp: now.Add(-tc.age)}
			assert.Equal(t, tc.want, IsFresh(s, now, DefaultFreshnessWindow))
		})
	}
}

func TestIsFresh_ZeroTimestamp(t *testing.T) {
	assert.False(t, IsFresh(LocationSnapshot{}, time.Now(), DefaultFreshnessWindow))
}

func TestUnknownCityInfo(t *testing.T) {
	info := UnknownCityInfo()
	assert.Equal(t, "Unknown City", info.City)
	assert.Equal(t, "Unknown Country", info.Country)
	assert.Equal(t, AccuracyLow, info.Accuracy)
	assert.True(t, info.IsUnknown())

	assert.False(t, CityInfo{City: "Lisbon", Country: "Portugal"}.IsUnknown())
}
