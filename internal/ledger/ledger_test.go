package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRankFor(t *testing.T) {
	tests := []struct {
		name         string
		lifetime     int
		wantName     string
		wantNext     string
		wantProgress float64
		wantToNext   int
	}{
		{
			name:         "fresh account",
			lifetime:     0,
			wantName:     "Bronze",
			wantNext:     "Silver",
			wantProgress: 0,
			wantToNext:   500,
		},
		{
			name:         "one point short of silver",
			lifetime:     499,
			wantName:     "Bronze",
			wantNext:     "Silver",
			wantProgress: 499.0 / 500.0,
			wantToNext:   1,
		},
		{
			name:         "just flipped to silver",
			lifetime:     519,
			wantName:     "Silver",
			wantNext:     "Gold",
			wantProgress: 19.0 / 500.0,
			wantToNext:   481,
		},
		{
			name:         "bottom of gold",
			lifetime:     1000,
			wantName:     "Gold",
			wantNext:     "Platinum",
			wantProgress: 0,
			wantToNext:   1000,
		},
		{
			name:         "top tier boundary",
			lifetime:     5000,
			wantName:     "Diamond",
			wantNext:     "Diamond",
			wantProgress: 1,
			wantToNext:   0,
		},
		{
			name:         "deep into top tier",
			lifetime:     123456,
			wantName:     "Diamond",
			wantNext:     "Diamond",
			wantProgress: 1,
			wantToNext:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rank := RankFor(tt.lifetime)
			assert.Equal(t, tt.wantName, rank.Name)
			assert.Equal(t, tt.wantNext, rank.Next)
			assert.InDelta(t, tt.wantProgress, rank.Progress, 1e-9)
			assert.Equal(t, tt.wantToNext, rank.PointsToNext)
			assert.GreaterOrEqual(t, rank.Progress, 0.0)
			assert.LessOrEqual(t, rank.Progress, 1.0)
		})
	}
}

func TestRankFlipScenario(t *testing.T) {
	// User at 499 lifetime points earns a 20 point scan award.
	before := RankFor(499)
	after := RankFor(499 + 20)

	assert.Equal(t, "Bronze", before.Name)
	assert.Equal(t, "Silver", after.Name)
	assert.InDelta(t, 0.038, after.Progress, 1e-9)
}

func TestStreakLength(t *testing.T) {
	tests := []struct {
		name string
		days []time.Time
		want int
	}{
		{
			name: "no scans",
			days: nil,
			want: 0,
		},
		{
			name: "single day",
			days: []time.Time{day("2025-03-05")},
			want: 1,
		},
		{
			name: "three consecutive days",
			days: []time.Time{day("2025-03-03"), day("2025-03-04"), day("2025-03-05")},
			want: 3,
		},
		{
			name: "gap breaks the trailing run",
			days: []time.Time{day("2025-03-03"), day("2025-03-05")},
			want: 1,
		},
		{
			name: "longer run before the gap does not count",
			days: []time.Time{day("2025-02-24"), day("2025-02-25"), day("2025-02-26"), day("2025-03-04"), day("2025-03-05")},
			want: 2,
		},
		{
			name: "duplicate days counted once",
			days: []time.Time{day("2025-03-05"), day("2025-03-05"), day("2025-03-04")},
			want: 2,
		},
		{
			name: "unsorted input",
			days: []time.Time{day("2025-03-04"), day("2025-03-06"), day("2025-03-05")},
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StreakLength(tt.days))
		})
	}
}

func TestMissionProgress(t *testing.T) {
	scanMission, ok := MissionByID("scan-10")
	assert.True(t, ok)
	streakMission, ok := MissionByID("streak-3")
	assert.True(t, ok)

	assert.Equal(t, 7, MissionProgress(scanMission, 7, 2))
	assert.False(t, MissionCompleted(scanMission, 7, 2))
	assert.True(t, MissionCompleted(scanMission, 10, 0))

	assert.Equal(t, 2, MissionProgress(streakMission, 7, 2))
	assert.False(t, MissionCompleted(streakMission, 7, 2))
	assert.True(t, MissionCompleted(streakMission, 0, 3))

	_, ok = MissionByID("no-such-mission")
	assert.False(t, ok)
}
