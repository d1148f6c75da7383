package ledger

import (
	"sort"
	"time"
)

type Tier struct {
	Name string
	Min  int
}

// Tiers are contiguous half-open bins over lifetime points; the last tier
// has no upper bound.
var Tiers = []Tier{
	{Name: "Bronze", Min: 0},
	{Name: "Silver", Min: 500},
	{Name: "Gold", Min: 1000},
	{Name: "Platinum", Min: 2000},
	{Name: "Diamond", Min: 5000},
}

type Rank struct {
	Name         string  `json:"name"`
	Next         string  `json:"next"`
	Progress     float64 `json:"progress"`
	PointsToNext int     `json:"points_to_next"`
}

// RankFor maps lifetime points to a tier and the progress fraction toward
// the next one. At the top tier progress is 1 and PointsToNext is 0.
func RankFor(lifetimePoints int) Rank {
	current := 0
	for i, tier := range Tiers {
		if lifetimePoints >= tier.Min {
			current = i
		}
	}

	if current == len(Tiers)-1 {
		return Rank{
			Name:     Tiers[current].Name,
			Next:     Tiers[current].Name,
			Progress: 1,
		}
	}

	next := Tiers[current+1]
	span := next.Min - Tiers[current].Min
	progress := float64(lifetimePoints-Tiers[current].Min) / float64(span)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	return Rank{
		Name:         Tiers[current].Name,
		Next:         next.Name,
		Progress:     progress,
		PointsToNext: next.Min - lifetimePoints,
	}
}

// StreakLength counts the trailing run of consecutive calendar days ending
// at the most recent day in the set. A gap of more than one day breaks the
// run; it does not look for longer runs earlier in history.
func StreakLength(days []time.Time) int {
	if len(days) == 0 {
		return 0
	}

	seen := make(map[string]bool, len(days))
	unique := make([]time.Time, 0, len(days))
	for _, d := range days {
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		key := day.Format("2006-01-02")
		if !seen[key] {
			seen[key] = true
			unique = append(unique, day)
		}
	}

	sort.Slice(unique, func(i, j int) bool {
		return unique[i].After(unique[j])
	})

	streak := 1
	for i := 1; i < len(unique); i++ {
		if unique[i-1].Sub(unique[i]) != 24*time.Hour {
			break
		}
		streak++
	}

	return streak
}
