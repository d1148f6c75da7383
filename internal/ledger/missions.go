package ledger

type MissionSource int

const (
	SourceScanCount MissionSource = iota
	SourceStreak
)

type Mission struct {
	ID           string        `json:"id"`
	Text         string        `json:"text"`
	Source       MissionSource `json:"-"`
	Goal         int           `json:"goal"`
	RewardPoints int           `json:"reward_points"`
}

var Missions = []Mission{
	{ID: "first-scan", Text: "Scan your first piece of trash", Source: SourceScanCount, Goal: 1, RewardPoints: 10},
	{ID: "scan-10", Text: "Complete 10 trash scans", Source: SourceScanCount, Goal: 10, RewardPoints: 50},
	{ID: "scan-50", Text: "Complete 50 trash scans", Source: SourceScanCount, Goal: 50, RewardPoints: 150},
	{ID: "streak-3", Text: "Scan three days in a row", Source: SourceStreak, Goal: 3, RewardPoints: 30},
	{ID: "streak-7", Text: "Scan every school day for a week", Source: SourceStreak, Goal: 7, RewardPoints: 100},
}

func MissionByID(id string) (Mission, bool) {
	for _, m := range Missions {
		if m.ID == id {
			return m, true
		}
	}
	return Mission{}, false
}

// MissionProgress derives progress for a mission from the user's scan count
// and current day streak. Read-only; paying out is a separate claim step.
func MissionProgress(m Mission, scanCount, streak int) int {
	switch m.Source {
	case SourceScanCount:
		return scanCount
	case SourceStreak:
		return streak
	default:
		return 0
	}
}

func MissionCompleted(m Mission, scanCount, streak int) bool {
	return MissionProgress(m, scanCount, streak) >= m.Goal
}
