package policy

import (
	"context"
	"time"
)

// ReviewModeKey is the settings-table key for the remotely toggled override
// that opens the scan window (and geofence) for automated app-store review.
const ReviewModeKey = "review_mode"

type SettingsReader interface {
	GetSetting(ctx context.Context, key string) (string, error)
}

// Window describes when scanning is permitted: the listed weekdays, from
// OpenHour (inclusive) to CloseHour (exclusive) in local time.
type Window struct {
	Weekdays  map[time.Weekday]bool
	OpenHour  int
	CloseHour int
}

func SchoolWeek(openHour, closeHour int) Window {
	return Window{
		Weekdays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
		OpenHour:  openHour,
		CloseHour: closeHour,
	}
}

func (w Window) Allowed(now time.Time) bool {
	if !w.Weekdays[now.Weekday()] {
		return false
	}
	return now.Hour() >= w.OpenHour && now.Hour() < w.CloseHour
}

// ReviewMode reports whether the remote override flag is set. A read failure
// means no override: normal window rules stay in force.
func ReviewMode(ctx context.Context, settings SettingsReader) bool {
	value, err := settings.GetSetting(ctx, ReviewModeKey)
	if err != nil {
		return false
	}
	return value == "1"
}

// CooldownRemaining returns how long the user still has to wait before the
// next awarded scan, or zero when the cooldown has elapsed. A nil lastScan
// means the user has never scanned.
func CooldownRemaining(lastScan *time.Time, now time.Time, cooldown time.Duration) time.Duration {
	if lastScan == nil {
		return 0
	}
	remaining := cooldown - now.Sub(*lastScan)
	if remaining < 0 {
		return 0
	}
	return remaining
}
