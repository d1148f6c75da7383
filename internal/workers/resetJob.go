package workers

import (
	"context"
	"time"

	"github.com/ecoscan/ecoscan/internal/logger"
	"github.com/ecoscan/ecoscan/internal/storage"
	"go.uber.org/zap"
)

const WorkerInterval = time.Hour

// resetBoundaryHour mirrors the original schedule: counters roll over at
// 07:00 on the first of the month.
const resetBoundaryHour = 7

// lastResetKey is the settings row remembering which period the counters
// were last zeroed for. Keeping it in the database means a boundary crossed
// while the process was down is caught up on the next start.
const lastResetKey = "last_reset_period"

func InitMonthlyReset() {
	checkForReset(time.Now())

	go startWorker()

	logger.Log.Info("Monthly redemption reset worker started")
}

func startWorker() {
	ticker := time.NewTicker(WorkerInterval)
	for range ticker.C {
		checkForReset(time.Now())
	}
}

// periodFor returns the counter period a moment belongs to. Before the
// boundary hour on the first of the month the previous period is still
// current.
func periodFor(now time.Time) string {
	if now.Day() == 1 && now.Hour() < resetBoundaryHour {
		return now.AddDate(0, 0, -1).Format("2006-01")
	}
	return now.Format("2006-01")
}

func checkForReset(now time.Time) {
	period := periodFor(now)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	last, err := storage.GetSetting(ctx, lastResetKey)
	if err != nil {
		logger.Log.Error("Failed to read last reset period", zap.Error(err))
		return
	}
	if last == period {
		return
	}

	// An empty marker means the counters were just seeded; stamp the
	// period without wiping anything.
	if last != "" {
		if err := storage.ResetMonthlyRedemptions(ctx); err != nil {
			logger.Log.Error("Failed to reset monthly redemptions", zap.Error(err))
			return
		}
		logger.Log.Info("Monthly redemptions reset", zap.String("period", period))
	}

	if err := storage.SetSetting(ctx, lastResetKey, period); err != nil {
		logger.Log.Error("Failed to record reset period", zap.Error(err))
	}
}
