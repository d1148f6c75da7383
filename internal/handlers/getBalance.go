package handlers

import (
	"context"
	"time"

	"github.com/ecoscan/ecoscan/internal/ledger"
	"github.com/ecoscan/ecoscan/internal/logger"
	"github.com/ecoscan/ecoscan/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BalanceResponse struct {
	Points         int         `json:"points"`
	LifetimePoints int         `json:"lifetime_points"`
	ScanCount      int         `json:"scan_count"`
	LastScan       *time.Time  `json:"last_scan"`
	Rank           ledger.Rank `json:"rank"`
	Streak         int         `json:"streak"`
}

func GetUserBalanceHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		userID := c.Locals("userID").(uuid.UUID)

		user, err := storage.GetUserByID(ctx, userID)
		if err != nil {
			logger.Log.Error("Error getting user balance", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		days, err := storage.GetScanDays(ctx, userID)
		if err != nil {
			logger.Log.Error("Error getting scan days", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		return c.Status(fiber.StatusOK).JSON(BalanceResponse{
			Points:         user.Points,
			LifetimePoints: user.LifetimePoints,
			ScanCount:      user.ScanCount,
			LastScan:       user.LastScan,
			Rank:           ledger.RankFor(user.LifetimePoints),
			Streak:         ledger.StreakLength(days),
		})
	}
}
