package handlers

import (
	"context"
	"time"

	"github.com/ecoscan/ecoscan/internal/logger"
	"github.com/ecoscan/ecoscan/internal/storage"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const leaderboardSize = 10

func GetLeaderboardHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		entries, err := storage.GetLeaderboard(ctx, leaderboardSize)
		if err != nil {
			logger.Log.Error("Error getting leaderboard", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		if len(entries) == 0 {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Status(fiber.StatusOK).JSON(entries)
	}
}
