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

type MissionStatus struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	Goal         int    `json:"goal"`
	RewardPoints int    `json:"reward_points"`
	Progress     int    `json:"progress"`
	Completed    bool   `json:"completed"`
	Claimed      bool   `json:"claimed"`
}

func GetMissionsHandler(c *fiber.Ctx) error {
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
			logger.Log.Error("Error getting user", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		days, err := storage.GetScanDays(ctx, userID)
		if err != nil {
			logger.Log.Error("Error getting scan days", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		streak := ledger.StreakLength(days)
		claimed := make(map[string]bool, len(user.ClaimedMissions))
		for _, id := range user.ClaimedMissions {
			claimed[id] = true
		}

		var response []MissionStatus
		for _, mission := range ledger.Missions {
			progress := ledger.MissionProgress(mission, user.ScanCount, streak)
			response = append(response, MissionStatus{
				ID:           mission.ID,
				Text:         mission.Text,
				Goal:         mission.Goal,
				RewardPoints: mission.RewardPoints,
				Progress:     progress,
				Completed:    progress >= mission.Goal,
				Claimed:      claimed[mission.ID],
			})
		}

		return c.Status(fiber.StatusOK).JSON(response)
	}
}

func ClaimMissionHandler(c *fiber.Ctx) error {
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

		mission, ok := ledger.MissionByID(c.Params("id"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Unknown mission",
			})
		}

		user, err := storage.GetUserByID(ctx, userID)
		if err != nil {
			logger.Log.Error("Error getting user", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		days, err := storage.GetScanDays(ctx, userID)
		if err != nil {
			logger.Log.Error("Error getting scan days", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		if !ledger.MissionCompleted(mission, user.ScanCount, ledger.StreakLength(days)) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Mission not completed yet",
			})
		}

		claimed, err := storage.ClaimMission(ctx, userID, mission.ID, mission.RewardPoints)
		if err != nil {
			logger.Log.Error("Error claiming mission", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		if !claimed {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Mission already claimed",
			})
		}

		logger.Log.Info("Mission claimed", zap.String("userID", userID.String()), zap.String("mission", mission.ID))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message":        "Mission claimed",
			"awarded_points": mission.RewardPoints,
		})
	}
}
