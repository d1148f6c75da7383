package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/ecoscan/ecoscan/internal/logger"
	"github.com/ecoscan/ecoscan/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProfileResponse struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	AvatarIndex int    `json:"avatar_index"`
	IsAdmin     bool   `json:"is_admin"`
}

type UpdateProfileRequest struct {
	Name        string `json:"name"`
	AvatarIndex int    `json:"avatar_index"`
}

func GetProfileHandler(c *fiber.Ctx) error {
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

		return c.Status(fiber.StatusOK).JSON(ProfileResponse{
			Email:       user.Email,
			Name:        user.Name,
			AvatarIndex: user.AvatarIndex,
			IsAdmin:     user.IsAdmin,
		})
	}
}

func UpdateProfileHandler(c *fiber.Ctx) error {
	var request UpdateProfileRequest
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

		if err := c.BodyParser(&request); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		if request.AvatarIndex < 0 || request.AvatarIndex > 8 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Avatar index out of range",
			})
		}

		if err := storage.UpdateUserProfile(ctx, userID, request.Name, request.AvatarIndex); err != nil {
			logger.Log.Error("Error updating profile", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Profile updated",
		})
	}
}

// DeleteAccountHandler removes the user record entirely; scan days and
// orders go with it.
func DeleteAccountHandler(c *fiber.Ctx) error {
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

		if err := storage.DeleteUser(ctx, userID); err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return c.SendStatus(fiber.StatusNotFound)
			}
			logger.Log.Error("Error deleting account", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		c.ClearCookie("jwt")

		logger.Log.Info("Account deleted", zap.String("userID", userID.String()))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Account deleted",
		})
	}
}
