package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/ecoscan/ecoscan/internal/ledger"
	"github.com/ecoscan/ecoscan/internal/logger"
	"github.com/ecoscan/ecoscan/internal/models"
	"github.com/ecoscan/ecoscan/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GetOrderHandler looks up a scanned redemption code so the admin can see
// the reward name and cost before confirming.
func GetOrderHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		orderID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Invalid code",
			})
		}

		order, err := storage.GetOrderByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Invalid code",
				})
			}
			logger.Log.Error("Error getting order", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		if order.Status == models.REDEEMED {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "This reward has already been redeemed",
			})
		}

		return c.Status(fiber.StatusOK).JSON(OrderResponse{
			ID:         order.ID.String(),
			RewardName: order.RewardName,
			Cost:       order.Cost,
			Status:     order.Status,
			CreatedAt:  order.CreatedAt,
		})
	}
}

// ConfirmRedemptionHandler flips a pending order to redeemed and bumps the
// matching monthly counter bucket. Confirming the same code twice is
// rejected before any counter moves.
func ConfirmRedemptionHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		orderID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Invalid code",
			})
		}

		order, err := storage.GetOrderByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Invalid code",
				})
			}
			logger.Log.Error("Error getting order", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		bucket := ledger.BucketForReward(order.RewardName)
		if bucket == "" {
			logger.Log.Warn("Reward has no denomination bucket", zap.String("reward", order.RewardName))
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "Reward has no denomination",
			})
		}

		err = storage.RedeemOrder(ctx, orderID, bucket)
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyRedeemed) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "This reward has already been redeemed",
				})
			}
			if errors.Is(err, storage.ErrOrderNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Invalid code",
				})
			}
			logger.Log.Error("Error redeeming order", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		logger.Log.Info("Redemption confirmed", zap.String("orderID", orderID.String()), zap.String("bucket", bucket))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Redemption confirmed",
		})
	}
}

// GetUserPhotoHandler serves the photo retained from a user's most recent
// verified scan, for spot-checking what the classifier accepted.
func GetUserPhotoHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		userID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Invalid user id",
			})
		}

		photo, err := storage.GetLastTrashPhoto(ctx, userID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "User not found",
				})
			}
			logger.Log.Error("Error getting trash photo", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		if len(photo) == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No photo on record",
			})
		}

		c.Set(fiber.HeaderContentType, "image/jpeg")
		return c.Status(fiber.StatusOK).Send(photo)
	}
}

type UpdateSettingRequest struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// UpdateSettingHandler writes a settings-table entry. This is how the
// review-mode flag is toggled without shipping a release.
func UpdateSettingHandler(c *fiber.Ctx) error {
	var request UpdateSettingRequest
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		if err := c.BodyParser(&request); err != nil || request.Key == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		if err := storage.SetSetting(ctx, request.Key, request.Value); err != nil {
			logger.Log.Error("Error updating setting", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		logger.Log.Info("Setting updated", zap.String("key", request.Key), zap.String("value", request.Value))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Setting updated",
		})
	}
}

func GetMonthlyRedemptionsHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		counters, err := storage.GetMonthlyRedemptions(ctx)
		if err != nil {
			logger.Log.Error("Error getting monthly redemptions", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"one":    counters.One,
			"three":  counters.Three,
			"five":   counters.Five,
			"ten":    counters.Ten,
			"twenty": counters.Twenty,
		})
	}
}
