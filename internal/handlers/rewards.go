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

type RedeemRequest struct {
	RewardID string `json:"reward_id" validate:"required"`
}

type OrderResponse struct {
	ID         string     `json:"id"`
	RewardName string     `json:"reward_name"`
	Cost       int        `json:"cost"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
}

func GetRewardsHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		rewards, err := storage.GetRewards(ctx)
		if err != nil {
			logger.Log.Error("Error getting rewards", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		if len(rewards) == 0 {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Status(fiber.StatusOK).JSON(rewards)
	}
}

// RedeemRewardHandler creates a pending order. The point debit is refused
// before any order row exists when the balance does not cover the cost.
func RedeemRewardHandler(c *fiber.Ctx) error {
	var request RedeemRequest
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

		rewardID, err := uuid.Parse(request.RewardID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid reward id",
			})
		}

		rewards, err := storage.GetRewards(ctx)
		if err != nil {
			logger.Log.Error("Error getting rewards", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		var rewardName string
		var cost int
		found := false
		for _, reward := range rewards {
			if reward.ID == rewardID {
				rewardName = reward.Name
				cost = reward.Cost
				found = true
				break
			}
		}
		if !found {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Unknown reward",
			})
		}

		orderID := uuid.New()
		err = storage.CreateOrder(ctx, orderID, userID, rewardName, cost)
		if err != nil {
			if errors.Is(err, storage.ErrInsufficientPoints) {
				return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
					"error": "Not enough points to redeem this reward",
				})
			}
			logger.Log.Error("Error creating order", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		logger.Log.Info("Reward redeemed", zap.String("userID", userID.String()), zap.String("reward", rewardName), zap.Int("cost", cost))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message":  "Reward redeemed. Show the QR code to a staff member to collect it",
			"order_id": orderID.String(),
		})
	}
}

func GetOrdersHandler(c *fiber.Ctx) error {
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

		orders, err := storage.GetUserOrders(ctx, userID)
		if err != nil {
			logger.Log.Error("Error getting user orders", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		if len(orders) == 0 {
			return c.SendStatus(fiber.StatusNoContent)
		}

		var response []OrderResponse
		for _, order := range orders {
			response = append(response, OrderResponse{
				ID:         order.ID.String(),
				RewardName: order.RewardName,
				Cost:       order.Cost,
				Status:     order.Status,
				CreatedAt:  order.CreatedAt,
				RedeemedAt: order.RedeemedAt,
			})
		}

		return c.Status(fiber.StatusOK).JSON(response)
	}
}
