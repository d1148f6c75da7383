package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/ecoscan/ecoscan/internal/geo"
	"github.com/ecoscan/ecoscan/internal/logger"
	"github.com/ecoscan/ecoscan/internal/scanner"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ArmScanRequest struct {
	CameraGranted   bool `json:"camera_granted"`
	LocationGranted bool `json:"location_granted"`
}

type QRReadRequest struct {
	Payload string `json:"payload" validate:"required"`
}

type CaptureRequest struct {
	Token    string        `json:"token" validate:"required"`
	Image    string        `json:"image" validate:"required"`
	Position *geo.Position `json:"position"`
}

// scanErrorResponse maps each workflow failure to its own status and
// message; none of them are fatal, the session is already back in idle.
func scanErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, scanner.ErrPermissionDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Camera and location permissions are required to scan",
		})
	case errors.Is(err, geo.ErrLocationUnavailable):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Location unavailable. Enable location services and try again",
		})
	case errors.Is(err, scanner.ErrOutOfRange):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You need to be at school to scan",
		})
	case errors.Is(err, scanner.ErrOutsideWindow):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Scanning is only available during school hours",
		})
	case errors.Is(err, scanner.ErrCooldownActive):
		var cooldownErr *scanner.CooldownError
		remaining := 0
		if errors.As(err, &cooldownErr) {
			remaining = int(cooldownErr.Remaining.Seconds())
		}
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":               "You already scanned recently. Wait for the cooldown to finish",
			"retry_after_seconds": remaining,
		})
	case errors.Is(err, scanner.ErrClassificationRejected):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "This does not appear to be trash. Try again",
		})
	case errors.Is(err, scanner.ErrClassificationService):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Image verification is unavailable right now. Try again",
		})
	case errors.Is(err, scanner.ErrInvalidRedemptionCode):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invalid code",
		})
	case errors.Is(err, scanner.ErrNotArmed), errors.Is(err, scanner.ErrStaleSession):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Scan session expired. Scan again",
		})
	default:
		logger.Log.Error("Scan workflow error", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}

func ArmScanHandler(c *fiber.Ctx) error {
	var request ArmScanRequest
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

		token, err := scanner.Arm(ctx, userID, request.CameraGranted, request.LocationGranted)
		if err != nil {
			return scanErrorResponse(c, err)
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"token": token.String(),
		})
	}
}

func QRReadHandler(c *fiber.Ctx) error {
	var request QRReadRequest
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

		if err := c.BodyParser(&request); err != nil || request.Payload == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		route, err := scanner.OnQRRead(ctx, userID, request.Payload)
		if err != nil {
			return scanErrorResponse(c, err)
		}

		if route.Kind == scanner.RouteRedemption {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"route":    "redemption",
				"order_id": route.OrderID.String(),
			})
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"route": "capture",
			"token": route.Token.String(),
		})
	}
}

func CaptureHandler(c *fiber.Ctx) error {
	var request CaptureRequest
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
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

		token, err := uuid.Parse(request.Token)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid session token",
			})
		}

		imageBytes, err := base64.StdEncoding.DecodeString(request.Image)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid image encoding",
			})
		}

		awarded, err := scanner.Capture(ctx, userID, token, imageBytes, request.Position)
		if err != nil {
			return scanErrorResponse(c, err)
		}

		logger.Log.Info("Scan verified", zap.String("userID", userID.String()), zap.Int("awarded", awarded))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message":        "Trash verified",
			"awarded_points": awarded,
		})
	}
}

func CancelScanHandler(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uuid.UUID)

	scanner.Cancel(userID)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Scan cancelled",
	})
}
