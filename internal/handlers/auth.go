package handlers

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ecoscan/ecoscan/internal/auth"
	"github.com/ecoscan/ecoscan/internal/logger"
	"github.com/ecoscan/ecoscan/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func randomGuestName() string {
	return fmt.Sprintf("Guest %d", rand.Intn(900000)+100000)
}

func RegisterHandler(c *fiber.Ctx) error {
	var request RegisterRequest
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		if err := c.BodyParser(&request); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		existingUser, err := storage.GetUserByEmail(ctx, request.Email)
		if err != nil {
			logger.Log.Error("Error while querying user: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		if existingUser.ID != uuid.Nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "User already exists",
			})
		}

		userID := uuid.New()
		token, err := auth.GenerateToken(userID)
		if err != nil {
			logger.Log.Error("Error generating token: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Log.Error("Error hashing password: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		// New accounts start with zeroed counters, a random guest name and a
		// random avatar, same as a first sign-in in the mobile app.
		err = storage.CreateUser(ctx, userID.String(), request.Email, string(hashedPassword), randomGuestName(), rand.Intn(9))
		if err != nil {
			logger.Log.Error("Error creating user: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		c.Cookie(&fiber.Cookie{
			Name:     "jwt",
			Value:    token,
			Expires:  time.Now().Add(auth.TokenExp),
			HTTPOnly: true,
		})

		c.Set("Authorization", "Bearer "+token)

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "User registered successfully",
		})
	}
}

func LoginHandler(c *fiber.Ctx) error {
	var request RegisterRequest
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		if err := c.BodyParser(&request); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		existingUser, err := storage.GetUserByEmail(ctx, request.Email)
		if err != nil {
			logger.Log.Error("Error while querying user: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		if existingUser.ID == uuid.Nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Wrong email or password",
			})
		}

		err = bcrypt.CompareHashAndPassword([]byte(existingUser.PasswordHash), []byte(request.Password))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Wrong email or password",
			})
		}

		token, err := auth.GenerateToken(existingUser.ID)
		if err != nil {
			logger.Log.Error("Error generating token: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		c.Cookie(&fiber.Cookie{
			Name:     "jwt",
			Value:    token,
			Expires:  time.Now().Add(auth.TokenExp),
			HTTPOnly: true,
		})

		c.Set("Authorization", "Bearer "+token)

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "User authorized successfully",
		})
	}
}
