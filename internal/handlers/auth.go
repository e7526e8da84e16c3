package handlers

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/baketsu/backend/internal/config"
	"github.com/baketsu/backend/internal/database"
	"github.com/baketsu/backend/internal/middleware"
	"github.com/baketsu/backend/internal/models"
	"github.com/baketsu/backend/internal/services"
)

type AuthHandler struct {
	cfg   *config.Config
	email *services.EmailService
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		cfg:   cfg,
		email: services.NewEmailService(cfg),
	}
}

type RegisterRequest struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	TwoFACode string `json:"twofa_code"`
}

// Register creates an unverified account and emails a verification link
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Email and password are required",
		})
	}
	if req.Password != req.ConfirmPassword {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Passwords don't match",
		})
	}

	var existing models.User
	if err := database.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Email already taken",
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to hash password",
		})
	}

	token := uuid.NewString()
	user := models.User{
		Email:             req.Email,
		Name:              req.Name,
		Password:          string(hashed),
		IsVerified:        false,
		VerificationToken: &token,
	}

	if err := database.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Email already taken",
		})
	}

	link := fmt.Sprintf("%s/api/auth/verify/%s", h.cfg.BaseURL, token)
	if err := h.email.SendVerificationEmail(user.Email, user.Name, link); err != nil {
		// Side channel only: the account exists, the user can ask for a resend
		log.Printf("Failed to send verification email to %s: %v", user.Email, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":          user.ID,
			"email":       user.Email,
			"name":        user.Name,
			"is_verified": user.IsVerified,
		},
	})
}

// Verify marks an account as verified via its emailed token
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	token := c.Params("token")

	var user models.User
	if err := database.DB.Where("verification_token = ?", token).First(&user).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid or expired verification link",
		})
	}

	if err := database.DB.Model(&user).Updates(map[string]interface{}{
		"is_verified":        true,
		"verification_token": nil,
	}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to verify account",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Email verified successfully",
	})
}

// Login authenticates a user and returns a JWT
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Email and password are required",
		})
	}

	var user models.User
	if err := database.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Invalid email or password",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Invalid email or password",
		})
	}

	if !user.IsVerified {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Email not verified. Please check your inbox.",
		})
	}

	// Check if 2FA is enabled for this user
	if user.TwoFactorEnabled {
		if req.TwoFACode == "" {
			return c.JSON(fiber.Map{
				"success":      false,
				"requires_2fa": true,
				"message":      "2FA code required",
			})
		}
		if !totp.Validate(req.TwoFACode, user.TwoFactorSecret) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid 2FA code",
			})
		}
	}

	token, err := middleware.GenerateToken(&user, h.cfg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to generate token",
		})
	}

	now := time.Now().UTC()
	database.DB.Model(&user).Update("last_login", now)

	return c.JSON(fiber.Map{
		"success":      true,
		"access_token": token,
		"token_type":   "bearer",
		"user": fiber.Map{
			"id":          user.ID,
			"email":       user.Email,
			"name":        user.Name,
			"is_verified": user.IsVerified,
		},
	})
}

// Logout blacklists the current token until its natural expiry
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	tokenString, _ := c.Locals("token").(string)
	if tokenString == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No token to revoke",
		})
	}

	ttl := time.Duration(h.cfg.JWTExpireHours) * time.Hour
	if claims, err := middleware.ParseToken(tokenString, h.cfg); err == nil && claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}

	if err := database.BlacklistToken(tokenString, ttl); err != nil {
		log.Printf("Failed to blacklist token: %v", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out",
	})
}

// Me returns the authenticated user's profile
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":          user.ID,
			"email":       user.Email,
			"name":        user.Name,
			"is_verified": user.IsVerified,
			"created_at":  user.CreatedAt,
			"last_login":  user.LastLogin,
		},
	})
}
