package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"formsight_app_go/config"
	"formsight_app_go/db"
	"formsight_app_go/middleware"
	"formsight_app_go/models"
	"formsight_app_go/services"

	"github.com/labstack/echo/v4"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
)

// globalDummyHash is used to equalize timing when the email doesn't resolve
// to a user. It must be a real bcrypt hash so the comparison pays full cost.
var globalDummyHash = mustDummyHash()

func mustDummyHash() string {
	hash, err := services.HashPassword("dummy_password_for_timing_mitigation")
	if err != nil {
		panic(fmt.Sprintf("failed to derive login timing hash: %v", err))
	}
	return hash
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler authenticates a user and issues a session cookie
func LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Email and password are required"})
	}

	var user models.User
	err := db.DB.Where("email = ?", email).First(&user).Error
	if err != nil {
		// Timing attack mitigation: always run a bcrypt comparison
		services.VerifyPassword(globalDummyHash, req.Password)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
	}

	if user.LockoutUntil != nil && time.Now().Before(*user.LockoutUntil) {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Account is locked. Try again later."})
	}

	if !services.VerifyPassword(user.Password, req.Password) {
		user.FailedLoginAttempts++
		if user.FailedLoginAttempts >= maxFailedLogins {
			lockoutTime := time.Now().Add(lockoutDuration)
			user.LockoutUntil = &lockoutTime
			user.FailedLoginAttempts = 0
			services.LogSecurityEvent("ACCOUNT_LOCKED", user.ID, "Too many failed login attempts")
		}
		db.DB.Save(&user)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
	}

	// Reset failed attempts on success
	if user.FailedLoginAttempts > 0 || user.LockoutUntil != nil {
		user.FailedLoginAttempts = 0
		user.LockoutUntil = nil
		db.DB.Save(&user)
	}

	if !user.IsActive {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Your account has been deactivated"})
	}

	session, err := services.CreateSession(db.DB, user.ID, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create session"})
	}

	now := time.Now()
	db.DB.Model(&user).Update("last_login_at", now)

	middleware.SetSessionCookie(c, session)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    user,
	})
}

// LogoutHandler invalidates the current session
func LogoutHandler(c echo.Context) error {
	cookie, err := c.Cookie(middleware.SessionCookieName)
	if err == nil {
		if err := services.DeleteSession(db.DB, cookie.Value); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to log out"})
		}
	}

	middleware.ClearSessionCookie(c)
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}

// GetCurrentUserHandler returns the authenticated user
func GetCurrentUserHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
	}
	return c.JSON(http.StatusOK, user)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordHandler issues a reset token and emails it.
// Always responds 200 to prevent email enumeration.
func ForgotPasswordHandler(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Email is required"})
	}

	resetToken, err := services.GenerateResetToken(db.DB, email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to process request"})
	}

	if resetToken != nil {
		cfg, _ := c.Get("config").(*config.Config)
		if cfg != nil {
			var user models.User
			if err := db.DB.First(&user, "id = ?", resetToken.UserID).Error; err == nil {
				mail := services.BuildPasswordResetEmail(cfg, user.Email, user.Name, resetToken.Token)
				services.SendEmailAsync(cfg, mail)
			}
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "If that email exists, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPasswordHandler sets a new password using a valid reset token
func ResetPasswordHandler(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if req.Token == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Token and password are required"})
	}

	if err := services.ResetPassword(db.DB, req.Token, req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Password has been reset"})
}
