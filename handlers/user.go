package handlers

import (
	"net/http"
	"strings"

	"formsight_app_go/config"
	"formsight_app_go/db"
	"formsight_app_go/middleware"
	"formsight_app_go/models"
	"formsight_app_go/services"

	"github.com/labstack/echo/v4"
)

// GetUsers returns all users (admin only)
func GetUsers(c echo.Context) error {
	var users []models.User

	if err := db.DB.Order("created_at ASC").Find(&users).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to fetch users",
		})
	}

	return c.JSON(http.StatusOK, users)
}

// GetUser returns a single user by ID
func GetUser(c echo.Context) error {
	id := c.Param("id")
	currentUser := middleware.GetCurrentUser(c)

	if currentUser.Role != models.RoleAdmin && currentUser.ID != id {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Access denied"})
	}

	var user models.User
	if err := db.DB.First(&user, "id = ?", id).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}

	return c.JSON(http.StatusOK, user)
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateUser creates a new user (admin only)
func CreateUser(c echo.Context) error {
	currentUser := middleware.GetCurrentUser(c)

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Name, email, and password are required",
		})
	}

	if req.Role == "" {
		req.Role = models.RoleViewer
	} else if !models.IsValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid role. Must be one of: admin, researcher, viewer",
		})
	}

	if err := services.ValidatePassword(req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	hashedPassword, err := services.HashPassword(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to hash password"})
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashedPassword,
		Role:     req.Role,
		IsActive: true,
	}

	if err := db.DB.Create(user).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create user"})
	}

	services.LogSecurityEvent("USER_CREATED", currentUser.ID, "Created user: "+user.ID)

	// Send welcome email asynchronously (non-blocking)
	if cfg, ok := c.Get("config").(*config.Config); ok {
		mail := services.BuildWelcomeEmail(cfg, user.Email, user.Name)
		services.SendEmailAsync(cfg, mail)
	}

	return c.JSON(http.StatusCreated, user)
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// UpdateUser updates an existing user
func UpdateUser(c echo.Context) error {
	id := c.Param("id")

	if !middleware.CanModifyUser(c, id) {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Access denied"})
	}

	var user models.User
	if err := db.DB.First(&user, "id = ?", id).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	currentUser := middleware.GetCurrentUser(c)

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		user.Name = strings.TrimSpace(*req.Name)
	}

	// Only admins may change role or active flag
	if currentUser.Role == models.RoleAdmin {
		if req.Role != nil {
			if !models.IsValidRole(*req.Role) {
				return c.JSON(http.StatusBadRequest, map[string]string{
					"error": "Invalid role. Must be one of: admin, researcher, viewer",
				})
			}
			user.Role = *req.Role
		}
		if req.IsActive != nil {
			user.IsActive = *req.IsActive
		}
	}

	if err := db.DB.Save(&user).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update user"})
	}

	return c.JSON(http.StatusOK, user)
}

// DeleteUser deactivates and soft-deletes a user (admin only)
func DeleteUser(c echo.Context) error {
	id := c.Param("id")
	currentUser := middleware.GetCurrentUser(c)

	if currentUser.ID == id {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "You cannot delete your own account"})
	}

	var user models.User
	if err := db.DB.First(&user, "id = ?", id).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}

	if err := services.DeleteAllUserSessions(db.DB, user.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete user"})
	}

	if err := db.DB.Delete(&user).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete user"})
	}

	services.LogSecurityEvent("USER_DELETED", currentUser.ID, "Deleted user: "+user.ID)

	return c.JSON(http.StatusOK, map[string]string{"message": "User deleted"})
}
