package main

import (
	"log"
	"time"

	"formsight_app_go/config"
	"formsight_app_go/db"
	"formsight_app_go/handlers"
	"formsight_app_go/middleware"
	"formsight_app_go/models"
	"formsight_app_go/services"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize storage (R2 or local fallback)
	services.InitializeStorage(cfg)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: true,
	}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	// Public routes (no authentication required)
	e.POST("/api/login", handlers.LoginHandler)
	e.POST("/api/forgot-password", handlers.ForgotPasswordHandler)
	e.POST("/api/reset-password", handlers.ResetPasswordHandler)

	// Participant-facing routes: published forms only
	e.GET("/api/public/forms/:id", handlers.GetPublicForm)
	e.POST("/api/public/forms/:id/responses", handlers.SubmitResponse)
	e.GET("/api/attachments/:id/file", handlers.DownloadAttachment)

	// Protected routes (authentication required)
	protected := e.Group("/api")
	protected.Use(middleware.RequireAuth())
	{
		protected.POST("/logout", handlers.LogoutHandler)
		protected.GET("/me", handlers.GetCurrentUserHandler)

		protected.GET("/users/:id", handlers.GetUser)
		protected.PUT("/users/:id", handlers.UpdateUser)

		// Admin-only routes
		adminRoutes := protected.Group("")
		adminRoutes.Use(middleware.RequireRole(models.RoleAdmin))
		{
			adminRoutes.GET("/users", handlers.GetUsers)
			adminRoutes.POST("/users", handlers.CreateUser)
			adminRoutes.DELETE("/users/:id", handlers.DeleteUser)

			adminRoutes.GET("/forms", handlers.GetForms)
			adminRoutes.POST("/forms", handlers.CreateForm)
			adminRoutes.GET("/forms/:id", handlers.GetForm)
			adminRoutes.PUT("/forms/:id", handlers.UpdateForm)
			adminRoutes.PATCH("/forms/:id/status", handlers.UpdateFormStatus)
			adminRoutes.DELETE("/forms/:id", handlers.DeleteForm)

			adminRoutes.GET("/forms/:id/responses", handlers.GetFormResponses)
			adminRoutes.GET("/forms/:id/export.xlsx", handlers.ExportFormResponsesXLSX)
			adminRoutes.GET("/forms/:id/report.pdf", handlers.ExportFormReportPDF)

			adminRoutes.POST("/forms/:id/attachments", handlers.UploadFormAttachment)
			adminRoutes.GET("/forms/:id/attachments", handlers.GetFormAttachments)
			adminRoutes.DELETE("/attachments/:id", handlers.DeleteAttachment)
		}
	}

	// Start background cleanup jobs (runs every hour)
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := services.CleanupExpiredSessions(db.DB); err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
			}
			if err := services.CleanupExpiredTokens(db.DB); err != nil {
				log.Printf("Error cleaning up expired tokens: %v", err)
			}
		}
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
