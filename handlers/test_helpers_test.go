package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"formsight_app_go/config"
	"formsight_app_go/db"
	"formsight_app_go/middleware"
	"formsight_app_go/models"
	"formsight_app_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Unique shared memory name isolates tests while allowing shared cache
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	assert.NoError(t, err)

	// Initialize Storage for tests if not already set
	if services.Storage == nil {
		services.Storage = services.NewLocalStorage(t.TempDir())
	}

	err = testDB.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.PasswordResetToken{},
		&models.Form{},
		&models.Question{},
		&models.Option{},
		&models.Response{},
		&models.Answer{},
		&models.FormAttachment{},
	)
	assert.NoError(t, err)

	// Set global DB
	db.DB = testDB

	return testDB
}

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Add config to context
	c.Set("config", &config.Config{
		Environment:   "test",
		EmailTestMode: true,
	})

	return e, c, rec
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	data, err := json.Marshal(v)
	assert.NoError(t, err)
	return strings.NewReader(string(data))
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createTestAdmin(t *testing.T, testDB *gorm.DB) *models.User {
	hash, err := services.HashPassword("Adm1n-password!")
	assert.NoError(t, err)
	admin := &models.User{
		Name:     "Admin",
		Email:    "admin@example.com",
		Password: hash,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	assert.NoError(t, testDB.Create(admin).Error)
	return admin
}

// withUser places an authenticated user into the echo context the way RequireAuth would
func withUser(c echo.Context, user *models.User) {
	c.Set(middleware.ContextKeyUser, user)
}

func assertErrorBody(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	assert.Equal(t, status, rec.Code)
	body := decodeJSON(t, rec)
	assert.NotEmpty(t, body["error"])
}
