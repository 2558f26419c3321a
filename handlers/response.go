package handlers

import (
	"net/http"

	"formsight_app_go/db"
	"formsight_app_go/services"

	"github.com/labstack/echo/v4"
)

// SubmitResponse accepts a participant submission against a published form (public)
func SubmitResponse(c echo.Context) error {
	payload := new(services.ResponsePayload)
	if err := c.Bind(payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	response, err := services.SubmitResponse(db.DB, c.Param("id"), payload)
	if err != nil {
		return respondFormError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":  "Response recorded",
		"response": response,
	})
}

// GetFormResponses lists a form's responses with their answers (admin)
func GetFormResponses(c echo.Context) error {
	responses, err := services.GetFormResponses(db.DB, c.Param("id"))
	if err != nil {
		return respondFormError(c, err)
	}
	return c.JSON(http.StatusOK, responses)
}
