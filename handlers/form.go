package handlers

import (
	"errors"
	"net/http"

	"formsight_app_go/db"
	"formsight_app_go/middleware"
	"formsight_app_go/models"
	"formsight_app_go/services"

	"github.com/labstack/echo/v4"
)

// respondFormError maps service-layer errors onto the API error contract
func respondFormError(c echo.Context, err error) error {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": validationErr.Message})
	case errors.Is(err, services.ErrFormNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Form not found"})
	case errors.Is(err, services.ErrForeignID):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Payload references an id that does not belong to this form"})
	case errors.Is(err, services.ErrFormNotAccepting):
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Form is not accepting responses"})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Unexpected error"})
	}
}

// GetForms lists all forms with their response counts (admin)
func GetForms(c echo.Context) error {
	forms, err := services.GetForms(db.DB)
	if err != nil {
		return respondFormError(c, err)
	}

	questionCounts, err := services.CountQuestionsByForm(db.DB)
	if err != nil {
		return respondFormError(c, err)
	}
	responseCounts, err := services.CountResponsesByForm(db.DB)
	if err != nil {
		return respondFormError(c, err)
	}

	type formSummary struct {
		models.Form
		QuestionCount int64 `json:"question_count"`
		ResponseCount int64 `json:"response_count"`
	}

	summaries := make([]formSummary, 0, len(forms))
	for _, f := range forms {
		summaries = append(summaries, formSummary{
			Form:          f,
			QuestionCount: questionCounts[f.ID],
			ResponseCount: responseCounts[f.ID],
		})
	}

	return c.JSON(http.StatusOK, summaries)
}

// GetForm returns a form with nested ordered questions and options (admin)
func GetForm(c echo.Context) error {
	form, err := services.GetFormWithQuestions(db.DB, c.Param("id"))
	if err != nil {
		return respondFormError(c, err)
	}
	return c.JSON(http.StatusOK, form)
}

// GetPublicForm returns a published form for participants; drafts stay hidden
func GetPublicForm(c echo.Context) error {
	form, err := services.GetFormWithQuestions(db.DB, c.Param("id"))
	if err != nil {
		return respondFormError(c, err)
	}
	if form.Status != models.FormStatusPublished {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Form not found"})
	}
	return c.JSON(http.StatusOK, form)
}

// CreateForm creates a form from a full definition payload (admin)
func CreateForm(c echo.Context) error {
	currentUser := middleware.GetCurrentUser(c)

	payload := new(services.FormPayload)
	if err := c.Bind(payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	form, err := services.CreateForm(db.DB, currentUser.ID, payload)
	if err != nil {
		return respondFormError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Form created",
		"form":    form,
	})
}

// UpdateForm reconciles a form definition against the submitted target state (admin)
func UpdateForm(c echo.Context) error {
	payload := new(services.FormPayload)
	if err := c.Bind(payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	form, err := services.ReconcileForm(db.DB, c.Param("id"), payload)
	if err != nil {
		return respondFormError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Form updated",
		"form":    form,
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateFormStatus updates only the lifecycle status of a form (admin)
func UpdateFormStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if err := services.UpdateFormStatus(db.DB, c.Param("id"), req.Status); err != nil {
		return respondFormError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Status updated"})
}

// DeleteForm deletes a form and everything under it (admin)
func DeleteForm(c echo.Context) error {
	formID := c.Param("id")

	// Collect storage keys before the rows disappear
	var attachments []models.FormAttachment
	if err := db.DB.Where("form_id = ?", formID).Find(&attachments).Error; err != nil {
		return respondFormError(c, err)
	}

	if err := services.DeleteForm(db.DB, formID); err != nil {
		return respondFormError(c, err)
	}

	// Best effort: orphaned objects are not worth failing the request over
	for _, a := range attachments {
		if err := services.Storage.Delete(c.Request().Context(), a.StorageKey); err != nil {
			c.Logger().Error(err)
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Form deleted"})
}
