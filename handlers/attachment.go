package handlers

import (
	"net/http"

	"formsight_app_go/db"
	"formsight_app_go/middleware"
	"formsight_app_go/models"
	"formsight_app_go/services"

	"github.com/labstack/echo/v4"
)

// MaxAttachmentSize caps stimulus uploads at 10 MB
const MaxAttachmentSize = 10 << 20

// UploadFormAttachment stores a stimulus file (screenshot, mockup) for a form (admin)
func UploadFormAttachment(c echo.Context) error {
	formID := c.Param("id")
	currentUser := middleware.GetCurrentUser(c)

	if _, err := services.GetFormWithQuestions(db.DB, formID); err != nil {
		return respondFormError(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "File is required"})
	}
	if file.Size > MaxAttachmentSize {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "File exceeds the 10 MB limit"})
	}

	key := services.GenerateStorageKey(formID, file.Filename)
	result, err := services.Storage.Upload(c.Request().Context(), file, key)
	if err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to store file"})
	}

	attachment := &models.FormAttachment{
		FormID:           formID,
		FileName:         result.FileName,
		FileOriginalName: result.FileOriginalName,
		FileSize:         result.FileSize,
		MimeType:         result.MimeType,
		StorageKey:       result.Key,
		UploadedByID:     currentUser.ID,
	}

	if err := db.DB.Create(attachment).Error; err != nil {
		// Best effort: don't leave an orphaned object behind
		services.Storage.Delete(c.Request().Context(), result.Key)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save attachment"})
	}

	return c.JSON(http.StatusCreated, attachment)
}

// GetFormAttachments lists attachment metadata for a form (admin)
func GetFormAttachments(c echo.Context) error {
	var attachments []models.FormAttachment
	if err := db.DB.Where("form_id = ?", c.Param("id")).Order("created_at ASC").Find(&attachments).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch attachments"})
	}
	return c.JSON(http.StatusOK, attachments)
}

// DownloadAttachment streams an attachment's bytes (public - stimuli are shown to participants)
func DownloadAttachment(c echo.Context) error {
	var attachment models.FormAttachment
	if err := db.DB.First(&attachment, "id = ?", c.Param("id")).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Attachment not found"})
	}

	reader, contentType, err := services.Storage.Get(c.Request().Context(), attachment.StorageKey)
	if err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to read file"})
	}
	defer reader.Close()

	return c.Stream(http.StatusOK, contentType, reader)
}

// DeleteAttachment removes an attachment row and its stored bytes (admin)
func DeleteAttachment(c echo.Context) error {
	var attachment models.FormAttachment
	if err := db.DB.First(&attachment, "id = ?", c.Param("id")).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Attachment not found"})
	}

	if err := services.Storage.Delete(c.Request().Context(), attachment.StorageKey); err != nil {
		c.Logger().Error(err)
	}

	if err := db.DB.Delete(&attachment).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete attachment"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Attachment deleted"})
}
