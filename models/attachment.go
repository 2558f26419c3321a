package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FormAttachment stores metadata for a stimulus file (screenshot, mockup)
// uploaded against a form; the bytes live in the configured storage provider.
type FormAttachment struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	FormID           string `gorm:"type:uuid;not null;index" json:"form_id"`
	FileName         string `gorm:"not null" json:"file_name"`
	FileOriginalName string `gorm:"not null" json:"file_original_name"`
	FileSize         int64  `gorm:"not null" json:"file_size"`
	MimeType         string `gorm:"not null" json:"mime_type"`
	StorageKey       string `gorm:"not null" json:"-"`

	UploadedByID string `gorm:"type:uuid;not null" json:"uploaded_by_id"`
}

// BeforeCreate hook to generate UUID
func (a *FormAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for FormAttachment model
func (FormAttachment) TableName() string {
	return "form_attachments"
}
