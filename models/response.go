package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Response represents one participant submission against a published form
type Response struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	FormID          string  `gorm:"type:uuid;not null;index" json:"form_id"`
	RespondentName  *string `json:"respondent_name"`
	RespondentEmail *string `json:"respondent_email"`

	// Relationships
	Answers []Answer `gorm:"foreignKey:ResponseID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
}

// Answer holds the submitted value for one question within a response.
// Choice answers store option ids; checkbox answers store a comma-joined id list.
type Answer struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ResponseID string `gorm:"type:uuid;not null;index" json:"response_id"`
	QuestionID string `gorm:"type:uuid;not null;index" json:"question_id"`
	Value      string `gorm:"type:text;not null" json:"value"`
}

// BeforeCreate hook to generate UUID
func (r *Response) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// BeforeCreate hook to generate UUID
func (a *Answer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Response model
func (Response) TableName() string {
	return "responses"
}

// TableName specifies the table name for Answer model
func (Answer) TableName() string {
	return "answers"
}
