package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Form statuses
const (
	FormStatusDraft     = "DRAFT"
	FormStatusPublished = "PUBLISHED"
	FormStatusArchived  = "ARCHIVED"
)

// Question types (stored lower-case, case-insensitive on the wire)
const (
	QuestionTypeText     = "text"
	QuestionTypeTextarea = "textarea"
	QuestionTypeRadio    = "radio"
	QuestionTypeCheckbox = "checkbox"
	QuestionTypeSelect   = "select"
	QuestionTypeScale    = "scale"
)

// Form represents a usability-evaluation questionnaire definition
type Form struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title       string  `gorm:"not null" json:"title"`
	Description *string `json:"description"`
	Category    string  `gorm:"not null;index" json:"category"`
	Status      string  `gorm:"not null;default:DRAFT;index" json:"status"` // DRAFT, PUBLISHED, ARCHIVED

	// Creator relationship
	CreatedByID string `gorm:"type:uuid;not null;index" json:"created_by_id"`
	CreatedBy   *User  `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`

	// Relationships
	Questions []Question `gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

// Question represents a single prompt within a form
type Question struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FormID      string  `gorm:"type:uuid;not null;index:idx_questions_form_order" json:"form_id"`
	Text        string  `gorm:"not null" json:"text"`
	Description *string `json:"description"`
	Type        string  `gorm:"not null" json:"type"`
	Required    bool    `gorm:"not null;default:false" json:"required"`
	SortOrder   int     `gorm:"not null;default:0;index:idx_questions_form_order" json:"order"`

	// Relationships
	Options []Option `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
}

// Option represents a selectable choice belonging to a choice-type question
type Option struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	QuestionID string `gorm:"type:uuid;not null;index:idx_options_question_order" json:"question_id"`
	Text       string `gorm:"not null" json:"text"`
	SortOrder  int    `gorm:"not null;default:0;index:idx_options_question_order" json:"order"`
}

// BeforeCreate hook to generate UUID
func (f *Form) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

// BeforeCreate hook to generate UUID
func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return nil
}

// BeforeCreate hook to generate UUID
func (o *Option) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Form model
func (Form) TableName() string {
	return "forms"
}

// TableName specifies the table name for Question model
func (Question) TableName() string {
	return "questions"
}

// TableName specifies the table name for Option model
func (Option) TableName() string {
	return "options"
}

// NormalizeQuestionType lower-cases a wire question type and reports whether it is known
func NormalizeQuestionType(t string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(t))
	switch normalized {
	case QuestionTypeText, QuestionTypeTextarea, QuestionTypeRadio,
		QuestionTypeCheckbox, QuestionTypeSelect, QuestionTypeScale:
		return normalized, true
	}
	return normalized, false
}

// IsChoiceType reports whether a question type carries a fixed option set
func IsChoiceType(t string) bool {
	switch strings.ToLower(t) {
	case QuestionTypeRadio, QuestionTypeCheckbox, QuestionTypeSelect:
		return true
	}
	return false
}

// IsValidFormStatus reports whether status is one of the known form statuses
func IsValidFormStatus(status string) bool {
	return status == FormStatusDraft || status == FormStatusPublished || status == FormStatusArchived
}
