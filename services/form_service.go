package services

import (
	"errors"
	"fmt"
	"strings"

	"formsight_app_go/models"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

var (
	// ErrFormNotFound is returned when the target form does not exist
	ErrFormNotFound = errors.New("form not found")
	// ErrForeignID is returned when a payload id does not belong to the target form
	ErrForeignID = errors.New("payload id does not belong to the target form")
)

// ValidationError describes a rejected form payload (maps to HTTP 400)
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// descriptionPolicy sanitizes admin-authored rich text before it is stored
// (descriptions are later embedded into report HTML)
var descriptionPolicy = bluemonday.UGCPolicy()

// OptionPayload is one option entry in a submitted form definition
type OptionPayload struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

// QuestionPayload is one question entry in a submitted form definition.
// A present ID means "update the existing row"; an absent ID means "create".
type QuestionPayload struct {
	ID          string          `json:"id,omitempty"`
	Text        string          `json:"text"`
	Description *string         `json:"description,omitempty"`
	Type        string          `json:"type"`
	Required    bool            `json:"required"`
	Options     []OptionPayload `json:"options,omitempty"`
}

// FormPayload is the client-submitted target state of a form definition
type FormPayload struct {
	Title       string            `json:"title"`
	Description *string           `json:"description,omitempty"`
	Category    string            `json:"category"`
	Status      string            `json:"status,omitempty"`
	Questions   []QuestionPayload `json:"questions"`
}

// nonBlankOptionCount counts options with non-blank text (blank entries are skipped on save)
func nonBlankOptionCount(options []OptionPayload) int {
	count := 0
	for _, o := range options {
		if strings.TrimSpace(o.Text) != "" {
			count++
		}
	}
	return count
}

// ValidateFormPayload checks a payload against the submission rules before any write.
// Errors identify the offending question by its 1-based position.
func ValidateFormPayload(payload *FormPayload) error {
	if strings.TrimSpace(payload.Title) == "" {
		return newValidationError("title is required")
	}
	if strings.TrimSpace(payload.Category) == "" {
		return newValidationError("category is required")
	}
	if payload.Status != "" && !models.IsValidFormStatus(strings.ToUpper(payload.Status)) {
		return newValidationError("invalid status: must be one of DRAFT, PUBLISHED, ARCHIVED")
	}
	if len(payload.Questions) == 0 {
		return newValidationError("at least one question is required")
	}

	for i, q := range payload.Questions {
		pos := i + 1
		if strings.TrimSpace(q.Text) == "" {
			return newValidationError("question %d: text is required", pos)
		}
		if strings.TrimSpace(q.Type) == "" {
			return newValidationError("question %d: type is required", pos)
		}
		qType, ok := models.NormalizeQuestionType(q.Type)
		if !ok {
			return newValidationError("question %d: unknown type %q", pos, q.Type)
		}
		if models.IsChoiceType(qType) && nonBlankOptionCount(q.Options) < 2 {
			return newValidationError("question %d: choice questions need at least 2 options", pos)
		}
	}

	return nil
}

// sanitizeDescription runs optional rich text through the HTML sanitizer
func sanitizeDescription(desc *string) *string {
	if desc == nil {
		return nil
	}
	clean := descriptionPolicy.Sanitize(*desc)
	return &clean
}

// CreateForm creates a form with its questions and options; every item is treated as new
func CreateForm(db *gorm.DB, userID string, payload *FormPayload) (*models.Form, error) {
	if err := ValidateFormPayload(payload); err != nil {
		return nil, err
	}

	status := models.FormStatusDraft
	if payload.Status != "" {
		status = strings.ToUpper(payload.Status)
	}

	form := &models.Form{
		Title:       strings.TrimSpace(payload.Title),
		Description: sanitizeDescription(payload.Description),
		Category:    strings.TrimSpace(payload.Category),
		Status:      status,
		CreatedByID: userID,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(form).Error; err != nil {
			return err
		}
		for i, qp := range payload.Questions {
			if _, err := createQuestion(tx, form.ID, i, &qp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create form: %w", err)
	}

	return GetFormWithQuestions(db, form.ID)
}

// createQuestion inserts a new question at the given position with its non-blank options
func createQuestion(tx *gorm.DB, formID string, position int, qp *QuestionPayload) (*models.Question, error) {
	qType, _ := models.NormalizeQuestionType(qp.Type)

	question := &models.Question{
		FormID:      formID,
		Text:        strings.TrimSpace(qp.Text),
		Description: sanitizeDescription(qp.Description),
		Type:        qType,
		Required:    qp.Required,
		SortOrder:   position,
	}
	if err := tx.Create(question).Error; err != nil {
		return nil, err
	}

	if models.IsChoiceType(qType) {
		optPosition := 0
		for _, op := range qp.Options {
			text := strings.TrimSpace(op.Text)
			if text == "" {
				continue // blank options are silently skipped
			}
			option := &models.Option{
				QuestionID: question.ID,
				Text:       text,
				SortOrder:  optPosition,
			}
			if err := tx.Create(option).Error; err != nil {
				return nil, err
			}
			optPosition++
		}
	}

	return question, nil
}

// reconcileOptions syncs the persisted options of an existing question with the
// submitted list: update rows whose id is present, create the rest, delete the
// remainder. Option order is re-derived from array position on every write.
func reconcileOptions(tx *gorm.DB, questionID string, options []OptionPayload) error {
	keep := make([]string, 0, len(options))

	position := 0
	for _, op := range options {
		text := strings.TrimSpace(op.Text)
		if text == "" {
			continue
		}

		if op.ID != "" {
			var existing models.Option
			if err := tx.First(&existing, "id = ?", op.ID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrForeignID
				}
				return err
			}
			if existing.QuestionID != questionID {
				return ErrForeignID
			}
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"text":       text,
				"sort_order": position,
			}).Error; err != nil {
				return err
			}
			keep = append(keep, existing.ID)
		} else {
			option := &models.Option{
				QuestionID: questionID,
				Text:       text,
				SortOrder:  position,
			}
			if err := tx.Create(option).Error; err != nil {
				return err
			}
			keep = append(keep, option.ID)
		}
		position++
	}

	// Delete every persisted option the payload no longer references
	query := tx.Where("question_id = ?", questionID)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}
	return query.Delete(&models.Option{}).Error
}

// ReconcileForm applies a submitted target state to an existing form inside a
// single transaction: scalar fields are updated, questions and options are
// created/updated/deleted so persisted state exactly matches the payload, and
// order is re-derived from array position. Ids that do not belong to the
// target form abort the transaction with ErrForeignID.
func ReconcileForm(db *gorm.DB, formID string, payload *FormPayload) (*models.Form, error) {
	if err := ValidateFormPayload(payload); err != nil {
		return nil, err
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var form models.Form
		if err := tx.First(&form, "id = ?", formID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFormNotFound
			}
			return err
		}

		// Status keeps its prior value when omitted
		status := form.Status
		if payload.Status != "" {
			status = strings.ToUpper(payload.Status)
		}

		updates := map[string]interface{}{
			"title":    strings.TrimSpace(payload.Title),
			"category": strings.TrimSpace(payload.Category),
			"status":   status,
		}
		if payload.Description != nil {
			updates["description"] = sanitizeDescription(payload.Description)
		} else {
			updates["description"] = nil
		}
		if err := tx.Model(&form).Updates(updates).Error; err != nil {
			return err
		}

		keep := make([]string, 0, len(payload.Questions))

		for i, qp := range payload.Questions {
			qType, _ := models.NormalizeQuestionType(qp.Type)

			if qp.ID != "" {
				var existing models.Question
				if err := tx.First(&existing, "id = ?", qp.ID).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return ErrForeignID
					}
					return err
				}
				// Ownership check: updating a question of another form is a conflict
				if existing.FormID != form.ID {
					return ErrForeignID
				}

				if err := tx.Model(&existing).Updates(map[string]interface{}{
					"text":        strings.TrimSpace(qp.Text),
					"description": sanitizeDescription(qp.Description),
					"type":        qType,
					"required":    qp.Required,
					"sort_order":  i,
				}).Error; err != nil {
					return err
				}

				if models.IsChoiceType(qType) {
					if err := reconcileOptions(tx, existing.ID, qp.Options); err != nil {
						return err
					}
				} else {
					// Type moved away from a choice type: its option set is gone
					if err := tx.Where("question_id = ?", existing.ID).Delete(&models.Option{}).Error; err != nil {
						return err
					}
				}
				keep = append(keep, existing.ID)
			} else {
				question, err := createQuestion(tx, form.ID, i, &qp)
				if err != nil {
					return err
				}
				keep = append(keep, question.ID)
			}
		}

		// Delete questions omitted from the payload, options first
		var stale []models.Question
		staleQuery := tx.Where("form_id = ?", form.ID)
		if len(keep) > 0 {
			staleQuery = staleQuery.Where("id NOT IN ?", keep)
		}
		if err := staleQuery.Find(&stale).Error; err != nil {
			return err
		}
		for _, q := range stale {
			if err := tx.Where("question_id = ?", q.ID).Delete(&models.Option{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&q).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetFormWithQuestions(db, formID)
}

// GetFormWithQuestions loads a form with questions and options ordered ascending
func GetFormWithQuestions(db *gorm.DB, formID string) (*models.Form, error) {
	var form models.Form
	err := db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.sort_order ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.sort_order ASC")
		}).
		First(&form, "id = ?", formID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to load form: %w", err)
	}
	return &form, nil
}

// GetForms lists forms ordered by recency, without nested questions
func GetForms(db *gorm.DB) ([]models.Form, error) {
	var forms []models.Form
	err := db.Order("created_at DESC").Find(&forms).Error
	return forms, err
}

// CountQuestionsByForm returns question counts keyed by form id in one grouped query
func CountQuestionsByForm(db *gorm.DB) (map[string]int64, error) {
	return groupedCounts(db.Model(&models.Question{}))
}

// groupedCounts runs a count grouped by form_id and returns it as a map
func groupedCounts(query *gorm.DB) (map[string]int64, error) {
	var rows []struct {
		FormID string
		Total  int64
	}
	if err := query.Select("form_id, count(*) as total").Group("form_id").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.FormID] = r.Total
	}
	return counts, nil
}

// UpdateFormStatus updates only the status field of a form
func UpdateFormStatus(db *gorm.DB, formID, status string) error {
	status = strings.ToUpper(status)
	if !models.IsValidFormStatus(status) {
		return newValidationError("invalid status: must be one of DRAFT, PUBLISHED, ARCHIVED")
	}

	result := db.Model(&models.Form{}).Where("id = ?", formID).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update form status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrFormNotFound
	}
	return nil
}

// DeleteForm deletes a form and all its related entities
func DeleteForm(db *gorm.DB, formID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var form models.Form
		if err := tx.First(&form, "id = ?", formID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFormNotFound
			}
			return err
		}

		// Delete children explicitly rather than relying on DB-level cascade
		var questionIDs []string
		if err := tx.Model(&models.Question{}).Where("form_id = ?", form.ID).Pluck("id", &questionIDs).Error; err != nil {
			return err
		}
		if len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.Option{}).Error; err != nil {
				return err
			}
			if err := tx.Where("form_id = ?", form.ID).Delete(&models.Question{}).Error; err != nil {
				return err
			}
		}

		var responseIDs []string
		if err := tx.Model(&models.Response{}).Where("form_id = ?", form.ID).Pluck("id", &responseIDs).Error; err != nil {
			return err
		}
		if len(responseIDs) > 0 {
			if err := tx.Where("response_id IN ?", responseIDs).Delete(&models.Answer{}).Error; err != nil {
				return err
			}
			if err := tx.Where("form_id = ?", form.ID).Delete(&models.Response{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("form_id = ?", form.ID).Delete(&models.FormAttachment{}).Error; err != nil {
			return err
		}

		return tx.Delete(&form).Error
	})
}
