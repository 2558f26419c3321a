package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"formsight_app_go/models"

	"gorm.io/gorm"
)

// ErrFormNotAccepting is returned when a response targets a form that is not published
var ErrFormNotAccepting = errors.New("form is not accepting responses")

// Scale answers are bounded Likert values
const (
	ScaleMin = 1
	ScaleMax = 5
)

// AnswerPayload is one submitted answer. Choice answers carry option ids;
// everything else carries a free-text value.
type AnswerPayload struct {
	QuestionID string   `json:"question_id"`
	Value      string   `json:"value,omitempty"`
	OptionIDs  []string `json:"option_ids,omitempty"`
}

// ResponsePayload is a participant submission against a published form
type ResponsePayload struct {
	RespondentName  *string         `json:"respondent_name,omitempty"`
	RespondentEmail *string         `json:"respondent_email,omitempty"`
	Answers         []AnswerPayload `json:"answers"`
}

// SubmitResponse validates and persists a participant submission.
// The form must be PUBLISHED; every required question needs a non-blank answer;
// choice answers must reference options of their own question.
func SubmitResponse(db *gorm.DB, formID string, payload *ResponsePayload) (*models.Response, error) {
	form, err := GetFormWithQuestions(db, formID)
	if err != nil {
		return nil, err
	}
	if form.Status != models.FormStatusPublished {
		return nil, ErrFormNotAccepting
	}

	questionsByID := make(map[string]*models.Question, len(form.Questions))
	for i := range form.Questions {
		questionsByID[form.Questions[i].ID] = &form.Questions[i]
	}

	answered := make(map[string]string, len(payload.Answers))

	for _, ap := range payload.Answers {
		question, ok := questionsByID[ap.QuestionID]
		if !ok {
			return nil, newValidationError("answer references unknown question %s", ap.QuestionID)
		}
		if _, dup := answered[question.ID]; dup {
			return nil, newValidationError("question %q answered more than once", question.Text)
		}

		value, err := normalizeAnswer(question, &ap)
		if err != nil {
			return nil, err
		}
		answered[question.ID] = value
	}

	for i := range form.Questions {
		q := &form.Questions[i]
		if q.Required && strings.TrimSpace(answered[q.ID]) == "" {
			return nil, newValidationError("question %q is required", q.Text)
		}
	}

	response := &models.Response{
		FormID:          form.ID,
		RespondentName:  payload.RespondentName,
		RespondentEmail: payload.RespondentEmail,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(response).Error; err != nil {
			return err
		}
		for questionID, value := range answered {
			if strings.TrimSpace(value) == "" {
				continue // optional question left blank
			}
			answer := &models.Answer{
				ResponseID: response.ID,
				QuestionID: questionID,
				Value:      value,
			}
			if err := tx.Create(answer).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save response: %w", err)
	}

	return GetResponse(db, response.ID)
}

// normalizeAnswer converts an answer payload into the stored value for its question type
func normalizeAnswer(question *models.Question, ap *AnswerPayload) (string, error) {
	switch question.Type {
	case models.QuestionTypeRadio, models.QuestionTypeSelect:
		if len(ap.OptionIDs) == 0 {
			return "", nil
		}
		if len(ap.OptionIDs) > 1 {
			return "", newValidationError("question %q accepts a single option", question.Text)
		}
		if !questionHasOption(question, ap.OptionIDs[0]) {
			return "", newValidationError("question %q: option does not belong to this question", question.Text)
		}
		return ap.OptionIDs[0], nil

	case models.QuestionTypeCheckbox:
		if len(ap.OptionIDs) == 0 {
			return "", nil
		}
		seen := make(map[string]bool, len(ap.OptionIDs))
		for _, id := range ap.OptionIDs {
			if !questionHasOption(question, id) {
				return "", newValidationError("question %q: option does not belong to this question", question.Text)
			}
			if seen[id] {
				return "", newValidationError("question %q: duplicate option selected", question.Text)
			}
			seen[id] = true
		}
		// Checkbox selections persist as a comma-joined option id list
		return strings.Join(ap.OptionIDs, ","), nil

	case models.QuestionTypeScale:
		value := strings.TrimSpace(ap.Value)
		if value == "" {
			return "", nil
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < ScaleMin || n > ScaleMax {
			return "", newValidationError("question %q: scale answer must be an integer between %d and %d", question.Text, ScaleMin, ScaleMax)
		}
		return strconv.Itoa(n), nil

	default: // text, textarea
		return strings.TrimSpace(ap.Value), nil
	}
}

// questionHasOption reports whether optionID belongs to the question's option set
func questionHasOption(question *models.Question, optionID string) bool {
	for _, o := range question.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// GetResponse loads a single response with its answers
func GetResponse(db *gorm.DB, responseID string) (*models.Response, error) {
	var response models.Response
	if err := db.Preload("Answers").First(&response, "id = ?", responseID).Error; err != nil {
		return nil, fmt.Errorf("failed to load response: %w", err)
	}
	return &response, nil
}

// GetFormResponses lists all responses for a form, newest first
func GetFormResponses(db *gorm.DB, formID string) ([]models.Response, error) {
	var form models.Form
	if err := db.First(&form, "id = ?", formID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, err
	}

	var responses []models.Response
	err := db.Preload("Answers").
		Where("form_id = ?", formID).
		Order("created_at DESC").
		Find(&responses).Error
	return responses, err
}

// CountFormResponses returns the number of responses for a form
func CountFormResponses(db *gorm.DB, formID string) (int64, error) {
	var count int64
	err := db.Model(&models.Response{}).Where("form_id = ?", formID).Count(&count).Error
	return count, err
}

// CountResponsesByForm returns response counts keyed by form id in one grouped query
func CountResponsesByForm(db *gorm.DB) (map[string]int64, error) {
	return groupedCounts(db.Model(&models.Response{}))
}
