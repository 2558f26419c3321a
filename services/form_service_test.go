package services

import (
	"testing"

	"formsight_app_go/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupFormTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	db.AutoMigrate(
		&models.User{},
		&models.Form{},
		&models.Question{},
		&models.Option{},
		&models.Response{},
		&models.Answer{},
		&models.FormAttachment{},
	)
	return db
}

func createTestUser(db *gorm.DB) *models.User {
	user := &models.User{Name: "Admin", Email: "admin@example.com", Password: "x", Role: models.RoleAdmin, IsActive: true}
	db.Create(user)
	return user
}

func strPtr(s string) *string {
	return &s
}

func TestValidateFormPayload(t *testing.T) {
	valid := func() *FormPayload {
		return &FormPayload{
			Title:    "Checkout usability",
			Category: "web",
			Questions: []QuestionPayload{
				{Text: "How easy was checkout?", Type: "SCALE"},
			},
		}
	}

	t.Run("ValidPayload", func(t *testing.T) {
		assert.NoError(t, ValidateFormPayload(valid()))
	})

	t.Run("MissingTitle", func(t *testing.T) {
		p := valid()
		p.Title = "   "
		err := ValidateFormPayload(p)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "title")
	})

	t.Run("MissingCategory", func(t *testing.T) {
		p := valid()
		p.Category = ""
		assert.Error(t, ValidateFormPayload(p))
	})

	t.Run("NoQuestions", func(t *testing.T) {
		p := valid()
		p.Questions = nil
		err := ValidateFormPayload(p)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "at least one question")
	})

	t.Run("BlankQuestionText", func(t *testing.T) {
		p := valid()
		p.Questions = append(p.Questions, QuestionPayload{Text: " ", Type: "text"})
		err := ValidateFormPayload(p)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "question 2")
	})

	t.Run("UnknownType", func(t *testing.T) {
		p := valid()
		p.Questions[0].Type = "matrix"
		err := ValidateFormPayload(p)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown type")
	})

	t.Run("TypeIsCaseInsensitive", func(t *testing.T) {
		p := valid()
		p.Questions[0].Type = "TeXt"
		assert.NoError(t, ValidateFormPayload(p))
	})

	t.Run("ChoiceTypeNeedsTwoOptions", func(t *testing.T) {
		p := valid()
		p.Questions[0] = QuestionPayload{
			Text:    "Pick one",
			Type:    "radio",
			Options: []OptionPayload{{Text: "Only"}},
		}
		err := ValidateFormPayload(p)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "at least 2 options")
	})

	t.Run("BlankOptionsDontCount", func(t *testing.T) {
		p := valid()
		p.Questions[0] = QuestionPayload{
			Text:    "Pick one",
			Type:    "radio",
			Options: []OptionPayload{{Text: "A"}, {Text: "  "}, {Text: ""}},
		}
		assert.Error(t, ValidateFormPayload(p))
	})
}

func TestCreateForm(t *testing.T) {
	db := setupFormTestDB()
	user := createTestUser(db)

	payload := &FormPayload{
		Title:       "Onboarding study",
		Description: strPtr("First-run experience"),
		Category:    "mobile",
		Questions: []QuestionPayload{
			{Text: "What confused you?", Type: "TEXTAREA"},
			{Text: "Rate the flow", Type: "scale", Required: true},
			{Text: "Pick your device", Type: "RADIO", Options: []OptionPayload{
				{Text: "iOS"}, {Text: ""}, {Text: "Android"},
			}},
		},
	}

	form, err := CreateForm(db, user.ID, payload)
	assert.NoError(t, err)
	assert.Equal(t, models.FormStatusDraft, form.Status)
	assert.Len(t, form.Questions, 3)

	// Types are normalized to lower case, order derives from array position
	assert.Equal(t, "textarea", form.Questions[0].Type)
	assert.Equal(t, 0, form.Questions[0].SortOrder)
	assert.Equal(t, "scale", form.Questions[1].Type)
	assert.Equal(t, 1, form.Questions[1].SortOrder)

	// Blank option skipped, remaining options ordered by position
	radio := form.Questions[2]
	assert.Len(t, radio.Options, 2)
	assert.Equal(t, "iOS", radio.Options[0].Text)
	assert.Equal(t, 0, radio.Options[0].SortOrder)
	assert.Equal(t, "Android", radio.Options[1].Text)
	assert.Equal(t, 1, radio.Options[1].SortOrder)
}

// Mirrors the documented two-step scenario: first save creates one question,
// second save edits it in place and appends a radio question.
func TestReconcileExampleScenario(t *testing.T) {
	db := setupFormTestDB()
	user := createTestUser(db)

	form, err := CreateForm(db, user.ID, &FormPayload{
		Title:    "T",
		Category: "web",
		Questions: []QuestionPayload{
			{Text: "Q1", Type: "text", Required: true},
		},
	})
	assert.NoError(t, err)
	assert.Len(t, form.Questions, 1)
	q1ID := form.Questions[0].ID
	assert.Equal(t, 0, form.Questions[0].SortOrder)

	updated, err := ReconcileForm(db, form.ID, &FormPayload{
		Title:    "T",
		Category: "web",
		Questions: []QuestionPayload{
			{ID: q1ID, Text: "Q1-edited", Type: "text", Required: true},
			{Text: "Q2", Type: "radio", Options: []OptionPayload{{Text: "A"}, {Text: "B"}}},
		},
	})
	assert.NoError(t, err)
	assert.Len(t, updated.Questions, 2)

	assert.Equal(t, q1ID, updated.Questions[0].ID)
	assert.Equal(t, "Q1-edited", updated.Questions[0].Text)
	assert.Equal(t, 0, updated.Questions[0].SortOrder)

	assert.NotEmpty(t, updated.Questions[1].ID)
	assert.Equal(t, 1, updated.Questions[1].SortOrder)
	assert.Len(t, updated.Questions[1].Options, 2)
}

func TestReconcileIdempotence(t *testing.T) {
	db := setupFormTestDB()
	user := createTestUser(db)

	form, err := CreateForm(db, user.ID, &FormPayload{
		Title:    "Survey",
		Category: "web",
		Questions: []QuestionPayload{
			{Text: "Q1", Type: "text"},
			{Text: "Q2", Type: "select", Options: []OptionPayload{{Text: "A"}, {Text: "B"}}},
		},
	})
	assert.NoError(t, err)

	// Rebuild the payload from the persisted form, ids included
	payload := payloadFromForm(form)

	first, err := ReconcileForm(db, form.ID, payload)
	assert.NoError(t, err)
	second, err := ReconcileForm(db, form.ID, payload)
	assert.NoError(t, err)

	assert.Equal(t, questionIDs(first), questionIDs(second))
	var qCount, oCount int64
	db.Model(&models.Question{}).Where("form_id = ?", form.ID).Count(&qCount)
	assert.Equal(t, int64(2), qCount)
	db.Model(&models.Option{}).Count(&oCount)
	assert.Equal(t, int64(2), oCount)
}

func TestReconcileReordering(t *testing.T) {
	db := setupFormTestDB()
	user := createTestUser(db)

	form, err := CreateForm(db, user.ID, &FormPayload{
		Title:    "Survey",
		Category: "web",
		Questions: []QuestionPayload{
			{Text: "First", Type: "text"},
			{Text: "Second", Type: "text"},
			{Text: "Third", Type: "text"},
		},
	})
	assert.NoError(t, err)
	ids := questionIDs(form)

	// Submit the same questions in reverse order
	payload := payloadFromForm(form)
	payload.Questions[0], payload.Questions[2] = payload.Questions[2], payload.Questions[0]

	updated, err := ReconcileForm(db, form.ID, payload)
	assert.NoError(t, err)
	assert.Len(t, updated.Questions, 3)

	// Order fields match new array positions; no creates or deletes
	assert.Equal(t, ids[2], updated.Questions[0].ID)
	assert.Equal(t, ids[1], updated.Questions[1].ID)
	assert.Equal(t, ids[0], updated.Questions[2].ID)
	for i, q := range updated.Questions {
		assert.Equal(t, i, q.SortOrder)
	}
}

func TestReconcileAddition(t *testing.T) {
	db := setupFormTestDB()
	user := createTestUser(db)

	form, err := CreateForm(db, user.ID, &FormPayload{
		Title:    "Survey",
		Category: "web",
		Questions: []QuestionPayload{
			{Text: "Existing", Type: "text"},
		},
	})
	assert.NoError(t, err)
	existingID := form.Questions[0].ID

	payload := payloadFromForm(form)
	payload.Questions = append(payload.Questions, QuestionPayload{Text: "Appended", Type: "text"})

	updated, err := ReconcileForm(db, form.ID, payload)
	assert.NoError(t, err)
	assert.Len(t, updated.Questions, 2)
	assert.Equal(t, existingID, updated.Questions[0].ID)
	assert.NotEqual(t, existingID, updated.Questions[1].ID)
	assert.Equal(t, "Appended", updated.Questions[1].Text)
}

func TestReconcileRemovalCascades(t *testing.T) {
	db := setupFormTestDB()
	user := createTestUser(db)

	form, err := CreateForm(db, user.ID, &FormPayload{
		Title:    "Survey",
		Category: "web",
		Questions: []QuestionPayload{
			{Text: "Keep", Type: "text"},
			{Text: "Drop", Type: "checkbox", Options: []OptionPayload{{Text: "A"}, {Text: "B"}}},
		},
	})
	assert.NoError(t, err)
	keepID := form.Questions[0].ID
	dropID := form.Questions[1].ID

	payload := payloadFromForm(form)
	payload.Questions = payload.Questions[:1] // omit the checkbox question

	updated, err := ReconcileForm(db, form.ID, payload)
	assert.NoError(t, err)
	assert.Len(t, updated.Questions, 1)
	assert.Equal(t, keepID, updated.Questions[0].ID)

	var qCount int64
	db.Model(&models.Question{}).Where("id = ?", dropID).Count(&qCount)
	assert.Equal(t, int64(0), qCount)

	// Its options are gone too
	var oCount int64
	db.Model(&models.Option{}).Where("question_id = ?", dropID).Count(&oCount)
	assert.Equal(t, int64(0), oCount)
}

func TestReconcileOptionEditing(t *testing.T) {
	db := setupFormTestDB()
	user := createTestUser(db)

	form, err := CreateForm(db, user.ID, &FormPayload{
		Title:    "Survey",
		Category: "web",
		Questions: []QuestionPayload{
			{Text: "Pick", Type: "radio", Options: []OptionPayload{{Text: "A"}, {Text: "B"}, {Text: "C"}}},
		},
	})
	assert.NoError(t, err)
	q := form.Questions[0]
	assert.Len(t, q.Options, 3)

	// Keep A (renamed) and C (moved first), drop B, add D
	payload := &FormPayload{
		Title:    "Survey",
		Category: "web",
		Questions: []QuestionPayload{
			{ID: q.ID, Text: "Pick", Type: "radio", Options: []OptionPayload{
				{ID: q.Options[2].ID, Text: "C"},
				{ID: q.Options[0].ID, Text: "A-renamed"},
				{Text: "D"},
			}},
		},
	}

	updated, err := ReconcileForm(db, form.ID, payload)
	assert.NoError(t, err)
	options := updated.Questions[0].Options
	assert.Len(t, options, 3)
	assert.Equal(t, q.Options[2].ID, options[0].ID)
	assert.Equal(t, "A-renamed", options[1].Text)
	assert.Equal(t, q.Options[0].ID, options[1].ID)
	assert.Equal(t, "D", options[2].Text)

	var count int64
	db.Model(&models.Option{}).Where("id = ?", q.Options[1].ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestReconcileTypeChangeDropsOptions(t *testing.T) {
	db := setupFormTestDB()
	user := createTestUser(db)

	form, err := CreateForm(db, user.ID, &FormPayload{
		Title:    "Survey",
		Category: "web",
		Questions: []QuestionPayload{
			{Text: "Pick", Type: "select", Options: []OptionPayload{{Text: "A"}, {Text: "B"}}},
		},
	})
	assert.NoError(t, err)
	qID := form.Questions[0].ID

	updated, err := ReconcileForm(db, form.ID, &FormPayload{
		Title:    "Survey",
		Category: "web",
		Questions: []QuestionPayload{
			{ID: qID, Text: "Pick", Type: "text"},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, "text", updated.Questions[0].Type)

	var count int64
	db.Model(&models.Option{}).Where("question_id = ?", qID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestReconcileStatusRetainedWhenOmitted(t *testing.T) {
	db := setupFormTestDB()
	user := createTestUser(db)

	form, err := CreateForm(db, user.ID, &FormPayload{
		Title:    "Survey",
		Category: "web",
		Status:   "published",
		Questions: []QuestionPayload{
			{Text: "Q", Type: "text"},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, models.FormStatusPublished, form.Status)

	payload := payloadFromForm(form)
	payload.Status = ""
	payload.Title = "Renamed"

	updated, err := ReconcileForm(db, form.ID, payload)
	assert.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, models.FormStatusPublished, updated.Status)
}

func TestReconcileRejectsForeignIDs(t *testing.T) {
	db := setupFormTestDB()
	user := createTestUser(db)

	formA, err := CreateForm(db, user.ID, &FormPayload{
		Title: "A", Category: "web",
		Questions: []QuestionPayload{{Text: "A1", Type: "text"}},
	})
	assert.NoError(t, err)
	formB, err := CreateForm(db, user.ID, &FormPayload{
		Title: "B", Category: "web",
		Questions: []QuestionPayload{{Text: "B1", Type: "text"}},
	})
	assert.NoError(t, err)

	t.Run("QuestionFromAnotherForm", func(t *testing.T) {
		_, err := ReconcileForm(db, formA.ID, &FormPayload{
			Title: "A", Category: "web",
			Questions: []QuestionPayload{
				{ID: formB.Questions[0].ID, Text: "hijack", Type: "text"},
			},
		})
		assert.ErrorIs(t, err, ErrForeignID)

		// Transaction rolled back: form A keeps its original question
		reloaded, err := GetFormWithQuestions(db, formA.ID)
		assert.NoError(t, err)
		assert.Len(t, reloaded.Questions, 1)
		assert.Equal(t, "A1", reloaded.Questions[0].Text)

		// Form B untouched
		other, _ := GetFormWithQuestions(db, formB.ID)
		assert.Equal(t, "B1", other.Questions[0].Text)
	})

	t.Run("UnknownQuestionID", func(t *testing.T) {
		_, err := ReconcileForm(db, formA.ID, &FormPayload{
			Title: "A", Category: "web",
			Questions: []QuestionPayload{
				{ID: "no-such-id", Text: "x", Type: "text"},
			},
		})
		assert.ErrorIs(t, err, ErrForeignID)
	})

	t.Run("OptionFromAnotherQuestion", func(t *testing.T) {
		formC, err := CreateForm(db, user.ID, &FormPayload{
			Title: "C", Category: "web",
			Questions: []QuestionPayload{
				{Text: "C1", Type: "radio", Options: []OptionPayload{{Text: "X"}, {Text: "Y"}}},
				{Text: "C2", Type: "radio", Options: []OptionPayload{{Text: "P"}, {Text: "Q"}}},
			},
		})
		assert.NoError(t, err)

		stolen := formC.Questions[1].Options[0].ID
		_, err = ReconcileForm(db, formC.ID, &FormPayload{
			Title: "C", Category: "web",
			Questions: []QuestionPayload{
				{ID: formC.Questions[0].ID, Text: "C1", Type: "radio", Options: []OptionPayload{
					{ID: stolen, Text: "hijack"},
					{Text: "Y"},
				}},
				{ID: formC.Questions[1].ID, Text: "C2", Type: "radio", Options: []OptionPayload{
					{Text: "P"}, {Text: "Q"},
				}},
			},
		})
		assert.ErrorIs(t, err, ErrForeignID)
	})
}

func TestReconcileValidationHappensBeforeWrites(t *testing.T) {
	db := setupFormTestDB()
	user := createTestUser(db)

	form, err := CreateForm(db, user.ID, &FormPayload{
		Title: "Survey", Category: "web",
		Questions: []QuestionPayload{{Text: "Q", Type: "text"}},
	})
	assert.NoError(t, err)

	// Radio with a single option is rejected; nothing may be written
	_, err = ReconcileForm(db, form.ID, &FormPayload{
		Title: "Changed title", Category: "web",
		Questions: []QuestionPayload{
			{Text: "Bad", Type: "radio", Options: []OptionPayload{{Text: "Only"}}},
		},
	})
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)

	reloaded, _ := GetFormWithQuestions(db, form.ID)
	assert.Equal(t, "Survey", reloaded.Title)
	assert.Len(t, reloaded.Questions, 1)
	assert.Equal(t, "Q", reloaded.Questions[0].Text)
}

func TestReconcileNotFound(t *testing.T) {
	db := setupFormTestDB()

	_, err := ReconcileForm(db, "missing", &FormPayload{
		Title: "T", Category: "web",
		Questions: []QuestionPayload{{Text: "Q", Type: "text"}},
	})
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestUpdateFormStatus(t *testing.T) {
	db := setupFormTestDB()
	user := createTestUser(db)

	form, err := CreateForm(db, user.ID, &FormPayload{
		Title: "Survey", Category: "web",
		Questions: []QuestionPayload{{Text: "Q", Type: "text"}},
	})
	assert.NoError(t, err)

	assert.NoError(t, UpdateFormStatus(db, form.ID, "published"))
	reloaded, _ := GetFormWithQuestions(db, form.ID)
	assert.Equal(t, models.FormStatusPublished, reloaded.Status)

	err = UpdateFormStatus(db, form.ID, "bogus")
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)

	assert.ErrorIs(t, UpdateFormStatus(db, "missing", "DRAFT"), ErrFormNotFound)
}

func TestDeleteFormCascades(t *testing.T) {
	db := setupFormTestDB()
	user := createTestUser(db)

	form, err := CreateForm(db, user.ID, &FormPayload{
		Title: "Survey", Category: "web", Status: "PUBLISHED",
		Questions: []QuestionPayload{
			{Text: "Pick", Type: "radio", Required: true, Options: []OptionPayload{{Text: "A"}, {Text: "B"}}},
		},
	})
	assert.NoError(t, err)

	_, err = SubmitResponse(db, form.ID, &ResponsePayload{
		Answers: []AnswerPayload{
			{QuestionID: form.Questions[0].ID, OptionIDs: []string{form.Questions[0].Options[0].ID}},
		},
	})
	assert.NoError(t, err)

	assert.NoError(t, DeleteForm(db, form.ID))

	_, err = GetFormWithQuestions(db, form.ID)
	assert.ErrorIs(t, err, ErrFormNotFound)

	var qCount, oCount, rCount, aCount int64
	db.Model(&models.Question{}).Count(&qCount)
	db.Model(&models.Option{}).Count(&oCount)
	db.Model(&models.Response{}).Count(&rCount)
	db.Model(&models.Answer{}).Count(&aCount)
	assert.Zero(t, qCount)
	assert.Zero(t, oCount)
	assert.Zero(t, rCount)
	assert.Zero(t, aCount)

	assert.ErrorIs(t, DeleteForm(db, form.ID), ErrFormNotFound)
}

// payloadFromForm rebuilds a PUT payload from a persisted form, ids included
func payloadFromForm(form *models.Form) *FormPayload {
	payload := &FormPayload{
		Title:       form.Title,
		Description: form.Description,
		Category:    form.Category,
		Status:      form.Status,
	}
	for _, q := range form.Questions {
		qp := QuestionPayload{
			ID:          q.ID,
			Text:        q.Text,
			Description: q.Description,
			Type:        q.Type,
			Required:    q.Required,
		}
		for _, o := range q.Options {
			qp.Options = append(qp.Options, OptionPayload{ID: o.ID, Text: o.Text})
		}
		payload.Questions = append(payload.Questions, qp)
	}
	return payload
}

func questionIDs(form *models.Form) []string {
	ids := make([]string, 0, len(form.Questions))
	for _, q := range form.Questions {
		ids = append(ids, q.ID)
	}
	return ids
}
