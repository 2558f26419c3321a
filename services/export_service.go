package services

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"formsight_app_go/models"

	"github.com/microcosm-cc/bluemonday"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// reportPolicy sanitizes stored rich text again before it lands in report HTML
var reportPolicy = bluemonday.UGCPolicy()

// ExportResponsesXLSX builds an xlsx workbook with one row per response and
// one column per question, choice answers resolved to option texts.
func ExportResponsesXLSX(db *gorm.DB, formID string) ([]byte, error) {
	form, err := GetFormWithQuestions(db, formID)
	if err != nil {
		return nil, err
	}
	responses, err := GetFormResponses(db, formID)
	if err != nil {
		return nil, err
	}

	optionText := optionTextIndex(form)

	f := excelize.NewFile()
	sheet := "Responses"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}})

	headers := []string{"Submitted At", "Respondent", "Email"}
	for _, q := range form.Questions {
		headers = append(headers, q.Text)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for rowIdx, response := range responses {
		answersByQuestion := make(map[string]string, len(response.Answers))
		for _, a := range response.Answers {
			answersByQuestion[a.QuestionID] = a.Value
		}

		row := rowIdx + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		f.SetCellValue(sheet, cell, response.CreatedAt.Format("2006-01-02 15:04"))
		cell, _ = excelize.CoordinatesToCellName(2, row)
		f.SetCellValue(sheet, cell, deref(response.RespondentName))
		cell, _ = excelize.CoordinatesToCellName(3, row)
		f.SetCellValue(sheet, cell, deref(response.RespondentEmail))

		for colIdx, q := range form.Questions {
			cell, _ = excelize.CoordinatesToCellName(colIdx+4, row)
			f.SetCellValue(sheet, cell, displayAnswer(&q, answersByQuestion[q.ID], optionText))
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// deref returns the value of an optional string
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// optionTextIndex maps option ids to their display text for a whole form
func optionTextIndex(form *models.Form) map[string]string {
	index := make(map[string]string)
	for _, q := range form.Questions {
		for _, o := range q.Options {
			index[o.ID] = o.Text
		}
	}
	return index
}

// displayAnswer resolves a stored answer value into a human-readable cell value
func displayAnswer(question *models.Question, value string, optionText map[string]string) string {
	if value == "" {
		return ""
	}
	if !models.IsChoiceType(question.Type) {
		return value
	}

	ids := strings.Split(value, ",")
	texts := make([]string, 0, len(ids))
	for _, id := range ids {
		if text, ok := optionText[id]; ok {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, "; ")
}

// reportTemplate renders the summary page fed to the PDF generator
var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Helvetica, Arial, sans-serif; color: #1a1a1a; }
  h1 { font-size: 22px; margin-bottom: 2px; }
  .meta { color: #666; font-size: 12px; margin-bottom: 20px; }
  .question { margin-bottom: 18px; }
  .question h3 { font-size: 14px; margin-bottom: 4px; }
  table { border-collapse: collapse; font-size: 12px; }
  td { border: 1px solid #ccc; padding: 4px 10px; }
  .sample { font-size: 12px; color: #333; margin: 2px 0 2px 12px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">Category: {{.Category}} &middot; Responses: {{.ResponseCount}}</div>
{{if .Description}}<div>{{.Description}}</div>{{end}}
{{range .Questions}}
<div class="question">
  <h3>{{.Position}}. {{.Text}}</h3>
  {{if .OptionCounts}}
  <table>
    {{range .OptionCounts}}<tr><td>{{.Text}}</td><td>{{.Count}}</td></tr>{{end}}
  </table>
  {{else}}
  {{range .Samples}}<div class="sample">&ldquo;{{.}}&rdquo;</div>{{end}}
  {{end}}
</div>
{{end}}
</body>
</html>`))

type reportOptionCount struct {
	Text  string
	Count int
}

type reportQuestion struct {
	Position     int
	Text         string
	OptionCounts []reportOptionCount
	Samples      []string
}

type reportData struct {
	Title         string
	Category      string
	Description   template.HTML
	ResponseCount int
	Questions     []reportQuestion
}

// maxSampleAnswers caps how many free-text answers the report quotes per question
const maxSampleAnswers = 5

// BuildReportHTML summarizes a form's responses: per-option counts for choice
// questions, a handful of quoted answers for the rest.
func BuildReportHTML(form *models.Form, responses []models.Response) (string, error) {
	data := reportData{
		Title:         form.Title,
		Category:      form.Category,
		ResponseCount: len(responses),
	}
	if form.Description != nil {
		data.Description = template.HTML(reportPolicy.Sanitize(*form.Description))
	}

	for i, q := range form.Questions {
		rq := reportQuestion{Position: i + 1, Text: q.Text}

		if models.IsChoiceType(q.Type) {
			counts := make(map[string]int)
			for _, r := range responses {
				for _, a := range r.Answers {
					if a.QuestionID != q.ID {
						continue
					}
					for _, id := range strings.Split(a.Value, ",") {
						counts[id]++
					}
				}
			}
			for _, o := range q.Options {
				rq.OptionCounts = append(rq.OptionCounts, reportOptionCount{Text: o.Text, Count: counts[o.ID]})
			}
		} else {
			for _, r := range responses {
				if len(rq.Samples) >= maxSampleAnswers {
					break
				}
				for _, a := range r.Answers {
					if a.QuestionID == q.ID && a.Value != "" {
						rq.Samples = append(rq.Samples, a.Value)
						break
					}
				}
			}
		}

		data.Questions = append(data.Questions, rq)
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

// GenerateFormReportPDF builds the summary report for a form and renders it to PDF
func GenerateFormReportPDF(db *gorm.DB, formID string) ([]byte, error) {
	form, err := GetFormWithQuestions(db, formID)
	if err != nil {
		return nil, err
	}
	responses, err := GetFormResponses(db, formID)
	if err != nil {
		return nil, err
	}

	html, err := BuildReportHTML(form, responses)
	if err != nil {
		return nil, err
	}

	return GeneratePDF(html, DefaultPDFOptions())
}
