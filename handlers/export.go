package handlers

import (
	"fmt"
	"net/http"

	"formsight_app_go/db"
	"formsight_app_go/services"

	"github.com/labstack/echo/v4"
)

// ExportFormResponsesXLSX streams the response matrix as an Excel workbook (admin)
func ExportFormResponsesXLSX(c echo.Context) error {
	formID := c.Param("id")

	data, err := services.ExportResponsesXLSX(db.DB, formID)
	if err != nil {
		return respondFormError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="responses-%s.xlsx"`, formID))
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ExportFormReportPDF streams the summary report rendered to PDF (admin)
func ExportFormReportPDF(c echo.Context) error {
	formID := c.Param("id")

	data, err := services.GenerateFormReportPDF(db.DB, formID)
	if err != nil {
		return respondFormError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="report-%s.pdf"`, formID))
	return c.Blob(http.StatusOK, "application/pdf", data)
}
