/*
pdf.go - PDF rendering of the aggregated entitlement report

Renders the summary block and the branch/department breakdown tables.
The employee-level detail stays in the JSON payload; the PDF is the
management handout. Arabic group labels are transliterated to their
English equivalent ("unspecified") because the core fonts shipped with
gofpdf cannot shape Arabic script.
*/
package report

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// WritePDF renders the report to w as an A4 portrait document.
func WritePDF(rep *Report, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "End-of-Service Entitlement Report")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("As of %s", rep.AsOf.Format("2006-01-02")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)

	summaryRows := []struct {
		label string
		value string
	}{
		{"Employees", fmt.Sprintf("%d (%d active, %d terminated)",
			rep.Summary.TotalEmployees, rep.Summary.TotalActiveEmployees, rep.Summary.TotalTerminatedEmployees)},
		{"Average service years", fmt.Sprintf("%.2f", rep.Summary.AverageServiceYears)},
		{"Total gross EOS", rep.Summary.TotalGrossEOS.StringFixed(2)},
		{"Total net EOS", rep.Summary.TotalNetEOS.StringFixed(2)},
		{"Total leave compensation", rep.Summary.TotalLeaveCompensation.StringFixed(2)},
		{"Total leave deductions", rep.Summary.TotalLeaveDeductions.StringFixed(2)},
		{"Total other deductions", rep.Summary.TotalOtherDeductions.StringFixed(2)},
		{"Total deductions", rep.Summary.TotalDeductions.StringFixed(2)},
		{"Total final payable", rep.Summary.TotalFinalPayable.StringFixed(2)},
	}
	for _, row := range summaryRows {
		pdf.Cell(70, 6, row.label)
		pdf.Cell(0, 6, row.value)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	writeBreakdown(pdf, "By branch", rep.BranchBreakdown)
	writeBreakdown(pdf, "By department", rep.DepartmentBreakdown)
	writeBreakdown(pdf, "By job title", rep.JobTitleBreakdown)
	writeBreakdown(pdf, "By classification", rep.ClassificationBreakdown)

	if len(rep.Skipped) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, fmt.Sprintf("Skipped employees (%d)", len(rep.Skipped)))
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 9)
		for _, sk := range rep.Skipped {
			pdf.Cell(0, 5, fmt.Sprintf("%s: %s", sk.FullName, sk.Reason))
			pdf.Ln(5)
		}
	}

	return pdf.Output(w)
}

func writeBreakdown(pdf *gofpdf.Fpdf, title string, rows []GroupTotal) {
	if len(rows) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(70, 6, "Group", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 6, "Employees", "1", 0, "R", false, 0, "")
	pdf.CellFormat(45, 6, "Entitlements", "1", 0, "R", false, 0, "")
	pdf.CellFormat(45, 6, "Leave comp.", "1", 0, "R", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		key := row.Key
		if key == UnspecifiedGroup {
			key = "unspecified"
		}
		pdf.CellFormat(70, 6, key, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", row.EmployeeCount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, row.TotalEntitlements.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, row.TotalLeaveCompensation.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(6)
	}
	pdf.Ln(4)
}
