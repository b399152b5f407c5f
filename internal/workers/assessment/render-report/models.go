package renderreport

import (
	"assessment-pipeline/internal/models"
	scoreanswers "assessment-pipeline/internal/workers/assessment/score-answers"
)

// reportData feeds templates/report.html.tmpl.
type reportData struct {
	Title        string
	Organization string
	StaffCount   int
	ContactName  string
	ContactEmail string
	ContactPhone string
	Date         string
	SubmissionID string

	Percentage  int
	Tier        string
	Band        string
	Description string
	Breakdown   scoreanswers.Breakdown

	Narrative []models.NarrativeSection
	Questions []questionRow
}

type questionRow struct {
	Number int
	Theme  string
	Text   string
	Code   string
	Label  string
}
