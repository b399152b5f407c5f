package scoreanswers

import "assessment-pipeline/internal/models"

// Breakdown counts answers per code over the whole catalog; unanswered questions count as C.
type Breakdown struct {
	Full    int `json:"full"`
	Partial int `json:"partial"`
	None    int `json:"none"`
	Total   int `json:"total"`
}

// Result is the score with its presentation details, as printed by the CLI and reports.
type Result struct {
	models.ScoreResult
	Band        string    `json:"band"`
	Description string    `json:"description"`
	Breakdown   Breakdown `json:"breakdown"`
}
