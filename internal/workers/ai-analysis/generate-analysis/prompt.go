package generateanalysis

import (
	"fmt"
	"strings"

	"assessment-pipeline/internal/models"
	"assessment-pipeline/pkg/catalog"
)

func systemInstruction() string {
	var b strings.Builder
	b.WriteString("You are a compliance and sustainability advisor reviewing a supplier self-assessment. ")
	b.WriteString("Write plain text only, no markdown, no tables. ")
	b.WriteString("Structure the answer in exactly these seven sections, in this order, each starting with its heading on its own line followed by a colon:\n")
	for i, s := range Sections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	b.WriteString("Be specific to the answers given. Keep the whole response under 900 words.")
	return b.String()
}

// buildPrompt lists every catalog question with its theme and the status the answer implies.
func buildPrompt(cat *catalog.Catalog, answers models.AnswerSet, score models.ScoreResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall score: %d%% (maturity tier: %s)\n\n", score.Percentage, score.MaturityTier)
	b.WriteString("Answers:\n")
	for i, q := range cat.Questions {
		theme := q.Theme
		if theme == "" {
			theme = "General"
		}
		fmt.Fprintf(&b, "Q%d [%s] %s\nStatus: %s\n", i+1, theme, strings.TrimSpace(q.Text), answers.Get(i).Label())
	}
	return b.String()
}
