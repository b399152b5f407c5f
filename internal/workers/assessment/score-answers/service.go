// Package scoreanswers converts an answer set into a percentage and maturity tier.
package scoreanswers

import (
	"fmt"
	"math"

	"assessment-pipeline/internal/models"
)

// Score returns the percentage and tier for answers over a catalog of totalQuestions.
// Indexes outside [0, totalQuestions) are ignored and unknown codes score as C.
// It is pure and safe for concurrent use.
func Score(answers models.AnswerSet, totalQuestions int) models.ScoreResult {
	if totalQuestions <= 0 {
		return models.ScoreResult{Percentage: 0, MaturityTier: models.TierInitial}
	}

	sum := 0
	for i, code := range answers {
		if i < 0 || i >= totalQuestions {
			continue
		}
		sum += weight(code)
	}

	// scaled before dividing so exact halves stay exact
	pct := int(math.Round(float64(sum*100) / float64(totalQuestions*WeightFull)))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return models.ScoreResult{Percentage: pct, MaturityTier: TierFor(pct)}
}

func weight(code models.AnswerCode) int {
	switch code {
	case models.AnswerFull:
		return WeightFull
	case models.AnswerPartial:
		return WeightPartial
	default:
		return WeightNone
	}
}

// TierFor maps a percentage onto the maturity table.
func TierFor(percentage int) models.MaturityTier {
	for i := len(maturityBands) - 1; i >= 0; i-- {
		if percentage >= maturityBands[i].lower {
			return models.MaturityTier(maturityBands[i].tier)
		}
	}
	return models.TierInitial
}

// Band returns the percentage range label of a tier, e.g. "50–74%".
func Band(tier models.MaturityTier) string {
	for _, b := range maturityBands {
		if b.tier == string(tier) {
			return fmt.Sprintf("%d–%d%%", b.lower, b.upper)
		}
	}
	return ""
}

func TierDescription(tier models.MaturityTier) string {
	for _, b := range maturityBands {
		if b.tier == string(tier) {
			return b.description
		}
	}
	return ""
}

func CountAnswers(answers models.AnswerSet, totalQuestions int) Breakdown {
	b := Breakdown{Total: totalQuestions}
	for i := 0; i < totalQuestions; i++ {
		switch answers.Get(i) {
		case models.AnswerFull:
			b.Full++
		case models.AnswerPartial:
			b.Partial++
		default:
			b.None++
		}
	}
	return b
}

// Evaluate bundles Score, Band, TierDescription and CountAnswers.
func Evaluate(answers models.AnswerSet, totalQuestions int) Result {
	score := Score(answers, totalQuestions)
	return Result{
		ScoreResult: score,
		Band:        Band(score.MaturityTier),
		Description: TierDescription(score.MaturityTier),
		Breakdown:   CountAnswers(answers, totalQuestions),
	}
}
