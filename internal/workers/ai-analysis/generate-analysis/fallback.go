package generateanalysis

import (
	"fmt"
	"strings"

	"assessment-pipeline/internal/models"
	scoreanswers "assessment-pipeline/internal/workers/assessment/score-answers"
)

var tierGuidance = map[models.MaturityTier]struct {
	state, risk, gaps, recommendations, quickWins string
}{
	models.TierInitial: {
		state:           "Most compliance practices are informal or not yet in place. Policies, where they exist, are not consistently applied.",
		risk:            "Customers and regulators are likely to treat the organisation as high risk, which can block tenders and supplier onboarding.",
		gaps:            "Written policies, named ownership and basic record keeping are the main gaps.",
		recommendations: "Adopt a short written policy for each theme, assign an owner, and agree a review date. Start collecting evidence of what is already done.",
		quickWins:       "Publish a code of conduct, nominate a compliance lead and create a shared evidence folder this month.",
	},
	models.TierManaged: {
		state:           "Several practices are in place but coverage is uneven and depends on individuals rather than documented processes.",
		risk:            "Gaps in evidence may surface during customer audits and partial practices can lapse when staff change.",
		gaps:            "Partially implemented areas lack monitoring, targets or supplier follow-up.",
		recommendations: "Turn partial practices into documented procedures with owners, and set measurable targets for the themes that scored lowest.",
		quickWins:       "Complete the partially implemented items that only need documentation, and schedule a quarterly review.",
	},
	models.TierEstablished: {
		state:           "Most practices are implemented and documented. The remaining work is about consistency, measurement and supply chain reach.",
		risk:            "The main exposure is in the few areas still partial or missing, and in suppliers that do not meet the same standard.",
		gaps:            "Measurement against targets and extension of requirements to suppliers are the typical remaining gaps.",
		recommendations: "Introduce key indicators for each theme, report on them annually, and extend key requirements to critical suppliers.",
		quickWins:       "Close the remaining not implemented items and add supplier clauses to new contracts.",
	},
	models.TierOptimised: {
		state:           "Practices are implemented across the assessed themes with evidence of ownership and review.",
		risk:            "Residual risk is low. The priority is keeping practices current as regulation and customer expectations change.",
		gaps:            "Any partially implemented items and external assurance are the main opportunities left.",
		recommendations: "Seek external verification or certification, and share results with customers to turn maturity into a commercial advantage.",
		quickWins:       "Publish a short annual summary of results and refresh policies against new regulation.",
	},
}

// FallbackNarrative builds the templated analysis from tier and percentage only.
func FallbackNarrative(score models.ScoreResult) string {
	g, ok := tierGuidance[score.MaturityTier]
	if !ok {
		score.MaturityTier = scoreanswers.TierFor(score.Percentage)
		g = tierGuidance[score.MaturityTier]
	}
	band := scoreanswers.Band(score.MaturityTier)
	description := scoreanswers.TierDescription(score.MaturityTier)

	body := []string{
		fmt.Sprintf("The assessment scored %d%%, placing the organisation in the %s tier (%s).", score.Percentage, score.MaturityTier, band),
		fmt.Sprintf("This self-assessment covers environmental, social, ethical and governance practices. %s", description),
		g.state,
		g.risk,
		g.gaps,
		g.recommendations,
		g.quickWins,
	}

	var b strings.Builder
	for i, s := range Sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s)
		b.WriteString(":\n")
		b.WriteString(strings.TrimSpace(body[i]))
	}
	return b.String()
}
