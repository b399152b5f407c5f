package sendnotification

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"assessment-pipeline/internal/models"
	scoreanswers "assessment-pipeline/internal/workers/assessment/score-answers"
)

type emailData struct {
	Submission  *models.Submission
	Tier        string
	Band        string
	Sections    []labeledSection
	DownloadURL string
	Source      string
	Admin       bool
}

type labeledSection struct {
	Label      string
	Paragraphs []string
}

var funcs = template.FuncMap{"upper": strings.ToUpper}

var contactText = template.Must(template.New("contact").Funcs(funcs).Parse(`Dear {{with .Submission.ContactName}}{{.}}{{else}}colleague{{end}},

Thank you for completing the compliance maturity assessment for {{.Submission.Organization}}.

Your score: {{.Submission.Score.Percentage}}% - {{.Tier}} ({{.Band}})
{{range .Sections}}
{{with .Label}}{{upper .}}
{{end}}{{range .Paragraphs}}{{.}}
{{end}}{{end}}
{{if .DownloadURL}}Download your full report: {{.DownloadURL}}{{else}}Your full report is not available yet. We will follow up separately.{{end}}
`))

var adminText = template.Must(template.New("admin").Funcs(funcs).Parse(`New assessment submission

Organization: {{.Submission.Organization}}
Staff: {{.Submission.StaffCount}}
Contact: {{.Submission.ContactName}} <{{.Submission.ContactEmail}}>{{with .Submission.ContactPhone}}, {{.}}{{end}}
Score: {{.Submission.Score.Percentage}}% - {{.Tier}} ({{.Band}})
Analysis: {{.Source}}
Reference: {{.Submission.ID}}
{{if .DownloadURL}}Report: {{.DownloadURL}}
{{end}}{{range .Sections}}
{{with .Label}}{{upper .}}
{{end}}{{range .Paragraphs}}{{.}}
{{end}}{{end}}`))

var messageHTML = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html><body style="font-family: Helvetica, Arial, sans-serif; color: #1f2933;">
{{if .Admin}}<h2>New assessment submission</h2>
<p>{{.Submission.Organization}} ({{.Submission.StaffCount}} staff)<br>
{{.Submission.ContactName}} &lt;{{.Submission.ContactEmail}}&gt;{{with .Submission.ContactPhone}}, {{.}}{{end}}<br>
Analysis: {{.Source}}<br>Reference: {{.Submission.ID}}</p>
{{else}}<p>Dear {{with .Submission.ContactName}}{{.}}{{else}}colleague{{end}},</p>
<p>Thank you for completing the compliance maturity assessment for {{.Submission.Organization}}.</p>
{{end}}<p><strong>Score: {{.Submission.Score.Percentage}}% - {{.Tier}} ({{.Band}})</strong></p>
{{range .Sections}}{{with .Label}}<h3>{{.}}</h3>{{end}}{{range .Paragraphs}}<p>{{.}}</p>{{end}}
{{end}}{{if .DownloadURL}}<p><a href="{{.DownloadURL}}">Download the full report</a></p>
{{else if not .Admin}}<p>Your full report is not available yet. We will follow up separately.</p>
{{end}}</body></html>
`))

func newEmailData(submission *models.Submission, analysis *models.AnalysisResult, downloadURL string) emailData {
	tier := submission.Score.MaturityTier
	if tier == "" {
		tier = scoreanswers.TierFor(submission.Score.Percentage)
	}
	d := emailData{
		Submission:  submission,
		Tier:        string(tier),
		Band:        scoreanswers.Band(tier),
		DownloadURL: downloadURL,
		Source:      "templated summary",
	}
	if analysis != nil {
		if analysis.WasGeneratedByProvider {
			d.Source = "generated by " + analysis.ProviderUsed
		}
		d.Sections = formatSections(analysis.NarrativeText)
	}
	return d
}

// formatSections reformats narrative text into labeled sections; leading untitled text is labeled Summary.
func formatSections(narrative string) []labeledSection {
	parsed := models.ParseNarrative(narrative)
	out := make([]labeledSection, 0, len(parsed))
	for _, s := range parsed {
		label := s.Heading
		if label == "" {
			label = "Summary"
		}
		out = append(out, labeledSection{Label: label, Paragraphs: s.Paragraphs})
	}
	return out
}

func (h *Handler) subject(text string) string {
	if h.config.SubjectPrefix == "" {
		return text
	}
	return strings.TrimSpace(h.config.SubjectPrefix) + " " + text
}

func composeContact(d emailData) (text, html string, err error) {
	return compose(contactText, d, false)
}

func composeAdmin(d emailData) (text, html string, err error) {
	return compose(adminText, d, true)
}

func compose(textTmpl *template.Template, d emailData, admin bool) (string, string, error) {
	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, d); err != nil {
		return "", "", err
	}
	d.Admin = admin
	if err := messageHTML.Execute(&html, d); err != nil {
		return "", "", err
	}
	return text.String(), html.String(), nil
}
