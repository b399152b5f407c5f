// internal/workers/assessment/render-report/handler.go
package renderreport

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "assessment-pipeline/internal/common/errors"
	"assessment-pipeline/internal/common/logger"
	"assessment-pipeline/internal/models"
	scoreanswers "assessment-pipeline/internal/workers/assessment/score-answers"
	"assessment-pipeline/pkg/catalog"
)

const (
	TaskType = "render-report"

	reportTitle = "Compliance Maturity Assessment Report"
)

// Targets for errors.Is; returned errors carry the same codes.
var (
	ErrRenderFailed          = apperrors.New(apperrors.ErrCodeRenderFailed, "Report rendering failed")
	ErrReportsDirNotWritable = apperrors.New(apperrors.ErrCodeReportsDirNotWritable, "Reports directory is not writable")
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html.tmpl"))

type Handler struct {
	config   *Config
	renderer DocumentRenderer
	logger   logger.Logger
	now      func() time.Time
}

type Option func(*Handler)

// WithClock replaces time.Now for the report date and output path.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func NewHandler(config *Config, renderer DocumentRenderer, log logger.Logger, opts ...Option) *Handler {
	h := &Handler{
		config:   config,
		renderer: renderer,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
			"renderer": renderer.Name(),
		}),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Render builds the report for submission, writes it under the reports directory and returns
// the new artifact. Every call produces a new file.
func (h *Handler) Render(ctx context.Context, submission *models.Submission, cat *catalog.Catalog) (*models.Artifact, error) {
	now := h.now().UTC()

	markup, err := BuildMarkup(submission, cat, now)
	if err != nil {
		return nil, apperrors.NewRenderError(err)
	}

	renderCtx := ctx
	if h.config.RenderTimeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, h.config.RenderTimeout)
		defer cancel()
	}

	data, err := h.renderer.Render(renderCtx, markup)
	if err != nil {
		h.logger.Error("render failed", map[string]interface{}{
			"submissionId": submission.ID,
			"error":        err.Error(),
		})
		return nil, apperrors.NewRenderError(err)
	}

	rel := h.relativePath(submission.ID, now)
	full := filepath.Join(h.config.ReportsDir, rel)
	if err := writeArtifact(full, data); err != nil {
		h.logger.Error("reports directory not writable", map[string]interface{}{
			"submissionId": submission.ID,
			"dir":          h.config.ReportsDir,
			"error":        err.Error(),
		})
		return nil, apperrors.NewReportsDirNotWritableError(h.config.ReportsDir, err)
	}

	artifact := &models.Artifact{
		Path:      full,
		PublicURL: PublicURL(h.config.PublicBaseURL, rel),
		MediaType: h.renderer.MediaType(),
	}
	h.logger.Info("report written", map[string]interface{}{
		"submissionId": submission.ID,
		"path":         full,
		"bytes":        len(data),
		"mediaType":    string(artifact.MediaType),
	})
	return artifact, nil
}

// relativePath is YYYY/MM/report-<id prefix>-<unix nanos>-<random>.<ext>.
func (h *Handler) relativePath(submissionID string, now time.Time) string {
	prefix := strings.ReplaceAll(submissionID, "-", "")
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	if prefix == "" {
		prefix = "unknown"
	}
	name := fmt.Sprintf("report-%s-%d-%s%s", prefix, now.UnixNano(), uuid.NewString()[:8], h.renderer.Extension())
	return filepath.Join(now.Format("2006"), now.Format("01"), name)
}

func writeArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// PublicURL joins the public base with a path relative to the reports directory.
func PublicURL(base, rel string) string {
	return strings.TrimRight(base, "/") + "/" + filepath.ToSlash(rel)
}

// BuildMarkup renders the report HTML.
func BuildMarkup(submission *models.Submission, cat *catalog.Catalog, now time.Time) ([]byte, error) {
	total := cat.Len()
	tier := submission.Score.MaturityTier
	if tier == "" {
		tier = scoreanswers.TierFor(submission.Score.Percentage)
	}

	data := reportData{
		Title:        reportTitle,
		Organization: submission.Organization,
		StaffCount:   submission.StaffCount,
		ContactName:  submission.ContactName,
		ContactEmail: submission.ContactEmail,
		ContactPhone: submission.ContactPhone,
		Date:         now.Format("2 January 2006"),
		SubmissionID: submission.ID,
		Percentage:   submission.Score.Percentage,
		Tier:         string(tier),
		Band:         scoreanswers.Band(tier),
		Description:  scoreanswers.TierDescription(tier),
		Breakdown:    scoreanswers.CountAnswers(submission.Answers, total),
	}
	if submission.Analysis != nil && strings.TrimSpace(submission.Analysis.NarrativeText) != "" {
		data.Narrative = models.ParseNarrative(submission.Analysis.NarrativeText)
	}
	for i, q := range cat.Questions {
		code := submission.Answers.Get(i)
		data.Questions = append(data.Questions, questionRow{
			Number: i + 1,
			Theme:  q.Theme,
			Text:   q.Text,
			Code:   string(code),
			Label:  code.Label(),
		})
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
