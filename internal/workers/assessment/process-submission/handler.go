// internal/workers/assessment/process-submission/handler.go
package processsubmission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "assessment-pipeline/internal/common/errors"
	"assessment-pipeline/internal/common/logger"
	"assessment-pipeline/internal/common/metrics"
	"assessment-pipeline/internal/common/observability"
	"assessment-pipeline/internal/common/validation"
	"assessment-pipeline/internal/models"
	downloadtoken "assessment-pipeline/internal/workers/assessment/download-token"
	scoreanswers "assessment-pipeline/internal/workers/assessment/score-answers"
	sendnotification "assessment-pipeline/internal/workers/communication/send-notification"
	submissionstore "assessment-pipeline/internal/workers/data-access/submission-store"
	"assessment-pipeline/pkg/catalog"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "process-submission"
)

type Analyser interface {
	Analyse(ctx context.Context, answers models.AnswerSet) models.AnalysisResult
}

type ReportRenderer interface {
	Render(ctx context.Context, submission *models.Submission, cat *catalog.Catalog) (*models.Artifact, error)
}

type TokenIssuer interface {
	Issue(ctx context.Context, submissionID, contactEmail, artifactPath string, ttl time.Duration) (*downloadtoken.DownloadToken, error)
	DownloadURL(token string) string
}

type Notifier interface {
	NotifyContact(ctx context.Context, submission *models.Submission, analysis *models.AnalysisResult, artifact *models.Artifact, downloadURL string) bool
	NotifyAdmins(ctx context.Context, submission *models.Submission, analysis *models.AnalysisResult, downloadURL string) sendnotification.AdminResult
}

// Dependencies are the collaborators of the coordinator. Locker defaults to an in-process
// keyed lock and Observability may be nil.
type Dependencies struct {
	Store         submissionstore.Store
	Catalog       *catalog.Catalog
	Analyser      Analyser
	Renderer      ReportRenderer
	Tokens        TokenIssuer
	Notifier      Notifier
	Locker        Locker
	Observability *observability.Observability
}

// Handler accepts submissions (Stage 1) and enriches them (Stage 2).
type Handler struct {
	config     *Config
	deps       Dependencies
	dispatcher Dispatcher
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

func NewHandler(config *Config, deps Dependencies, log logger.Logger) *Handler {
	config.applyDefaults()
	if deps.Locker == nil {
		deps.Locker = NewLocalLocker()
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		deps:   deps,
		errors: apperrors.NewErrorHandler(l),
		logger: l,
		now:    time.Now,
	}
}

// SetDispatcher wires the Stage 2 dispatcher. It must be called before serving traffic.
func (h *Handler) SetDispatcher(d Dispatcher) {
	h.dispatcher = d
}

// Submit validates, scores and persists a submission, then queues Stage 2 without waiting for it.
func (h *Handler) Submit(ctx context.Context, req Stage1Request) (*Stage1Response, error) {
	answers, err := h.validate(&req)
	if err != nil {
		metrics.SubmissionsReceived.WithLabelValues("invalid").Inc()
		return nil, err
	}

	id := uuid.NewString()
	log := logger.ForSubmission(h.logger, id)
	log.Info("submission received", map[string]interface{}{
		"state":   StateReceived,
		"answers": len(answers),
	})

	score := scoreanswers.Score(answers, h.deps.Catalog.Len())
	log.Info("submission scored", map[string]interface{}{
		"state":        StateScored,
		"percentage":   score.Percentage,
		"maturityTier": string(score.MaturityTier),
	})

	now := h.now().UTC()
	sub := &models.Submission{
		ID:           id,
		Organization: req.OrganizationName,
		StaffCount:   *req.StaffCount,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Answers:      answers,
		Score:        score,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.deps.Store.Create(ctx, sub); err != nil {
		metrics.SubmissionsReceived.WithLabelValues("persist_failed").Inc()
		log.Error("submission not persisted", map[string]interface{}{
			"state": StatePersistFailed,
			"error": err.Error(),
		})
		return nil, apperrors.NewPersistenceError("create submission", err)
	}
	metrics.SubmissionsReceived.WithLabelValues("accepted").Inc()
	metrics.SubmissionsByTier.WithLabelValues(string(score.MaturityTier)).Inc()
	log.Info("submission persisted", map[string]interface{}{"state": StatePersisted})

	h.enqueue(ctx, id, log)

	return &Stage1Response{
		SubmissionID: id,
		Percentage:   score.Percentage,
		MaturityTier: score.MaturityTier,
		Message:      acceptedMessage,
	}, nil
}

func (h *Handler) enqueue(ctx context.Context, id string, log logger.Logger) {
	if h.dispatcher == nil {
		log.Warn("no stage 2 dispatcher configured, submission will not be enriched", nil)
		return
	}
	if err := h.dispatcher.Enqueue(ctx, id); err != nil {
		log.Error("failed to enqueue stage 2", map[string]interface{}{"error": err.Error()})
		return
	}
	log.Debug("stage 2 enqueued", nil)
}

// validate trims req in place and returns its answers keyed by question index.
func (h *Handler) validate(req *Stage1Request) (models.AnswerSet, error) {
	req.OrganizationName = strings.TrimSpace(req.OrganizationName)
	req.ContactName = strings.TrimSpace(req.ContactName)
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	req.ContactPhone = strings.TrimSpace(req.ContactPhone)

	res, err := stage1Schema.ValidateValue(req)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if !res.HasErrors("contactEmail") && req.ContactEmail != "" && !validation.ValidateEmail(req.ContactEmail) {
		res.Add("contactEmail", "must be a valid email address", "FORMAT")
	}
	if !res.HasErrors("contactPhone") && req.ContactPhone != "" && !validation.ValidatePhone(req.ContactPhone) {
		res.Add("contactPhone", "must be a valid phone number", "FORMAT")
	}

	answers := make(models.AnswerSet, len(req.Answers))
	total := h.deps.Catalog.Len()
	for key, code := range req.Answers {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= total {
			res.Add("answers."+key, fmt.Sprintf("question index must be between 0 and %d", total-1), "OUT_OF_RANGE")
			continue
		}
		c := models.AnswerCode(strings.TrimSpace(code))
		if !c.Valid() {
			// already reported by the schema
			continue
		}
		answers[idx] = c
	}

	if !res.Valid {
		return nil, apperrors.NewValidationError(strings.Join(res.GetErrorMessages(), "; "))
	}
	return answers, nil
}

// Process runs Stage 2 for one submission. Each step runs even when an earlier one failed.
// Only an unknown id, a failure to load the record or a context that ends before the first
// step is returned as an error. Re-running recomputes every output and overwrites it.
func (h *Handler) Process(ctx context.Context, submissionID string) (status *Stage2Status, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Stage2Timeout)
		defer cancel()
	}

	start := time.Now()
	ctx, span := h.deps.Observability.StartSpan(ctx, "stage2.process",
		attribute.String("submission.id", submissionID))
	defer func() { observability.EndSpan(span, err) }()

	log := logger.ForSubmission(h.logger, submissionID)

	release, err := h.deps.Locker.Acquire(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sub, err := h.deps.Store.Get(ctx, submissionID)
	if err != nil {
		if errors.Is(err, submissionstore.ErrSubmissionNotFound) {
			return nil, apperrors.NewSubmissionNotFoundError(submissionID)
		}
		return nil, apperrors.NewPersistenceError("load submission", err)
	}

	status = &Stage2Status{}

	log.Info("stage 2 started", map[string]interface{}{"state": StateAnalyzing})
	var analysis models.AnalysisResult
	_ = h.step(ctx, log, "analyse", func(ctx context.Context) error {
		analysis = h.deps.Analyser.Analyse(ctx, sub.Answers)
		return nil
	})
	status.AnalysisGenerated = analysis.WasGeneratedByProvider
	sub.Analysis = &analysis
	_ = h.step(ctx, log, "persist_analysis", func(ctx context.Context) error {
		return h.deps.Store.UpdateAnalysis(ctx, submissionID, analysis)
	})

	log.Info("rendering report", map[string]interface{}{"state": StateRendering})
	var artifact *models.Artifact
	_ = h.step(ctx, log, "render", func(ctx context.Context) error {
		a, err := h.deps.Renderer.Render(ctx, sub, h.deps.Catalog)
		if err != nil {
			return err
		}
		artifact = a
		return nil
	})

	var downloadURL string
	if artifact != nil {
		status.ArtifactGenerated = true
		status.ArtifactURL = artifact.PublicURL
		_ = h.step(ctx, log, "issue_token", func(ctx context.Context) error {
			tok, err := h.deps.Tokens.Issue(ctx, submissionID, sub.ContactEmail, artifact.Path, 0)
			if err != nil {
				return err
			}
			downloadURL = h.deps.Tokens.DownloadURL(tok.Token)
			return nil
		})
		_ = h.step(ctx, log, "persist_artifact", func(ctx context.Context) error {
			return h.deps.Store.UpdateArtifactURL(ctx, submissionID, artifact.PublicURL)
		})
	}

	// without a token the contact gets the summary only
	linked := artifact
	if downloadURL == "" {
		linked = nil
	}

	log.Info("sending notifications", map[string]interface{}{"state": StateNotifying})
	_ = h.step(ctx, log, "notify_contact", func(ctx context.Context) error {
		status.ContactNotified = h.deps.Notifier.NotifyContact(ctx, sub, &analysis, linked, downloadURL)
		if !status.ContactNotified {
			return errors.New("contact was not notified")
		}
		return nil
	})
	_ = h.step(ctx, log, "notify_admins", func(ctx context.Context) error {
		res := h.deps.Notifier.NotifyAdmins(ctx, sub, &analysis, downloadURL)
		status.AdminsNotified = res.Notified()
		if len(res.Failed) > 0 && !res.Notified() {
			return fmt.Errorf("all %d admin deliveries failed", len(res.Failed))
		}
		return nil
	})

	status.ElapsedMs = time.Since(start).Milliseconds()
	log.Info("stage 2 complete", map[string]interface{}{
		"state":             StateComplete,
		"analysisGenerated": status.AnalysisGenerated,
		"artifactGenerated": status.ArtifactGenerated,
		"contactNotified":   status.ContactNotified,
		"adminsNotified":    status.AdminsNotified,
		"elapsedMs":         status.ElapsedMs,
	})
	return status, nil
}

// step runs fn under its own span and records its outcome. A panic counts as a failure.
func (h *Handler) step(ctx context.Context, log logger.Logger, name string, fn func(context.Context) error) (err error) {
	stepCtx, span := h.deps.Observability.StartSpan(ctx, "stage2."+name)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %s panicked: %v", name, r)
		}
		duration := time.Since(start)
		result := "success"
		if err != nil {
			result = "failed"
			stdErr := apperrors.Normalize(err)
			log.Warn("stage 2 step failed", map[string]interface{}{
				"step":       name,
				"durationMs": duration.Milliseconds(),
				"errorCode":  string(stdErr.Code),
				"retryable":  stdErr.Retryable,
				"error":      err.Error(),
			})
		} else {
			log.Debug("stage 2 step done", map[string]interface{}{
				"step":       name,
				"durationMs": duration.Milliseconds(),
			})
		}
		metrics.Stage2Steps.WithLabelValues(name, result).Inc()
		h.deps.Observability.RecordStep(ctx, name, result, duration)
		observability.EndSpan(span, err)
	}()
	return fn(stepCtx)
}

// Handle is the Camunda job handler of the Stage 2 service task.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Stage2Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err)))
		return
	}
	if strings.TrimSpace(input.SubmissionID) == "" {
		h.errors.HandleJobError(ctx, client, job, apperrors.NewValidationError("submissionId is required"))
		return
	}

	start := time.Now()
	status, err := h.Process(ctx, input.SubmissionID)
	metrics.Stage2Duration.WithLabelValues("camunda").Observe(time.Since(start).Seconds())
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, &Output{SubmissionID: input.SubmissionID, Stage2Status: *status})
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}
