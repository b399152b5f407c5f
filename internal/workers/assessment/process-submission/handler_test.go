package processsubmission

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"assessment-pipeline/internal/common/auth"
	"assessment-pipeline/internal/common/config"
	apperrors "assessment-pipeline/internal/common/errors"
	"assessment-pipeline/internal/common/logger"
	"assessment-pipeline/internal/models"
	generateanalysis "assessment-pipeline/internal/workers/ai-analysis/generate-analysis"
	downloadtoken "assessment-pipeline/internal/workers/assessment/download-token"
	renderreport "assessment-pipeline/internal/workers/assessment/render-report"
	sendnotification "assessment-pipeline/internal/workers/communication/send-notification"
	submissionstore "assessment-pipeline/internal/workers/data-access/submission-store"
	"assessment-pipeline/pkg/catalog"
)

// ==========================
// Test Helper Functions
// ==========================

type recordingMailer struct {
	mu   sync.Mutex
	sent []sendnotification.Message
}

func (m *recordingMailer) Name() string { return "recording" }

func (m *recordingMailer) Send(_ context.Context, msg sendnotification.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) to(addr string) []sendnotification.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sendnotification.Message
	for _, msg := range m.sent {
		if msg.To == addr {
			out = append(out, msg)
		}
	}
	return out
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (d *recordingDispatcher) Enqueue(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.ids = append(d.ids, id)
	return nil
}

type analyserFunc func(ctx context.Context, answers models.AnswerSet) models.AnalysisResult

func (f analyserFunc) Analyse(ctx context.Context, answers models.AnswerSet) models.AnalysisResult {
	return f(ctx, answers)
}

type rendererFunc func(ctx context.Context, sub *models.Submission, cat *catalog.Catalog) (*models.Artifact, error)

func (f rendererFunc) Render(ctx context.Context, sub *models.Submission, cat *catalog.Catalog) (*models.Artifact, error) {
	return f(ctx, sub, cat)
}

type failingCreateStore struct {
	*submissionstore.MemoryStore
}

func (failingCreateStore) Create(context.Context, *models.Submission) error {
	return errors.New("disk I/O error")
}

const (
	contactEmail = "sam@acme.test"
	adminEmail   = "ops@example.com"
)

type pipeline struct {
	handler    *Handler
	store      *submissionstore.MemoryStore
	mailer     *recordingMailer
	dispatcher *recordingDispatcher
	reportsDir string
}

func createTestConfig() *Config {
	return &Config{Stage2Timeout: 30 * time.Second}
}

// newPipeline wires real components: memory store, markup renderer, Redis-backed tokens and
// a recording mailer. deps fields that are set replace the defaults.
func newPipeline(t *testing.T, override Dependencies) *pipeline {
	t.Helper()
	log := logger.NewTestLogger(t)
	cat := catalog.Default()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	signer, err := auth.NewSigner("process-submission-test-secret")
	require.NoError(t, err)

	reportsDir := t.TempDir()
	renderer := renderreport.NewHandler(&renderreport.Config{
		ReportsDir:    reportsDir,
		PublicBaseURL: "https://assess.example.com/reports",
		Renderer:      config.RendererMarkup,
	}, renderreport.MarkupRenderer{}, log)

	mailer := &recordingMailer{}
	notifyCfg := sendnotification.DefaultConfig()
	notifyCfg.FromEmail = "assessments@example.com"
	notifyCfg.AdminRecipients = adminEmail

	store := submissionstore.NewMemoryStore()
	deps := Dependencies{
		Store:    store,
		Catalog:  cat,
		Analyser: generateanalysis.NewHandler(&generateanalysis.Config{}, cat, log),
		Renderer: renderer,
		Tokens: downloadtoken.NewService(&downloadtoken.Config{
			TTL:           time.Hour,
			PublicBaseURL: "https://assess.example.com",
		}, signer, rdb, log),
		Notifier: sendnotification.NewHandler(notifyCfg, mailer, log),
	}
	if override.Store != nil {
		deps.Store = override.Store
	}
	if override.Analyser != nil {
		deps.Analyser = override.Analyser
	}
	if override.Renderer != nil {
		deps.Renderer = override.Renderer
	}

	h := NewHandler(createTestConfig(), deps, log)
	d := &recordingDispatcher{}
	h.SetDispatcher(d)
	return &pipeline{handler: h, store: store, mailer: mailer, dispatcher: d, reportsDir: reportsDir}
}

func uniformAnswers(n int, code string) map[string]string {
	out := make(map[string]string, n)
	for i := 0; i < n; i++ {
		out[strconv.Itoa(i)] = code
	}
	return out
}

func validRequest(answers map[string]string) Stage1Request {
	staff := 40
	return Stage1Request{
		OrganizationName: "Acme Metals",
		StaffCount:       &staff,
		ContactName:      "Sam Lee",
		ContactEmail:     contactEmail,
		ContactPhone:     "+44 20 7946 0000",
		Answers:          answers,
	}
}

func hasCode(err error, code apperrors.ErrorCode) bool {
	return errors.Is(err, apperrors.New(code, ""))
}

// ==========================
// Stage 1
// ==========================

func TestSubmit_AllFullyImplemented(t *testing.T) {
	p := newPipeline(t, Dependencies{})

	resp, err := p.handler.Submit(t.Context(), validRequest(uniformAnswers(10, "A")))
	require.NoError(t, err)

	assert.Equal(t, 100, resp.Percentage)
	assert.Equal(t, models.TierOptimised, resp.MaturityTier)
	assert.NotEmpty(t, resp.SubmissionID)
	assert.NotEmpty(t, resp.Message)

	stored, err := p.store.Get(t.Context(), resp.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Metals", stored.Organization)
	assert.Equal(t, 40, stored.StaffCount)
	assert.Nil(t, stored.Analysis)
	assert.Len(t, stored.Answers, 10)
	assert.Equal(t, []string{resp.SubmissionID}, p.dispatcher.ids)
}

func TestSubmit_TrimsFields(t *testing.T) {
	p := newPipeline(t, Dependencies{})
	req := validRequest(uniformAnswers(10, "B"))
	req.OrganizationName = "  Acme Metals  "
	req.ContactEmail = " sam@acme.test "

	resp, err := p.handler.Submit(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, 60, resp.Percentage)

	stored, err := p.store.Get(t.Context(), resp.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Metals", stored.Organization)
	assert.Equal(t, contactEmail, stored.ContactEmail)
}

func TestSubmit_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Stage1Request)
		message string
	}{
		{name: "missing organization", mutate: func(r *Stage1Request) { r.OrganizationName = "" }, message: "organizationName"},
		{name: "blank organization", mutate: func(r *Stage1Request) { r.OrganizationName = "   " }, message: "organizationName"},
		{name: "missing contact name", mutate: func(r *Stage1Request) { r.ContactName = "" }, message: "contactName"},
		{name: "missing staff count", mutate: func(r *Stage1Request) { r.StaffCount = nil }, message: "staffCount"},
		{name: "malformed email", mutate: func(r *Stage1Request) { r.ContactEmail = "sam-at-acme" }, message: "contactEmail"},
		{name: "malformed phone", mutate: func(r *Stage1Request) { r.ContactPhone = "call me maybe" }, message: "contactPhone"},
		{name: "short phone", mutate: func(r *Stage1Request) { r.ContactPhone = "12345" }, message: "contactPhone"},
		{name: "no answers", mutate: func(r *Stage1Request) { r.Answers = nil }, message: "answers"},
		{name: "empty answers", mutate: func(r *Stage1Request) { r.Answers = map[string]string{} }, message: "answers"},
		{name: "index out of range", mutate: func(r *Stage1Request) { r.Answers["10"] = "A" }, message: "answers.10"},
		{name: "unknown code", mutate: func(r *Stage1Request) { r.Answers["3"] = "D" }, message: "answers.3"},
		{name: "non numeric key", mutate: func(r *Stage1Request) { r.Answers["q1"] = "A" }, message: "answers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, Dependencies{})
			req := validRequest(uniformAnswers(10, "A"))
			tt.mutate(&req)

			resp, err := p.handler.Submit(t.Context(), req)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, hasCode(err, apperrors.ErrCodeValidationFailed), err.Error())

			se, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Contains(t, se.Details, tt.message)
			assert.Empty(t, p.dispatcher.ids)
		})
	}
}

func TestSubmit_PersistenceFailure(t *testing.T) {
	p := newPipeline(t, Dependencies{
		Store: failingCreateStore{MemoryStore: submissionstore.NewMemoryStore()},
	})

	resp, err := p.handler.Submit(t.Context(), validRequest(uniformAnswers(10, "A")))
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, hasCode(err, apperrors.ErrCodePersistenceFailed))
	assert.Empty(t, p.dispatcher.ids)
}

func TestSubmit_EnqueueFailureIsNotFatal(t *testing.T) {
	p := newPipeline(t, Dependencies{})
	p.dispatcher.err = ErrQueueFull

	resp, err := p.handler.Submit(t.Context(), validRequest(uniformAnswers(10, "C")))
	require.NoError(t, err)

	_, err = p.store.Get(t.Context(), resp.SubmissionID)
	assert.NoError(t, err)
}

func TestSubmit_WithoutDispatcher(t *testing.T) {
	p := newPipeline(t, Dependencies{})
	p.handler.SetDispatcher(nil)

	_, err := p.handler.Submit(t.Context(), validRequest(uniformAnswers(10, "A")))
	assert.NoError(t, err)
}

// ==========================
// Stage 2
// ==========================

func TestProcess_NoProvidersStillDelivers(t *testing.T) {
	p := newPipeline(t, Dependencies{})

	resp, err := p.handler.Submit(t.Context(), validRequest(uniformAnswers(10, "C")))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Percentage)
	assert.Equal(t, models.TierInitial, resp.MaturityTier)

	status, err := p.handler.Process(t.Context(), resp.SubmissionID)
	require.NoError(t, err)

	assert.False(t, status.AnalysisGenerated)
	assert.True(t, status.ArtifactGenerated)
	assert.True(t, status.ContactNotified)
	assert.True(t, status.AdminsNotified)
	assert.GreaterOrEqual(t, status.ElapsedMs, int64(0))
	assert.True(t, strings.HasPrefix(status.ArtifactURL, "https://assess.example.com/reports/"))

	stored, err := p.store.Get(t.Context(), resp.SubmissionID)
	require.NoError(t, err)
	require.NotNil(t, stored.Analysis)
	assert.NotEmpty(t, stored.Analysis.NarrativeText)
	assert.False(t, stored.Analysis.WasGeneratedByProvider)
	assert.Equal(t, status.ArtifactURL, stored.ArtifactURL)

	rel := strings.TrimPrefix(status.ArtifactURL, "https://assess.example.com/reports/")
	data, err := os.ReadFile(p.reportsDir + "/" + rel)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	contact := p.mailer.to(contactEmail)
	require.Len(t, contact, 1)
	assert.Contains(t, contact[0].Text, "https://assess.example.com/download?token=")
	assert.Len(t, p.mailer.to(adminEmail), 1)
}

func TestProcess_RunTwiceProducesNewArtifact(t *testing.T) {
	p := newPipeline(t, Dependencies{})

	resp, err := p.handler.Submit(t.Context(), validRequest(uniformAnswers(10, "B")))
	require.NoError(t, err)

	first, err := p.handler.Process(t.Context(), resp.SubmissionID)
	require.NoError(t, err)
	second, err := p.handler.Process(t.Context(), resp.SubmissionID)
	require.NoError(t, err)

	assert.NotEqual(t, first.ArtifactURL, second.ArtifactURL)

	stored, err := p.store.Get(t.Context(), resp.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, resp.Percentage, stored.Score.Percentage)
	assert.Equal(t, resp.MaturityTier, stored.Score.MaturityTier)
	assert.Equal(t, second.ArtifactURL, stored.ArtifactURL)
	assert.Len(t, p.mailer.to(contactEmail), 2)
}

func TestProcess_ProviderNarrative(t *testing.T) {
	p := newPipeline(t, Dependencies{
		Analyser: analyserFunc(func(context.Context, models.AnswerSet) models.AnalysisResult {
			return models.AnalysisResult{
				NarrativeText:          "Key Insights:\nStrong governance.",
				WasGeneratedByProvider: true,
				ProviderUsed:           "primary",
			}
		}),
	})
	resp, err := p.handler.Submit(t.Context(), validRequest(uniformAnswers(10, "A")))
	require.NoError(t, err)

	status, err := p.handler.Process(t.Context(), resp.SubmissionID)
	require.NoError(t, err)
	assert.True(t, status.AnalysisGenerated)

	stored, err := p.store.Get(t.Context(), resp.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, "primary", stored.Analysis.ProviderUsed)
}

func TestProcess_RenderFailureContinues(t *testing.T) {
	tests := []struct {
		name   string
		render rendererFunc
	}{
		{
			name: "error",
			render: func(context.Context, *models.Submission, *catalog.Catalog) (*models.Artifact, error) {
				return nil, renderreport.ErrRenderFailed
			},
		},
		{
			name: "panic",
			render: func(context.Context, *models.Submission, *catalog.Catalog) (*models.Artifact, error) {
				panic("renderer crashed")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, Dependencies{Renderer: tt.render})
			resp, err := p.handler.Submit(t.Context(), validRequest(uniformAnswers(10, "A")))
			require.NoError(t, err)

			status, err := p.handler.Process(t.Context(), resp.SubmissionID)
			require.NoError(t, err)
			assert.False(t, status.ArtifactGenerated)
			assert.Empty(t, status.ArtifactURL)
			assert.True(t, status.ContactNotified)

			contact := p.mailer.to(contactEmail)
			require.Len(t, contact, 1)
			assert.NotContains(t, contact[0].Text, "/download?token=")

			stored, err := p.store.Get(t.Context(), resp.SubmissionID)
			require.NoError(t, err)
			assert.NotNil(t, stored.Analysis)
			assert.Empty(t, stored.ArtifactURL)
		})
	}
}

func TestProcess_StepFailureLogsErrorCode(t *testing.T) {
	p := newPipeline(t, Dependencies{Renderer: rendererFunc(
		func(context.Context, *models.Submission, *catalog.Catalog) (*models.Artifact, error) {
			return nil, apperrors.NewRenderError(errors.New("chrome exited"))
		})})
	core, logs := observer.New(zap.WarnLevel)
	p.handler.logger = logger.NewZapAdapter(zap.New(core))

	resp, err := p.handler.Submit(t.Context(), validRequest(uniformAnswers(10, "A")))
	require.NoError(t, err)
	_, err = p.handler.Process(t.Context(), resp.SubmissionID)
	require.NoError(t, err)

	failed := logs.FilterMessage("stage 2 step failed").All()
	require.Len(t, failed, 1)
	fields := failed[0].ContextMap()
	assert.Equal(t, "render", fields["step"])
	assert.Equal(t, string(apperrors.ErrCodeRenderFailed), fields["errorCode"])
	assert.Contains(t, fields["error"], "chrome exited")
}

func TestSubmit_AcceptsCommonPhoneFormats(t *testing.T) {
	phones := []string{"", "+1 (555) 010-0199", "020 7946 0000", "  +4420794600  "}
	for _, phone := range phones {
		t.Run(phone, func(t *testing.T) {
			p := newPipeline(t, Dependencies{})
			req := validRequest(uniformAnswers(10, "A"))
			req.ContactPhone = phone

			_, err := p.handler.Submit(t.Context(), req)
			require.NoError(t, err)
		})
	}
}

func TestProcess_UnknownSubmission(t *testing.T) {
	p := newPipeline(t, Dependencies{})

	status, err := p.handler.Process(t.Context(), "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.Nil(t, status)
	assert.True(t, hasCode(err, apperrors.ErrCodeSubmissionNotFound))
	assert.Empty(t, p.mailer.sent)
}

func TestProcess_CancelledContext(t *testing.T) {
	p := newPipeline(t, Dependencies{})
	resp, err := p.handler.Submit(t.Context(), validRequest(uniformAnswers(10, "A")))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	status, err := p.handler.Process(ctx, resp.SubmissionID)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, status)
	assert.Empty(t, p.mailer.sent)
}

func TestProcess_SerializedPerSubmission(t *testing.T) {
	var mu sync.Mutex
	active, maxActive := 0, 0
	p := newPipeline(t, Dependencies{
		Analyser: analyserFunc(func(context.Context, models.AnswerSet) models.AnalysisResult {
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			return models.AnalysisResult{NarrativeText: "Overview:\nok"}
		}),
	})
	resp, err := p.handler.Submit(t.Context(), validRequest(uniformAnswers(10, "A")))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.handler.Process(context.Background(), resp.SubmissionID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
}
