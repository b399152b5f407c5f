package sendnotification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assessment-pipeline/internal/common/config"
	apperrors "assessment-pipeline/internal/common/errors"
	"assessment-pipeline/internal/common/logger"
	"assessment-pipeline/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type recordingMailer struct {
	mu     sync.Mutex
	sent   []Message
	failOn map[string]bool
}

func (m *recordingMailer) Name() string { return "recording" }

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[msg.To] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

func createTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.FromEmail = "assessments@example.com"
	cfg.FromName = "Assessments"
	cfg.SMTP.Host = "smtp.example.com"
	cfg.AdminRecipients = "ops@example.com"
	return cfg
}

func sampleSubmission() *models.Submission {
	return &models.Submission{
		ID:           "sub-123",
		Organization: "Acme Metals",
		StaffCount:   40,
		ContactName:  "Sam Lee",
		ContactEmail: "sam@acme.test",
		ContactPhone: "+44 20 7946 0000",
		Score:        models.ScoreResult{Percentage: 62, MaturityTier: models.TierEstablished},
	}
}

func sampleAnalysis() *models.AnalysisResult {
	return &models.AnalysisResult{
		NarrativeText:          "Key Insights:\nSolid policies.\n\nQuick Wins:\nAdd supplier clauses.",
		WasGeneratedByProvider: true,
		ProviderUsed:           "provider-2",
	}
}

// ==========================
// NotifyContact
// ==========================

func TestNotifyContact(t *testing.T) {
	mailer := &recordingMailer{}
	cfg := createTestConfig()
	cfg.SubjectPrefix = "[ESG]"
	h := NewHandler(cfg, mailer, logger.NewTestLogger(t))

	ok := h.NotifyContact(context.Background(), sampleSubmission(), sampleAnalysis(),
		&models.Artifact{Path: "/r.pdf", MediaType: models.MediaDocument}, "https://x.test/download?token=abc")

	require.True(t, ok)
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "sam@acme.test", msg.To)
	assert.Equal(t, "[ESG] Your compliance maturity assessment results", msg.Subject)
	assert.Contains(t, msg.Text, "Dear Sam Lee")
	assert.Contains(t, msg.Text, "62% - Established (50–74%)")
	assert.Contains(t, msg.Text, "KEY INSIGHTS\nSolid policies.")
	assert.Contains(t, msg.Text, "QUICK WINS\nAdd supplier clauses.")
	assert.Contains(t, msg.Text, "https://x.test/download?token=abc")
	assert.Contains(t, msg.HTML, "<h3>Key Insights</h3>")
	assert.Contains(t, msg.HTML, `href="https://x.test/download?token=abc"`)
}

func TestNotifyContact_WithoutArtifactOmitsLink(t *testing.T) {
	mailer := &recordingMailer{}
	h := NewHandler(createTestConfig(), mailer, logger.NewNoOpLogger())

	ok := h.NotifyContact(context.Background(), sampleSubmission(), sampleAnalysis(), nil, "https://x.test/download?token=abc")

	require.True(t, ok)
	assert.NotContains(t, mailer.sent[0].Text, "token=abc")
	assert.Contains(t, mailer.sent[0].Text, "not available yet")
}

func TestNotifyContact_Failures(t *testing.T) {
	tests := []struct {
		name  string
		email string
		fail  bool
	}{
		{name: "invalid address", email: "not-an-email"},
		{name: "transport error", email: "sam@acme.test", fail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &recordingMailer{failOn: map[string]bool{tt.email: tt.fail}}
			h := NewHandler(createTestConfig(), mailer, logger.NewNoOpLogger())
			sub := sampleSubmission()
			sub.ContactEmail = tt.email

			assert.False(t, h.NotifyContact(context.Background(), sub, sampleAnalysis(), nil, ""))
			assert.Empty(t, mailer.sent)
		})
	}
}

// ==========================
// NotifyAdmins
// ==========================

func TestNotifyAdmins_SkipsMalformedRecipients(t *testing.T) {
	mailer := &recordingMailer{}
	cfg := createTestConfig()
	cfg.AdminRecipients = "a@example.com, bogus; c@example.com"
	h := NewHandler(cfg, mailer, logger.NewTestLogger(t))

	result := h.NotifyAdmins(context.Background(), sampleSubmission(), sampleAnalysis(), "https://x.test/d")

	assert.Equal(t, 2, result.SentCount)
	assert.Equal(t, []string{"bogus"}, result.Skipped)
	assert.Empty(t, result.Failed)
	assert.True(t, result.Notified())
	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "a@example.com", mailer.sent[0].To)
	assert.Equal(t, "c@example.com", mailer.sent[1].To)
	assert.Equal(t, mailer.sent[0].Text, mailer.sent[1].Text)
	assert.Contains(t, mailer.sent[0].Subject, "Acme Metals (62%, Established)")
	assert.Contains(t, mailer.sent[0].Text, "Analysis: generated by provider-2")
}

func TestNotifyAdmins_FailureDoesNotStopOthers(t *testing.T) {
	mailer := &recordingMailer{failOn: map[string]bool{"a@example.com": true}}
	cfg := createTestConfig()
	cfg.AdminRecipients = "a@example.com;b@example.com"
	h := NewHandler(cfg, mailer, logger.NewNoOpLogger())

	result := h.NotifyAdmins(context.Background(), sampleSubmission(), nil, "")

	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, []string{"a@example.com"}, result.Failed)
	assert.Contains(t, mailer.sent[0].Text, "Analysis: templated summary")
}

func TestNotifyAdmins_DisabledOrEmpty(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		recipients string
	}{
		{name: "disabled", enabled: false, recipients: "a@example.com"},
		{name: "no recipients", enabled: true, recipients: " ; "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &recordingMailer{}
			cfg := createTestConfig()
			cfg.AdminEnabled = tt.enabled
			cfg.AdminRecipients = tt.recipients
			h := NewHandler(cfg, mailer, logger.NewNoOpLogger())

			result := h.NotifyAdmins(context.Background(), sampleSubmission(), sampleAnalysis(), "")

			assert.Equal(t, AdminResult{}, result)
			assert.Empty(t, mailer.sent)
		})
	}
}

// ==========================
// Transports
// ==========================

func TestSESMailer_Send(t *testing.T) {
	var captured *ses.SendEmailInput
	svc := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			captured = params
			return &ses.SendEmailOutput{}, nil
		},
	}
	m := NewSESMailer(svc, createTestConfig())

	err := m.Send(context.Background(), Message{To: "x@example.com", Subject: "Hi", Text: "plain", HTML: "<p>rich</p>"})

	require.NoError(t, err)
	assert.Equal(t, []string{"x@example.com"}, captured.Destination.ToAddresses)
	assert.Equal(t, "Hi", *captured.Message.Subject.Data)
	assert.Equal(t, "plain", *captured.Message.Body.Text.Data)
	assert.Equal(t, "<p>rich</p>", *captured.Message.Body.Html.Data)
	assert.Equal(t, `"Assessments" <assessments@example.com>`, *captured.Source)
}

func TestSESMailer_PropagatesError(t *testing.T) {
	svc := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	h := NewHandler(createTestConfig(), NewSESMailer(svc, createTestConfig()), logger.NewNoOpLogger())

	assert.False(t, h.NotifyContact(context.Background(), sampleSubmission(), sampleAnalysis(), nil, ""))
}

func TestSend_FailureCarriesRecipient(t *testing.T) {
	mailer := &recordingMailer{failOn: map[string]bool{"sam@acme.test": true}}
	h := NewHandler(createTestConfig(), mailer, logger.NewNoOpLogger())

	err := h.send(context.Background(), Message{To: "sam@acme.test", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotificationSendFailed)

	se, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, se.Code)
	assert.Equal(t, "sam@acme.test", se.Metadata["recipient"])
	assert.Equal(t, "mailbox unavailable", se.Details)
}

func TestSMTPMailer_BuildMessage(t *testing.T) {
	m := NewSMTPMailer(createTestConfig())
	m.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	raw, err := m.buildMessage(Message{To: "x@example.com", Subject: "Résultats", Text: "plain body", HTML: "<p>rich</p>"})
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "From: \"Assessments\" <assessments@example.com>\r\n")
	assert.Contains(t, s, "To: x@example.com\r\n")
	assert.Contains(t, s, "Subject: =?utf-8?q?R=C3=A9sultats?=\r\n")
	assert.Contains(t, s, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, s, "plain body")
	assert.Contains(t, s, "<p>rich</p>")
	assert.True(t, strings.Index(s, "text/plain") < strings.Index(s, "text/html"))
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	m := NewSMTPMailer(createTestConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, m.Send(ctx, Message{To: "x@example.com"}))
}

// ==========================
// Config
// ==========================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid smtp", mutate: func(c *Config) {}},
		{name: "valid ses", mutate: func(c *Config) { c.Transport = config.TransportSES; c.AWSRegion = "eu-west-1" }},
		{name: "ses without region", mutate: func(c *Config) { c.Transport = config.TransportSES }, wantErr: "aws region"},
		{name: "smtp without host", mutate: func(c *Config) { c.SMTP.Host = "" }, wantErr: "smtp host"},
		{name: "bad port", mutate: func(c *Config) { c.SMTP.Port = 70000 }, wantErr: "smtp port"},
		{name: "unknown transport", mutate: func(c *Config) { c.Transport = "pigeon" }, wantErr: "unknown mail transport"},
		{name: "no sender", mutate: func(c *Config) { c.FromEmail = "" }, wantErr: "from_email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_AdminToggle(t *testing.T) {
	disabled := false
	tests := []struct {
		name    string
		toggle  *bool
		enabled bool
	}{
		{name: "absent key enables", toggle: nil, enabled: true},
		{name: "explicit false disables", toggle: &disabled, enabled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Notifications.AdminEnabled = tt.toggle
			assert.Equal(t, tt.enabled, LoadConfig(cfg).AdminEnabled)
		})
	}
}
