// internal/workers/communication/send-notification/handler.go
package sendnotification

import (
	"context"
	"fmt"
	"strings"

	apperrors "assessment-pipeline/internal/common/errors"
	"assessment-pipeline/internal/common/logger"
	"assessment-pipeline/internal/common/metrics"
	"assessment-pipeline/internal/common/validation"
	"assessment-pipeline/internal/models"
)

const (
	TaskType = "send-notification"

	audienceContact = "contact"
	audienceAdmin   = "admin"
)

var (
	ErrNotificationSendFailed = apperrors.New(apperrors.ErrCodeNotificationSendFailed, "Notification delivery failed")
)

type Handler struct {
	config *Config
	mailer Mailer
	logger logger.Logger
}

func NewHandler(config *Config, mailer Mailer, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		mailer: mailer,
		logger: log.WithFields(map[string]interface{}{
			"taskType":  TaskType,
			"transport": mailer.Name(),
		}),
	}
}

// NotifyContact emails the submission's contact. It never returns an error; false means no
// message was delivered.
func (h *Handler) NotifyContact(ctx context.Context, submission *models.Submission, analysis *models.AnalysisResult, artifact *models.Artifact, downloadURL string) bool {
	log := logger.ForSubmission(h.logger, submission.ID)

	to := strings.TrimSpace(submission.ContactEmail)
	if !validation.ValidateEmail(to) {
		log.Warn("contact email is invalid, skipping", map[string]interface{}{
			"recipient": to,
		})
		metrics.NotificationsSent.WithLabelValues(audienceContact, "skipped").Inc()
		return false
	}
	if artifact == nil {
		downloadURL = ""
	}

	text, html, err := composeContact(newEmailData(submission, analysis, downloadURL))
	if err != nil {
		log.Error("failed to compose contact email", map[string]interface{}{"error": err.Error()})
		metrics.NotificationsSent.WithLabelValues(audienceContact, "failed").Inc()
		return false
	}

	msg := Message{
		To:      to,
		Subject: h.subject("Your compliance maturity assessment results"),
		Text:    text,
		HTML:    html,
	}
	if err := h.send(ctx, msg); err != nil {
		log.Error("contact notification failed", map[string]interface{}{
			"recipient": to,
			"error":     err.Error(),
		})
		metrics.NotificationsSent.WithLabelValues(audienceContact, "failed").Inc()
		return false
	}

	metrics.NotificationsSent.WithLabelValues(audienceContact, "sent").Inc()
	log.Info("contact notified", map[string]interface{}{"recipient": to})
	return true
}

// NotifyAdmins sends the same summary to every valid admin recipient, one at a time.
// Malformed addresses are skipped and failed deliveries do not stop the rest.
func (h *Handler) NotifyAdmins(ctx context.Context, submission *models.Submission, analysis *models.AnalysisResult, downloadURL string) AdminResult {
	var result AdminResult
	if !h.config.AdminEnabled {
		return result
	}
	log := logger.ForSubmission(h.logger, submission.ID)

	recipients := validation.SplitRecipients(h.config.AdminRecipients)
	if len(recipients) == 0 {
		log.Debug("no admin recipients configured", nil)
		return result
	}

	text, html, err := composeAdmin(newEmailData(submission, analysis, downloadURL))
	if err != nil {
		log.Error("failed to compose admin email", map[string]interface{}{"error": err.Error()})
		result.Failed = append(result.Failed, recipients...)
		return result
	}
	subject := h.subject(fmt.Sprintf("New assessment submission: %s (%d%%, %s)",
		submission.Organization, submission.Score.Percentage, submission.Score.MaturityTier))

	for _, to := range recipients {
		if !validation.ValidateEmail(to) {
			log.Warn("admin recipient is invalid, skipping", map[string]interface{}{"recipient": to})
			metrics.NotificationsSent.WithLabelValues(audienceAdmin, "skipped").Inc()
			result.Skipped = append(result.Skipped, to)
			continue
		}
		if err := h.send(ctx, Message{To: to, Subject: subject, Text: text, HTML: html}); err != nil {
			log.Error("admin notification failed", map[string]interface{}{
				"recipient": to,
				"error":     err.Error(),
			})
			metrics.NotificationsSent.WithLabelValues(audienceAdmin, "failed").Inc()
			result.Failed = append(result.Failed, to)
			continue
		}
		metrics.NotificationsSent.WithLabelValues(audienceAdmin, "sent").Inc()
		result.SentCount++
	}

	log.Info("admins notified", map[string]interface{}{
		"sent":    result.SentCount,
		"skipped": len(result.Skipped),
		"failed":  len(result.Failed),
	})
	return result
}

func (h *Handler) send(ctx context.Context, msg Message) error {
	sendCtx := ctx
	if h.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, h.config.SendTimeout)
		defer cancel()
	}
	if err := h.mailer.Send(sendCtx, msg); err != nil {
		return apperrors.NewNotificationSendFailedError(msg.To, err)
	}
	return nil
}
