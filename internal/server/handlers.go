package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"assessment-pipeline/internal/common/auth"
	apperrors "assessment-pipeline/internal/common/errors"
	"assessment-pipeline/internal/common/logger"
	"assessment-pipeline/internal/common/metrics"
	"assessment-pipeline/internal/models"
	downloadtoken "assessment-pipeline/internal/workers/assessment/download-token"
	processsubmission "assessment-pipeline/internal/workers/assessment/process-submission"
)

type processRequest struct {
	SubmissionID string `json:"submissionId"`
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	checks := make(map[string]string, len(s.deps.HealthChecks))
	for name, check := range s.deps.HealthChecks {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.HealthCheckTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status, code = "unhealthy", http.StatusServiceUnavailable
			s.logger.Warn("health check failed", map[string]interface{}{"check": name, "error": err.Error()})
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req processsubmission.Stage1Request
	if err := s.decode(w, r, &req); err != nil {
		s.errors.WriteHTTPError(w, r, err)
		return
	}

	resp, err := s.deps.Coordinator.Submit(r.Context(), req)
	if err != nil {
		s.errors.WriteHTTPError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleProcess reruns Stage 2 synchronously. The caller must hold a process token minted for
// the submission id.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := s.decode(w, r, &req); err != nil {
		s.errors.WriteHTTPError(w, r, err)
		return
	}
	req.SubmissionID = strings.TrimSpace(req.SubmissionID)
	if req.SubmissionID == "" {
		s.errors.WriteHTTPError(w, r, apperrors.NewValidationError("submissionId is required"))
		return
	}

	claims, err := s.deps.Signer.Verify(auth.PurposeProcess, r.Header.Get(ProcessTokenHeader))
	if err != nil {
		s.errors.WriteHTTPError(w, r, apperrors.NewTokenInvalidError(err))
		return
	}
	if claims.Subject != req.SubmissionID {
		s.errors.WriteHTTPError(w, r, apperrors.NewTokenInvalidError(errors.New("token was issued for another submission")))
		return
	}

	// a dropped connection must not abort a half-finished run
	status, err := s.deps.Coordinator.Process(context.WithoutCancel(r.Context()), req.SubmissionID)
	if err != nil {
		s.errors.WriteHTTPError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: status})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	res, err := s.deps.Tokens.Resolve(r.Context(), token)
	switch {
	case errors.Is(err, downloadtoken.ErrTokenNotFound):
		metrics.Downloads.WithLabelValues("not_found").Inc()
		writePage(w, apperrors.HTTPStatus(apperrors.ErrCodeTokenNotFound), notFoundPage)
		return
	case errors.Is(err, downloadtoken.ErrTokenExpired):
		metrics.Downloads.WithLabelValues("expired").Inc()
		writePage(w, apperrors.HTTPStatus(apperrors.ErrCodeTokenExpired), expiredPage)
		return
	case err != nil:
		metrics.Downloads.WithLabelValues("error").Inc()
		s.logger.Error("download token lookup failed", map[string]interface{}{"error": err.Error()})
		writePage(w, http.StatusInternalServerError, unavailablePage)
		return
	}

	log := logger.ForSubmission(s.logger, res.SubmissionID)
	f, err := os.Open(res.Path)
	if err != nil {
		metrics.Downloads.WithLabelValues("not_found").Inc()
		log.Warn("report file missing", map[string]interface{}{
			"path":  res.Path,
			"error": err.Error(),
		})
		writePage(w, http.StatusNotFound, notFoundPage)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		metrics.Downloads.WithLabelValues("error").Inc()
		writePage(w, http.StatusInternalServerError, unavailablePage)
		return
	}

	artifact := artifactFor(res.Path)
	disposition := "inline"
	if artifact.MediaType == models.MediaDocument {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", artifact.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, downloadName(res.SubmissionID, res.Path)))
	w.Header().Set("Cache-Control", "private, no-store")

	if err := s.deps.Downloads.IncrementDownloadCount(r.Context(), res.SubmissionID); err != nil {
		log.Warn("failed to count download", map[string]interface{}{"error": err.Error()})
	}
	metrics.Downloads.WithLabelValues("served").Inc()
	http.ServeContent(w, r, filepath.Base(res.Path), info.ModTime(), f)
}

func artifactFor(path string) models.Artifact {
	a := models.Artifact{Path: path, MediaType: models.MediaFallbackText}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		a.MediaType = models.MediaDocument
	}
	return a
}

func downloadName(submissionID, path string) string {
	id := strings.ReplaceAll(submissionID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return "assessment-report-" + id + strings.ToLower(filepath.Ext(path))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("request body must be a JSON object: %v", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
