// Package submissionstore persists submissions as key-addressed records.
package submissionstore

import (
	"context"
	"errors"

	"assessment-pipeline/internal/models"
)

const (
	TaskType = "submission-store"
)

var (
	ErrSubmissionNotFound = errors.New("SUBMISSION_NOT_FOUND")
	ErrPersistenceFailed  = errors.New("PERSISTENCE_FAILED")
	ErrDuplicateID        = errors.New("DUPLICATE_SUBMISSION_ID")
)

// Store is implemented by every backend. Updates touch a single field of one record.
type Store interface {
	Create(ctx context.Context, submission *models.Submission) error
	Get(ctx context.Context, id string) (*models.Submission, error)
	UpdateAnalysis(ctx context.Context, id string, analysis models.AnalysisResult) error
	UpdateArtifactURL(ctx context.Context, id, artifactURL string) error
	IncrementDownloadCount(ctx context.Context, id string) error
}

func clone(s *models.Submission) *models.Submission {
	out := *s
	if s.Answers != nil {
		out.Answers = make(models.AnswerSet, len(s.Answers))
		for k, v := range s.Answers {
			out.Answers[k] = v
		}
	}
	if s.Analysis != nil {
		a := *s.Analysis
		out.Analysis = &a
	}
	return &out
}
