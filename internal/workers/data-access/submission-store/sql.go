package submissionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"assessment-pipeline/internal/common/database"
	"assessment-pipeline/internal/common/logger"
	"assessment-pipeline/internal/models"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var numberedPlaceholder = regexp.MustCompile(`\$\d+`)

// SQLStore persists submissions in PostgreSQL or SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	logger  logger.Logger
	now     func() time.Time
}

func NewSQLStore(db *sql.DB, dialect Dialect, log logger.Logger) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
			"backend":  string(dialect),
		}),
		now: time.Now,
	}
}

// EnsureSchema creates the submissions table when missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create table %s: %w", tableName, err)
	}
	return nil
}

func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectSQLite {
		return query
	}
	return numberedPlaceholder.ReplaceAllString(query, "?")
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	var res sql.Result
	op := func() error {
		var err error
		res, err = s.db.ExecContext(ctx, s.rebind(query), args...)
		return err
	}
	if s.dialect == DialectSQLite {
		return res, database.RetryOnBusy(ctx, op)
	}
	return res, op()
}

func (s *SQLStore) Create(ctx context.Context, sub *models.Submission) error {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return fmt.Errorf("%w: encode answers: %v", ErrPersistenceFailed, err)
	}
	var analysis sql.NullString
	if sub.Analysis != nil {
		raw, err := json.Marshal(sub.Analysis)
		if err != nil {
			return fmt.Errorf("%w: encode analysis: %v", ErrPersistenceFailed, err)
		}
		analysis = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = s.exec(ctx, insertSubmissionSQL,
		sub.ID, sub.Organization, sub.StaffCount, sub.ContactName, sub.ContactEmail, sub.ContactPhone,
		string(answers), sub.Score.Percentage, string(sub.Score.MaturityTier), analysis, sub.ArtifactURL,
		sub.DownloadCount, sub.CreatedAt.UTC(), sub.UpdatedAt.UTC(),
	)
	if err != nil {
		s.logger.Error("failed to insert submission", map[string]interface{}{
			"submissionId": sub.ID,
			"error":        err.Error(),
		})
		return fmt.Errorf("%w: insert submission: %v", ErrPersistenceFailed, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*models.Submission, error) {
	var (
		sub      models.Submission
		answers  string
		tier     string
		analysis sql.NullString
	)
	err := s.db.QueryRowContext(ctx, s.rebind(selectSubmissionSQL), id).Scan(
		&sub.ID, &sub.Organization, &sub.StaffCount, &sub.ContactName, &sub.ContactEmail, &sub.ContactPhone,
		&answers, &sub.Score.Percentage, &tier, &analysis, &sub.ArtifactURL, &sub.DownloadCount,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
		}
		return nil, fmt.Errorf("%w: select submission: %v", ErrPersistenceFailed, err)
	}

	sub.Score.MaturityTier = models.MaturityTier(tier)
	if err := json.Unmarshal([]byte(answers), &sub.Answers); err != nil {
		return nil, fmt.Errorf("%w: decode answers: %v", ErrPersistenceFailed, err)
	}
	if analysis.Valid && strings.TrimSpace(analysis.String) != "" {
		var a models.AnalysisResult
		if err := json.Unmarshal([]byte(analysis.String), &a); err != nil {
			return nil, fmt.Errorf("%w: decode analysis: %v", ErrPersistenceFailed, err)
		}
		sub.Analysis = &a
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.UpdatedAt.UTC()
	return &sub, nil
}

func (s *SQLStore) UpdateAnalysis(ctx context.Context, id string, analysis models.AnalysisResult) error {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("%w: encode analysis: %v", ErrPersistenceFailed, err)
	}
	return s.update(ctx, "analysis", updateAnalysisSQL, id, string(raw), s.now().UTC(), id)
}

func (s *SQLStore) UpdateArtifactURL(ctx context.Context, id, artifactURL string) error {
	return s.update(ctx, "artifact_url", updateArtifactURLSQL, id, artifactURL, s.now().UTC(), id)
}

func (s *SQLStore) IncrementDownloadCount(ctx context.Context, id string) error {
	return s.update(ctx, "download_count", incrementDownloadCountSQL, id, s.now().UTC(), id)
}

func (s *SQLStore) update(ctx context.Context, field, query, id string, args ...interface{}) error {
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to update submission", map[string]interface{}{
			"submissionId": id,
			"field":        field,
			"error":        err.Error(),
		})
		return fmt.Errorf("%w: update %s: %v", ErrPersistenceFailed, field, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update %s: %v", ErrPersistenceFailed, field, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	return nil
}
