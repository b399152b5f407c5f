// internal/workers/assessment/download-token/service.go
package downloadtoken

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"assessment-pipeline/internal/common/auth"
	apperrors "assessment-pipeline/internal/common/errors"
	"assessment-pipeline/internal/common/logger"
)

const (
	TaskType = "download-token"
)

var (
	ErrTokenNotFound    = apperrors.New(apperrors.ErrCodeTokenNotFound, "Download link is invalid or no longer available")
	ErrTokenExpired     = apperrors.New(apperrors.ErrCodeTokenExpired, "Download link has expired")
	ErrTokenStoreFailed = errors.New("TOKEN_STORE_FAILED")
)

type Service struct {
	config *Config
	signer *auth.Signer
	redis  *redis.Client
	logger logger.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(config *Config, signer *auth.Signer, rdb *redis.Client, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		config: config,
		signer: signer,
		redis:  rdb,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue mints a token bound to the contact email and artifact path. ttl <= 0 uses the configured lifetime.
func (s *Service) Issue(ctx context.Context, submissionID, contactEmail, artifactPath string, ttl time.Duration) (*DownloadToken, error) {
	if ttl <= 0 {
		ttl = s.config.TTL
	}
	token, claims, err := s.signer.Issue(auth.PurposeDownload, submissionID, contactEmail, ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenStoreFailed, err)
	}

	rec := record{
		SubmissionID: submissionID,
		BoundPath:    artifactPath,
		ContactEmail: contactEmail,
		ExpiresAt:    claims.Expiry(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenStoreFailed, err)
	}
	if err := s.redis.Set(ctx, recordKey(token), data, ttl+RecordGrace).Err(); err != nil {
		s.logger.Error("failed to store download token", map[string]interface{}{
			"submissionId": submissionID,
			"error":        err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrTokenStoreFailed, err)
	}

	return &DownloadToken{
		Token:        token,
		SubmissionID: submissionID,
		BoundPath:    artifactPath,
		ContactEmail: contactEmail,
		ExpiresAt:    rec.ExpiresAt,
	}, nil
}

// Resolve looks a token up. Unknown, forged or foreign tokens are ErrTokenNotFound; a token past
// its expiry is ErrTokenExpired and its record is removed, so a second attempt is ErrTokenNotFound.
func (s *Service) Resolve(ctx context.Context, token string) (*Resolution, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewTokenNotFoundError()
	}

	claims, err := s.signer.Verify(auth.PurposeDownload, token)
	if err != nil && !errors.Is(err, auth.ErrExpiredToken) {
		return nil, apperrors.NewTokenNotFoundError()
	}

	key := recordKey(token)
	raw, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NewTokenNotFoundError()
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenStoreFailed, err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, apperrors.NewTokenNotFoundError()
	}
	if rec.SubmissionID != claims.Subject || !s.signer.MatchesBinding(claims, rec.ContactEmail) {
		return nil, apperrors.NewTokenNotFoundError()
	}

	if !rec.ExpiresAt.IsZero() && !s.now().Before(rec.ExpiresAt) {
		if err := s.redis.Del(ctx, key).Err(); err != nil {
			s.logger.Warn("failed to delete expired download token", map[string]interface{}{
				"submissionId": rec.SubmissionID,
				"error":        err.Error(),
			})
		}
		return nil, apperrors.NewTokenExpiredError()
	}

	return &Resolution{
		SubmissionID: rec.SubmissionID,
		Path:         rec.BoundPath,
		ContactEmail: rec.ContactEmail,
		ExpiresAt:    rec.ExpiresAt,
	}, nil
}

// DownloadURL is the public link for token.
func (s *Service) DownloadURL(token string) string {
	return strings.TrimRight(s.config.PublicBaseURL, "/") + "/download?token=" + url.QueryEscape(token)
}

func recordKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}
