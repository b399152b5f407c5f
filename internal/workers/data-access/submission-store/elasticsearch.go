package submissionstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"assessment-pipeline/internal/common/logger"
	"assessment-pipeline/internal/models"
)

// IndexMapping is applied when the submissions index is created.
const IndexMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "organization":  {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "staffCount":    {"type": "integer"},
      "contactName":   {"type": "text"},
      "contactEmail":  {"type": "keyword"},
      "contactPhone":  {"type": "keyword"},
      "answers":       {"type": "object", "enabled": false},
      "score": {
        "properties": {
          "percentage":   {"type": "integer"},
          "maturityTier": {"type": "keyword"}
        }
      },
      "analysis":      {"type": "object", "enabled": false},
      "artifactUrl":   {"type": "keyword", "index": false},
      "downloadCount": {"type": "integer"},
      "createdAt":     {"type": "date"},
      "updatedAt":     {"type": "date"}
    }
  }
}`

// ElasticsearchStore keeps one document per submission, keyed by submission id.
type ElasticsearchStore struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
	now    func() time.Time
}

func NewElasticsearchStore(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchStore {
	return &ElasticsearchStore{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
			"backend":  "elasticsearch",
		}),
		now: time.Now,
	}
}

func (s *ElasticsearchStore) Create(ctx context.Context, sub *models.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("%w: encode submission: %v", ErrPersistenceFailed, err)
	}

	res, err := s.client.Create(s.index, sub.ID, bytes.NewReader(body),
		s.client.Create.WithContext(ctx),
		s.client.Create.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("%w: create document: %v", ErrPersistenceFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusConflict {
		return fmt.Errorf("%w: %s", ErrDuplicateID, sub.ID)
	}
	if res.IsError() {
		s.logger.Error("failed to create submission document", map[string]interface{}{
			"submissionId": sub.ID,
			"status":       res.Status(),
		})
		return fmt.Errorf("%w: create document: %s", ErrPersistenceFailed, errorReason(res))
	}
	return nil
}

func (s *ElasticsearchStore) Get(ctx context.Context, id string) (*models.Submission, error) {
	res, err := s.client.Get(s.index, id, s.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: get document: %v", ErrPersistenceFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: get document: %s", ErrPersistenceFailed, errorReason(res))
	}

	var doc struct {
		Found  bool              `json:"found"`
		Source models.Submission `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode document: %v", ErrPersistenceFailed, err)
	}
	if !doc.Found {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	return &doc.Source, nil
}

func (s *ElasticsearchStore) UpdateAnalysis(ctx context.Context, id string, analysis models.AnalysisResult) error {
	return s.update(ctx, id, "analysis", map[string]interface{}{
		"doc": map[string]interface{}{"analysis": analysis, "updatedAt": s.now().UTC()},
	})
}

func (s *ElasticsearchStore) UpdateArtifactURL(ctx context.Context, id, artifactURL string) error {
	return s.update(ctx, id, "artifactUrl", map[string]interface{}{
		"doc": map[string]interface{}{"artifactUrl": artifactURL, "updatedAt": s.now().UTC()},
	})
}

func (s *ElasticsearchStore) IncrementDownloadCount(ctx context.Context, id string) error {
	return s.update(ctx, id, "downloadCount", map[string]interface{}{
		"script": map[string]interface{}{
			"source": "ctx._source.downloadCount += 1; ctx._source.updatedAt = params.now",
			"lang":   "painless",
			"params": map[string]interface{}{"now": s.now().UTC()},
		},
	})
}

func (s *ElasticsearchStore) update(ctx context.Context, id, field string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode update: %v", ErrPersistenceFailed, err)
	}

	res, err := s.client.Update(s.index, id, bytes.NewReader(body),
		s.client.Update.WithContext(ctx),
		s.client.Update.WithRetryOnConflict(3),
		s.client.Update.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("%w: update %s: %v", ErrPersistenceFailed, field, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	if res.IsError() {
		s.logger.Error("failed to update submission document", map[string]interface{}{
			"submissionId": id,
			"field":        field,
			"status":       res.Status(),
		})
		return fmt.Errorf("%w: update %s: %s", ErrPersistenceFailed, field, errorReason(res))
	}
	return nil
}

func errorReason(res *esapi.Response) string {
	data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	var e struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error.Reason != "" {
		return e.Error.Type + ": " + e.Error.Reason
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return res.Status() + " " + s
	}
	return res.Status()
}
