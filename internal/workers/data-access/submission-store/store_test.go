package submissionstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assessment-pipeline/internal/common/config"
	"assessment-pipeline/internal/common/database"
	"assessment-pipeline/internal/common/logger"
	"assessment-pipeline/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func sampleSubmission(id string) *models.Submission {
	created := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	return &models.Submission{
		ID:           id,
		Organization: "Acme Metals",
		StaffCount:   40,
		ContactName:  "Sam Lee",
		ContactEmail: "sam@acme.test",
		ContactPhone: "+44 20 7946 0000",
		Answers:      models.AnswerSet{0: models.AnswerFull, 3: models.AnswerPartial},
		Score:        models.ScoreResult{Percentage: 16, MaturityTier: models.TierInitial},
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	client, err := database.NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "store.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewSQLStore(client.DB, DialectSQLite, logger.NewTestLogger(t))
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

// exerciseStore runs the shared contract against any backend.
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	sub := sampleSubmission("sub-1")

	require.NoError(t, store.Create(ctx, sub))

	got, err := store.Get(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Metals", got.Organization)
	assert.Equal(t, sub.Answers, got.Answers)
	assert.Equal(t, sub.Score, got.Score)
	assert.Nil(t, got.Analysis)
	assert.Empty(t, got.ArtifactURL)
	assert.True(t, sub.CreatedAt.Equal(got.CreatedAt))

	analysis := models.AnalysisResult{NarrativeText: "Key Insights:\nok", WasGeneratedByProvider: true, ProviderUsed: "provider-1"}
	require.NoError(t, store.UpdateAnalysis(ctx, "sub-1", analysis))
	require.NoError(t, store.UpdateArtifactURL(ctx, "sub-1", "https://x.test/reports/2026/02/r.pdf"))
	require.NoError(t, store.IncrementDownloadCount(ctx, "sub-1"))
	require.NoError(t, store.IncrementDownloadCount(ctx, "sub-1"))

	got, err = store.Get(ctx, "sub-1")
	require.NoError(t, err)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, analysis, *got.Analysis)
	assert.Equal(t, "https://x.test/reports/2026/02/r.pdf", got.ArtifactURL)
	assert.Equal(t, 2, got.DownloadCount)
	assert.Equal(t, "Sam Lee", got.ContactName)

	// re-running overwrites
	analysis.ProviderUsed = "provider-2"
	require.NoError(t, store.UpdateAnalysis(ctx, "sub-1", analysis))
	got, err = store.Get(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "provider-2", got.Analysis.ProviderUsed)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
	assert.ErrorIs(t, store.UpdateAnalysis(ctx, "missing", analysis), ErrSubmissionNotFound)
	assert.ErrorIs(t, store.UpdateArtifactURL(ctx, "missing", "x"), ErrSubmissionNotFound)
	assert.ErrorIs(t, store.IncrementDownloadCount(ctx, "missing"), ErrSubmissionNotFound)
}

// ==========================
// Backends
// ==========================

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_IsolatesCallers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sub := sampleSubmission("sub-1")
	require.NoError(t, store.Create(ctx, sub))

	sub.Answers[9] = models.AnswerFull
	got, err := store.Get(ctx, "sub-1")
	require.NoError(t, err)
	got.Organization = "changed"

	again, err := store.Get(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Metals", again.Organization)
	assert.NotContains(t, again.Answers, 9)

	assert.ErrorIs(t, store.Create(ctx, sampleSubmission("sub-1")), ErrDuplicateID)
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, newSQLiteStore(t))
}

func TestSQLiteStore_EnsureSchemaIsIdempotent(t *testing.T) {
	store := newSQLiteStore(t)
	assert.NoError(t, store.EnsureSchema(context.Background()))
}
