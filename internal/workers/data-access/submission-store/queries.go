package submissionstore

const tableName = "assessment_submissions"

const schemaSQL = `CREATE TABLE IF NOT EXISTS assessment_submissions (
	id               TEXT PRIMARY KEY,
	organization     TEXT NOT NULL,
	staff_count      INTEGER NOT NULL,
	contact_name     TEXT NOT NULL,
	contact_email    TEXT NOT NULL,
	contact_phone    TEXT NOT NULL DEFAULT '',
	answers          TEXT NOT NULL,
	score_percentage INTEGER NOT NULL,
	maturity_tier    TEXT NOT NULL,
	analysis         TEXT,
	artifact_url     TEXT NOT NULL DEFAULT '',
	download_count   INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
)`

// Queries use $n placeholders, each referenced once and in order, so they can be rewritten
// to ? for SQLite.
const (
	insertSubmissionSQL = `INSERT INTO assessment_submissions
	(id, organization, staff_count, contact_name, contact_email, contact_phone, answers,
	 score_percentage, maturity_tier, analysis, artifact_url, download_count, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	selectSubmissionSQL = `SELECT id, organization, staff_count, contact_name, contact_email, contact_phone,
	answers, score_percentage, maturity_tier, analysis, artifact_url, download_count, created_at, updated_at
	FROM assessment_submissions WHERE id = $1`

	updateAnalysisSQL = `UPDATE assessment_submissions SET analysis = $1, updated_at = $2 WHERE id = $3`

	updateArtifactURLSQL = `UPDATE assessment_submissions SET artifact_url = $1, updated_at = $2 WHERE id = $3`

	incrementDownloadCountSQL = `UPDATE assessment_submissions SET download_count = download_count + 1, updated_at = $1 WHERE id = $2`
)
