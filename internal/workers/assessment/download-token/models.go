package downloadtoken

import "time"

// DownloadToken is an issued token and what it grants access to.
type DownloadToken struct {
	Token        string    `json:"token"`
	SubmissionID string    `json:"submissionId"`
	BoundPath    string    `json:"boundPath"`
	ContactEmail string    `json:"contactEmail"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// record is the Redis value stored under a token.
type record struct {
	SubmissionID string    `json:"submissionId"`
	BoundPath    string    `json:"boundPath"`
	ContactEmail string    `json:"contactEmail"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Resolution is a successfully resolved token.
type Resolution struct {
	SubmissionID string
	Path         string
	ContactEmail string
	ExpiresAt    time.Time
}
