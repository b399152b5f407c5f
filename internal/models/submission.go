// internal/models/submission.go
package models

import (
	"sort"
	"time"
)

// AnswerCode is the implementation status given for one question.
type AnswerCode string

const (
	AnswerFull    AnswerCode = "A"
	AnswerPartial AnswerCode = "B"
	AnswerNone    AnswerCode = "C"
)

func (c AnswerCode) Valid() bool {
	switch c {
	case AnswerFull, AnswerPartial, AnswerNone:
		return true
	}
	return false
}

// Label is the fixed report label; unknown codes read as not implemented.
func (c AnswerCode) Label() string {
	switch c {
	case AnswerFull:
		return "Fully implemented"
	case AnswerPartial:
		return "Partially implemented"
	default:
		return "Not implemented"
	}
}

// AnswerSet maps a question index to its answer code. JSON keys are the decimal index.
type AnswerSet map[int]AnswerCode

// Indexes returns the answered question indexes in ascending order.
func (a AnswerSet) Indexes() []int {
	out := make([]int, 0, len(a))
	for i := range a {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Get returns the code for question i, C when unanswered.
func (a AnswerSet) Get(i int) AnswerCode {
	if c, ok := a[i]; ok && c.Valid() {
		return c
	}
	return AnswerNone
}

// MaturityTier is the ordered summary category of a percentage score.
type MaturityTier string

const (
	TierInitial     MaturityTier = "Initial"
	TierManaged     MaturityTier = "Managed"
	TierEstablished MaturityTier = "Established"
	TierOptimised   MaturityTier = "Optimised"
)

type ScoreResult struct {
	Percentage   int          `json:"percentage"`
	MaturityTier MaturityTier `json:"maturityTier"`
}

type AnalysisResult struct {
	NarrativeText          string `json:"narrativeText"`
	WasGeneratedByProvider bool   `json:"wasGeneratedByProvider"`
	ProviderUsed           string `json:"providerUsed,omitempty"`
}

type MediaType string

const (
	MediaDocument     MediaType = "document"
	MediaFallbackText MediaType = "fallbackText"
)

// Artifact is one rendered report file. A new run always produces a new artifact.
type Artifact struct {
	Path      string    `json:"path"`
	PublicURL string    `json:"publicUrl"`
	MediaType MediaType `json:"mediaType"`
}

// ContentType is the HTTP content type the artifact is served with.
func (a Artifact) ContentType() string {
	if a.MediaType == MediaDocument {
		return "application/pdf"
	}
	return "text/html; charset=utf-8"
}

// Submission is the persisted record of one Stage 1 request and its Stage 2 enrichments.
type Submission struct {
	ID            string          `json:"id"`
	Organization  string          `json:"organization"`
	StaffCount    int             `json:"staffCount"`
	ContactName   string          `json:"contactName"`
	ContactEmail  string          `json:"contactEmail"`
	ContactPhone  string          `json:"contactPhone"`
	Answers       AnswerSet       `json:"answers"`
	Score         ScoreResult     `json:"score"`
	Analysis      *AnalysisResult `json:"analysis,omitempty"`
	ArtifactURL   string          `json:"artifactUrl,omitempty"`
	DownloadCount int             `json:"downloadCount"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}
